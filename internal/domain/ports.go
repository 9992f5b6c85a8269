package domain

import "context"

// MergeCommit is one merge commit found on a feature branch beyond its
// default branch, reported oldest first.
type MergeCommit struct {
	SHA     string
	Parents []string
	Subject string
}

// SubmoduleEntry is a first-layer submodule declaration as read from a
// .gitmodules file, paired with the pinned SHA from the owning tree.
type SubmoduleEntry struct {
	Path string
	URL  string
	SHA  string
}

// VCS is the driver port for every version-control operation the
// migration needs. Implementations run against one repository rooted at
// dir; operations take a context so a run can be cancelled mid-branch.
//
// Mutating operations on the monorepo are sequenced by the
// orchestrator, so implementations need not be safe for concurrent use
// on the same dir. Read-only discovery calls may run concurrently
// against distinct dirs.
type VCS interface {
	// IsRepo reports whether dir is the top level of a git work tree.
	IsRepo(ctx context.Context, dir string) (bool, error)

	// Init creates a repository at dir with the given initial branch.
	Init(ctx context.Context, dir, initialBranch string) error

	// Clone makes a full local clone of src at dst.
	Clone(ctx context.Context, src, dst string) error

	// FetchAllBranches creates a local branch for every remote branch
	// of origin, without checking any of them out.
	FetchAllBranches(ctx context.Context, dir string) error

	// ListBranches returns the local branch names of dir.
	ListBranches(ctx context.Context, dir string) ([]string, error)

	// DefaultBranch resolves the default branch of dir, preferring the
	// origin HEAD symref and falling back to the current local HEAD.
	// Returns ErrNoDefaultBranch when neither is discoverable.
	DefaultBranch(ctx context.Context, dir string) (string, error)

	// ListSubmodules parses the .gitmodules of the given ref together
	// with the gitlink pins in its tree. A missing .gitmodules yields
	// an empty slice, not an error.
	ListSubmodules(ctx context.Context, dir, ref string) ([]SubmoduleEntry, error)

	// Checkout switches dir to the named ref.
	Checkout(ctx context.Context, dir, ref string) error

	// CreateBranch creates (or resets) branch name at startPoint and
	// checks it out.
	CreateBranch(ctx context.Context, dir, name, startPoint string) error

	// DeleteBranch force-deletes a local branch.
	DeleteBranch(ctx context.Context, dir, name string) error

	// CurrentSHA returns the commit SHA of HEAD.
	CurrentSHA(ctx context.Context, dir string) (string, error)

	// ResolveRef returns the commit SHA a ref points at, or
	// ErrRefNotFound.
	ResolveRef(ctx context.Context, dir, ref string) (string, error)

	// SubtreeAdd imports ref from the repository at srcDir into the
	// checked-out branch of dir under prefix, preserving the source
	// history via a subtree merge.
	SubtreeAdd(ctx context.Context, dir, srcDir, ref, prefix string) error

	// OverlayRoot starts a tree-keeping merge of ref from the
	// repository at srcDir into the checked-out branch of dir and
	// stages the source's file content on top, skipping gitlinks, the
	// source .gitmodules, and anything under a protected path. The
	// merge is left open; the caller finalizes it with Commit. Source
	// paths that were shadowed by protected content are returned.
	OverlayRoot(ctx context.Context, dir, srcDir, ref string, protected []string) (shadowed []string, err error)

	// MergeOurs records a merge of ref into the checked-out branch
	// keeping the current tree, with the given commit message.
	MergeOurs(ctx context.Context, dir, ref, message string) error

	// Commit stages everything and commits with message. Committing an
	// empty stage is not an error when allowEmpty is set.
	Commit(ctx context.Context, dir, message string, allowEmpty bool) error

	// UpdateRef points the fully-qualified ref at sha, creating it if
	// needed.
	UpdateRef(ctx context.Context, dir, ref, sha string) error

	// Tag creates (or moves) a lightweight tag at HEAD.
	Tag(ctx context.Context, dir, name string) error

	// AddSubmodulePin writes a .gitmodules entry and a gitlink at path
	// pinned to sha, staged but not committed.
	AddSubmodulePin(ctx context.Context, dir, path, url, sha string) error

	// RemovePath drops path from the index and work tree. A missing
	// path is not an error.
	RemovePath(ctx context.Context, dir, path string) error

	// LsTreeEntry returns the SHA recorded for path in the tree of
	// ref, or ErrRefNotFound when the path is absent.
	LsTreeEntry(ctx context.Context, dir, ref, path string) (string, error)

	// ListMergeCommits returns the merge commits reachable from branch
	// but not from base, oldest first.
	ListMergeCommits(ctx context.Context, dir, branch, base string) ([]MergeCommit, error)

	// IsClean reports whether the work tree and index have no pending
	// changes.
	IsClean(ctx context.Context, dir string) (bool, error)

	// ResetHard discards all work-tree and index changes, resetting to
	// ref.
	ResetHard(ctx context.Context, dir, ref string) error

	// CleanUntracked removes untracked files and directories.
	CleanUntracked(ctx context.Context, dir string) error
}

// WhitelistLoader reads a branch whitelist document. A nil slice means
// no whitelist was given; an empty non-nil slice is a valid, empty
// whitelist.
type WhitelistLoader interface {
	Load(path string) ([]string, error)
}

// ConfigLoader reads the optional run configuration file, returning
// defaults when the file does not exist.
type ConfigLoader interface {
	Load(path string) (RunConfig, error)
}

// ReportWriter persists the migration report.
type ReportWriter interface {
	Write(path string, report *Report) error
}

// RunHistory keeps the per-meta-repo ledger of past migration runs.
type RunHistory interface {
	Save(metaPath string, entry RunEntry) error
	Load(metaPath string) ([]RunEntry, error)
}

// HeadReader resolves the current HEAD commit of a repository without
// shelling out.
type HeadReader interface {
	HeadSHA(path string) (string, error)
}
