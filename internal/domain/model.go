package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// MetaTargetSubpath is the target subpath of the meta-repo inside the
// monorepo: its tree lands at the root.
const MetaTargetSubpath = "."

// CommitPrefix marks every commit created by monomaker so tool-made
// history stays identifiable in the resulting monorepo.
const CommitPrefix = "[monomaker]"

// NestedSubmodule is a second-layer submodule declared inside a
// first-layer repo. It is preserved verbatim: the monorepo keeps it as
// a submodule pin at the owner's target subpath plus Path.
type NestedSubmodule struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	SHA  string `json:"sha"`
}

// Repository describes one participating repo after discovery. It is
// immutable once built; equality is by Name.
type Repository struct {
	Name             string
	LocalPath        string
	DefaultBranch    string
	Branches         []string
	NestedSubmodules []NestedSubmodule
	TargetSubpath    string
}

// IsMeta reports whether this repository is the meta-repo.
func (r Repository) IsMeta() bool { return r.TargetSubpath == MetaTargetSubpath }

// HasBranch reports whether the repo has a local branch with the given name.
func (r Repository) HasBranch(name string) bool {
	for _, b := range r.Branches {
		if b == name {
			return true
		}
	}
	return false
}

// Validate checks the model invariants: a non-empty name and a default
// branch that is a member of the branch set.
func (r Repository) Validate() error {
	if r.Name == "" {
		return &InvariantError{Msg: "repository has no name"}
	}
	if r.DefaultBranch == "" {
		return fmt.Errorf("repo %s: %w", r.Name, ErrNoDefaultBranch)
	}
	if !r.HasBranch(r.DefaultBranch) {
		return &InvariantError{Msg: fmt.Sprintf("repo %s: default branch %q not in branch set", r.Name, r.DefaultBranch)}
	}
	return nil
}

// SortedBranches returns the branch set in lexicographic order.
func (r Repository) SortedBranches() []string {
	out := append([]string(nil), r.Branches...)
	sort.Strings(out)
	return out
}

// PinPath returns the monorepo path of a nested submodule owned by r.
func (r Repository) PinPath(nested NestedSubmodule) string {
	if r.IsMeta() {
		return nested.Path
	}
	return path.Join(r.TargetSubpath, nested.Path)
}

// Workspace is the on-disk layout of one run.
//
//	<root>/sources/<repo-name>/    full local clone per participating repo
//	<root>/monorepo/               the produced monorepo
//	<root>/report.json             the migration report
type Workspace struct {
	Root string
}

func (w Workspace) SourcesDir() string           { return filepath.Join(w.Root, "sources") }
func (w Workspace) SourceDir(name string) string { return filepath.Join(w.Root, "sources", name) }
func (w Workspace) MonorepoDir() string          { return filepath.Join(w.Root, "monorepo") }
func (w Workspace) ReportPath() string           { return filepath.Join(w.Root, "report.json") }

// RepoNameFromURL extracts a repository name from a clone URL or local
// path, dropping a trailing .git suffix. Falls back to fallback when
// nothing usable remains.
func RepoNameFromURL(url, fallback string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	name := trimmed[strings.LastIndexAny(trimmed, "/\\")+1:]
	if name == "" || name == "." {
		return fallback
	}
	return name
}

// RepoNameFromSubpath derives a repo name from a submodule's target
// subpath, flattening path separators. Distinct subpaths can flatten to
// the same name ("libs/a" and "libs-a"); discovery rejects that case
// with a PathCollisionError.
func RepoNameFromSubpath(subpath string) string {
	return strings.ReplaceAll(strings.Trim(subpath, "/"), "/", "-")
}
