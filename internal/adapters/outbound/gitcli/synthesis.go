package gitcli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	gitconfig "github.com/go-git/go-git/v5/plumbing/format/config"

	"github.com/monomaker/monomaker/internal/domain"
)

// checkoutBatch bounds the number of paths handed to one git checkout
// invocation, keeping the argument list well below OS limits.
const checkoutBatch = 500

// SubtreeAdd imports ref of srcDir into the checked-out branch of dir
// under prefix via a subtree merge, so the source history stays
// reachable from the new commit.
func (d *Driver) SubtreeAdd(ctx context.Context, dir, srcDir, ref, prefix string) error {
	if err := d.fetchImport(ctx, dir, srcDir, ref); err != nil {
		return err
	}
	defer d.dropImport(ctx, dir)

	if _, err := d.run(ctx, dir, "merge", "-s", "ours", "--no-commit", "--allow-unrelated-histories", "FETCH_HEAD"); err != nil {
		return err
	}
	if _, err := d.run(ctx, dir, "read-tree", "--prefix="+prefix+"/", "-u", "FETCH_HEAD"); err != nil {
		d.abortMerge(ctx, dir)
		return err
	}
	msg := fmt.Sprintf("%s import %s from %s", domain.CommitPrefix, prefix, ref)
	if _, err := d.run(ctx, dir, "commit", "--quiet", "--no-verify", "-m", msg); err != nil {
		d.abortMerge(ctx, dir)
		return err
	}
	return nil
}

// OverlayRoot starts an ours-merge of ref from srcDir and stages the
// source's blobs at the root of dir, leaving the merge open for the
// caller to commit. Gitlinks and the source .gitmodules are never
// staged; blobs under a protected path are skipped and returned.
func (d *Driver) OverlayRoot(ctx context.Context, dir, srcDir, ref string, protected []string) ([]string, error) {
	if err := d.fetchImport(ctx, dir, srcDir, ref); err != nil {
		return nil, err
	}
	defer d.dropImport(ctx, dir)

	if _, err := d.run(ctx, dir, "merge", "-s", "ours", "--no-commit", "--allow-unrelated-histories", "FETCH_HEAD"); err != nil {
		return nil, err
	}

	out, err := d.run(ctx, dir, "ls-tree", "-r", "-z", "FETCH_HEAD")
	if err != nil {
		d.abortMerge(ctx, dir)
		return nil, err
	}

	var paths, shadowed []string
	for _, e := range parseTreeEntries(out) {
		switch {
		case e.Type != "blob":
			// gitlinks stay pins, handled separately
		case e.Path == ".gitmodules":
			// the source's submodule registry does not survive
		case underAny(e.Path, protected):
			shadowed = append(shadowed, e.Path)
		default:
			paths = append(paths, e.Path)
		}
	}

	for start := 0; start < len(paths); start += checkoutBatch {
		end := start + checkoutBatch
		if end > len(paths) {
			end = len(paths)
		}
		args := append([]string{"checkout", "FETCH_HEAD", "--"}, paths[start:end]...)
		if _, err := d.run(ctx, dir, args...); err != nil {
			d.abortMerge(ctx, dir)
			return nil, err
		}
	}
	return shadowed, nil
}

// MergeOurs records a merge of ref keeping the current tree.
func (d *Driver) MergeOurs(ctx context.Context, dir, ref, message string) error {
	_, err := d.run(ctx, dir, "merge", "-s", "ours", "--allow-unrelated-histories", "--no-verify", "-m", message, ref)
	return err
}

// AddSubmodulePin registers a submodule at path pinned to sha: a
// .gitmodules entry plus a gitlink in the index, staged but not
// committed.
func (d *Driver) AddSubmodulePin(ctx context.Context, dir, pinPath, url, sha string) error {
	section := "submodule." + pinPath
	if _, err := d.run(ctx, dir, "config", "-f", ".gitmodules", section+".path", pinPath); err != nil {
		return err
	}
	if _, err := d.run(ctx, dir, "config", "-f", ".gitmodules", section+".url", url); err != nil {
		return err
	}
	if parent := path.Dir(pinPath); parent != "." {
		if _, err := d.run(ctx, dir, "rm", "-r", "--cached", "--ignore-unmatch", "--quiet", "--", pinPath); err != nil {
			return err
		}
	}
	// an empty directory stands in for the unchecked-out submodule, so a
	// later "git add --all" does not stage the gitlink as deleted
	if err := os.MkdirAll(filepath.Join(dir, filepath.FromSlash(pinPath)), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", pinPath, err)
	}
	if _, err := d.run(ctx, dir, "update-index", "--add", "--cacheinfo", "160000,"+sha+","+pinPath); err != nil {
		return err
	}
	_, err := d.run(ctx, dir, "add", ".gitmodules")
	return err
}

// ListSubmodules reads ref's .gitmodules and pairs each declared
// submodule with the gitlink SHA pinned in the same tree. Entries come
// back in declaration order; a tree without .gitmodules has no
// submodules.
func (d *Driver) ListSubmodules(ctx context.Context, dir, ref string) ([]domain.SubmoduleEntry, error) {
	raw, err := d.run(ctx, dir, "show", ref+":.gitmodules")
	if err != nil {
		var execErr *domain.ExecError
		if errors.As(err, &execErr) {
			return []domain.SubmoduleEntry{}, nil
		}
		return nil, err
	}

	declared, err := parseGitmodules(raw)
	if err != nil {
		return nil, fmt.Errorf("parse .gitmodules at %s: %w", ref, err)
	}

	entries := make([]domain.SubmoduleEntry, 0, len(declared))
	for _, sub := range declared {
		sha, err := d.LsTreeEntry(ctx, dir, ref, sub.Path)
		if err != nil {
			if errors.Is(err, domain.ErrRefNotFound) {
				// declared but not pinned, nothing to import
				continue
			}
			return nil, err
		}
		entries = append(entries, domain.SubmoduleEntry{Path: sub.Path, URL: sub.URL, SHA: sha})
	}
	return entries, nil
}

// parseGitmodules decodes a .gitmodules document, preserving the
// declaration order of its submodule sections.
func parseGitmodules(raw string) ([]domain.SubmoduleEntry, error) {
	cfg := gitconfig.New()
	if err := gitconfig.NewDecoder(strings.NewReader(raw)).Decode(cfg); err != nil {
		return nil, err
	}
	var out []domain.SubmoduleEntry
	for _, sub := range cfg.Section("submodule").Subsections {
		p := sub.Option("path")
		if p == "" {
			continue
		}
		out = append(out, domain.SubmoduleEntry{Path: p, URL: sub.Option("url")})
	}
	return out, nil
}

// LsTreeEntry returns the object SHA recorded for path in ref's tree.
func (d *Driver) LsTreeEntry(ctx context.Context, dir, ref, treePath string) (string, error) {
	out, err := d.run(ctx, dir, "ls-tree", "-z", ref, "--", treePath)
	if err != nil {
		return "", err
	}
	for _, e := range parseTreeEntries(out) {
		if e.Path == treePath {
			return e.SHA, nil
		}
	}
	return "", fmt.Errorf("%s at %s: %w", treePath, ref, domain.ErrRefNotFound)
}

// ListMergeCommits returns the merge commits on branch beyond base,
// oldest first.
func (d *Driver) ListMergeCommits(ctx context.Context, dir, branch, base string) ([]domain.MergeCommit, error) {
	out, err := d.run(ctx, dir, "log", "--merges", "--reverse", "--format=%H%x09%P%x09%s", branch, "^"+base)
	if err != nil {
		return nil, err
	}
	return parseMergeLog(out)
}

// fetchImport wires srcDir up as a throwaway remote and fetches ref
// into FETCH_HEAD.
func (d *Driver) fetchImport(ctx context.Context, dir, srcDir, ref string) error {
	d.dropImport(ctx, dir)
	if _, err := d.run(ctx, dir, "remote", "add", importRemote, srcDir); err != nil {
		return err
	}
	if _, err := d.run(ctx, dir, "fetch", "--quiet", importRemote, ref); err != nil {
		d.dropImport(ctx, dir)
		return fmt.Errorf("fetch %s from %s: %w", ref, srcDir, err)
	}
	return nil
}

// dropImport removes the throwaway remote. Failure is ignored; the
// remote may simply not exist.
func (d *Driver) dropImport(ctx context.Context, dir string) {
	_, _ = d.run(ctx, dir, "remote", "remove", importRemote)
}

// abortMerge backs out of a half-open merge so the work tree is usable
// for the next attempt.
func (d *Driver) abortMerge(ctx context.Context, dir string) {
	_, _ = d.run(ctx, dir, "merge", "--abort")
}

// underAny reports whether p equals one of the prefixes or lies below
// one of them.
func underAny(p string, prefixes []string) bool {
	for _, pre := range prefixes {
		if p == pre || strings.HasPrefix(p, pre+"/") {
			return true
		}
	}
	return false
}
