// Package gitcli implements the domain.VCS port by shelling out to the
// git executable, with go-git handling the read-only parsing side.
package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/monomaker/monomaker/internal/domain"
)

// importRemote is the throwaway remote name used while importing one
// source repo into the monorepo.
const importRemote = "monomaker-import"

// Driver runs git commands against local repositories. One Driver is
// shared across repos; the dir argument selects the work tree.
type Driver struct {
	bin     string
	timeout time.Duration
	log     *zap.Logger
}

// New builds a Driver using the given git binary. A zero timeout
// disables the per-command deadline.
func New(bin string, timeout time.Duration, log *zap.Logger) *Driver {
	if bin == "" {
		bin = "git"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{bin: bin, timeout: timeout, log: log}
}

// run executes one git command in dir and returns trimmed stdout.
// Failures come back as *domain.ExecError; a cancelled context maps to
// domain.ErrCancelled.
func (d *Driver) run(ctx context.Context, dir string, args ...string) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, d.bin, args...)
	cmd.Dir = dir
	cmd.Env = d.env()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	d.log.Debug("git", zap.String("dir", dir), zap.Strings("args", args))
	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %s: %w", args[0], domain.ErrCancelled)
		}
		exit := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exit = ee.ExitCode()
		}
		return "", &domain.ExecError{
			Cmd:      d.bin + " " + strings.Join(args, " "),
			ExitCode: exit,
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// env fixes the commit identity and honors SOURCE_DATE_EPOCH so two
// runs over the same inputs produce byte-identical history.
func (d *Driver) env() []string {
	env := append(os.Environ(),
		"GIT_CONFIG_NOSYSTEM=1",
	)
	if os.Getenv("GIT_AUTHOR_NAME") == "" {
		env = append(env,
			"GIT_AUTHOR_NAME=monomaker",
			"GIT_AUTHOR_EMAIL=monomaker@localhost",
			"GIT_COMMITTER_NAME=monomaker",
			"GIT_COMMITTER_EMAIL=monomaker@localhost",
		)
	}
	if epoch := os.Getenv("SOURCE_DATE_EPOCH"); epoch != "" {
		stamp := epoch + " +0000"
		env = append(env,
			"GIT_AUTHOR_DATE="+stamp,
			"GIT_COMMITTER_DATE="+stamp,
		)
	}
	return env
}

// IsRepo reports whether dir opens as a git repository.
func (d *Driver) IsRepo(ctx context.Context, dir string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, domain.ErrCancelled
	}
	if _, err := os.Stat(dir); err != nil {
		return false, fmt.Errorf("%w: %s", domain.ErrBadPath, dir)
	}
	_, err := gogit.PlainOpen(dir)
	if err == gogit.ErrRepositoryNotExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open %s: %w", dir, err)
	}
	return true, nil
}

// Init creates a repository with the given initial branch name.
func (d *Driver) Init(ctx context.Context, dir, initialBranch string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	_, err := d.run(ctx, dir, "init", "--initial-branch", initialBranch)
	return err
}

// Clone makes a full local clone of src at dst.
func (d *Driver) Clone(ctx context.Context, src, dst string) error {
	_, err := d.run(ctx, "", "clone", "--no-hardlinks", src, dst)
	return err
}

// FetchAllBranches materializes a local branch for every branch of
// origin. Already-existing locals are left alone.
func (d *Driver) FetchAllBranches(ctx context.Context, dir string) error {
	if _, err := d.run(ctx, dir, "fetch", "origin", "+refs/heads/*:refs/remotes/origin/*"); err != nil {
		return err
	}
	remote, err := d.run(ctx, dir, "for-each-ref", "--format=%(refname:short)", "refs/remotes/origin")
	if err != nil {
		return err
	}
	local, err := d.ListBranches(ctx, dir)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(local))
	for _, b := range local {
		have[b] = true
	}
	for _, name := range parseRemoteBranches(remote) {
		if have[name] {
			continue
		}
		if _, err := d.run(ctx, dir, "branch", "--track", name, "origin/"+name); err != nil {
			return err
		}
	}
	return nil
}

// ListBranches returns the local branch names of dir.
func (d *Driver) ListBranches(ctx context.Context, dir string) ([]string, error) {
	out, err := d.run(ctx, dir, "for-each-ref", "--format=%(refname:short)", "refs/heads")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// DefaultBranch resolves the default branch, preferring the origin
// HEAD symref and falling back to the local HEAD.
func (d *Driver) DefaultBranch(ctx context.Context, dir string) (string, error) {
	if out, err := d.run(ctx, dir, "symbolic-ref", "--short", "refs/remotes/origin/HEAD"); err == nil {
		if name := strings.TrimPrefix(out, "origin/"); name != "" {
			return name, nil
		}
	}
	out, err := d.run(ctx, dir, "symbolic-ref", "--short", "HEAD")
	if err != nil || out == "" {
		return "", fmt.Errorf("%s: %w", dir, domain.ErrNoDefaultBranch)
	}
	return out, nil
}

// Checkout switches dir to the named ref.
func (d *Driver) Checkout(ctx context.Context, dir, ref string) error {
	_, err := d.run(ctx, dir, "checkout", "--quiet", ref)
	return err
}

// CreateBranch creates or resets branch name at startPoint and checks
// it out.
func (d *Driver) CreateBranch(ctx context.Context, dir, name, startPoint string) error {
	_, err := d.run(ctx, dir, "checkout", "--quiet", "-B", name, startPoint)
	return err
}

// DeleteBranch force-deletes a local branch.
func (d *Driver) DeleteBranch(ctx context.Context, dir, name string) error {
	_, err := d.run(ctx, dir, "branch", "-D", name)
	return err
}

// CurrentSHA returns the commit SHA of HEAD.
func (d *Driver) CurrentSHA(ctx context.Context, dir string) (string, error) {
	return d.run(ctx, dir, "rev-parse", "HEAD")
}

// ResolveRef returns the commit SHA a ref points at.
func (d *Driver) ResolveRef(ctx context.Context, dir, ref string) (string, error) {
	out, err := d.run(ctx, dir, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("%s in %s: %w", ref, dir, domain.ErrRefNotFound)
	}
	return out, nil
}

// UpdateRef points a fully-qualified ref at sha.
func (d *Driver) UpdateRef(ctx context.Context, dir, ref, sha string) error {
	_, err := d.run(ctx, dir, "update-ref", ref, sha)
	return err
}

// Tag creates or moves a lightweight tag at HEAD.
func (d *Driver) Tag(ctx context.Context, dir, name string) error {
	_, err := d.run(ctx, dir, "tag", "--force", name)
	return err
}

// Commit stages everything and commits with message.
func (d *Driver) Commit(ctx context.Context, dir, message string, allowEmpty bool) error {
	if _, err := d.run(ctx, dir, "add", "--all"); err != nil {
		return err
	}
	args := []string{"commit", "--quiet", "-m", message}
	if allowEmpty {
		args = append(args, "--allow-empty")
	}
	_, err := d.run(ctx, dir, args...)
	return err
}

// IsClean reports whether the work tree and index have no pending
// changes.
func (d *Driver) IsClean(ctx context.Context, dir string) (bool, error) {
	out, err := d.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// ResetHard resets the work tree and index to ref.
func (d *Driver) ResetHard(ctx context.Context, dir, ref string) error {
	_, err := d.run(ctx, dir, "reset", "--hard", "--quiet", ref)
	return err
}

// CleanUntracked removes untracked files and directories.
func (d *Driver) CleanUntracked(ctx context.Context, dir string) error {
	_, err := d.run(ctx, dir, "clean", "-fdq")
	return err
}

// RemovePath drops path from the index and work tree.
func (d *Driver) RemovePath(ctx context.Context, dir, path string) error {
	_, err := d.run(ctx, dir, "rm", "-rf", "--ignore-unmatch", "--quiet", "--", path)
	return err
}

var _ domain.VCS = (*Driver)(nil)
