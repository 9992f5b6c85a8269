package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the input and discovery taxonomy. Callers match
// with errors.Is and map them to exit codes at the CLI boundary.
var (
	ErrBadPath         = errors.New("bad path")
	ErrNotARepo        = errors.New("not a git repository")
	ErrBadWhitelist    = errors.New("bad whitelist")
	ErrRefNotFound     = errors.New("ref not found")
	ErrNoDefaultBranch = errors.New("default branch not discoverable")
	ErrCancelled       = errors.New("run cancelled")
)

// ExecError is a failed invocation of the version-control executable.
// The driver never retries; it surfaces the exit code and stderr as-is.
type ExecError struct {
	Cmd      string
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("git command failed (exit %d): %s: %s", e.ExitCode, e.Cmd, e.Stderr)
}

// MergeConflictError reports a merge the driver could not complete.
type MergeConflictError struct {
	Repo string
	Ref  string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict in %s while merging %s", e.Repo, e.Ref)
}

// PathCollisionError reports two submodules resolving to the same
// monorepo path, either at discovery (duplicate target subpaths, or
// subpaths that flatten to the same repo name) or during synthesis
// (duplicate nested pins).
type PathCollisionError struct {
	Path          string
	First, Second string
}

func (e *PathCollisionError) Error() string {
	return fmt.Sprintf("path collision at %q between %s and %s", e.Path, e.First, e.Second)
}

// InvariantError indicates a broken internal invariant. It is always
// fatal and signals a bug rather than bad input.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "invariant violation: " + e.Msg }
