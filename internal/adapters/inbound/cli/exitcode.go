package cli

import (
	"errors"

	"github.com/monomaker/monomaker/internal/domain"
)

// errBranchFailures marks a run that finished but left at least one
// branch unsynthesized. The report carries the details.
var errBranchFailures = errors.New("some branches failed to synthesize")

// ExitCode maps an Execute error onto the process exit code contract:
// 0 success, 2 bad input, 3 partial branch failures, 4 git execution
// error or fatal discovery error (submodule path collision, no default
// branch), 5 violated internal guarantee, 130 interrupted. Any other
// error maps to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, domain.ErrCancelled) {
		return 130
	}
	if errors.Is(err, errBranchFailures) {
		return 3
	}
	if errors.Is(err, domain.ErrBadPath) ||
		errors.Is(err, domain.ErrNotARepo) ||
		errors.Is(err, domain.ErrBadWhitelist) {
		return 2
	}
	var inv *domain.InvariantError
	if errors.As(err, &inv) {
		return 5
	}
	var exec *domain.ExecError
	if errors.As(err, &exec) {
		return 4
	}
	var conflict *domain.MergeConflictError
	if errors.As(err, &conflict) {
		return 4
	}
	var collision *domain.PathCollisionError
	if errors.As(err, &collision) || errors.Is(err, domain.ErrNoDefaultBranch) {
		return 4
	}
	return 1
}
