package gitinfo

import (
	"fmt"

	"github.com/go-git/go-git/v5"

	"github.com/monomaker/monomaker/internal/domain"
)

// Adapter implements domain.HeadReader using go-git. It stamps history
// ledger entries with the meta-repo HEAD without spawning a git
// process.
type Adapter struct{}

func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) HeadSHA(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("opening git repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}

	return head.Hash().String(), nil
}

var _ domain.HeadReader = (*Adapter)(nil)
