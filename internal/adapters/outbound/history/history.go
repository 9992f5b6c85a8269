package history

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/monomaker/monomaker/internal/domain"
)

const historyFile = ".monomaker/history/runs.json"

// FileHistory implements domain.RunHistory using JSON file storage
// inside the meta-repo directory. The ledger survives across
// workspaces, so successive runs against the same meta-repo can be
// compared.
type FileHistory struct{}

func New() *FileHistory {
	return &FileHistory{}
}

func (h *FileHistory) Save(metaPath string, entry domain.RunEntry) error {
	entries, err := h.Load(metaPath)
	if err != nil {
		return err
	}

	entries = append(entries, entry)

	fp := filepath.Join(metaPath, historyFile)
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(fp, data, 0o644)
}

func (h *FileHistory) Load(metaPath string) ([]domain.RunEntry, error) {
	fp := filepath.Join(metaPath, historyFile)

	data, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []domain.RunEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

var _ domain.RunHistory = (*FileHistory)(nil)
