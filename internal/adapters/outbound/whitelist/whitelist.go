// Package whitelist reads the branch whitelist document: a JSON array
// of branch names.
package whitelist

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/monomaker/monomaker/internal/domain"
)

// JSONLoader implements domain.WhitelistLoader.
type JSONLoader struct{}

// New creates a JSONLoader.
func New() *JSONLoader { return &JSONLoader{} }

// Load reads a whitelist file. The document must be a JSON array of
// strings; anything else maps to ErrBadWhitelist. The returned slice
// is non-nil even when the array is empty, so callers can tell "empty
// whitelist" from "no whitelist".
func (l *JSONLoader) Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrBadWhitelist, path, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: not a JSON array", domain.ErrBadWhitelist, path)
	}

	branches := make([]string, 0, len(raw))
	for i, msg := range raw {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil, fmt.Errorf("%w: %s: element %d is not a string", domain.ErrBadWhitelist, path, i)
		}
		if s == "" {
			return nil, fmt.Errorf("%w: %s: element %d is empty", domain.ErrBadWhitelist, path, i)
		}
		branches = append(branches, s)
	}
	return branches, nil
}
