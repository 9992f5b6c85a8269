package gitcli

import (
	"fmt"
	"strings"

	"github.com/monomaker/monomaker/internal/domain"
)

// treeEntry is one parsed line of git ls-tree -z output.
type treeEntry struct {
	Mode string
	Type string
	SHA  string
	Path string
}

// parseTreeEntries decodes NUL-terminated ls-tree output. Each record
// is "<mode> <type> <sha>\t<path>"; malformed records are skipped.
func parseTreeEntries(out string) []treeEntry {
	var entries []treeEntry
	for _, rec := range strings.Split(out, "\x00") {
		if rec == "" {
			continue
		}
		meta, p, ok := strings.Cut(rec, "\t")
		if !ok {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 {
			continue
		}
		entries = append(entries, treeEntry{Mode: fields[0], Type: fields[1], SHA: fields[2], Path: p})
	}
	return entries
}

// parseRemoteBranches strips the origin/ prefix from for-each-ref
// short names and drops the HEAD symref.
func parseRemoteBranches(out string) []string {
	var names []string
	for _, line := range splitLines(out) {
		name := strings.TrimPrefix(line, "origin/")
		if name == "" || name == "HEAD" {
			continue
		}
		names = append(names, name)
	}
	return names
}

// parseMergeLog decodes "git log --format=%H%x09%P%x09%s" output into
// merge commits.
func parseMergeLog(out string) ([]domain.MergeCommit, error) {
	var commits []domain.MergeCommit
	for _, line := range splitLines(out) {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("malformed log line %q", line)
		}
		mc := domain.MergeCommit{SHA: parts[0], Parents: strings.Fields(parts[1])}
		if len(parts) == 3 {
			mc.Subject = parts[2]
		}
		commits = append(commits, mc)
	}
	return commits, nil
}

// splitLines splits trimmed command output into non-empty lines.
func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
