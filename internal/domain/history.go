package domain

// RunEntry is one line of a meta-repo's migration history ledger. The
// full detail lives in the run's report.json; the ledger only keeps
// enough to compare runs over time.
type RunEntry struct {
	Timestamp   string `json:"timestamp"`
	MetaHead    string `json:"meta_head"`
	Workspace   string `json:"workspace"`
	Synthesized int    `json:"synthesized"`
	Failures    int    `json:"failures"`
}

// NewRunEntry summarizes a finished report into a ledger entry.
func NewRunEntry(report *Report, metaHead, workspace string) RunEntry {
	return RunEntry{
		Timestamp:   report.FinishedAt,
		MetaHead:    metaHead,
		Workspace:   workspace,
		Synthesized: len(report.Synthesized()),
		Failures:    len(report.Failures()),
	}
}
