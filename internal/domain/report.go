package domain

import "time"

// ReportVersion is the schema version written to report.json.
const ReportVersion = 1

// RepoDiscovered records the observed state of one participating repo.
type RepoDiscovered struct {
	Name             string            `json:"name"`
	DefaultBranch    string            `json:"default_branch"`
	Branches         []string          `json:"branches"`
	NestedSubmodules []NestedSubmodule `json:"nested_submodules"`
	TargetSubpath    string            `json:"target_subpath"`
}

// WhitelistApplied records the requested whitelist and the effective
// branch set after union with every repo's default branch.
type WhitelistApplied struct {
	Requested []string `json:"requested"`
	Effective []string `json:"effective"`
}

// BranchResolved records the plan chosen for one target branch.
type BranchResolved struct {
	Branch string      `json:"branch"`
	Plan   []PlanEntry `json:"plan"`
}

// OutcomeKind tags the Outcome variants.
type OutcomeKind string

const (
	OutcomeSynthesized  OutcomeKind = "synthesized"
	OutcomeSkip         OutcomeKind = "skip"
	OutcomeFailure      OutcomeKind = "failure"
	OutcomePathOverride OutcomeKind = "path_override"
)

// Outcome is a tagged per-step result. Exactly the fields belonging to
// the tagged variant are populated; the rest are omitted from JSON.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	Branch    string      `json:"branch,omitempty"`
	CommitSHA string      `json:"commit_sha,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Step      string      `json:"step,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	Path      string      `json:"path,omitempty"`
}

// Report is the append-only migration report. Records keep creation
// order inside each section; the orchestrator sequences appends, so no
// locking is needed. Field order is fixed for test-friendly diffs, and
// a partially filled report still serializes to valid JSON.
type Report struct {
	Version     int               `json:"version"`
	StartedAt   string            `json:"started_at"`
	FinishedAt  string            `json:"finished_at"`
	Repos       []RepoDiscovered  `json:"repos"`
	Whitelist   *WhitelistApplied `json:"whitelist,omitempty"`
	Resolutions []BranchResolved  `json:"resolutions"`
	Outcomes    []Outcome         `json:"outcomes"`
}

// NewReport starts a report at the given wall-clock time.
func NewReport(started time.Time) *Report {
	return &Report{
		Version:     ReportVersion,
		StartedAt:   started.UTC().Format(time.RFC3339),
		Repos:       []RepoDiscovered{},
		Resolutions: []BranchResolved{},
		Outcomes:    []Outcome{},
	}
}

// Finish stamps the completion time.
func (r *Report) Finish(finished time.Time) {
	r.FinishedAt = finished.UTC().Format(time.RFC3339)
}

// AddRepo appends a discovery record built from a repository model.
// Branches are recorded in lexicographic order so identical inputs
// produce byte-identical reports.
func (r *Report) AddRepo(repo Repository) {
	nested := repo.NestedSubmodules
	if nested == nil {
		nested = []NestedSubmodule{}
	}
	r.Repos = append(r.Repos, RepoDiscovered{
		Name:             repo.Name,
		DefaultBranch:    repo.DefaultBranch,
		Branches:         repo.SortedBranches(),
		NestedSubmodules: nested,
		TargetSubpath:    repo.TargetSubpath,
	})
}

// SetWhitelist records the whitelist application once per run.
func (r *Report) SetWhitelist(requested, effective []string) {
	if requested == nil {
		requested = []string{}
	}
	if effective == nil {
		effective = []string{}
	}
	r.Whitelist = &WhitelistApplied{Requested: requested, Effective: effective}
}

// AddResolution appends the plan for one branch.
func (r *Report) AddResolution(plan BranchPlan) {
	r.Resolutions = append(r.Resolutions, BranchResolved{Branch: plan.Branch, Plan: plan.Entries})
}

// AddSynthesized records a successfully built branch head.
func (r *Report) AddSynthesized(branch, sha string) {
	r.Outcomes = append(r.Outcomes, Outcome{Kind: OutcomeSynthesized, Branch: branch, CommitSHA: sha})
}

// AddSkip records a non-fatal resolution anomaly.
func (r *Report) AddSkip(branch, reason string) {
	r.Outcomes = append(r.Outcomes, Outcome{Kind: OutcomeSkip, Branch: branch, Reason: reason})
}

// AddFailure records a failed step.
func (r *Report) AddFailure(branch, step, detail string) {
	r.Outcomes = append(r.Outcomes, Outcome{Kind: OutcomeFailure, Branch: branch, Step: step, Detail: detail})
}

// AddPathOverride records a path kept from a submodule where the
// meta-repo carried a colliding entry.
func (r *Report) AddPathOverride(branch, path string) {
	r.Outcomes = append(r.Outcomes, Outcome{Kind: OutcomePathOverride, Branch: branch, Path: path})
}

// Synthesized returns the branches that were successfully built.
func (r *Report) Synthesized() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Kind == OutcomeSynthesized {
			out = append(out, o.Branch)
		}
	}
	return out
}

// Failures returns the failure outcomes.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Kind == OutcomeFailure {
			out = append(out, o)
		}
	}
	return out
}
