package domain

import (
	"fmt"
	"sort"
)

// PlanEntry is the per-repo choice for one target monorepo branch:
// either the feature branch itself or the repo's default branch.
type PlanEntry struct {
	Repo       string `json:"repo"`
	BranchUsed string `json:"branch_used"`
	FellBack   bool   `json:"fell_back"`
}

// BranchPlan maps one target monorepo branch to a choice per
// participating repo. Entries are in import order: first-layer
// submodules in declaration order, the meta-repo last, so the
// meta-repo's tree overlays last during synthesis.
type BranchPlan struct {
	Branch  string      `json:"branch"`
	Entries []PlanEntry `json:"plan"`
}

// Entry returns the plan entry for the named repo.
func (p BranchPlan) Entry(repo string) (PlanEntry, bool) {
	for _, e := range p.Entries {
		if e.Repo == repo {
			return e, true
		}
	}
	return PlanEntry{}, false
}

// AllFellBack reports whether every repo fell back to its default
// branch, i.e. the branch is a default-branch snapshot under a
// feature name.
func (p BranchPlan) AllFellBack() bool {
	for _, e := range p.Entries {
		if !e.FellBack {
			return false
		}
	}
	return true
}

// Resolution is the resolver's output: the ordered branch plans to
// synthesize plus whitelist entries that matched no repo branch.
type Resolution struct {
	Plans   []BranchPlan
	Unknown []string
}

// Effective returns the ordered set of branches that will be
// materialized in the monorepo.
func (r Resolution) Effective() []string {
	out := make([]string, 0, len(r.Plans))
	for _, p := range r.Plans {
		out = append(out, p.Branch)
	}
	return out
}

// Resolve computes the per-branch, per-repo plan for all participating
// repos. It is a pure function of its inputs.
//
// The effective branch set is the union of all repo branches,
// intersected with the whitelist when one is given; every repo's
// default branch is always included, so a whitelist can never exclude
// a default. Whitelist entries unknown to every repo are returned in
// Unknown rather than silently dropped.
//
// Plans are ordered deterministically: default branches first, stable
// by repo declaration order, then the remaining branches
// lexicographically. This is the synthesis order, so the monorepo's
// default branches are the first established.
func Resolve(repos []Repository, whitelist []string) (Resolution, error) {
	if len(repos) == 0 {
		return Resolution{}, &InvariantError{Msg: "no participating repositories"}
	}
	seen := make(map[string]bool, len(repos))
	for _, r := range repos {
		if err := r.Validate(); err != nil {
			return Resolution{}, err
		}
		if seen[r.Name] {
			return Resolution{}, &InvariantError{Msg: fmt.Sprintf("duplicate repo name %q", r.Name)}
		}
		seen[r.Name] = true
	}

	all := make(map[string]bool)
	for _, r := range repos {
		for _, b := range r.Branches {
			all[b] = true
		}
	}

	var defaults []string
	isDefault := make(map[string]bool)
	for _, r := range repos {
		if !isDefault[r.DefaultBranch] {
			isDefault[r.DefaultBranch] = true
			defaults = append(defaults, r.DefaultBranch)
		}
	}

	var features []string
	var unknown []string
	if whitelist != nil {
		requested := make(map[string]bool)
		for _, b := range whitelist {
			if requested[b] {
				continue
			}
			requested[b] = true
			switch {
			case isDefault[b]:
				// already included
			case all[b]:
				features = append(features, b)
			default:
				unknown = append(unknown, b)
			}
		}
	} else {
		for b := range all {
			if !isDefault[b] {
				features = append(features, b)
			}
		}
	}
	sort.Strings(features)
	sort.Strings(unknown)

	effective := append(append([]string(nil), defaults...), features...)
	plans := make([]BranchPlan, 0, len(effective))
	for _, branch := range effective {
		plans = append(plans, buildPlan(repos, branch))
	}
	return Resolution{Plans: plans, Unknown: unknown}, nil
}

// buildPlan chooses feature-or-default per repo and orders entries for
// import: submodules in declaration order, meta-repo last.
func buildPlan(repos []Repository, branch string) BranchPlan {
	entries := make([]PlanEntry, 0, len(repos))
	var meta []PlanEntry
	for _, r := range repos {
		e := PlanEntry{Repo: r.Name, BranchUsed: branch}
		if !r.HasBranch(branch) {
			e.BranchUsed = r.DefaultBranch
			e.FellBack = true
		}
		if r.IsMeta() {
			meta = append(meta, e)
			continue
		}
		entries = append(entries, e)
	}
	return BranchPlan{Branch: branch, Entries: append(entries, meta...)}
}
