package domain_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/monomaker/monomaker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReport_Timestamps(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := domain.NewReport(started)
	assert.Equal(t, domain.ReportVersion, r.Version)
	assert.Equal(t, "2024-03-01T12:00:00Z", r.StartedAt)
	assert.Empty(t, r.FinishedAt)

	r.Finish(started.Add(90 * time.Second))
	assert.Equal(t, "2024-03-01T12:01:30Z", r.FinishedAt)
}

func TestReport_EmptySerializesToArrays(t *testing.T) {
	r := domain.NewReport(time.Now())
	data, err := json.Marshal(r)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"repos":[]`)
	assert.Contains(t, s, `"resolutions":[]`)
	assert.Contains(t, s, `"outcomes":[]`)
	assert.NotContains(t, s, `"whitelist"`)
}

func TestReport_FieldOrder(t *testing.T) {
	r := domain.NewReport(time.Now())
	data, err := json.Marshal(r)
	require.NoError(t, err)
	s := string(data)

	order := []string{`"version"`, `"started_at"`, `"finished_at"`, `"repos"`, `"resolutions"`, `"outcomes"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(s, key)
		require.GreaterOrEqual(t, idx, 0, "missing %s", key)
		assert.Greater(t, idx, last, "%s out of order", key)
		last = idx
	}
}

func TestReport_AddRepo_SortsBranches(t *testing.T) {
	r := domain.NewReport(time.Now())
	r.AddRepo(domain.Repository{
		Name:          "libfoo",
		DefaultBranch: "main",
		Branches:      []string{"zeta", "main", "alpha"},
		TargetSubpath: "libs/foo",
	})
	require.Len(t, r.Repos, 1)
	assert.Equal(t, []string{"alpha", "main", "zeta"}, r.Repos[0].Branches)
	assert.NotNil(t, r.Repos[0].NestedSubmodules)
}

func TestReport_SetWhitelist(t *testing.T) {
	r := domain.NewReport(time.Now())
	r.SetWhitelist([]string{"feature/a"}, []string{"main", "feature/a"})
	require.NotNil(t, r.Whitelist)
	assert.Equal(t, []string{"feature/a"}, r.Whitelist.Requested)
	assert.Equal(t, []string{"main", "feature/a"}, r.Whitelist.Effective)
}

func TestReport_SetWhitelist_NilBecomesEmpty(t *testing.T) {
	r := domain.NewReport(time.Now())
	r.SetWhitelist(nil, nil)
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"whitelist":{"requested":[],"effective":[]}`)
}

func TestReport_OutcomesKeepOrder(t *testing.T) {
	r := domain.NewReport(time.Now())
	r.AddSynthesized("main", "aaa111")
	r.AddSkip("feature/ghost", "unknown-branch")
	r.AddPathOverride("main", "README.md")
	r.AddFailure("feature/x", "subtree-add", "merge conflict")

	require.Len(t, r.Outcomes, 4)
	assert.Equal(t, domain.OutcomeSynthesized, r.Outcomes[0].Kind)
	assert.Equal(t, domain.OutcomeSkip, r.Outcomes[1].Kind)
	assert.Equal(t, domain.OutcomePathOverride, r.Outcomes[2].Kind)
	assert.Equal(t, domain.OutcomeFailure, r.Outcomes[3].Kind)
}

func TestReport_OutcomeVariantsOmitUnsetFields(t *testing.T) {
	r := domain.NewReport(time.Now())
	r.AddSynthesized("main", "aaa111")
	data, err := json.Marshal(r.Outcomes[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"synthesized","branch":"main","commit_sha":"aaa111"}`, string(data))
}

func TestReport_SynthesizedAndFailures(t *testing.T) {
	r := domain.NewReport(time.Now())
	r.AddSynthesized("main", "aaa")
	r.AddFailure("feature/x", "overlay-root", "boom")
	r.AddSynthesized("feature/y", "bbb")

	assert.Equal(t, []string{"main", "feature/y"}, r.Synthesized())
	failures := r.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "feature/x", failures[0].Branch)
	assert.Equal(t, "overlay-root", failures[0].Step)
}

func TestReport_AddResolution(t *testing.T) {
	r := domain.NewReport(time.Now())
	r.AddResolution(domain.BranchPlan{
		Branch: "main",
		Entries: []domain.PlanEntry{
			{Repo: "liba", BranchUsed: "main"},
			{Repo: "meta", BranchUsed: "main"},
		},
	})
	require.Len(t, r.Resolutions, 1)
	assert.Equal(t, "main", r.Resolutions[0].Branch)
	assert.Len(t, r.Resolutions[0].Plan, 2)
}
