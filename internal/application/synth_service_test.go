package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/monomaker/monomaker/internal/application"
	"github.com/monomaker/monomaker/internal/domain"
)

func synthFixture() ([]domain.Repository, domain.BranchPlan) {
	repos := []domain.Repository{
		{
			Name: "libs-a", DefaultBranch: "main", Branches: []string{"main"},
			TargetSubpath: "libs/a",
			NestedSubmodules: []domain.NestedSubmodule{
				{Path: "vendor/dep", URL: "https://example.com/dep.git", SHA: "deadbeef"},
			},
		},
		{
			Name: "libs-b", DefaultBranch: "main", Branches: []string{"main"},
			TargetSubpath: "libs/b",
		},
		{
			Name: "meta", DefaultBranch: "main", Branches: []string{"main"},
			TargetSubpath: domain.MetaTargetSubpath,
		},
	}
	plan := domain.BranchPlan{
		Branch: "main",
		Entries: []domain.PlanEntry{
			{Repo: "libs-a", BranchUsed: "main"},
			{Repo: "libs-b", BranchUsed: "main"},
			{Repo: "meta", BranchUsed: "main"},
		},
	}
	return repos, plan
}

func TestSynthesizeBranch_OrderSubmodulesThenMeta(t *testing.T) {
	f := newFakeVCS()
	svc := application.NewSynthService(f, zap.NewNop())
	ws := domain.Workspace{Root: t.TempDir()}
	repos, plan := synthFixture()
	report := domain.NewReport(time.Now())

	sha, err := svc.SynthesizeBranch(context.Background(), ws, repos, plan, "root-sha", false, report)
	require.NoError(t, err)
	assert.NotEmpty(t, sha)

	var sequence []string
	for _, c := range f.calls {
		switch {
		case c == "CreateBranch main":
			sequence = append(sequence, "create")
		case c == "SubtreeAdd libs/a@main":
			sequence = append(sequence, "a")
		case c == "SubtreeAdd libs/b@main":
			sequence = append(sequence, "b")
		case c == "OverlayRoot main":
			sequence = append(sequence, "meta")
		}
	}
	assert.Equal(t, []string{"create", "a", "b", "meta"}, sequence)
}

func TestSynthesizeBranch_NestedPinsReRegistered(t *testing.T) {
	f := newFakeVCS()
	svc := application.NewSynthService(f, zap.NewNop())
	ws := domain.Workspace{Root: t.TempDir()}
	repos, plan := synthFixture()
	report := domain.NewReport(time.Now())

	_, err := svc.SynthesizeBranch(context.Background(), ws, repos, plan, "root-sha", false, report)
	require.NoError(t, err)

	assert.Contains(t, f.calls, "RemovePath libs/a/.gitmodules")
	assert.Contains(t, f.calls, "AddSubmodulePin libs/a/vendor/dep")
	assert.Equal(t, "deadbeef", f.pins["libs/a/vendor/dep"])
}

func TestSynthesizeBranch_ShadowedPathsReported(t *testing.T) {
	f := newFakeVCS()
	f.shadowed = []string{"libs/a/stale.txt"}
	svc := application.NewSynthService(f, zap.NewNop())
	ws := domain.Workspace{Root: t.TempDir()}
	repos, plan := synthFixture()
	report := domain.NewReport(time.Now())

	_, err := svc.SynthesizeBranch(context.Background(), ws, repos, plan, "root-sha", false, report)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, domain.OutcomePathOverride, report.Outcomes[0].Kind)
	assert.Equal(t, "libs/a/stale.txt", report.Outcomes[0].Path)
	assert.Equal(t, "main", report.Outcomes[0].Branch)
}

func TestSynthesizeBranch_StepErrorTagged(t *testing.T) {
	f := newFakeVCS()
	f.failOn["SubtreeAdd:libs/b"] = &domain.ExecError{Cmd: "git read-tree", ExitCode: 1, Stderr: "boom"}
	svc := application.NewSynthService(f, zap.NewNop())
	ws := domain.Workspace{Root: t.TempDir()}
	repos, plan := synthFixture()

	_, err := svc.SynthesizeBranch(context.Background(), ws, repos, plan, "root-sha", false, domain.NewReport(time.Now()))
	var stepErr *application.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, application.StepSubtreeAdd, stepErr.Step)
}

func TestSynthesizeBranch_PinCollisionFatal(t *testing.T) {
	f := newFakeVCS()
	svc := application.NewSynthService(f, zap.NewNop())
	ws := domain.Workspace{Root: t.TempDir()}
	repos, plan := synthFixture()
	// second repo resolves a pin to the same monorepo path as the first
	repos[1].TargetSubpath = "libs/a/vendor"
	repos[1].NestedSubmodules = []domain.NestedSubmodule{
		{Path: "dep", URL: "https://example.com/other.git", SHA: "cafe"},
	}

	_, err := svc.SynthesizeBranch(context.Background(), ws, repos, plan, "root-sha", false, domain.NewReport(time.Now()))
	var collision *domain.PathCollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "libs/a/vendor/dep", collision.Path)
}

func TestSynthesizeBranch_PreserveMergesReplaysTopology(t *testing.T) {
	f := newFakeVCS()
	repos, plan := synthFixture()
	plan.Branch = "feature/x"
	plan.Entries[2].BranchUsed = "feature/x"
	ws := domain.Workspace{Root: t.TempDir()}
	f.dirs[ws.SourceDir("meta")] = fakeRepo{
		merges: []domain.MergeCommit{
			{SHA: "m1", Parents: []string{"p1", "p2"}, Subject: "Merge branch 'topic'"},
		},
	}
	svc := application.NewSynthService(f, zap.NewNop())

	_, err := svc.SynthesizeBranch(context.Background(), ws, repos, plan, "root-sha", true, domain.NewReport(time.Now()))
	require.NoError(t, err)
	assert.Contains(t, f.calls, "ListMergeCommits feature/x")
	assert.Contains(t, f.calls, "MergeOurs p2")
}

func TestSynthesizeBranch_NoReplayOnDefaultBranch(t *testing.T) {
	f := newFakeVCS()
	svc := application.NewSynthService(f, zap.NewNop())
	ws := domain.Workspace{Root: t.TempDir()}
	repos, plan := synthFixture()

	_, err := svc.SynthesizeBranch(context.Background(), ws, repos, plan, "root-sha", true, domain.NewReport(time.Now()))
	require.NoError(t, err)
	assert.Empty(t, f.callsMatching("ListMergeCommits"))
}

func TestSynthesizeBranch_DirtyTreeCleanedFirst(t *testing.T) {
	f := newFakeVCS()
	svc := application.NewSynthService(f, zap.NewNop())
	ws := domain.Workspace{Root: t.TempDir()}
	f.dirty[ws.MonorepoDir()] = true
	repos, plan := synthFixture()

	_, err := svc.SynthesizeBranch(context.Background(), ws, repos, plan, "root-sha", false, domain.NewReport(time.Now()))
	require.NoError(t, err)

	assert.Contains(t, f.calls, "ResetHard HEAD")
	assert.Contains(t, f.calls, "CleanUntracked")
	assert.Less(t, indexOf(f.calls, "ResetHard HEAD"), indexOf(f.calls, "CreateBranch main"))
}

func indexOf(calls []string, want string) int {
	for i, c := range calls {
		if c == want {
			return i
		}
	}
	return -1
}

func TestInitMonorepo(t *testing.T) {
	f := newFakeVCS()
	svc := application.NewSynthService(f, zap.NewNop())

	sha, err := svc.InitMonorepo(context.Background(), "/ws/monorepo", "main")
	require.NoError(t, err)
	assert.Equal(t, "sha-1", sha)
	assert.Contains(t, f.calls, "Init /ws/monorepo main")
}
