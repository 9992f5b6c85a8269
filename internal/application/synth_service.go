package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/monomaker/monomaker/internal/domain"
)

// Synthesis step names as they appear in failure outcomes.
const (
	StepCreateBranch = "create-branch"
	StepSubtreeAdd   = "subtree-add"
	StepNestedPins   = "nested-pins"
	StepOverlayRoot  = "overlay-root"
	StepReplayMerges = "replay-merges"
	StepVerifyPins   = "verify-pins"
)

// StepError tags a synthesis failure with the step it happened in.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }
func (e *StepError) Unwrap() error { return e.Err }

func stepFail(step string, err error) error {
	return &StepError{Step: step, Err: err}
}

// pin tracks one submodule pin staged during synthesis: which repo
// put it there and the SHA it must resolve to at the branch head.
type pin struct {
	owner string
	sha   string
}

// SynthService builds monorepo branches out of the discovered source
// repos, one branch at a time.
type SynthService struct {
	vcs domain.VCS
	log *zap.Logger
}

func NewSynthService(vcs domain.VCS, log *zap.Logger) *SynthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SynthService{vcs: vcs, log: log}
}

// InitMonorepo creates the empty monorepo with a single root commit on
// initialBranch and returns the root commit SHA. Every synthesized
// branch starts from this commit, so all branches share one root.
func (s *SynthService) InitMonorepo(ctx context.Context, dir, initialBranch string) (string, error) {
	if err := s.vcs.Init(ctx, dir, initialBranch); err != nil {
		return "", fmt.Errorf("init monorepo: %w", err)
	}
	if err := s.vcs.Commit(ctx, dir, domain.CommitPrefix+" initialize monorepo", true); err != nil {
		return "", fmt.Errorf("create root commit: %w", err)
	}
	sha, err := s.vcs.CurrentSHA(ctx, dir)
	if err != nil {
		return "", err
	}
	return sha, nil
}

// SynthesizeBranch materializes one planned branch: submodule trees
// are imported under their target subpaths in plan order, then the
// meta-repo's tree overlays the root. Second-layer submodules stay
// pins; paths the overlay left to submodule content are reported as
// overrides. Returns the branch head SHA.
func (s *SynthService) SynthesizeBranch(ctx context.Context, ws domain.Workspace, repos []domain.Repository, plan domain.BranchPlan, rootSHA string, preserveMerges bool, report *domain.Report) (string, error) {
	mono := ws.MonorepoDir()
	byName := make(map[string]domain.Repository, len(repos))
	for _, r := range repos {
		byName[r.Name] = r
	}

	s.log.Info("synthesizing branch", zap.String("branch", plan.Branch))
	if err := s.ensureClean(ctx, mono, plan.Branch); err != nil {
		return "", stepFail(StepCreateBranch, err)
	}
	if err := s.vcs.CreateBranch(ctx, mono, plan.Branch, rootSHA); err != nil {
		return "", stepFail(StepCreateBranch, err)
	}

	pinned := make(map[string]pin)
	for _, entry := range plan.Entries {
		repo, ok := byName[entry.Repo]
		if !ok {
			return "", stepFail(StepSubtreeAdd, &domain.InvariantError{Msg: fmt.Sprintf("plan names unknown repo %q", entry.Repo)})
		}
		if repo.IsMeta() {
			if err := s.overlayMeta(ctx, ws, repos, repo, entry, plan.Branch, preserveMerges, pinned, report); err != nil {
				return "", err
			}
			continue
		}
		if err := s.importSubmodule(ctx, ws, repo, entry, pinned); err != nil {
			return "", err
		}
	}

	if err := s.verifyPins(ctx, mono, pinned); err != nil {
		return "", stepFail(StepVerifyPins, err)
	}

	sha, err := s.vcs.CurrentSHA(ctx, mono)
	if err != nil {
		return "", err
	}
	return sha, nil
}

// ensureClean resets leftover work-tree state so the branch builds on
// a pristine tree.
func (s *SynthService) ensureClean(ctx context.Context, mono, branch string) error {
	clean, err := s.vcs.IsClean(ctx, mono)
	if err != nil {
		return err
	}
	if clean {
		return nil
	}
	s.log.Warn("monorepo tree dirty before branch build, cleaning", zap.String("branch", branch))
	if err := s.vcs.ResetHard(ctx, mono, "HEAD"); err != nil {
		return err
	}
	return s.vcs.CleanUntracked(ctx, mono)
}

// importSubmodule subtree-merges one first-layer repo under its target
// subpath and re-registers its second-layer submodules as pins.
func (s *SynthService) importSubmodule(ctx context.Context, ws domain.Workspace, repo domain.Repository, entry domain.PlanEntry, pinned map[string]pin) error {
	mono := ws.MonorepoDir()
	src := ws.SourceDir(repo.Name)

	if err := s.vcs.SubtreeAdd(ctx, mono, src, entry.BranchUsed, repo.TargetSubpath); err != nil {
		return stepFail(StepSubtreeAdd, err)
	}

	if len(repo.NestedSubmodules) == 0 {
		return nil
	}
	// the imported tree carries the source's .gitmodules; the
	// monorepo-level registry replaces it
	if err := s.vcs.RemovePath(ctx, mono, repo.TargetSubpath+"/.gitmodules"); err != nil {
		return stepFail(StepNestedPins, err)
	}
	for _, nested := range repo.NestedSubmodules {
		pinPath := repo.PinPath(nested)
		if first, dup := pinned[pinPath]; dup {
			return stepFail(StepNestedPins, &domain.PathCollisionError{Path: pinPath, First: first.owner, Second: repo.Name})
		}
		if err := s.vcs.RemovePath(ctx, mono, pinPath); err != nil {
			return stepFail(StepNestedPins, err)
		}
		if err := s.vcs.AddSubmodulePin(ctx, mono, pinPath, nested.URL, nested.SHA); err != nil {
			return stepFail(StepNestedPins, err)
		}
		pinned[pinPath] = pin{owner: repo.Name, sha: nested.SHA}
	}
	msg := fmt.Sprintf("%s pin nested submodules of %s", domain.CommitPrefix, repo.Name)
	if err := s.vcs.Commit(ctx, mono, msg, true); err != nil {
		return stepFail(StepNestedPins, err)
	}
	return nil
}

// overlayMeta lays the meta-repo's own tree over the monorepo root,
// keeping the already-imported submodule trees in place, and finalizes
// the merge commit. With preserveMerges set, the meta branch's merge
// topology is replayed on top as tree-keeping merges.
func (s *SynthService) overlayMeta(ctx context.Context, ws domain.Workspace, repos []domain.Repository, meta domain.Repository, entry domain.PlanEntry, branch string, preserveMerges bool, pinned map[string]pin, report *domain.Report) error {
	mono := ws.MonorepoDir()
	src := ws.SourceDir(meta.Name)

	var protected []string
	for _, r := range repos {
		if !r.IsMeta() {
			protected = append(protected, r.TargetSubpath)
		}
	}

	shadowed, err := s.vcs.OverlayRoot(ctx, mono, src, entry.BranchUsed, protected)
	if err != nil {
		return stepFail(StepOverlayRoot, err)
	}
	for _, p := range shadowed {
		report.AddPathOverride(branch, p)
	}

	for _, nested := range meta.NestedSubmodules {
		pinPath := meta.PinPath(nested)
		if first, dup := pinned[pinPath]; dup {
			return stepFail(StepNestedPins, &domain.PathCollisionError{Path: pinPath, First: first.owner, Second: meta.Name})
		}
		if err := s.vcs.AddSubmodulePin(ctx, mono, pinPath, nested.URL, nested.SHA); err != nil {
			return stepFail(StepNestedPins, err)
		}
		pinned[pinPath] = pin{owner: meta.Name, sha: nested.SHA}
	}

	msg := fmt.Sprintf("%s overlay %s from %s", domain.CommitPrefix, meta.Name, entry.BranchUsed)
	if err := s.vcs.Commit(ctx, mono, msg, true); err != nil {
		return stepFail(StepOverlayRoot, err)
	}

	if preserveMerges && entry.BranchUsed != meta.DefaultBranch {
		if err := s.replayMerges(ctx, mono, src, entry.BranchUsed, meta.DefaultBranch); err != nil {
			return stepFail(StepReplayMerges, err)
		}
	}
	return nil
}

// replayMerges re-records the merge topology of the meta branch on the
// synthesized head. The overlay fetch already brought the meta commits
// into the monorepo's object store, so the side parents resolve by
// SHA; each replayed merge keeps the synthesized tree.
func (s *SynthService) replayMerges(ctx context.Context, mono, src, branch, base string) error {
	merges, err := s.vcs.ListMergeCommits(ctx, src, branch, base)
	if err != nil {
		return err
	}
	for _, m := range merges {
		if len(m.Parents) < 2 {
			continue
		}
		// the side parent must have come over with the overlay fetch
		if _, err := s.vcs.ResolveRef(ctx, mono, m.Parents[1]); err != nil {
			s.log.Warn("merge parent unreachable, skipping replay",
				zap.String("merge", m.SHA), zap.String("parent", m.Parents[1]))
			continue
		}
		msg := fmt.Sprintf("%s %s", domain.CommitPrefix, m.Subject)
		if err := s.vcs.MergeOurs(ctx, mono, m.Parents[1], msg); err != nil {
			return err
		}
	}
	return nil
}

// verifyPins re-reads every submodule pin from the branch head and
// checks the recorded SHA survived synthesis unchanged.
func (s *SynthService) verifyPins(ctx context.Context, mono string, pinned map[string]pin) error {
	for pinPath, want := range pinned {
		got, err := s.vcs.LsTreeEntry(ctx, mono, "HEAD", pinPath)
		if err != nil {
			return &domain.InvariantError{Msg: fmt.Sprintf("submodule pin lost at %s", pinPath)}
		}
		if got != want.sha {
			return &domain.InvariantError{Msg: fmt.Sprintf("submodule pin at %s moved from %s to %s", pinPath, want.sha, got)}
		}
	}
	return nil
}
