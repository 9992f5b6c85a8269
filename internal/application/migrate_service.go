package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/monomaker/monomaker/internal/domain"
)

// FailedRefPrefix is where the head of an aborted branch synthesis is
// parked so the work stays inspectable.
const FailedRefPrefix = "refs/monomaker/failed/"

// ImportTag marks the default-branch head of a fully successful run.
const ImportTag = "monomaker/import"

// MigrateOptions are the per-run inputs of a migration.
type MigrateOptions struct {
	MetaPath      string
	WhitelistPath string
	ReportPath    string
	Config        domain.RunConfig
}

// MigrateResult is what a finished run hands back to the caller.
type MigrateResult struct {
	Workspace domain.Workspace
	Report    *domain.Report
	Repos     []domain.Repository
}

// Failed reports whether any branch ended in a failure outcome.
func (r MigrateResult) Failed() bool {
	return r.Report != nil && len(r.Report.Failures()) > 0
}

// MigrateService is the orchestrator: it sequences discovery,
// resolution and per-branch synthesis, collects the report and
// persists it. Branch failures are isolated; a broken branch is
// recorded and skipped while the rest of the run continues.
type MigrateService struct {
	vcs       domain.VCS
	discover  *DiscoverService
	synth     *SynthService
	whitelist domain.WhitelistLoader
	reports   domain.ReportWriter
	log       *zap.Logger
	now       func() time.Time
}

func NewMigrateService(vcs domain.VCS, whitelist domain.WhitelistLoader, reports domain.ReportWriter, log *zap.Logger) *MigrateService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MigrateService{
		vcs:       vcs,
		discover:  NewDiscoverService(vcs, log),
		synth:     NewSynthService(vcs, log),
		whitelist: whitelist,
		reports:   reports,
		log:       log,
		now:       time.Now,
	}
}

// Plan runs discovery and resolution without touching a monorepo. It
// backs the dry-run command: the returned report carries the repos,
// the whitelist application and the per-branch plans.
func (s *MigrateService) Plan(ctx context.Context, opts MigrateOptions) (MigrateResult, error) {
	ws, cleanup, err := s.prepareWorkspace(opts.Config)
	if err != nil {
		return MigrateResult{}, err
	}
	defer cleanup()

	report := domain.NewReport(s.now())
	repos, _, err := s.discoverAndResolve(ctx, opts, ws, report)
	report.Finish(s.now())
	if err != nil {
		return MigrateResult{Report: report}, err
	}
	return MigrateResult{Workspace: ws, Report: report, Repos: repos}, nil
}

// Run executes a full migration. The report is written to the
// workspace even when the run errors out partway, so every run leaves
// a record of how far it got.
func (s *MigrateService) Run(ctx context.Context, opts MigrateOptions) (MigrateResult, error) {
	ws, _, err := s.prepareWorkspace(opts.Config)
	if err != nil {
		return MigrateResult{}, err
	}

	report := domain.NewReport(s.now())
	result := MigrateResult{Workspace: ws, Report: report}

	runErr := s.run(ctx, opts, ws, report, &result)

	report.Finish(s.now())
	reportPath := ws.ReportPath()
	if opts.ReportPath != "" {
		reportPath = opts.ReportPath
	}
	if err := s.reports.Write(reportPath, report); err != nil {
		s.log.Error("writing report failed", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}

	s.cleanupSources(ws, opts.Config, runErr != nil || result.Failed())
	return result, runErr
}

func (s *MigrateService) run(ctx context.Context, opts MigrateOptions, ws domain.Workspace, report *domain.Report, result *MigrateResult) error {
	repos, resolution, err := s.discoverAndResolve(ctx, opts, ws, report)
	if err != nil {
		return err
	}
	result.Repos = repos

	if len(resolution.Plans) == 0 {
		return &domain.InvariantError{Msg: "resolution produced no branch plans"}
	}

	rootSHA, err := s.synth.InitMonorepo(ctx, ws.MonorepoDir(), resolution.Plans[0].Branch)
	if err != nil {
		return err
	}

	defaultBranch := resolution.Plans[0].Branch
	for _, plan := range resolution.Plans {
		if err := ctx.Err(); err != nil {
			return domain.ErrCancelled
		}
		sha, err := s.synth.SynthesizeBranch(ctx, ws, repos, plan, rootSHA, opts.Config.PreserveMerges, report)
		if err != nil {
			if errors.Is(err, domain.ErrCancelled) {
				return domain.ErrCancelled
			}
			var inv *domain.InvariantError
			if errors.As(err, &inv) {
				return err
			}
			s.recordBranchFailure(ctx, ws, plan.Branch, rootSHA, err, report)
			continue
		}
		report.AddSynthesized(plan.Branch, sha)
	}

	if err := s.vcs.Checkout(ctx, ws.MonorepoDir(), defaultBranch); err != nil {
		return fmt.Errorf("final checkout of %s: %w", defaultBranch, err)
	}
	if len(report.Failures()) == 0 {
		if err := s.vcs.Tag(ctx, ws.MonorepoDir(), ImportTag); err != nil {
			s.log.Warn("tagging import head", zap.Error(err))
		}
	}
	return nil
}

// discoverAndResolve runs the shared front half of Plan and Run:
// workspace discovery, whitelist loading, branch resolution and the
// report records for all of it.
func (s *MigrateService) discoverAndResolve(ctx context.Context, opts MigrateOptions, ws domain.Workspace, report *domain.Report) ([]domain.Repository, domain.Resolution, error) {
	if clean, err := s.vcs.IsClean(ctx, opts.MetaPath); err == nil && !clean {
		s.log.Warn("meta repo work tree is dirty, uncommitted changes will not migrate",
			zap.String("path", opts.MetaPath))
	}

	repos, err := s.discover.Discover(ctx, opts.MetaPath, ws, opts.Config.EffectiveWorkers())
	if err != nil {
		return nil, domain.Resolution{}, err
	}
	for _, r := range repos {
		report.AddRepo(r)
	}

	var requested []string
	if opts.WhitelistPath != "" {
		requested, err = s.whitelist.Load(opts.WhitelistPath)
		if err != nil {
			return nil, domain.Resolution{}, err
		}
	}

	resolution, err := domain.Resolve(repos, requested)
	if err != nil {
		return nil, domain.Resolution{}, err
	}
	if requested != nil {
		report.SetWhitelist(requested, resolution.Effective())
	}
	for _, plan := range resolution.Plans {
		report.AddResolution(plan)
	}
	for _, unknown := range resolution.Unknown {
		report.AddSkip(unknown, "unknown-branch")
	}
	return repos, resolution, nil
}

// recordBranchFailure parks the half-built head under a failed ref,
// records the outcome and resets the work tree so the next branch
// starts from a clean slate. The broken branch itself is deleted; its
// head stays reachable through the failed ref.
func (s *MigrateService) recordBranchFailure(ctx context.Context, ws domain.Workspace, branch, rootSHA string, err error, report *domain.Report) {
	mono := ws.MonorepoDir()
	s.log.Error("branch synthesis failed", zap.String("branch", branch), zap.Error(err))

	if sha, headErr := s.vcs.CurrentSHA(ctx, mono); headErr == nil {
		if refErr := s.vcs.UpdateRef(ctx, mono, FailedRefPrefix+branch, sha); refErr != nil {
			s.log.Warn("parking failed head", zap.String("branch", branch), zap.Error(refErr))
		}
	}

	step := "synthesize"
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		step = stepErr.Step
	}
	report.AddFailure(branch, step, err.Error())

	if resetErr := s.vcs.ResetHard(ctx, mono, "HEAD"); resetErr != nil {
		s.log.Warn("resetting after failure", zap.Error(resetErr))
	}
	if cleanErr := s.vcs.CleanUntracked(ctx, mono); cleanErr != nil {
		s.log.Warn("cleaning after failure", zap.Error(cleanErr))
	}
	if coErr := s.vcs.Checkout(ctx, mono, rootSHA); coErr != nil {
		s.log.Warn("detaching from failed branch", zap.Error(coErr))
		return
	}
	if delErr := s.vcs.DeleteBranch(ctx, mono, branch); delErr != nil {
		s.log.Warn("deleting failed branch", zap.String("branch", branch), zap.Error(delErr))
	}
}

// prepareWorkspace materializes the run directory. An empty Workspace
// config means a fresh temp directory; the returned cleanup removes it
// only in that case and only for plan-style runs that own nothing
// durable.
func (s *MigrateService) prepareWorkspace(cfg domain.RunConfig) (domain.Workspace, func(), error) {
	if cfg.Workspace != "" {
		if err := os.MkdirAll(cfg.Workspace, 0o755); err != nil {
			return domain.Workspace{}, nil, fmt.Errorf("%w: %s", domain.ErrBadPath, cfg.Workspace)
		}
		return domain.Workspace{Root: cfg.Workspace}, func() {}, nil
	}
	root, err := os.MkdirTemp("", "monomaker-*")
	if err != nil {
		return domain.Workspace{}, nil, fmt.Errorf("create workspace: %w", err)
	}
	return domain.Workspace{Root: root}, func() { os.RemoveAll(root) }, nil
}

// cleanupSources drops the sources/ directory after a run. Failed runs
// keep it when configured, so the inputs stay around for inspection.
func (s *MigrateService) cleanupSources(ws domain.Workspace, cfg domain.RunConfig, failed bool) {
	if failed && cfg.KeepOnFailure {
		s.log.Info("keeping sources for inspection", zap.String("dir", ws.SourcesDir()))
		return
	}
	if err := os.RemoveAll(ws.SourcesDir()); err != nil {
		s.log.Warn("removing sources", zap.Error(err))
	}
}
