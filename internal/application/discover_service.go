package application

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/monomaker/monomaker/internal/domain"
)

// DiscoverService clones the meta-repo and its first-layer submodules
// into the workspace and builds the repository models a migration
// works from.
type DiscoverService struct {
	vcs domain.VCS
	log *zap.Logger
}

func NewDiscoverService(vcs domain.VCS, log *zap.Logger) *DiscoverService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DiscoverService{vcs: vcs, log: log}
}

// Discover validates metaPath, clones everything into ws and returns
// the participating repositories: first-layer submodules in
// declaration order, the meta-repo last. Submodule clones run on a
// bounded worker pool; the meta clone happens first because the
// submodule set comes out of its trees.
func (s *DiscoverService) Discover(ctx context.Context, metaPath string, ws domain.Workspace, workers int) ([]domain.Repository, error) {
	abs, err := filepath.Abs(metaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrBadPath, metaPath)
	}
	ok, err := s.vcs.IsRepo(ctx, abs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotARepo, abs)
	}

	meta, subs, err := s.discoverMeta(ctx, abs, ws)
	if err != nil {
		return nil, err
	}

	repos, err := s.cloneSubmodules(ctx, abs, ws, subs, workers)
	if err != nil {
		return nil, err
	}
	return append(repos, meta), nil
}

// discoverMeta clones the meta-repo and scans every branch for
// first-layer submodule declarations, unioned by path.
func (s *DiscoverService) discoverMeta(ctx context.Context, metaPath string, ws domain.Workspace) (domain.Repository, []domain.SubmoduleEntry, error) {
	name := domain.RepoNameFromURL(metaPath, "meta")
	dir := ws.SourceDir(name)

	s.log.Info("cloning meta repo", zap.String("src", metaPath), zap.String("dst", dir))
	if err := s.vcs.Clone(ctx, metaPath, dir); err != nil {
		return domain.Repository{}, nil, fmt.Errorf("clone meta repo: %w", err)
	}
	if err := s.vcs.FetchAllBranches(ctx, dir); err != nil {
		return domain.Repository{}, nil, fmt.Errorf("fetch meta branches: %w", err)
	}
	branches, err := s.vcs.ListBranches(ctx, dir)
	if err != nil {
		return domain.Repository{}, nil, err
	}
	def, err := s.vcs.DefaultBranch(ctx, dir)
	if err != nil {
		return domain.Repository{}, nil, err
	}

	subs, err := s.unionSubmodules(ctx, dir, def, branches)
	if err != nil {
		return domain.Repository{}, nil, err
	}

	meta := domain.Repository{
		Name:          name,
		LocalPath:     dir,
		DefaultBranch: def,
		Branches:      branches,
		TargetSubpath: domain.MetaTargetSubpath,
	}
	return meta, subs, nil
}

// unionSubmodules merges the submodule declarations of every meta
// branch. The default branch's declarations come first and win on URL
// disagreements; branches that add submodules extend the set. Two
// declarations of the same path on one branch are a PathCollisionError.
func (s *DiscoverService) unionSubmodules(ctx context.Context, dir, def string, branches []string) ([]domain.SubmoduleEntry, error) {
	ordered := append([]string{def}, withoutString(branches, def)...)

	var union []domain.SubmoduleEntry
	seen := make(map[string]bool)
	for _, branch := range ordered {
		subs, err := s.vcs.ListSubmodules(ctx, dir, branch)
		if err != nil {
			return nil, fmt.Errorf("scan submodules of %s: %w", branch, err)
		}
		inBranch := make(map[string]string, len(subs))
		for _, sub := range subs {
			if url, dup := inBranch[sub.Path]; dup {
				return nil, &domain.PathCollisionError{Path: sub.Path, First: url, Second: sub.URL}
			}
			inBranch[sub.Path] = sub.URL
			if seen[sub.Path] {
				continue
			}
			seen[sub.Path] = true
			union = append(union, sub)
		}
	}
	return union, nil
}

// cloneSubmodules clones each first-layer submodule on a worker pool
// and builds its repository model. Results keep declaration order
// regardless of clone completion order.
func (s *DiscoverService) cloneSubmodules(ctx context.Context, metaPath string, ws domain.Workspace, subs []domain.SubmoduleEntry, workers int) ([]domain.Repository, error) {
	if len(subs) == 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}

	names := make([]string, len(subs))
	taken := make(map[string]int)
	for i, sub := range subs {
		name := domain.RepoNameFromSubpath(sub.Path)
		if prev, dup := taken[name]; dup {
			return nil, &domain.PathCollisionError{Path: name, First: subs[prev].Path, Second: sub.Path}
		}
		taken[name] = i
		names[i] = name
	}

	repos := make([]domain.Repository, len(subs))
	errs := make([]error, len(subs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				repos[i], errs[i] = s.cloneOne(ctx, metaPath, ws, subs[i], names[i])
			}
		}()
	}
	for i := range subs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return repos, nil
}

// cloneOne clones one submodule and reads its branch set, default
// branch and second-layer submodule pins.
func (s *DiscoverService) cloneOne(ctx context.Context, metaPath string, ws domain.Workspace, sub domain.SubmoduleEntry, name string) (domain.Repository, error) {
	src := resolveSubmoduleURL(metaPath, sub.URL)
	dir := ws.SourceDir(name)

	s.log.Info("cloning submodule", zap.String("path", sub.Path), zap.String("src", src))
	if err := s.vcs.Clone(ctx, src, dir); err != nil {
		return domain.Repository{}, fmt.Errorf("clone submodule %s: %w", sub.Path, err)
	}
	if err := s.vcs.FetchAllBranches(ctx, dir); err != nil {
		return domain.Repository{}, fmt.Errorf("fetch branches of %s: %w", sub.Path, err)
	}
	branches, err := s.vcs.ListBranches(ctx, dir)
	if err != nil {
		return domain.Repository{}, err
	}
	def, err := s.vcs.DefaultBranch(ctx, dir)
	if err != nil {
		return domain.Repository{}, err
	}

	nestedSubs, err := s.vcs.ListSubmodules(ctx, dir, def)
	if err != nil {
		return domain.Repository{}, fmt.Errorf("scan nested submodules of %s: %w", sub.Path, err)
	}
	nested := make([]domain.NestedSubmodule, 0, len(nestedSubs))
	for _, n := range nestedSubs {
		nested = append(nested, domain.NestedSubmodule{Path: n.Path, URL: n.URL, SHA: n.SHA})
	}

	return domain.Repository{
		Name:             name,
		LocalPath:        dir,
		DefaultBranch:    def,
		Branches:         branches,
		NestedSubmodules: nested,
		TargetSubpath:    sub.Path,
	}, nil
}

// resolveSubmoduleURL resolves relative submodule URLs against the
// meta-repo location, the same way git resolves them against the
// superproject's remote.
func resolveSubmoduleURL(metaPath, url string) string {
	if strings.HasPrefix(url, "./") || strings.HasPrefix(url, "../") {
		return filepath.Join(metaPath, url)
	}
	return url
}

func withoutString(list []string, drop string) []string {
	var out []string
	for _, s := range list {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}
