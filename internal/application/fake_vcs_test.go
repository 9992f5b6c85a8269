package application_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/monomaker/monomaker/internal/domain"
)

// fakeRepo is the scripted content of one source repository, keyed by
// its clone URL in fakeVCS.repos.
type fakeRepo struct {
	branches   []string
	def        string
	submodules map[string][]domain.SubmoduleEntry
	merges     []domain.MergeCommit
}

// fakeVCS is a scripted domain.VCS. Clones copy scripted repos into
// per-directory state; mutating calls append to a call log the tests
// assert order on. failOn maps "Method" or "Method:arg" to an error.
type fakeVCS struct {
	mu      sync.Mutex
	repos   map[string]fakeRepo
	dirs    map[string]fakeRepo
	calls   []string
	failOn  map[string]error
	pins    map[string]string
	commits int
	dirty   map[string]bool

	// shadowed is handed back by every OverlayRoot call
	shadowed []string

	// losePins makes LsTreeEntry forget every pin, simulating a pin
	// that did not survive to the branch head
	losePins bool
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{
		repos:  make(map[string]fakeRepo),
		dirs:   make(map[string]fakeRepo),
		failOn: make(map[string]error),
		pins:   make(map[string]string),
		dirty:  make(map[string]bool),
	}
}

func (f *fakeVCS) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeVCS) fail(method string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range args {
		if err, ok := f.failOn[method+":"+a]; ok {
			return err
		}
	}
	return f.failOn[method]
}

func (f *fakeVCS) callsMatching(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeVCS) IsRepo(ctx context.Context, dir string) (bool, error) {
	if err := f.fail("IsRepo", dir); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.repos[dir]
	return ok, nil
}

func (f *fakeVCS) Init(ctx context.Context, dir, initialBranch string) error {
	f.record("Init " + dir + " " + initialBranch)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[dir] = fakeRepo{branches: []string{initialBranch}, def: initialBranch}
	return f.failOn["Init"]
}

func (f *fakeVCS) Clone(ctx context.Context, src, dst string) error {
	f.record("Clone " + src)
	if err := f.fail("Clone", src); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	repo, ok := f.repos[src]
	if !ok {
		return &domain.ExecError{Cmd: "git clone " + src, ExitCode: 128, Stderr: "repository not found"}
	}
	f.dirs[dst] = repo
	return nil
}

func (f *fakeVCS) FetchAllBranches(ctx context.Context, dir string) error {
	f.record("FetchAllBranches " + dir)
	return f.fail("FetchAllBranches", dir)
}

func (f *fakeVCS) ListBranches(ctx context.Context, dir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirs[dir].branches, nil
}

func (f *fakeVCS) DefaultBranch(ctx context.Context, dir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirs[dir].def == "" {
		return "", domain.ErrNoDefaultBranch
	}
	return f.dirs[dir].def, nil
}

func (f *fakeVCS) ListSubmodules(ctx context.Context, dir, ref string) ([]domain.SubmoduleEntry, error) {
	if err := f.fail("ListSubmodules", dir); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirs[dir].submodules[ref], nil
}

func (f *fakeVCS) Checkout(ctx context.Context, dir, ref string) error {
	f.record("Checkout " + ref)
	return f.fail("Checkout", ref)
}

func (f *fakeVCS) CreateBranch(ctx context.Context, dir, name, startPoint string) error {
	f.record("CreateBranch " + name)
	return f.fail("CreateBranch", name)
}

func (f *fakeVCS) DeleteBranch(ctx context.Context, dir, name string) error {
	f.record("DeleteBranch " + name)
	return f.fail("DeleteBranch", name)
}

func (f *fakeVCS) CurrentSHA(ctx context.Context, dir string) (string, error) {
	if err := f.fail("CurrentSHA"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("sha-%d", f.commits), nil
}

func (f *fakeVCS) ResolveRef(ctx context.Context, dir, ref string) (string, error) {
	return "sha-" + ref, nil
}

func (f *fakeVCS) SubtreeAdd(ctx context.Context, dir, srcDir, ref, prefix string) error {
	f.record("SubtreeAdd " + prefix + "@" + ref)
	if err := f.fail("SubtreeAdd", prefix); err != nil {
		return err
	}
	f.bumpCommit()
	return nil
}

func (f *fakeVCS) OverlayRoot(ctx context.Context, dir, srcDir, ref string, protected []string) ([]string, error) {
	f.record("OverlayRoot " + ref)
	if err := f.fail("OverlayRoot"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shadowed, nil
}

func (f *fakeVCS) MergeOurs(ctx context.Context, dir, ref, message string) error {
	f.record("MergeOurs " + ref)
	if err := f.fail("MergeOurs", ref); err != nil {
		return err
	}
	f.bumpCommit()
	return nil
}

func (f *fakeVCS) Commit(ctx context.Context, dir, message string, allowEmpty bool) error {
	f.record("Commit " + message)
	if err := f.fail("Commit"); err != nil {
		return err
	}
	f.bumpCommit()
	return nil
}

func (f *fakeVCS) UpdateRef(ctx context.Context, dir, ref, sha string) error {
	f.record("UpdateRef " + ref + " " + sha)
	return f.fail("UpdateRef")
}

func (f *fakeVCS) Tag(ctx context.Context, dir, name string) error {
	f.record("Tag " + name)
	return f.fail("Tag", name)
}

func (f *fakeVCS) AddSubmodulePin(ctx context.Context, dir, path, url, sha string) error {
	f.record("AddSubmodulePin " + path)
	if err := f.fail("AddSubmodulePin", path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pins[path] = sha
	return nil
}

func (f *fakeVCS) RemovePath(ctx context.Context, dir, path string) error {
	f.record("RemovePath " + path)
	return f.fail("RemovePath", path)
}

func (f *fakeVCS) LsTreeEntry(ctx context.Context, dir, ref, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sha, ok := f.pins[path]; ok && !f.losePins {
		return sha, nil
	}
	return "", domain.ErrRefNotFound
}

func (f *fakeVCS) ListMergeCommits(ctx context.Context, dir, branch, base string) ([]domain.MergeCommit, error) {
	f.record("ListMergeCommits " + branch)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirs[dir].merges, nil
}

func (f *fakeVCS) IsClean(ctx context.Context, dir string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dirty[dir], nil
}

func (f *fakeVCS) ResetHard(ctx context.Context, dir, ref string) error {
	f.record("ResetHard " + ref)
	return f.fail("ResetHard")
}

func (f *fakeVCS) CleanUntracked(ctx context.Context, dir string) error {
	f.record("CleanUntracked")
	return f.fail("CleanUntracked")
}

func (f *fakeVCS) bumpCommit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
}

var _ domain.VCS = (*fakeVCS)(nil)
