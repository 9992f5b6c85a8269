package domain_test

import (
	"testing"

	"github.com/monomaker/monomaker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_IsMeta(t *testing.T) {
	meta := domain.Repository{Name: "meta", TargetSubpath: domain.MetaTargetSubpath}
	sub := domain.Repository{Name: "libfoo", TargetSubpath: "libs/foo"}
	assert.True(t, meta.IsMeta())
	assert.False(t, sub.IsMeta())
}

func TestRepository_HasBranch(t *testing.T) {
	r := domain.Repository{Branches: []string{"main", "feature/x"}}
	assert.True(t, r.HasBranch("main"))
	assert.True(t, r.HasBranch("feature/x"))
	assert.False(t, r.HasBranch("develop"))
}

func TestRepository_Validate_OK(t *testing.T) {
	r := domain.Repository{
		Name:          "libfoo",
		DefaultBranch: "main",
		Branches:      []string{"main", "feature/x"},
		TargetSubpath: "libs/foo",
	}
	assert.NoError(t, r.Validate())
}

func TestRepository_Validate_NoName(t *testing.T) {
	r := domain.Repository{DefaultBranch: "main", Branches: []string{"main"}}
	err := r.Validate()
	require.Error(t, err)
	var inv *domain.InvariantError
	assert.ErrorAs(t, err, &inv)
}

func TestRepository_Validate_NoDefault(t *testing.T) {
	r := domain.Repository{Name: "libfoo", Branches: []string{"main"}}
	err := r.Validate()
	assert.ErrorIs(t, err, domain.ErrNoDefaultBranch)
}

func TestRepository_Validate_DefaultNotInBranches(t *testing.T) {
	r := domain.Repository{Name: "libfoo", DefaultBranch: "main", Branches: []string{"develop"}}
	var inv *domain.InvariantError
	assert.ErrorAs(t, r.Validate(), &inv)
}

func TestRepository_SortedBranches_DoesNotMutate(t *testing.T) {
	r := domain.Repository{Branches: []string{"zeta", "alpha", "main"}}
	sorted := r.SortedBranches()
	assert.Equal(t, []string{"alpha", "main", "zeta"}, sorted)
	assert.Equal(t, []string{"zeta", "alpha", "main"}, r.Branches)
}

func TestRepository_PinPath(t *testing.T) {
	nested := domain.NestedSubmodule{Path: "vendor/dep", URL: "https://example.com/dep.git", SHA: "abc"}

	sub := domain.Repository{Name: "libfoo", TargetSubpath: "libs/foo"}
	assert.Equal(t, "libs/foo/vendor/dep", sub.PinPath(nested))

	meta := domain.Repository{Name: "meta", TargetSubpath: domain.MetaTargetSubpath}
	assert.Equal(t, "vendor/dep", meta.PinPath(nested))
}

func TestWorkspace_Layout(t *testing.T) {
	w := domain.Workspace{Root: "/tmp/run"}
	assert.Equal(t, "/tmp/run/sources", w.SourcesDir())
	assert.Equal(t, "/tmp/run/sources/libfoo", w.SourceDir("libfoo"))
	assert.Equal(t, "/tmp/run/monorepo", w.MonorepoDir())
	assert.Equal(t, "/tmp/run/report.json", w.ReportPath())
}

func TestRepoNameFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://github.com/acme/libfoo.git", "libfoo"},
		{"https://github.com/acme/libfoo", "libfoo"},
		{"git@github.com:acme/libfoo.git", "libfoo"},
		{"/srv/git/libfoo.git/", "libfoo"},
		{"libfoo", "libfoo"},
		{"", "fallback"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, domain.RepoNameFromURL(c.url, "fallback"), "url=%q", c.url)
	}
}

func TestRepoNameFromSubpath(t *testing.T) {
	assert.Equal(t, "libs-foo", domain.RepoNameFromSubpath("libs/foo"))
	assert.Equal(t, "foo", domain.RepoNameFromSubpath("/foo/"))
}
