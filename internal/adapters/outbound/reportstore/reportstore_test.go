package reportstore_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monomaker/monomaker/internal/adapters/outbound/reportstore"
	"github.com/monomaker/monomaker/internal/domain"
)

func TestFileWriter_RoundTrip(t *testing.T) {
	report := domain.NewReport(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	report.AddSynthesized("main", "aaa111")
	report.Finish(time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC))

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, reportstore.New().Write(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got domain.Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, domain.ReportVersion, got.Version)
	assert.Equal(t, "2024-03-01T12:00:00Z", got.StartedAt)
	require.Len(t, got.Outcomes, 1)
	assert.Equal(t, domain.OutcomeSynthesized, got.Outcomes[0].Kind)
}

func TestFileWriter_Indented(t *testing.T) {
	report := domain.NewReport(time.Now())
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, reportstore.New().Write(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"version\"")
	assert.Equal(t, byte('\n'), data[len(data)-1])
}

func TestFileWriter_OverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	report := domain.NewReport(time.Now())
	require.NoError(t, reportstore.New().Write(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestFileWriter_MissingDirFails(t *testing.T) {
	report := domain.NewReport(time.Now())
	err := reportstore.New().Write(filepath.Join(t.TempDir(), "nope", "report.json"), report)
	assert.Error(t, err)
}
