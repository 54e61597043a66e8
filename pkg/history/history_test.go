package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillscan/pkg/types/scan"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testReport(id, skill string, risk scan.Severity, rec scan.Recommendation, at time.Time) *scan.Report {
	return &scan.Report{
		ID:             id,
		Skill:          skill,
		Location:       "/skills/" + skill,
		Timestamp:      at,
		ScannerVersion: "0.1.0",
		Summary: scan.Summary{
			OverallRisk:    risk,
			Recommendation: rec,
			TotalFindings:  1,
		},
		Findings: []scan.Finding{
			{Severity: scan.SeverityLow, Category: scan.CategoryStructure, Title: "binary file present", File: "logo.png"},
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rep := testReport("scan-1", "weather-helper", scan.SeverityLow, scan.RecommendApprove, time.Now().UTC())
	require.NoError(t, store.Save(ctx, rep))

	loaded, err := store.Get(ctx, "scan-1")
	require.NoError(t, err)
	assert.Equal(t, rep.Skill, loaded.Skill)
	assert.Equal(t, rep.Summary, loaded.Summary)
	require.Len(t, loaded.Findings, 1)
	assert.Equal(t, "binary file present", loaded.Findings[0].Title)
}

func TestSaveRequiresID(t *testing.T) {
	store := openTestStore(t)

	rep := testReport("", "weather-helper", scan.RiskSafe, scan.RecommendApprove, time.Now())
	assert.Error(t, store.Save(context.Background(), rep))
}

func TestSaveReplacesSameID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testReport("scan-1", "helper", scan.SeverityLow, scan.RecommendApprove, time.Now().UTC())))
	require.NoError(t, store.Save(ctx, testReport("scan-1", "helper", scan.SeverityCritical, scan.RecommendReject, time.Now().UTC())))

	entries, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "CRITICAL", entries[0].OverallRisk)
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan not found")
}

func TestListFilterAndOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, testReport("scan-1", "alpha", scan.SeverityLow, scan.RecommendApprove, base)))
	require.NoError(t, store.Save(ctx, testReport("scan-2", "beta", scan.SeverityCritical, scan.RecommendReject, base.Add(time.Hour))))
	require.NoError(t, store.Save(ctx, testReport("scan-3", "alpha", scan.SeverityHigh, scan.RecommendReview, base.Add(2*time.Hour))))

	entries, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"scan-3", "scan-2", "scan-1"}, []string{entries[0].ScanID, entries[1].ScanID, entries[2].ScanID})

	entries, err = store.List(ctx, ListOptions{Skill: "alpha"})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = store.List(ctx, ListOptions{Risk: "CRITICAL"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "beta", entries[0].Skill)

	entries, err = store.List(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "scan-3", entries[0].ScanID)
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testReport("scan-1", "alpha", scan.SeverityLow, scan.RecommendApprove, time.Now().UTC())))
	require.NoError(t, store.Delete(ctx, "scan-1"))

	_, err := store.Get(ctx, "scan-1")
	assert.Error(t, err)

	err = store.Delete(ctx, "scan-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan not found")
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
