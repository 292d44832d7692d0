package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casevault/lexindex/internal/contentstore"
	"github.com/casevault/lexindex/internal/fetch"
	"github.com/casevault/lexindex/internal/storage"
	"github.com/casevault/lexindex/pkg/types"
)

func setupPipeline(t *testing.T) (*Pipeline, *contentstore.Store) {
	t.Helper()
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cs := contentstore.New(db)
	return New(cs, fetch.New(fetch.Options{}), nil, 2), cs
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestIngestDir(t *testing.T) {
	p, cs := setupPipeline(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "motion.txt", "motion to suppress evidence")
	writeFile(t, dir, "order.txt", "order granting the motion")
	writeFile(t, dir, "notes.md", "not a txt file, skipped")

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFile(t, sub, "reply.txt", "reply brief text")

	report, err := p.IngestDir(ctx, dir, types.SourceCaseLibrary)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Ingested)
	assert.Empty(t, report.Failed)

	docs, err := cs.List(ctx, "case-library", 0)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestIngestDirSkipsExisting(t *testing.T) {
	p, _ := setupPipeline(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "motion.txt", "same content both runs")

	first, err := p.IngestDir(ctx, dir, types.SourceCaseLibrary)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Ingested)

	second, err := p.IngestDir(ctx, dir, types.SourceCaseLibrary)
	require.NoError(t, err)
	assert.Zero(t, second.Ingested)
	assert.Equal(t, 1, second.Existing)
}

func TestIngestDirRecordsFailures(t *testing.T) {
	p, _ := setupPipeline(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "real content")
	writeFile(t, dir, "empty.txt", "   \n  ")

	report, err := p.IngestDir(ctx, dir, types.SourceCaseLibrary)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ingested)
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0].Item, "empty.txt")
}

func TestIngestURLs(t *testing.T) {
	p, cs := setupPipeline(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good":
			_, _ = w.Write([]byte("fetched document body"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	report, err := p.IngestURLs(ctx, []string{srv.URL + "/good", srv.URL + "/missing"}, types.SourceOther)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ingested)
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0].Item, "/missing")

	docs, err := cs.List(ctx, "other", 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good", docs[0].Filename)
}

func TestIngestURLsWithoutFetcher(t *testing.T) {
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	p := New(contentstore.New(db), nil, nil, 1)
	_, err = p.IngestURLs(context.Background(), []string{"http://example.com"}, types.SourceOther)
	assert.Error(t, err)
}

func TestLockPreventsConcurrentLoads(t *testing.T) {
	p, _ := setupPipeline(t)

	require.True(t, p.lock.TryAcquire())
	defer p.lock.Release()

	_, err := p.IngestDir(context.Background(), t.TempDir(), types.SourceCaseLibrary)
	assert.ErrorIs(t, err, ErrIngestionInProgress)
	assert.True(t, p.Busy())
}

func TestLock(t *testing.T) {
	var l Lock
	assert.False(t, l.IsHeld())
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.True(t, l.TryAcquire())
	l.Release()
}
