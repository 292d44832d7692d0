package contentstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casevault/lexindex/internal/storage"
	"github.com/casevault/lexindex/pkg/types"
)

func setupStore(t *testing.T) (*Store, *storage.SQLiteStore) {
	t.Helper()
	db, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), db
}

func TestIngestPages(t *testing.T) {
	cs, _ := setupStore(t)
	ctx := context.Background()

	result, err := cs.Ingest(ctx, &IngestRequest{
		Filename:     "motion.pdf",
		SourceSystem: types.SourceCaseLibrary,
		DocumentType: "motion",
		Pages:        []string{"page one text", "page two text"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.PageCount)
	assert.False(t, result.AlreadyExists)
	assert.True(t, strings.HasPrefix(result.DocumentID, "case-library-"))

	pages, err := cs.Pages(ctx, result.DocumentID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, "page one text", pages[0].TextContent)
}

func TestIngestDropsEmptyPagesAndRenumbers(t *testing.T) {
	cs, _ := setupStore(t)
	ctx := context.Background()

	result, err := cs.Ingest(ctx, &IngestRequest{
		SourceSystem: types.SourceCaseLibrary,
		Pages:        []string{"  \t\n ", "real content", "", "more content"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.PageCount)

	pages, err := cs.Pages(ctx, result.DocumentID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, "real content", pages[0].TextContent)
	assert.Equal(t, 2, pages[1].PageNumber)
	assert.Equal(t, "more content", pages[1].TextContent)
}

func TestIngestEmptyDocument(t *testing.T) {
	cs, db := setupStore(t)
	ctx := context.Background()

	_, err := cs.Ingest(ctx, &IngestRequest{
		SourceSystem: types.SourceCaseLibrary,
		Pages:        []string{"   ", "\n\n"},
	})
	assert.ErrorIs(t, err, types.ErrEmptyDocument)

	// Nothing was written
	docs, err := db.ListDocuments(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestInvalidSourceSystem(t *testing.T) {
	cs, _ := setupStore(t)

	_, err := cs.Ingest(context.Background(), &IngestRequest{
		SourceSystem: "nonsense",
		Pages:        []string{"text"},
	})
	assert.Error(t, err)
}

func TestIngestIdempotent(t *testing.T) {
	cs, _ := setupStore(t)
	ctx := context.Background()

	req := &IngestRequest{
		SourceSystem: types.SourceCaseLibrary,
		Pages:        []string{"identical content"},
	}
	first, err := cs.Ingest(ctx, req)
	require.NoError(t, err)

	second, err := cs.Ingest(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.AlreadyExists)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Equal(t, 1, second.PageCount)
}

func TestIngestSameContentDifferentSource(t *testing.T) {
	cs, _ := setupStore(t)
	ctx := context.Background()

	first, err := cs.Ingest(ctx, &IngestRequest{
		SourceSystem: types.SourceCaseLibrary,
		Pages:        []string{"shared content"},
	})
	require.NoError(t, err)

	second, err := cs.Ingest(ctx, &IngestRequest{
		SourceSystem: types.SourceBWC,
		Pages:        []string{"shared content"},
	})
	require.NoError(t, err)
	assert.False(t, second.AlreadyExists)
	assert.NotEqual(t, first.DocumentID, second.DocumentID)
}

func TestHashNormalizesWhitespace(t *testing.T) {
	cs, _ := setupStore(t)
	ctx := context.Background()

	first, err := cs.Ingest(ctx, &IngestRequest{
		SourceSystem: types.SourceCaseLibrary,
		Pages:        []string{"the  quick\nbrown   fox"},
	})
	require.NoError(t, err)

	// Same words, different formatting: dedupes to the same document
	second, err := cs.Ingest(ctx, &IngestRequest{
		SourceSystem: types.SourceCaseLibrary,
		Pages:        []string{"the quick brown fox"},
	})
	require.NoError(t, err)
	assert.True(t, second.AlreadyExists)
	assert.Equal(t, first.DocumentID, second.DocumentID)
}

func TestHashPrefersRawBytes(t *testing.T) {
	cs, _ := setupStore(t)
	ctx := context.Background()

	raw := []byte{0x25, 0x50, 0x44, 0x46}
	result, err := cs.Ingest(ctx, &IngestRequest{
		SourceSystem: types.SourceCaseLibrary,
		Pages:        []string{"extracted text"},
		RawBytes:     raw,
	})
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256(raw), result.ContentHash)
}

func TestIngestTextWindows(t *testing.T) {
	cs, _ := setupStore(t)
	ctx := context.Background()

	text := strings.Repeat("a", DefaultWindowSize) + strings.Repeat("b", 100)
	result, err := cs.Ingest(ctx, &IngestRequest{
		SourceSystem: types.SourceOther,
		Text:         text,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.PageCount)

	pages, err := cs.Pages(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Len(t, []rune(pages[0].TextContent), DefaultWindowSize)
	assert.Len(t, []rune(pages[1].TextContent), 100)
}

func TestWindowTextRuneSafety(t *testing.T) {
	// Multi-byte runes are never split mid-character
	text := strings.Repeat("§", 7)
	windows := windowText(text, 3)
	require.Len(t, windows, 3)
	assert.Equal(t, "§§§", windows[0])
	assert.Equal(t, "§", windows[2])
}

func TestDelete(t *testing.T) {
	cs, _ := setupStore(t)
	ctx := context.Background()

	result, err := cs.Ingest(ctx, &IngestRequest{
		SourceSystem: types.SourceCaseLibrary,
		Pages:        []string{"to be removed"},
	})
	require.NoError(t, err)

	deleted, err := cs.Delete(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = cs.Delete(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

// failingStore injects a page insert failure to exercise rollback
type failingStore struct {
	storage.Store
	failOnPage int
}

type failingTx struct {
	storage.Tx
	parent *failingStore
	count  int
}

func (f *failingStore) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := f.Store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{Tx: tx, parent: f}, nil
}

func (t *failingTx) InsertPage(ctx context.Context, page *storage.Page) error {
	t.count++
	if t.count >= t.parent.failOnPage {
		return errors.New("injected failure")
	}
	return t.Tx.InsertPage(ctx, page)
}

// staleHashStore makes the pre-insert hash lookup miss, forcing the insert
// path even when the document is already stored. Models two concurrent
// ingestions of identical content both passing the lookup before either
// commits.
type staleHashStore struct {
	storage.Store
	misses int
}

func (s *staleHashStore) GetDocumentByHash(ctx context.Context, contentHash [32]byte, sourceSystem string) (*storage.Document, error) {
	if s.misses > 0 {
		s.misses--
		return nil, storage.ErrNotFound
	}
	return s.Store.GetDocumentByHash(ctx, contentHash, sourceSystem)
}

func TestIngestConcurrentDuplicateReturnsExisting(t *testing.T) {
	_, db := setupStore(t)
	ctx := context.Background()

	first, err := New(db).Ingest(ctx, &IngestRequest{
		SourceSystem: types.SourceCaseLibrary,
		Pages:        []string{"identical content"},
	})
	require.NoError(t, err)

	// The lookup misses, the insert trips the unique hash constraint, and
	// the loser still resolves to the stored document instead of failing.
	racer := New(&staleHashStore{Store: db, misses: 1})
	second, err := racer.Ingest(ctx, &IngestRequest{
		SourceSystem: types.SourceCaseLibrary,
		Pages:        []string{"identical content"},
	})
	require.NoError(t, err)
	assert.True(t, second.AlreadyExists)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, 1, second.PageCount)

	docs, err := db.ListDocuments(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngestAtomicity(t *testing.T) {
	_, db := setupStore(t)
	cs := New(&failingStore{Store: db, failOnPage: 2})
	ctx := context.Background()

	_, err := cs.Ingest(ctx, &IngestRequest{
		SourceSystem: types.SourceCaseLibrary,
		Pages:        []string{"page one", "page two", "page three"},
	})
	require.Error(t, err)

	// Partial write rolled back: no document, no pages
	docs, err := db.ListDocuments(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, docs)

	status, err := db.GetStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.PageCount)
}
