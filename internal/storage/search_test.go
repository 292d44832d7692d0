package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSearchCorpus(t *testing.T, store *SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	docs := []struct {
		id, source, docType string
		pages               []string
	}{
		{"case-library-motion", "case-library", "motion", []string{
			"Defendant moves to suppress the evidence obtained during the traffic stop.",
			"The suppression motion relies on the Fourth Amendment.",
		}},
		{"case-library-order", "case-library", "order", []string{
			"The court grants the motion in part and denies it in part.",
		}},
		{"bwc-transcript", "bwc", "transcript", []string{
			"Officer: step out of the vehicle please. Driver: why was I stopped?",
		}},
	}
	for _, d := range docs {
		require.NoError(t, store.InsertDocument(ctx, &Document{
			DocumentID:   d.id,
			ContentHash:  sha256.Sum256([]byte(d.id)),
			SourceSystem: d.source,
			DocumentType: d.docType,
			Filename:     d.id + ".txt",
		}))
		for i, text := range d.pages {
			require.NoError(t, store.InsertPage(ctx, &Page{
				DocumentID: d.id, PageNumber: i + 1, TextContent: text,
			}))
		}
	}
}

func TestSearchPages(t *testing.T) {
	store := setupTestDB(t)
	seedSearchCorpus(t, store)
	ctx := context.Background()

	hits, err := store.SearchPages(ctx, "suppress", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "case-library-motion", hits[0].DocumentID)
	assert.Equal(t, 1, hits[0].PageNumber)
	// Raw bm25 scores are negative: lower is a better match
	assert.Less(t, hits[0].Score, 0.0)
}

func TestSearchPagesFilters(t *testing.T) {
	store := setupTestDB(t)
	seedSearchCorpus(t, store)
	ctx := context.Background()

	all, err := store.SearchPages(ctx, "motion", nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	orders, err := store.SearchPages(ctx, "motion", &SearchFilters{DocumentType: "order"}, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "case-library-order", orders[0].DocumentID)

	byDoc, err := store.SearchPages(ctx, "motion", &SearchFilters{DocumentID: "case-library-motion"}, 10)
	require.NoError(t, err)
	require.Len(t, byDoc, 1)
	assert.Equal(t, 2, byDoc[0].PageNumber)

	bwc, err := store.SearchPages(ctx, "vehicle", &SearchFilters{SourceSystem: "bwc"}, 10)
	require.NoError(t, err)
	assert.Len(t, bwc, 1)
}

func TestSearchPagesLimit(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDocument(ctx, &Document{
		DocumentID:   "case-library-big",
		ContentHash:  sha256.Sum256([]byte("big")),
		SourceSystem: "case-library",
	}))
	for i := 1; i <= 5; i++ {
		require.NoError(t, store.InsertPage(ctx, &Page{
			DocumentID:  "case-library-big",
			PageNumber:  i,
			TextContent: fmt.Sprintf("hearing transcript page %d", i),
		}))
	}

	hits, err := store.SearchPages(ctx, "hearing", nil, 3)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestSearchPagesRanking(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.InsertDocument(ctx, &Document{
		DocumentID:   "case-library-rank",
		ContentHash:  sha256.Sum256([]byte("rank")),
		SourceSystem: "case-library",
	}))
	require.NoError(t, store.InsertPage(ctx, &Page{
		DocumentID: "case-library-rank", PageNumber: 1,
		TextContent: "warrant warrant warrant issued by the magistrate",
	}))
	require.NoError(t, store.InsertPage(ctx, &Page{
		DocumentID: "case-library-rank", PageNumber: 2,
		TextContent: "a warrant is mentioned once among many many other unrelated words here today",
	}))

	hits, err := store.SearchPages(ctx, "warrant", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].PageNumber)
	assert.LessOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestSearchMuniSections(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	seattle := &MuniSource{State: "WA", County: "King", Municipality: "Seattle"}
	require.NoError(t, store.UpsertMuniSource(ctx, seattle))
	bellevue := &MuniSource{State: "WA", County: "King", Municipality: "Bellevue"}
	require.NoError(t, store.UpsertMuniSource(ctx, bellevue))

	require.NoError(t, store.UpsertMuniSection(ctx, &MuniSection{
		SourceID: seattle.ID, SectionCitation: "SMC 11.56.020",
		Title: "Driving under the influence",
		Text:  "A person is guilty of driving while under the influence of intoxicating liquor.",
	}))
	require.NoError(t, store.UpsertMuniSection(ctx, &MuniSection{
		SourceID: bellevue.ID, SectionCitation: "BCC 10.12.010",
		Title: "Parking restrictions",
		Text:  "No person shall park a vehicle upon any street for longer than permitted.",
	}))

	hits, err := store.SearchMuniSections(ctx, "influence", "", "", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "SMC 11.56.020", hits[0].SectionCitation)

	// Title text is searchable too
	hits, err = store.SearchMuniSections(ctx, "parking", "King", "Bellevue", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	none, err := store.SearchMuniSections(ctx, "parking", "King", "Seattle", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearchReturnsIndexErrorOnBadMatch(t *testing.T) {
	store := setupTestDB(t)
	seedSearchCorpus(t, store)

	// Raw FTS syntax errors surface as an index failure; callers sanitize
	// with CleanMatchQuery before reaching the store.
	_, err := store.SearchPages(context.Background(), `"unbalanced`, nil, 10)
	assert.Error(t, err)
}

func TestCleanMatchQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain terms", "traffic stop", "traffic stop"},
		{"strips punctuation", "suppress! the (evidence)", "suppress the evidence"},
		{"hyphen splits terms", "state-of-the-art", "state of the art"},
		{"balanced quotes kept", `"traffic stop" warrant`, `"traffic stop" warrant`},
		{"unbalanced quote dropped", `"traffic stop warrant`, "traffic stop warrant"},
		{"operators quoted", "search AND seizure", `search "AND" seizure`},
		{"near quoted", "NEAR the scene", `"NEAR" the scene`},
		{"lowercase and kept bare", "search and seizure", "search and seizure"},
		{"collapses whitespace", "  a \t b\n c ", "a b c"},
		{"only punctuation", "!!! ???", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanMatchQuery(tt.input))
		})
	}
}
