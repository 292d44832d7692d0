// Package storage provides SQLite-based persistence for the legal document
// corpus.
//
// Tables:
//   - documents: content-addressed document records
//   - pages: per-document page text, dense 1-indexed numbering
//   - pages_fts: FTS5 index over page text, trigger-synced with pages
//   - citations: append-only citation ledger
//   - muni_sources / muni_code_sections: municipal code corpus
//   - muni_sections_fts: FTS5 index over municipal sections
//
// The FTS tables are derived state: they are written only by triggers inside
// the same transaction as the owning row, so a committed ingest or delete is
// immediately visible to ranked search.
//
// # Build Tags
//
// Two driver configurations are supported:
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build ./...
//
// CGO build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3
//
//   - Faster FTS5 queries on large corpora
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
package storage
