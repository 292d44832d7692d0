// Package ingestion runs bulk document loads: directories of extracted text
// and lists of remote URLs. Work fans out over a bounded worker pool; one
// bulk load runs at a time.
package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/casevault/lexindex/internal/contentstore"
	"github.com/casevault/lexindex/internal/fetch"
	"github.com/casevault/lexindex/pkg/types"
)

// DefaultConcurrency is the worker pool size for bulk loads
const DefaultConcurrency = 4

// Pipeline coordinates bulk ingestion
type Pipeline struct {
	content     *contentstore.Store
	fetcher     *fetch.Fetcher
	logger      *log.Logger
	concurrency int
	lock        Lock
}

// New creates a pipeline. The fetcher may be nil if URL ingestion is never
// used.
func New(content *contentstore.Store, fetcher *fetch.Fetcher, logger *log.Logger, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[ingestion] ", log.LstdFlags)
	}
	return &Pipeline{
		content:     content,
		fetcher:     fetcher,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Failure records one item that could not be ingested
type Failure struct {
	Item string
	Err  string
}

// Report summarizes a bulk load
type Report struct {
	Ingested int
	Existing int
	Failed   []Failure
}

// IngestDir loads every .txt file under dir, recursively. Files that fail
// are reported, not fatal; already-stored documents count as existing.
func (p *Pipeline) IngestDir(ctx context.Context, dir string, source types.SourceSystem) (*Report, error) {
	if !p.lock.TryAcquire() {
		return nil, ErrIngestionInProgress
	}
	defer p.lock.Release()

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".txt") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	p.logger.Printf("ingesting %d files from %s", len(files), dir)

	report := &Report{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.concurrency)
	for _, path := range files {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}

			result, err := p.ingestFile(ctx, path, source)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				p.logger.Printf("failed to ingest %s: %v", path, err)
				report.Failed = append(report.Failed, Failure{Item: path, Err: err.Error()})
			case result.AlreadyExists:
				report.Existing++
			default:
				report.Ingested++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func (p *Pipeline) ingestFile(ctx context.Context, path string, source types.SourceSystem) (*contentstore.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.content.Ingest(ctx, &contentstore.IngestRequest{
		Filename:         filepath.Base(path),
		OriginalLocation: path,
		SourceSystem:     source,
		DocumentType:     "text",
		Text:             string(data),
		RawBytes:         data,
	})
}

// IngestURLs downloads and stores each URL. Transport failures are recorded
// per URL and never retried.
func (p *Pipeline) IngestURLs(ctx context.Context, urls []string, source types.SourceSystem) (*Report, error) {
	if p.fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured")
	}
	if !p.lock.TryAcquire() {
		return nil, ErrIngestionInProgress
	}
	defer p.lock.Release()

	p.logger.Printf("ingesting %d urls", len(urls))

	report := &Report{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.concurrency)
	for _, url := range urls {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}

			result, err := p.ingestURL(ctx, url, source)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				p.logger.Printf("failed to fetch %s: %v", url, err)
				report.Failed = append(report.Failed, Failure{Item: url, Err: err.Error()})
			case result.AlreadyExists:
				report.Existing++
			default:
				report.Ingested++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func (p *Pipeline) ingestURL(ctx context.Context, url string, source types.SourceSystem) (*contentstore.IngestResult, error) {
	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return p.content.Ingest(ctx, &contentstore.IngestRequest{
		Filename:         filepath.Base(url),
		OriginalLocation: url,
		SourceSystem:     source,
		DocumentType:     "web",
		Text:             string(body),
		RawBytes:         body,
	})
}

// Busy reports whether a bulk load is currently running
func (p *Pipeline) Busy() bool {
	return p.lock.IsHeld()
}
