package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rl1809/stock-reconciler/internal/core/domain"
	"github.com/rl1809/stock-reconciler/internal/logger"
	"github.com/rl1809/stock-reconciler/internal/port"
)

type BatchResult struct {
	Path   string
	Record domain.ProcessingRecord
	Err    error
}

// BatchProcessor runs parse, extract and the workflow for many documents
// with bounded concurrency.
type BatchProcessor struct {
	parser    port.DocumentParser
	extractor port.ItemExtractor
	runner    Runner
	workers   int
	logger    *logger.Logger
}

func NewBatchProcessor(parser port.DocumentParser, extractor port.ItemExtractor, runner Runner, workers int, l *logger.Logger) *BatchProcessor {
	if workers < 1 {
		workers = 1
	}
	if l == nil {
		l = logger.Nop()
	}
	return &BatchProcessor{
		parser:    parser,
		extractor: extractor,
		runner:    runner,
		workers:   workers,
		logger:    l,
	}
}

// ProcessDocument handles one file. Parser errors are returned unchanged
// and no run is started.
func (b *BatchProcessor) ProcessDocument(ctx context.Context, path string) (domain.ProcessingRecord, error) {
	doc, err := b.parser.Parse(ctx, path)
	if err != nil {
		return domain.ProcessingRecord{}, err
	}

	items, err := b.extractor.Extract(ctx, doc.Text)
	if err != nil {
		return domain.ProcessingRecord{}, fmt.Errorf("extract items from %s: %w", doc.Source, err)
	}

	return b.runner.Run(ctx, RunInput{
		SourceDocument: doc.Source,
		ExtractedText:  doc.Text,
		Items:          items,
	})
}

// Process returns one result per path, in the order given. A failing
// document does not stop the others.
func (b *BatchProcessor) Process(ctx context.Context, paths []string) []BatchResult {
	results := make([]BatchResult, len(paths))

	var g errgroup.Group
	g.SetLimit(b.workers)

	for i, path := range paths {
		g.Go(func() error {
			rec, err := b.ProcessDocument(ctx, path)
			results[i] = BatchResult{Path: path, Record: rec, Err: err}

			logCtx := b.logger.WithField(ctx, "path", path)
			if err != nil {
				b.logger.Warn(logCtx, "document failed", err)
			} else {
				b.logger.Info(b.logger.WithField(logCtx, "record_id", rec.ID), "document processed")
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
