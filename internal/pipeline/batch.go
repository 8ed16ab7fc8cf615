package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/store"
)

// DefaultBatchSize bounds how many ids go into one membership predicate.
// The REST backend encodes ids in the request URL.
const DefaultBatchSize = 200

// BatchFetcher reads rows by id in bounded batches.
type BatchFetcher struct {
	querier     store.Querier
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

// NewBatchFetcher returns a fetcher issuing at most concurrency batch
// queries at a time. Non-positive values fall back to DefaultBatchSize and
// sequential batches.
func NewBatchFetcher(querier store.Querier, batchSize, concurrency int, logger *zap.Logger) *BatchFetcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchFetcher{
		querier:     querier,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Fetch selects columns from collection where keyColumn is one of ids,
// with extra applied to every batch when non-nil. Duplicate ids are sent
// once. An empty id list returns no rows without querying. Any failed batch
// fails the whole call and discards rows from the other batches.
func (b *BatchFetcher) Fetch(ctx context.Context, collection string, columns []string, keyColumn string, ids []string, extra *store.Range) ([]record.Record, error) {
	if len(ids) == 0 {
		return []record.Record{}, nil
	}

	batches := chunk(dedupe(ids), b.batchSize)
	results := make([][]record.Record, len(batches))

	fetchOne := func(ctx context.Context, i int) error {
		rows, err := b.querier.Select(ctx, store.Query{
			Collection: collection,
			Columns:    columns,
			KeyColumn:  keyColumn,
			Keys:       batches[i],
			Range:      extra,
		})
		if err != nil {
			return fmt.Errorf("%w: %s (batch %d of %d): %w", ErrRemoteQuery, collection, i+1, len(batches), err)
		}
		results[i] = rows
		return nil
	}

	if b.concurrency == 1 || len(batches) == 1 {
		for i := range batches {
			if err := fetchOne(ctx, i); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.concurrency)
		for i := range batches {
			g.Go(func() error { return fetchOne(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	total := 0
	for _, rows := range results {
		total += len(rows)
	}
	merged := make([]record.Record, 0, total)
	for _, rows := range results {
		merged = append(merged, rows...)
	}

	b.logger.Debug("Batched fetch complete",
		zap.String("collection", collection),
		zap.Int("requested_ids", len(ids)),
		zap.Int("batches", len(batches)),
		zap.Int("rows", total),
	)
	return merged, nil
}

// dedupe keeps the first occurrence of each id, in order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// chunk splits ids into contiguous slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}
