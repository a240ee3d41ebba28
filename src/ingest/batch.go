package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// chunkDelay spaces out chunk submissions so a bulk run does not saturate the
// store's connection handling. A fixed-rate throttle, not backpressure.
const chunkDelay = 100 * time.Millisecond

// ImportStats are the running totals an import run reports.
type ImportStats struct {
	Imported int
	Updated  int
	Skipped  int
	Failed   int
}

func (s *ImportStats) Add(o ImportStats) {
	s.Imported += o.Imported
	s.Updated += o.Updated
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

func (s ImportStats) String() string {
	return fmt.Sprintf("imported=%d updated=%d skipped=%d failed=%d",
		s.Imported, s.Updated, s.Skipped, s.Failed)
}

// ChunkFunc processes the half-open record range [start, end) and reports what
// happened to it.
type ChunkFunc func(ctx context.Context, start, end int) (ImportStats, error)

// BatchDriver partitions a record set into fixed-size chunks and drives a
// ChunkFunc over them sequentially. A failing chunk is logged and counted,
// never propagated: one bad chunk must not abort a multi-thousand-record run.
type BatchDriver struct {
	chunkSize int
	limiter   *rate.Limiter
	log       *slog.Logger
}

func NewBatchDriver(chunkSize int, log *slog.Logger) *BatchDriver {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &BatchDriver{
		chunkSize: chunkSize,
		limiter:   rate.NewLimiter(rate.Every(chunkDelay), 1),
		log:       log,
	}
}

// Run processes total records in order. It returns early only when ctx is
// canceled; everything else is absorbed into the stats.
func (d *BatchDriver) Run(ctx context.Context, label string, total int, fn ChunkFunc) (ImportStats, error) {
	var stats ImportStats
	if total == 0 {
		return stats, nil
	}

	totalBatches := (total + d.chunkSize - 1) / d.chunkSize
	batchNum := 0
	for start := 0; start < total; start += d.chunkSize {
		if err := d.limiter.Wait(ctx); err != nil {
			return stats, fmt.Errorf("batch driver: run canceled: %w", err)
		}

		end := start + d.chunkSize
		if end > total {
			end = total
		}
		batchNum++

		chunkStats, err := fn(ctx, start, end)
		stats.Add(chunkStats)
		if err != nil {
			stats.Failed += (end - start) - chunkStats.Imported - chunkStats.Updated - chunkStats.Skipped - chunkStats.Failed
			d.log.Error("Batch failed, continuing with next",
				"label", label, "batch", batchNum, "totalBatches", totalBatches, "error", err)
			continue
		}
		d.log.Info("Batch completed",
			"label", label, "batch", batchNum, "totalBatches", totalBatches, "records", end-start)
	}

	d.log.Info("Batch run finished", "label", label, "records", total, "stats", stats.String())
	return stats, nil
}
