package ingestion

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/gridsync-io/gridsync/internal/order"
)

// Batch processing defaults. Field validation is pure and could fan out
// arbitrarily wide; the bound exists for the record store's sake.
const (
	defaultBatchWorkers = 4
	defaultBatchRPS     = 50
	defaultBatchBurst   = 10
)

type (
	// BatchConfig bounds batch concurrency and record store pressure.
	BatchConfig struct {
		// Workers is the number of rows processed concurrently.
		Workers int

		// RowsPerSecond throttles row starts so a large sheet cannot
		// saturate the store. Zero disables throttling.
		RowsPerSecond int

		// Burst is the limiter burst size.
		Burst int
	}

	// BatchProcessor runs a slice of raw rows through the pipeline with
	// bounded concurrency. Row failures are row-scoped: a failed row never
	// stops the batch, and outcomes are returned in row order regardless
	// of completion order.
	BatchProcessor struct {
		pipeline *Pipeline
		cfg      BatchConfig
		limiter  *rate.Limiter
		logger   *slog.Logger
	}
)

// DefaultBatchConfig returns the standard batch bounds.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Workers:       defaultBatchWorkers,
		RowsPerSecond: defaultBatchRPS,
		Burst:         defaultBatchBurst,
	}
}

// NewBatchProcessor creates a batch processor over the pipeline.
func NewBatchProcessor(pipeline *Pipeline, cfg BatchConfig, logger *slog.Logger) *BatchProcessor {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultBatchWorkers
	}

	if cfg.Burst <= 0 {
		cfg.Burst = defaultBatchBurst
	}

	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RowsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RowsPerSecond), cfg.Burst)
	}

	return &BatchProcessor{
		pipeline: pipeline,
		cfg:      cfg,
		limiter:  limiter,
		logger:   logger,
	}
}

// ProcessBatch processes all rows and returns one outcome per row, in the
// same order as the input. Context cancellation stops submitting further
// rows; rows already in flight finish, and unstarted rows report a system
// error mentioning the cancellation.
func (b *BatchProcessor) ProcessBatch(ctx context.Context, rows []order.RawOrderRow, connectionID string) []Outcome {
	outcomes := make([]Outcome, len(rows))

	jobs := make(chan int)

	var wg sync.WaitGroup

	for range b.cfg.Workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for idx := range jobs {
				outcomes[idx] = b.pipeline.Process(ctx, rows[idx], connectionID)
			}
		}()
	}

	for idx := range rows {
		if err := b.wait(ctx); err != nil {
			outcomes[idx] = b.pipeline.systemError(rows[idx], "batch stopped: "+err.Error())

			continue
		}

		jobs <- idx
	}

	close(jobs)
	wg.Wait()

	b.logBatch(connectionID, outcomes)

	return outcomes
}

// wait blocks until the limiter admits the next row, or returns the
// context error on cancellation.
func (b *BatchProcessor) wait(ctx context.Context) error {
	if b.limiter == nil {
		return ctx.Err()
	}

	return b.limiter.Wait(ctx)
}

func (b *BatchProcessor) logBatch(connectionID string, outcomes []Outcome) {
	var created, skipped, flagged, failed int

	for _, o := range outcomes {
		switch {
		case o.Created && o.Flagged:
			created++
			flagged++
		case o.Created:
			created++
		case o.Skipped:
			skipped++
		default:
			failed++
		}
	}

	b.logger.Info("Batch processed",
		slog.String("connection_id", connectionID),
		slog.Int("rows", len(outcomes)),
		slog.Int("created", created),
		slog.Int("skipped", skipped),
		slog.Int("flagged", flagged),
		slog.Int("failed", failed),
	)
}
