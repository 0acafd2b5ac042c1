package emitter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agbruneau/learning-events/internal/eventlog"
	"github.com/agbruneau/learning-events/internal/retry"
)

// ReplayResult summarizes a spool replay.
type ReplayResult struct {
	Batches int // Batches delivered.
	Events  int // Events delivered.
}

// Replay re-sends every batch of the spool file through sink, in order.
// It stops at the first batch that still cannot be delivered after retries.
// Events already stored downstream are ignored by the collector's dedupe.
//
// Parameters:
//   - ctx: Cancels the replay.
//   - sink: Destination of the batches.
//   - path: Spool file written by the dead-letter spool.
//   - cfg: Backoff applied to each batch.
//
// Returns:
//   - ReplayResult: What was delivered before stopping.
//   - error: The delivery or read error, nil when the whole spool was sent.
func Replay(ctx context.Context, sink eventlog.Sink, path string, cfg retry.Config) (ReplayResult, error) {
	var res ReplayResult

	batches, err := retry.ReadSpool(path)
	if err != nil {
		return res, err
	}

	for i, b := range batches {
		if len(b.Events) == 0 {
			continue
		}
		out := retry.DoWithCallback(ctx, cfg, func(ctx context.Context) error {
			return sink.Send(ctx, b.Events)
		}, func(attempt int, err error, next time.Duration) {
			slog.Info("retrying spooled batch", "batch", i+1, "attempt", attempt, "next_delay", next, "error", err)
		})
		if out.Err != nil {
			return res, fmt.Errorf("replay batch %d of %d: %w", i+1, len(batches), out.Err)
		}
		res.Batches++
		res.Events += len(b.Events)
	}
	return res, nil
}
