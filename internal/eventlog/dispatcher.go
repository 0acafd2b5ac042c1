package eventlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agbruneau/learning-events/internal/retry"
)

// ErrFlushInProgress is returned by Flush when another flush still owns the
// in-flight slot. The events stay queued for the next cycle.
var ErrFlushInProgress = errors.New("eventlog: flush already in progress")

// Start launches the periodic flush loop. It stops when ctx is done or when
// Close or Shutdown is called. Calling Start more than once has no effect.
func (l *Logger) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		go l.run(ctx)
	})
}

func (l *Logger) run(ctx context.Context) {
	defer close(l.loopDone)

	ticker := time.NewTicker(l.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-ticker.C:
			if l.QueueLen() == 0 {
				continue
			}
			if err := l.Flush(ctx); err != nil && !errors.Is(err, ErrFlushInProgress) {
				slog.Debug("periodic flush failed", "error", err)
			}
		}
	}
}

// stopLoop stops the periodic loop and waits for it to exit.
func (l *Logger) stopLoop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		// Mark the loop as started so a late Start does not spawn it.
		started := true
		l.startOnce.Do(func() { started = false })
		if started {
			<-l.loopDone
		}
	})
}

// Flush sends the current queue as one batch. On failure the batch is put
// back in front of the queue and the error is returned; it has already been
// logged as a warning. Concurrent flushes are refused with ErrFlushInProgress.
func (l *Logger) Flush(ctx context.Context) error {
	if !l.flushing.CompareAndSwap(false, true) {
		return ErrFlushInProgress
	}
	defer l.flushing.Store(false)
	return l.send(ctx)
}

// triggerFlush starts a background flush unless one is already in flight.
// The caller is never blocked on the network.
func (l *Logger) triggerFlush() {
	if !l.flushing.CompareAndSwap(false, true) {
		return
	}
	l.flushes.Add(1)
	go func() {
		defer l.flushes.Done()
		defer l.flushing.Store(false)
		_ = l.send(l.baseCtx)
	}()
}

// send swaps the queue out and delivers it. Caller owns the in-flight slot.
func (l *Logger) send(ctx context.Context) error {
	l.mu.Lock()
	batch := l.queue.swap()
	l.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := l.sink.Send(ctx, batch); err != nil {
		l.mu.Lock()
		l.queue.prepend(batch)
		l.mu.Unlock()
		slog.Warn("learning events flush failed, batch re-queued",
			"events", len(batch), "error", err)
		return fmt.Errorf("flush %d events: %w", len(batch), err)
	}

	slog.Debug("learning events flushed", "events", len(batch))
	return nil
}

// FlushImmediate hands the current queue to the sink's beacon path, which
// survives the caller going away. It does not wait for delivery.
func (l *Logger) FlushImmediate() error {
	l.mu.Lock()
	batch := l.queue.swap()
	l.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := l.sink.Beacon(batch); err != nil {
		l.mu.Lock()
		l.queue.prepend(batch)
		l.mu.Unlock()
		slog.Warn("learning events beacon failed, batch re-queued",
			"events", len(batch), "error", err)
		return fmt.Errorf("beacon %d events: %w", len(batch), err)
	}
	return nil
}

// Close is the unload path: it stops the flush loop, lets an in-flight flush
// finish, beacons whatever is left and waits a bounded time for the beacons.
// A flush still hung after the wait is cancelled and its batch beaconed too.
func (l *Logger) Close() error {
	l.stopLoop()
	settled := waitGroupTimeout(&l.flushes, l.drainTimeout)

	err := l.FlushImmediate()
	l.drainBeacons()
	l.cancelBase()

	if settled {
		return err
	}
	if !waitGroupTimeout(&l.flushes, l.drainTimeout) {
		slog.Warn("learning events flush still in flight after close")
		return err
	}
	// The cancelled flush has put its batch back in the queue.
	err = errors.Join(err, l.FlushImmediate())
	l.drainBeacons()
	if n := l.QueueLen(); n > 0 {
		slog.Warn("learning events dropped on close", "events", n)
	}
	return err
}

func (l *Logger) drainBeacons() {
	if d, ok := l.sink.(Drainer); ok {
		if !d.Wait(l.drainTimeout) {
			slog.Warn("learning events beacon drain timed out")
		}
	}
}

// Shutdown is the graceful path: it stops the flush loop and retries Flush
// with backoff until the queue is empty. Whatever cannot be delivered before
// the retries or ctx run out goes to the dead letter, if one is configured.
func (l *Logger) Shutdown(ctx context.Context) error {
	l.stopLoop()
	defer l.cancelBase()

	if deadline, ok := ctx.Deadline(); ok {
		waitGroupTimeout(&l.flushes, time.Until(deadline))
	} else {
		waitGroupTimeout(&l.flushes, l.drainTimeout)
	}

	res := retry.DoWithCallback(ctx, l.retryCfg, func(ctx context.Context) error {
		for l.QueueLen() > 0 {
			if err := l.Flush(ctx); err != nil {
				return err
			}
		}
		return nil
	}, func(attempt int, err error, next time.Duration) {
		slog.Info("retrying learning events flush", "attempt", attempt, "next_delay", next, "error", err)
	})
	if res.Err == nil {
		return nil
	}

	l.mu.Lock()
	remaining := l.queue.swap()
	l.mu.Unlock()

	if len(remaining) == 0 {
		return nil
	}
	if l.deadLetter == nil {
		return fmt.Errorf("shutdown dropped %d events: %w", len(remaining), res.Err)
	}
	if err := l.deadLetter.Send(remaining, res.Attempts, res.Err); err != nil {
		return fmt.Errorf("spool %d events: %w", len(remaining), errors.Join(err, res.Err))
	}
	slog.Warn("learning events spooled to dead letter", "events", len(remaining), "attempts", res.Attempts)
	return nil
}

// waitGroupTimeout waits for wg or until timeout elapses. Returns false on timeout.
func waitGroupTimeout(wg interface{ Wait() }, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
