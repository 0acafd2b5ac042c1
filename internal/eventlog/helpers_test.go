package eventlog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agbruneau/learning-events/pkg/models"
)

// recordingSink records every batch it is given.
type recordingSink struct {
	mu         sync.Mutex
	sends      [][]models.Event
	beacons    [][]models.Event
	sendErr    error
	beaconErr  error
	block      chan struct{} // Send waits on it when set
	started    chan struct{} // Send signals it when set
	sendCalled atomic.Int32
}

func (s *recordingSink) Send(ctx context.Context, events []models.Event) error {
	s.sendCalled.Add(1)
	s.mu.Lock()
	s.sends = append(s.sends, events)
	block, started, err := s.block, s.started, s.sendErr
	s.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (s *recordingSink) Beacon(events []models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beaconErr != nil {
		return s.beaconErr
	}
	s.beacons = append(s.beacons, events)
	return nil
}

func (s *recordingSink) sent() [][]models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]models.Event, len(s.sends))
	copy(out, s.sends)
	return out
}

func (s *recordingSink) beaconed() [][]models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]models.Event, len(s.beacons))
	copy(out, s.beacons)
	return out
}

func (s *recordingSink) setSendErr(err error) {
	s.mu.Lock()
	s.sendErr = err
	s.mu.Unlock()
}

// recordingDeadLetter captures spooled batches.
type recordingDeadLetter struct {
	mu       sync.Mutex
	events   []models.Event
	attempts int
	lastErr  error
}

func (d *recordingDeadLetter) Send(events []models.Event, attempts int, lastErr error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, events...)
	d.attempts = attempts
	d.lastErr = lastErr
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func seqIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("evt-%d", n.Add(1)) }
}

func ids(events []models.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
