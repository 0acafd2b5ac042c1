package viewer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agbruneau/learning-events/internal/taxonomy"
	"github.com/agbruneau/learning-events/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchRecorder struct {
	calls atomic.Int32
	err   error

	mu      sync.Mutex
	results []error
}

func (f *fetchRecorder) fetch(ctx context.Context) ([]models.Event, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []models.Event{ev("1", taxonomy.Clicked, models.SeverityInfo, models.CategoryNavigation)}, nil
}

func (f *fetchRecorder) onResult(_ []models.Event, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, err)
}

func (f *fetchRecorder) resultCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

func TestRefresherManualRefresh(t *testing.T) {
	rec := &fetchRecorder{err: ErrUnauthorized}
	r := NewRefresher(rec.fetch, time.Hour, rec.onResult)

	err := r.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, []error{ErrUnauthorized}, rec.results)
	assert.False(t, r.Enabled())
}

func TestRefresherAutoRefresh(t *testing.T) {
	rec := &fetchRecorder{}
	r := NewRefresher(rec.fetch, 10*time.Millisecond, rec.onResult)

	r.Enable(context.Background())
	require.True(t, r.Enabled())
	assert.Eventually(t, func() bool { return rec.resultCount() >= 3 }, time.Second, 5*time.Millisecond)

	r.Disable()
	assert.False(t, r.Enabled())

	stopped := rec.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, rec.calls.Load(), "no fetch after Disable")
}

func TestRefresherErrorsDoNotStopLoop(t *testing.T) {
	rec := &fetchRecorder{err: errors.New("collector down")}
	r := NewRefresher(rec.fetch, 10*time.Millisecond, rec.onResult)
	defer r.Stop()

	r.Enable(context.Background())
	assert.Eventually(t, func() bool { return rec.resultCount() >= 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, r.Enabled())
}

func TestRefresherToggle(t *testing.T) {
	rec := &fetchRecorder{}
	r := NewRefresher(rec.fetch, time.Hour, rec.onResult)

	assert.True(t, r.Toggle(context.Background()))
	r.Enable(context.Background()) // déjà actif
	assert.True(t, r.Enabled())
	assert.False(t, r.Toggle(context.Background()))
	r.Disable() // déjà inactif
	assert.False(t, r.Enabled())
}

func TestRefresherZeroIntervalNeverEnables(t *testing.T) {
	rec := &fetchRecorder{}
	r := NewRefresher(rec.fetch, 0, nil)

	assert.False(t, r.Toggle(context.Background()))
	require.NoError(t, r.Refresh(context.Background()))
	assert.EqualValues(t, 1, rec.calls.Load())
}

func TestRefresherStopsWithParentContext(t *testing.T) {
	rec := &fetchRecorder{}
	r := NewRefresher(rec.fetch, 10*time.Millisecond, rec.onResult)

	ctx, cancel := context.WithCancel(context.Background())
	r.Enable(ctx)
	cancel()
	r.Disable()
	assert.False(t, r.Enabled())
}
