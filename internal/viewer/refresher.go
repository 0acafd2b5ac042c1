package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/agbruneau/learning-events/pkg/models"
)

// FetchFunc charge une fenêtre d'événements.
type FetchFunc func(ctx context.Context) ([]models.Event, error)

// ResultFunc reçoit le résultat de chaque chargement.
type ResultFunc func(events []models.Event, err error)

// Refresher gère le chargement manuel et le rafraîchissement automatique.
// Les erreurs sont remises au ResultFunc et ne sont pas relancées avant le
// prochain cycle.
type Refresher struct {
	fetch    FetchFunc
	onResult ResultFunc
	interval time.Duration

	fetchMu sync.Mutex // sérialise les chargements
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRefresher crée un Refresher inactif.
func NewRefresher(fetch FetchFunc, interval time.Duration, onResult ResultFunc) *Refresher {
	if onResult == nil {
		onResult = func([]models.Event, error) {}
	}
	return &Refresher{fetch: fetch, onResult: onResult, interval: interval}
}

// Refresh charge immédiatement et remet le résultat.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()

	events, err := r.fetch(ctx)
	r.onResult(events, err)
	return err
}

// Enable démarre le rafraîchissement automatique. Sans effet s'il est déjà actif.
func (r *Refresher) Enable(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil || r.interval <= 0 {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx, r.done)
}

// Disable arrête le rafraîchissement automatique et attend la fin de la boucle.
// Un chargement en cours est annulé et son résultat ignoré.
func (r *Refresher) Disable() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Toggle inverse l'état et retourne le nouvel état.
func (r *Refresher) Toggle(ctx context.Context) bool {
	if r.Enabled() {
		r.Disable()
		return false
	}
	r.Enable(ctx)
	return r.Enabled()
}

// Enabled indique si le rafraîchissement automatique est actif.
func (r *Refresher) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Stop arrête tout. Équivaut à Disable.
func (r *Refresher) Stop() {
	r.Disable()
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fetchMu.Lock()
			events, err := r.fetch(ctx)
			if ctx.Err() == nil {
				r.onResult(events, err)
			}
			r.fetchMu.Unlock()
		}
	}
}
