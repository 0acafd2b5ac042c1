package eventlog

import "github.com/agbruneau/learning-events/pkg/models"

// queue is the pending-event buffer. Callers hold Logger.mu.
type queue struct {
	events []models.Event
}

func (q *queue) push(e models.Event) {
	q.events = append(q.events, e)
}

func (q *queue) len() int {
	return len(q.events)
}

// swap hands back the current generation and starts a fresh one.
func (q *queue) swap() []models.Event {
	batch := q.events
	q.events = nil
	return batch
}

// prepend puts a failed batch back in front of events queued since its swap.
func (q *queue) prepend(batch []models.Event) {
	if len(batch) == 0 {
		return
	}
	merged := make([]models.Event, 0, len(batch)+len(q.events))
	merged = append(merged, batch...)
	merged = append(merged, q.events...)
	q.events = merged
}

func (q *queue) snapshot() []models.Event {
	out := make([]models.Event, len(q.events))
	copy(out, q.events)
	return out
}
