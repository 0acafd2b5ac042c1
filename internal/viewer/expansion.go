package viewer

import "sync"

// Expansion retient quels événements sont dépliés, par identifiant.
type Expansion struct {
	mu   sync.RWMutex
	open map[string]struct{}
}

// NewExpansion crée un ensemble vide.
func NewExpansion() *Expansion {
	return &Expansion{open: make(map[string]struct{})}
}

// Toggle inverse l'état d'un événement et retourne le nouvel état.
func (x *Expansion) Toggle(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.open[id]; ok {
		delete(x.open, id)
		return false
	}
	x.open[id] = struct{}{}
	return true
}

// IsExpanded indique si l'événement est déplié.
func (x *Expansion) IsExpanded(id string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.open[id]
	return ok
}

// Len retourne le nombre d'événements dépliés.
func (x *Expansion) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.open)
}

// CollapseAll replie tout.
func (x *Expansion) CollapseAll() {
	x.mu.Lock()
	defer x.mu.Unlock()
	clear(x.open)
}
