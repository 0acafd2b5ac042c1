package viewer

import (
	"sync"
	"time"

	"github.com/agbruneau/learning-events/pkg/models"
)

// Model contient l'état du lecteur: événements chargés, filtre, dépliage,
// dernière erreur. Il est mis à jour par le Refresher et lu par l'UI.
type Model struct {
	mu          sync.RWMutex
	sessionID   string
	topN        int
	events      []models.Event
	filter      Filter
	lastErr     error
	lastRefresh time.Time
	now         func() time.Time

	Expansion *Expansion
}

// View est un instantané cohérent prêt à afficher.
type View struct {
	SessionID   string
	Loaded      int
	Events      []models.Event // Événements filtrés.
	Stats       Stats          // Sur les événements filtrés.
	Facets      Facets         // Sur les événements chargés.
	Filter      Filter
	Err         error
	LastRefresh time.Time
}

// NewModel crée un modèle pour une session (vide pour toutes les sessions).
func NewModel(sessionID string, topN int) *Model {
	return &Model{
		sessionID: sessionID,
		topN:      topN,
		now:       time.Now,
		Expansion: NewExpansion(),
	}
}

// SessionID retourne la session affichée.
func (m *Model) SessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// Update applique un résultat de chargement. En cas d'erreur les événements
// précédents restent affichés et l'erreur devient visible.
func (m *Model) Update(events []models.Event, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.lastErr = err
		return
	}
	m.events = events
	m.lastErr = nil
	m.lastRefresh = m.now()
}

// SetFilter remplace le filtre.
func (m *Model) SetFilter(f Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = f
}

// UpdateFilter modifie le filtre en place.
func (m *Model) UpdateFilter(fn func(*Filter)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.filter)
}

// Err retourne la dernière erreur de chargement.
func (m *Model) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// View calcule l'instantané affiché.
func (m *Model) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	visible := Apply(m.events, m.filter)
	return View{
		SessionID:   m.sessionID,
		Loaded:      len(m.events),
		Events:      visible,
		Stats:       ComputeStats(visible, m.topN),
		Facets:      DeriveFacets(m.events),
		Filter:      m.filter,
		Err:         m.lastErr,
		LastRefresh: m.lastRefresh,
	}
}
