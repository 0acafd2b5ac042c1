package viewer

import (
	"slices"
	"time"

	"github.com/agbruneau/learning-events/pkg/models"
)

// SessionFacet décrit une session présente dans les événements chargés.
type SessionFacet struct {
	ID       string
	Username string
	CaseName string
	Events   int
	First    time.Time
	Last     time.Time
}

// Label retourne un libellé lisible pour la session.
func (s SessionFacet) Label() string {
	label := s.ID
	if s.Username != "" {
		label += " · " + s.Username
	}
	if s.CaseName != "" {
		label += " · " + s.CaseName
	}
	return label
}

// Facets regroupe les valeurs distinctes disponibles pour le filtrage.
type Facets struct {
	Verbs      []models.Verb
	Components []string
	Categories []models.Category
	Severities []models.Severity
	Sessions   []SessionFacet
}

// DeriveFacets calcule les facettes à partir des événements chargés.
// Verbes et composants sont triés, sévérités et catégories suivent l'ordre du
// modèle, les sessions l'ordre de première apparition.
func DeriveFacets(events []models.Event) Facets {
	var f Facets
	verbs := map[models.Verb]bool{}
	components := map[string]bool{}
	categories := map[models.Category]bool{}
	severities := map[models.Severity]bool{}
	sessionIdx := map[string]int{}

	for i := range events {
		e := &events[i]
		if !verbs[e.Verb] && e.Verb != "" {
			verbs[e.Verb] = true
			f.Verbs = append(f.Verbs, e.Verb)
		}
		if !components[e.Component] && e.Component != "" {
			components[e.Component] = true
			f.Components = append(f.Components, e.Component)
		}
		categories[e.Category] = true
		severities[e.Severity] = true

		if e.SessionID == "" {
			continue
		}
		idx, seen := sessionIdx[e.SessionID]
		if !seen {
			idx = len(f.Sessions)
			sessionIdx[e.SessionID] = idx
			f.Sessions = append(f.Sessions, SessionFacet{ID: e.SessionID, First: e.Timestamp, Last: e.Timestamp})
		}
		s := &f.Sessions[idx]
		s.Events++
		if s.Username == "" {
			s.Username = e.Username
		}
		if s.CaseName == "" {
			s.CaseName = e.CaseName
		}
		if e.Timestamp.Before(s.First) {
			s.First = e.Timestamp
		}
		if e.Timestamp.After(s.Last) {
			s.Last = e.Timestamp
		}
	}

	slices.Sort(f.Verbs)
	slices.Sort(f.Components)
	for _, c := range models.Categories() {
		if categories[c] {
			f.Categories = append(f.Categories, c)
		}
	}
	for _, s := range models.Severities() {
		if severities[s] {
			f.Severities = append(f.Severities, s)
		}
	}
	return f
}
