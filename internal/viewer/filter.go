package viewer

import (
	"slices"
	"strings"

	"github.com/agbruneau/learning-events/pkg/models"
)

// Filter sélectionne les événements affichés.
// Les dimensions se combinent en ET, les valeurs d'une même dimension en OU.
// Une dimension vide est inactive.
type Filter struct {
	Search     string            // Recherche libre, insensible à la casse.
	Verbs      []models.Verb     // Liste d'autorisation des verbes.
	Components []string          // Liste d'autorisation des composants.
	Sessions   []string          // Liste d'autorisation des sessions.
	Severities []models.Severity // Liste d'autorisation des sévérités.
	Categories []models.Category // Liste d'autorisation des catégories.
}

// IsZero indique si aucun critère n'est actif.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" &&
		len(f.Verbs) == 0 &&
		len(f.Components) == 0 &&
		len(f.Sessions) == 0 &&
		len(f.Severities) == 0 &&
		len(f.Categories) == 0
}

// Matches indique si l'événement satisfait toutes les dimensions actives.
func (f Filter) Matches(e *models.Event) bool {
	if !allowed(f.Verbs, e.Verb) ||
		!allowed(f.Components, e.Component) ||
		!allowed(f.Sessions, e.SessionID) ||
		!allowed(f.Severities, e.Severity) ||
		!allowed(f.Categories, e.Category) {
		return false
	}
	return matchesSearch(e, f.Search)
}

// Apply retourne les événements qui passent le filtre, dans leur ordre d'origine.
func Apply(events []models.Event, f Filter) []models.Event {
	out := make([]models.Event, 0, len(events))
	for i := range events {
		if f.Matches(&events[i]) {
			out = append(out, events[i])
		}
	}
	return out
}

// ToggleSeverity ajoute ou retire une sévérité de la liste d'autorisation.
func (f *Filter) ToggleSeverity(s models.Severity) {
	f.Severities = toggle(f.Severities, s)
}

// ToggleCategory ajoute ou retire une catégorie de la liste d'autorisation.
func (f *Filter) ToggleCategory(c models.Category) {
	f.Categories = toggle(f.Categories, c)
}

// FacetDimension désigne une liste d'autorisation alimentée par les facettes.
type FacetDimension int

const (
	FacetVerb FacetDimension = iota
	FacetComponent
	FacetCategory
	FacetSession
)

// CycleFacet fait défiler une dimension parmi les valeurs des facettes:
// aucune restriction, puis chaque valeur à tour de rôle, puis de nouveau aucune.
func (f *Filter) CycleFacet(d FacetDimension, facets Facets) {
	switch d {
	case FacetVerb:
		f.Verbs = cycle(f.Verbs, facets.Verbs)
	case FacetComponent:
		f.Components = cycle(f.Components, facets.Components)
	case FacetCategory:
		f.Categories = cycle(f.Categories, facets.Categories)
	case FacetSession:
		ids := make([]string, len(facets.Sessions))
		for i, s := range facets.Sessions {
			ids[i] = s.ID
		}
		f.Sessions = cycle(f.Sessions, ids)
	}
}

// cycle retourne la valeur qui suit la sélection courante dans values.
// Une sélection multiple ou inconnue repart de la première valeur.
func cycle[T comparable](selected, values []T) []T {
	if len(values) == 0 {
		return nil
	}
	if len(selected) != 1 {
		return []T{values[0]}
	}
	i := slices.Index(values, selected[0])
	switch {
	case i < 0:
		return []T{values[0]}
	case i == len(values)-1:
		return nil
	}
	return []T{values[i+1]}
}

func allowed[T comparable](list []T, v T) bool {
	return len(list) == 0 || slices.Contains(list, v)
}

func toggle[T comparable](list []T, v T) []T {
	if i := slices.Index(list, v); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return append(slices.Clone(list), v)
}

func matchesSearch(e *models.Event, search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	for _, field := range []string{
		string(e.Verb),
		e.ObjectName,
		e.Component,
		e.CaseName,
		e.Username,
		e.Severity.String(),
		string(e.Category),
	} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
