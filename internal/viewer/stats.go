package viewer

import (
	"slices"

	"github.com/agbruneau/learning-events/pkg/models"
)

// SeverityCount est le nombre d'événements d'une sévérité.
type SeverityCount struct {
	Severity models.Severity
	Count    int
}

// CategoryCount est le nombre d'événements d'une catégorie.
type CategoryCount struct {
	Category models.Category
	Count    int
}

// VerbCount est le nombre d'événements d'un verbe.
type VerbCount struct {
	Verb  models.Verb
	Count int
}

// ComponentCount est le nombre d'événements d'un composant.
type ComponentCount struct {
	Component string
	Count     int
}

// Stats agrège un ensemble d'événements.
type Stats struct {
	Total           int
	BySeverity      []SeverityCount  // Toutes les sévérités, zéros compris, DEBUG..CRITICAL.
	ByCategory      []CategoryCount  // Catégories présentes, ordre du modèle.
	TopVerbs        []VerbCount      // Par nombre décroissant, égalités par première apparition.
	ByComponent     []ComponentCount // Par nombre décroissant, égalités par première apparition.
	DurationSamples int              // Événements portant une durée.
	AvgDurationMs   float64          // Moyenne sur DurationSamples uniquement.
}

// SeverityCount retourne le compte d'une sévérité.
func (s Stats) SeverityCount(sev models.Severity) int {
	for _, c := range s.BySeverity {
		if c.Severity == sev {
			return c.Count
		}
	}
	return 0
}

// ComputeStats calcule les statistiques. topN <= 0 garde tous les verbes.
func ComputeStats(events []models.Event, topN int) Stats {
	st := Stats{Total: len(events)}

	severities := map[models.Severity]int{}
	categories := map[models.Category]int{}
	verbs := newOrderedCounter[models.Verb]()
	components := newOrderedCounter[string]()
	var durationSum int64

	for i := range events {
		e := &events[i]
		severities[e.Severity]++
		categories[e.Category]++
		verbs.add(e.Verb)
		if e.Component != "" {
			components.add(e.Component)
		}
		if e.DurationMs != nil {
			durationSum += *e.DurationMs
			st.DurationSamples++
		}
	}

	for _, sev := range models.Severities() {
		st.BySeverity = append(st.BySeverity, SeverityCount{Severity: sev, Count: severities[sev]})
	}
	for _, c := range models.Categories() {
		if n := categories[c]; n > 0 {
			st.ByCategory = append(st.ByCategory, CategoryCount{Category: c, Count: n})
		}
	}
	for _, kv := range verbs.top(topN) {
		st.TopVerbs = append(st.TopVerbs, VerbCount{Verb: kv.key, Count: kv.count})
	}
	for _, kv := range components.top(0) {
		st.ByComponent = append(st.ByComponent, ComponentCount{Component: kv.key, Count: kv.count})
	}
	if st.DurationSamples > 0 {
		st.AvgDurationMs = float64(durationSum) / float64(st.DurationSamples)
	}
	return st
}

type keyCount[K comparable] struct {
	key   K
	count int
}

// orderedCounter compte en retenant l'ordre de première apparition.
type orderedCounter[K comparable] struct {
	index map[K]int
	items []keyCount[K]
}

func newOrderedCounter[K comparable]() *orderedCounter[K] {
	return &orderedCounter[K]{index: map[K]int{}}
}

func (c *orderedCounter[K]) add(k K) {
	i, ok := c.index[k]
	if !ok {
		i = len(c.items)
		c.index[k] = i
		c.items = append(c.items, keyCount[K]{key: k})
	}
	c.items[i].count++
}

// top trie par nombre décroissant; le tri stable préserve la première apparition.
func (c *orderedCounter[K]) top(n int) []keyCount[K] {
	out := slices.Clone(c.items)
	slices.SortStableFunc(out, func(a, b keyCount[K]) int { return b.count - a.count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
