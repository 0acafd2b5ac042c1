// Package taxonomy is the static registry that decides how important each
// learner action is. Every verb maps to a default severity and category; the
// event logger consults it before applying any explicit override.
package taxonomy

import "github.com/agbruneau/learning-events/pkg/models"

// Entry is the default classification of one verb.
type Entry struct {
	Verb     models.Verb
	Severity models.Severity
	Category models.Category
	Desc     string
}

// Group is a logical set of related verbs.
type Group struct {
	Name    string
	Entries []Entry
}

// Default is returned for verbs that are not in the registry.
var Default = Entry{
	Severity: models.SeverityInfo,
	Category: models.CategoryNavigation,
}

var (
	groups = defaultGroups()
	index  = buildIndex(groups)
	order  = buildOrder(groups)
)

func buildIndex(gs []Group) map[models.Verb]Entry {
	m := make(map[models.Verb]Entry)
	for _, g := range gs {
		for _, e := range g.Entries {
			m[e.Verb] = e
		}
	}
	return m
}

func buildOrder(gs []Group) []models.Verb {
	var verbs []models.Verb
	for _, g := range gs {
		for _, e := range g.Entries {
			verbs = append(verbs, e.Verb)
		}
	}
	return verbs
}

// Lookup returns the classification for verb. Unknown verbs resolve to
// Default (INFO / NAVIGATION) with known set to false.
func Lookup(verb models.Verb) (entry Entry, known bool) {
	if e, ok := index[verb]; ok {
		return e, true
	}
	e := Default
	e.Verb = verb
	return e, false
}

// Resolve returns the default severity and category for verb.
func Resolve(verb models.Verb) (models.Severity, models.Category) {
	e, _ := Lookup(verb)
	return e.Severity, e.Category
}

// Verbs lists every registered verb in declaration order.
func Verbs() []models.Verb {
	out := make([]models.Verb, len(order))
	copy(out, order)
	return out
}

// Groups returns a copy of the registry grouped by domain.
func Groups() []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		entries := make([]Entry, len(g.Entries))
		copy(entries, g.Entries)
		out[i] = Group{Name: g.Name, Entries: entries}
	}
	return out
}
