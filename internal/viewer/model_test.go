package viewer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agbruneau/learning-events/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestModelUpdate(t *testing.T) {
	m := NewModel("42", 5)
	m.now = func() time.Time { return t0 }

	m.Update(mixedEvents(), nil)
	v := m.View()
	assert.Equal(t, "42", v.SessionID)
	assert.Equal(t, 6, v.Loaded)
	assert.Len(t, v.Events, 6)
	assert.Equal(t, t0, v.LastRefresh)
	assert.NoError(t, v.Err)

	// Un échec garde les événements précédents et expose l'erreur
	m.Update(nil, ErrUnauthorized)
	v = m.View()
	assert.Equal(t, 6, v.Loaded)
	assert.ErrorIs(t, v.Err, ErrUnauthorized)
	assert.ErrorIs(t, m.Err(), ErrUnauthorized)

	m.Update([]models.Event{}, nil)
	assert.NoError(t, m.Err())
	assert.Zero(t, m.View().Loaded)
}

func TestModelFilterAppliesToStatsNotFacets(t *testing.T) {
	m := NewModel("", 5)
	m.Update(mixedEvents(), nil)

	m.SetFilter(Filter{Severities: []models.Severity{models.SeverityCritical}})
	m.UpdateFilter(func(f *Filter) { f.ToggleCategory(models.CategoryError) })

	v := m.View()
	assert.Equal(t, []string{"1", "2"}, ids(v.Events))
	assert.Equal(t, 2, v.Stats.Total)
	assert.Equal(t, 6, v.Loaded)
	assert.Len(t, v.Facets.Sessions, 2)
	assert.Equal(t, []models.Category{models.CategoryError}, v.Filter.Categories)
}

func TestModelConcurrentAccess(t *testing.T) {
	m := NewModel("42", 5)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Update(mixedEvents(), nil)
		}()
		go func() {
			defer wg.Done()
			_ = m.View()
		}()
	}
	wg.Wait()
	assert.Equal(t, 6, m.View().Loaded)
}

func TestExpansionIndependent(t *testing.T) {
	x := NewExpansion()

	assert.True(t, x.Toggle("a"))
	assert.True(t, x.Toggle("b"))
	assert.False(t, x.Toggle("a"))

	assert.False(t, x.IsExpanded("a"))
	assert.True(t, x.IsExpanded("b"))
	assert.Equal(t, 1, x.Len())

	x.CollapseAll()
	assert.Zero(t, x.Len())
	assert.False(t, x.IsExpanded("b"))
}

func TestModelErrorWithoutData(t *testing.T) {
	m := NewModel("42", 5)
	boom := errors.New("boom")
	m.Update(nil, boom)

	v := m.View()
	assert.Zero(t, v.Loaded)
	assert.NotNil(t, v.Events)
	assert.True(t, v.LastRefresh.IsZero())
	assert.ErrorIs(t, v.Err, boom)
}

func TestModelCycleFacetFromView(t *testing.T) {
	m := NewModel("", 5)
	m.Update(mixedEvents(), nil)

	facets := m.View().Facets
	m.UpdateFilter(func(f *Filter) { f.CycleFacet(FacetVerb, facets) })
	m.UpdateFilter(func(f *Filter) { f.CycleFacet(FacetCategory, facets) })

	v := m.View()
	assert.Equal(t, facets.Verbs[:1], v.Filter.Verbs)
	assert.Equal(t, facets.Categories[:1], v.Filter.Categories)
	for _, e := range v.Events {
		assert.Equal(t, facets.Verbs[0], e.Verb)
		assert.Equal(t, facets.Categories[0], e.Category)
	}
	assert.Equal(t, facets, v.Facets, "facets ignore the filter")
}
