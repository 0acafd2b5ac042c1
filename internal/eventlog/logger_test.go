package eventlog

import (
	"testing"
	"time"

	"github.com/agbruneau/learning-events/internal/taxonomy"
	"github.com/agbruneau/learning-events/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(opts ...Option) (*Logger, *recordingSink) {
	sink := &recordingSink{}
	opts = append([]Option{WithIDFunc(seqIDs())}, opts...)
	return New(sink, opts...), sink
}

func TestLogResolvesTaxonomyDefaults(t *testing.T) {
	l, _ := newTestLogger()

	e, ok := l.Log(taxonomy.OrderedLab, taxonomy.ObjectLabTest, Options{ObjectName: "CBC"})
	require.True(t, ok)
	assert.Equal(t, models.SeverityAction, e.Severity)
	assert.Equal(t, models.CategoryClinical, e.Category)
	assert.Equal(t, "CBC", e.ObjectName)
	assert.Equal(t, "evt-1", e.ID)
	assert.NoError(t, e.Validate())
}

func TestLogUnknownVerbFallsBack(t *testing.T) {
	l, _ := newTestLogger()

	e, ok := l.Log("DANCED", taxonomy.ObjectComponent, Options{})
	require.True(t, ok)
	assert.Equal(t, models.SeverityInfo, e.Severity)
	assert.Equal(t, models.CategoryNavigation, e.Category)
}

func TestLogExplicitOverridesWin(t *testing.T) {
	l, _ := newTestLogger()

	e, _ := l.Log(taxonomy.Scrolled, taxonomy.ObjectPanel, Options{
		Severity: models.SeverityImportant,
		Category: models.CategoryAssessment,
	})
	assert.Equal(t, models.SeverityImportant, e.Severity)
	assert.Equal(t, models.CategoryAssessment, e.Category)

	// Out-of-range values are ignored rather than rejected
	e, _ = l.Log(taxonomy.Scrolled, taxonomy.ObjectPanel, Options{
		Severity: models.Severity(42),
		Category: "BOGUS",
	})
	assert.Equal(t, models.SeverityDebug, e.Severity)
	assert.Equal(t, models.CategoryNavigation, e.Category)
}

func TestMinimumSeverityDropsWithoutCounting(t *testing.T) {
	l, _ := newTestLogger()
	l.SetMinimumSeverity(models.SeverityCritical)

	_, ok := l.Log(taxonomy.Viewed, taxonomy.ObjectPanel, Options{})
	assert.False(t, ok)
	assert.Equal(t, 0, l.QueueLen())
	assert.Empty(t, l.Counts())

	// Invalid levels leave the filter alone
	l.SetMinimumSeverity(models.SeverityUnspecified)
	assert.Equal(t, models.SeverityCritical, l.MinimumSeverity())
}

func TestMinimumSeverityBoundaryIsInclusive(t *testing.T) {
	l, _ := newTestLogger(WithMinimumSeverity(models.SeverityAction))

	_, ok := l.Log(taxonomy.OrderedLab, taxonomy.ObjectLabTest, Options{})
	assert.True(t, ok, "ACTION passes an ACTION filter")
	_, ok = l.Log(taxonomy.Viewed, taxonomy.ObjectPanel, Options{})
	assert.False(t, ok, "INFO is below ACTION")
}

func TestDisabledLoggerIsNoop(t *testing.T) {
	l, _ := newTestLogger(WithEnabled(false))
	l.StartTiming("panel:labs")

	_, ok := l.Log(taxonomy.Closed, taxonomy.ObjectPanel, Options{TimingMark: "panel:labs"})
	assert.False(t, ok)
	assert.Equal(t, 0, l.QueueLen())
	assert.Empty(t, l.Counts())

	// The mark survives because Log returned before resolving it
	_, found := l.EndTiming("panel:labs")
	assert.True(t, found)

	l.SetEnabled(true)
	assert.True(t, l.Enabled())
	_, ok = l.Log(taxonomy.Closed, taxonomy.ObjectPanel, Options{})
	assert.True(t, ok)
}

func TestTimingMarks(t *testing.T) {
	clock := newFakeClock()
	l, _ := newTestLogger(WithClock(clock.Now))

	l.StartTiming("x")
	clock.Advance(150 * time.Millisecond)

	ms, ok := l.EndTiming("x")
	assert.True(t, ok)
	assert.Equal(t, int64(150), ms)

	_, ok = l.EndTiming("x")
	assert.False(t, ok, "a mark is consumed once")

	_, ok = l.EndTiming("never-started")
	assert.False(t, ok)
}

func TestTimingImmediateEndIsNonNegative(t *testing.T) {
	l, _ := newTestLogger()
	l.StartTiming("x")
	ms, ok := l.EndTiming("x")
	assert.True(t, ok)
	assert.GreaterOrEqual(t, ms, int64(0))
}

func TestTimingMarkLimitEvictsOldest(t *testing.T) {
	clock := newFakeClock()
	l, _ := newTestLogger(WithClock(clock.Now))

	for i := 0; i < 300; i++ {
		l.StartTiming(time.Duration(i).String())
		clock.Advance(time.Millisecond)
	}
	_, ok := l.EndTiming(time.Duration(0).String())
	assert.False(t, ok, "oldest mark evicted")
	_, ok = l.EndTiming(time.Duration(299).String())
	assert.True(t, ok, "newest mark kept")
}

func TestLogDurationResolution(t *testing.T) {
	clock := newFakeClock()
	l, _ := newTestLogger(WithClock(clock.Now))

	// Mark wins over the explicit fallback
	l.StartTiming("drawer:orders")
	clock.Advance(2 * time.Second)
	e, _ := l.Log(taxonomy.Closed, taxonomy.ObjectDrawer, Options{TimingMark: "drawer:orders", DurationMs: models.Int64(5)})
	require.NotNil(t, e.DurationMs)
	assert.Equal(t, int64(2000), *e.DurationMs)

	// Missing mark falls back to DurationMs
	e, _ = l.Log(taxonomy.Closed, taxonomy.ObjectDrawer, Options{TimingMark: "drawer:orders", DurationMs: models.Int64(5)})
	require.NotNil(t, e.DurationMs)
	assert.Equal(t, int64(5), *e.DurationMs)

	// Negative durations degrade to nil
	e, _ = l.Log(taxonomy.Closed, taxonomy.ObjectDrawer, Options{DurationMs: models.Int64(-1)})
	assert.Nil(t, e.DurationMs)

	// Zero is a real duration
	e, _ = l.Log(taxonomy.Closed, taxonomy.ObjectDrawer, Options{DurationMs: models.Int64(0)})
	require.NotNil(t, e.DurationMs)
	assert.Zero(t, *e.DurationMs)
}

func TestLogCopiesContext(t *testing.T) {
	l, _ := newTestLogger()
	ctx := map[string]any{"dose": "1g"}

	e, _ := l.Log(taxonomy.AdministeredMedication, taxonomy.ObjectMedication, Options{Context: ctx})
	ctx["dose"] = "2g"

	assert.Equal(t, "1g", e.Context["dose"])
	assert.Equal(t, "1g", l.Pending()[0].Context["dose"])
}

func TestLogDropsUnencodableContext(t *testing.T) {
	l, _ := newTestLogger()

	e, ok := l.Log(taxonomy.Clicked, taxonomy.ObjectComponent, Options{Context: map[string]any{"ch": make(chan int)}})
	assert.True(t, ok)
	assert.Nil(t, e.Context)
}

func TestSetContextPartialUpdate(t *testing.T) {
	l, _ := newTestLogger()

	l.SetContext(Context{SessionID: "s1", UserID: "u1", CaseID: "c1"})
	l.SetContext(Context{CaseID: "c2"})
	assert.Equal(t, Context{SessionID: "s1", UserID: "u1", CaseID: "c2"}, l.CurrentContext())

	e, _ := l.Log(taxonomy.Viewed, taxonomy.ObjectPanel, Options{})
	assert.Equal(t, "s1", e.SessionID)
	assert.Equal(t, "u1", e.UserID)
	assert.Equal(t, "c2", e.CaseID)

	l.ClearContext()
	assert.Equal(t, Context{UserID: "u1"}, l.CurrentContext())
}

func TestCountsPerVerbAndObject(t *testing.T) {
	l, _ := newTestLogger(WithBatchSize(100))

	l.LabOrdered("1", "CBC")
	l.LabOrdered("2", "BMP")
	l.ImagingOrdered("3", "CXR")

	counts := l.Counts()
	assert.Equal(t, 2, counts["ORDERED_LAB:LAB_TEST"])
	assert.Equal(t, 1, counts["ORDERED_IMAGING:IMAGING"])

	counts["ORDERED_LAB:LAB_TEST"] = 99
	assert.Equal(t, 2, l.Counts()["ORDERED_LAB:LAB_TEST"], "Counts returns a copy")
}

func TestTimestampsAreUTC(t *testing.T) {
	local := time.FixedZone("EST", -5*3600)
	l, _ := newTestLogger(WithClock(func() time.Time { return time.Date(2026, 1, 1, 8, 0, 0, 0, local) }))

	e, _ := l.Log(taxonomy.Viewed, taxonomy.ObjectPanel, Options{})
	assert.Equal(t, time.UTC, e.Timestamp.Location())
	assert.Equal(t, 13, e.Timestamp.Hour())
}

func TestLabelsStampedOnEveryEvent(t *testing.T) {
	l, _ := newTestLogger()

	l.SessionStarted(Context{SessionID: "s1", UserID: "alice"})
	l.CaseLoaded("c1", "Chest Pain 54M")
	lab, _ := l.LabOrdered("lab-1", "Troponin")
	assert.Equal(t, "alice", lab.Username, "user id stands in for a missing username")
	assert.Equal(t, "Chest Pain 54M", lab.CaseName)

	l.SetContext(Context{Username: "Dr Chen"})
	msg, _ := l.MessageSent("hello")
	assert.Equal(t, "Dr Chen", msg.Username)
	assert.Equal(t, "alice", msg.UserID)
	assert.Equal(t, "Chest Pain 54M", msg.CaseName)

	l.SessionEnded("done")
	assert.Empty(t, l.CurrentContext().CaseName)
	l.SessionStarted(Context{SessionID: "s2"})
	next, _ := l.PanelOpened("Vitals")
	assert.Empty(t, next.CaseName)
	assert.Equal(t, "Dr Chen", next.Username)
}

func TestReturnedEventDoesNotShareContextWithQueue(t *testing.T) {
	l, _ := newTestLogger()

	e, ok := l.Log(taxonomy.Clicked, taxonomy.ObjectComponent, Options{Context: map[string]any{"k": 1}})
	require.True(t, ok)
	e.Context["k"] = 2

	pending := l.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Context["k"])
}
