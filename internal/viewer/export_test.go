package viewer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agbruneau/learning-events/internal/taxonomy"
	"github.com/agbruneau/learning-events/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportEvents() []models.Event {
	return []models.Event{
		ev("1", taxonomy.OrderedLab, models.SeverityAction, models.CategoryClinical, func(e *models.Event) {
			e.UserID = "u-1"
			e.ObjectName = "Troponin, high-sensitivity"
			e.Component = "InvestigationPanel"
			e.DurationMs = models.Int64(1250)
		}),
		ev("2", taxonomy.SentMessage, models.SeverityAction, models.CategoryCommunication, func(e *models.Event) {
			e.UserID = "u-1"
			e.Timestamp = t0.Add(90 * time.Second)
			e.MessageContent = "He said \"it hurts\"\nwhen breathing"
		}),
		ev("3", taxonomy.Clicked, models.SeverityInfo, models.CategoryNavigation, func(e *models.Event) {
			e.Result = "ok"
		}),
	}
}

func TestExportJSON(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	doc := NewExportDocument(exportEvents(), "", now)

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, doc))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "2026-03-14T10:00:00Z", decoded["exportedAt"])
	assert.Equal(t, "42", decoded["sessionId"])
	assert.Equal(t, "u-1", decoded["userId"])
	assert.EqualValues(t, 3, decoded["totalEvents"])
	assert.Len(t, decoded["events"], 3)
}

func TestNewExportDocument(t *testing.T) {
	events := exportEvents()
	events[2].SessionID = "99"
	events[2].UserID = "u-2"

	doc := NewExportDocument(events, "", t0)
	assert.Empty(t, doc.SessionID, "several sessions")
	assert.Empty(t, doc.UserID, "several users")

	doc = NewExportDocument(events, "selected", t0)
	assert.Equal(t, "selected", doc.SessionID)

	empty := NewExportDocument(nil, "", t0)
	assert.NotNil(t, empty.Events)
	assert.Zero(t, empty.TotalEvents)
}

func TestExportCSVRoundTrip(t *testing.T) {
	events := exportEvents()

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, events))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(events)+1)

	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{
		"2026-03-14T09:00:00Z", "ORDERED_LAB", "COMPONENT", "Troponin, high-sensitivity",
		"InvestigationPanel", "", "1250", "",
	}, records[1])
	assert.Equal(t, "He said \"it hurts\"\nwhen breathing", records[2][7])
	assert.Equal(t, "", records[2][6], "no duration")
	assert.Equal(t, "ok", records[3][5])
}

func TestExportCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, nil))
	assert.Equal(t, strings.Join(CSVHeader, ",")+"\n", buf.String())
}

func TestClipboardSummary(t *testing.T) {
	events := exportEvents()
	long := strings.Repeat("é", 60)
	events[2].MessageContent = long

	got := ClipboardSummary(events)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.Len(t, lines, 3)

	stamp := func(ts time.Time) string { return ts.Local().Format("15:04:05") }
	assert.Equal(t, "["+stamp(t0)+"] ORDERED_LAB - Troponin, high-sensitivity (InvestigationPanel)", lines[0])
	assert.Equal(t, "["+stamp(t0.Add(90*time.Second))+`] SENT_MESSAGE: "He said \"it hurts\" when breathing"`, lines[1])
	assert.Equal(t, "["+stamp(t0)+`] CLICKED: "`+strings.Repeat("é", 50)+`..."`, lines[2])
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("  short ", 50))
	assert.Equal(t, "abc...", preview("abcdef", 3))
	assert.Equal(t, "日本語...", preview("日本語テキスト", 3))
	assert.Equal(t, "a b", preview("a\n\tb", 50))
}

func TestSaveExports(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	out, err := SaveExports(dir, "learning-events", exportEvents(), "a/b", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "learning-events-a_b-20260314-103000.json"), out.JSON)

	data, err := os.ReadFile(out.CSV)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)

	text, err := os.ReadFile(out.Text)
	require.NoError(t, err)
	assert.Equal(t, ClipboardSummary(exportEvents()), string(text))

	var doc ExportDocument
	data, err = os.ReadFile(out.JSON)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "a/b", doc.SessionID)
	assert.Equal(t, 3, doc.TotalEvents)
}

func TestSaveExportsAllSessions(t *testing.T) {
	out, err := SaveExports(t.TempDir(), "x", nil, "", t0)
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(out.CSV), "x-all-")

	_, err = SaveExports(filepath.Join(t.TempDir(), "missing"), "x", nil, "", t0)
	assert.ErrorContains(t, err, "export")
}
