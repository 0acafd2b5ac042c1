package viewer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agbruneau/learning-events/internal/config"
	"github.com/agbruneau/learning-events/pkg/models"
	"github.com/dustin/go-humanize"
	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

// Alias locaux pour la lisibilité
const (
	MaxRowLength   = config.ViewerMaxRowLength
	TruncateSuffix = config.ViewerTruncateSuffix
)

// Dashboard regroupe les widgets du lecteur.
type Dashboard struct {
	Stats    *widgets.Table
	Severity *widgets.BarChart
	Category *widgets.BarChart
	Verbs    *widgets.Table
	Events   *widgets.List
	Status   *widgets.Paragraph

	Notice    string // message ponctuel affiché en tête de la barre d'état
	rowEvents []int  // ligne de la liste -> index de l'événement
}

// NewDashboard crée tous les widgets.
func NewDashboard() *Dashboard {
	return &Dashboard{
		Stats:    CreateStatsTable(),
		Severity: CreateSeverityChart(),
		Category: CreateCategoryChart(),
		Verbs:    CreateVerbTable(),
		Events:   CreateEventList(),
		Status:   CreateStatusBar(),
	}
}

// Drawables retourne les widgets dans l'ordre de rendu.
func (d *Dashboard) Drawables() []ui.Drawable {
	return []ui.Drawable{d.Stats, d.Severity, d.Category, d.Verbs, d.Events, d.Status}
}

// Resize place les widgets pour un terminal width x height.
// Haut: statistiques, sévérités, catégories (hauteur 10).
// Milieu: verbes et événements. Bas: barre d'état (hauteur 3).
func (d *Dashboard) Resize(width, height int) {
	third := width / 3
	d.Stats.SetRect(0, 0, third, 10)
	d.Severity.SetRect(third, 0, 2*third, 10)
	d.Category.SetRect(2*third, 0, width, 10)
	d.Verbs.SetRect(0, 10, third, height-3)
	d.Events.SetRect(third, 10, width, height-3)
	d.Status.SetRect(0, height-3, width, height)
}

// Update rafraîchit tous les widgets à partir d'un instantané.
func (d *Dashboard) Update(v View, x *Expansion, autoRefresh bool, prompt string) {
	UpdateStatsTable(d.Stats, v)
	UpdateSeverityChart(d.Severity, v.Stats)
	UpdateCategoryChart(d.Category, v.Stats)
	UpdateVerbTable(d.Verbs, v.Stats)
	d.rowEvents = UpdateEventList(d.Events, v.Events, x)
	UpdateStatusBar(d.Status, v, autoRefresh, prompt)
	if d.Notice != "" {
		d.Status.Text = d.Notice + " | " + d.Status.Text
	}
}

// SelectedEvent retourne l'index de l'événement sous la sélection.
func (d *Dashboard) SelectedEvent() (int, bool) {
	row := d.Events.SelectedRow
	if row < 0 || row >= len(d.rowEvents) || d.rowEvents[row] < 0 {
		return 0, false
	}
	return d.rowEvents[row], true
}

// CreateStatsTable initialise le tableau des statistiques.
func CreateStatsTable() *widgets.Table {
	table := widgets.NewTable()
	table.Title = "Statistiques"
	table.Rows = [][]string{
		{"Métrique", "Valeur"},
		{"Événements chargés", "0"},
		{"Événements filtrés", "0"},
		{"Sessions", "0"},
		{"Durée moyenne", "-"},
		{"Dernière màj", "-"},
	}
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.RowStyles[0] = ui.NewStyle(ui.ColorYellow, ui.ColorClear, ui.ModifierBold)
	table.SetRect(0, 0, 50, 10)
	return table
}

// UpdateStatsTable met à jour le tableau des statistiques.
func UpdateStatsTable(table *widgets.Table, v View) {
	lastRefresh := "-"
	if !v.LastRefresh.IsZero() {
		lastRefresh = v.LastRefresh.Format("15:04:05")
	}
	table.Rows = [][]string{
		{"Métrique", "Valeur"},
		{"Événements chargés", humanize.Comma(int64(v.Loaded))},
		{"Événements filtrés", humanize.Comma(int64(v.Stats.Total))},
		{"Sessions", humanize.Comma(int64(len(v.Facets.Sessions)))},
		{"Durée moyenne", formatAvgDuration(v.Stats)},
		{"Dernière màj", lastRefresh},
	}
}

// CreateSeverityChart initialise l'histogramme des sévérités.
func CreateSeverityChart() *widgets.BarChart {
	chart := widgets.NewBarChart()
	chart.Title = "Sévérités"
	chart.BarWidth = 7
	chart.BarGap = 1
	chart.Labels = severityLabels()
	chart.Data = make([]float64, len(chart.Labels))
	chart.BarColors = []ui.Color{ui.ColorWhite, ui.ColorCyan, ui.ColorGreen, ui.ColorYellow, ui.ColorRed}
	chart.NumFormatter = func(v float64) string { return fmt.Sprintf("%.0f", v) }
	return chart
}

// UpdateSeverityChart met à jour l'histogramme des sévérités (zéros compris).
func UpdateSeverityChart(chart *widgets.BarChart, st Stats) {
	data := make([]float64, len(st.BySeverity))
	for i, c := range st.BySeverity {
		data[i] = float64(c.Count)
	}
	chart.Data = data
	chart.MaxVal = scaleMax(data)
}

// CreateCategoryChart initialise l'histogramme des catégories.
func CreateCategoryChart() *widgets.BarChart {
	chart := widgets.NewBarChart()
	chart.Title = "Catégories"
	chart.BarWidth = 5
	chart.BarGap = 1
	chart.Data = []float64{}
	chart.BarColors = []ui.Color{ui.ColorBlue, ui.ColorMagenta, ui.ColorCyan}
	chart.NumFormatter = func(v float64) string { return fmt.Sprintf("%.0f", v) }
	return chart
}

// UpdateCategoryChart met à jour l'histogramme des catégories présentes.
func UpdateCategoryChart(chart *widgets.BarChart, st Stats) {
	data := make([]float64, 0, len(st.ByCategory))
	labels := make([]string, 0, len(st.ByCategory))
	for _, c := range st.ByCategory {
		data = append(data, float64(c.Count))
		labels = append(labels, truncateRunes(string(c.Category), chart.BarWidth, ""))
	}
	chart.Data = data
	chart.Labels = labels
	chart.MaxVal = scaleMax(data)
}

// scaleMax évite une échelle nulle quand tous les comptes sont à zéro.
func scaleMax(data []float64) float64 {
	m := 1.0
	for _, v := range data {
		m = max(m, v)
	}
	return m
}

// CreateVerbTable initialise le tableau des verbes les plus fréquents.
func CreateVerbTable() *widgets.Table {
	table := widgets.NewTable()
	table.Title = "Verbes"
	table.Rows = [][]string{{"Verbe", "Nombre"}}
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.RowStyles[0] = ui.NewStyle(ui.ColorYellow, ui.ColorClear, ui.ModifierBold)
	return table
}

// UpdateVerbTable met à jour le tableau des verbes.
func UpdateVerbTable(table *widgets.Table, st Stats) {
	rows := [][]string{{"Verbe", "Nombre"}}
	for _, v := range st.TopVerbs {
		rows = append(rows, []string{string(v.Verb), humanize.Comma(int64(v.Count))})
	}
	table.Rows = rows
}

// CreateEventList initialise la liste des événements.
func CreateEventList() *widgets.List {
	list := widgets.NewList()
	list.Title = "Événements (Entrée: détails)"
	list.Rows = []string{"En attente d'événements..."}
	list.TextStyle = ui.NewStyle(ui.ColorWhite)
	list.SelectedRowStyle = ui.NewStyle(ui.ColorBlack, ui.ColorWhite)
	return list
}

// UpdateEventList met à jour la liste. Un événement déplié est suivi de ses
// lignes de détail. Retourne, pour chaque ligne, l'index de son événement.
func UpdateEventList(list *widgets.List, events []models.Event, x *Expansion) []int {
	rows := make([]string, 0, len(events))
	owners := make([]int, 0, len(events))
	for i := range events {
		rows = append(rows, formatEventRow(&events[i]))
		owners = append(owners, i)
		if x != nil && x.IsExpanded(events[i].ID) {
			for _, d := range detailRows(&events[i]) {
				rows = append(rows, d)
				owners = append(owners, i)
			}
		}
	}
	if len(rows) == 0 {
		rows = []string{"Aucun événement"}
		owners = []int{-1}
	}
	list.Rows = rows
	if list.SelectedRow >= len(rows) {
		list.SelectedRow = len(rows) - 1
	}
	return owners
}

// CreateStatusBar initialise la barre d'état.
func CreateStatusBar() *widgets.Paragraph {
	p := widgets.NewParagraph()
	p.Title = "État"
	p.Text = "Chargement..."
	return p
}

// UpdateStatusBar affiche le dernier rafraîchissement, l'état d'erreur et les raccourcis.
func UpdateStatusBar(p *widgets.Paragraph, v View, autoRefresh bool, prompt string) {
	auto := "off"
	if autoRefresh {
		auto = "on"
	}

	var parts []string
	switch {
	case prompt != "":
		parts = append(parts, "/"+prompt)
	case v.Err != nil:
		parts = append(parts, errorText(v.Err))
	case !v.LastRefresh.IsZero():
		parts = append(parts, "Mis à jour "+humanize.Time(v.LastRefresh))
	}
	if !v.Filter.IsZero() {
		parts = append(parts, describeFilter(v.Filter))
	}
	parts = append(parts, "auto:"+auto, "q quitter · r recharger · a auto · / chercher · 1-5 sévérité · v/o/c/s verbe/composant/catégorie/session · x effacer · e exporter")
	p.Text = strings.Join(parts, " | ")

	p.BorderStyle = ui.NewStyle(ui.ColorWhite)
	if v.Err != nil {
		p.BorderStyle = ui.NewStyle(ui.ColorRed)
	}
}

func errorText(err error) string {
	if errors.Is(err, ErrUnauthorized) {
		return "Accès refusé: jeton invalide (r pour réessayer)"
	}
	return fmt.Sprintf("Erreur: %v (r pour réessayer)", err)
}

func describeFilter(f Filter) string {
	var parts []string
	if s := strings.TrimSpace(f.Search); s != "" {
		parts = append(parts, fmt.Sprintf("%q", s))
	}
	for _, s := range f.Severities {
		parts = append(parts, s.String())
	}
	for _, c := range f.Categories {
		parts = append(parts, string(c))
	}
	for _, v := range f.Verbs {
		parts = append(parts, "verbe="+string(v))
	}
	for _, c := range f.Components {
		parts = append(parts, "composant="+c)
	}
	for _, id := range f.Sessions {
		parts = append(parts, "session="+id)
	}
	return "filtre: " + strings.Join(parts, ",")
}

// formatEventRow formate un événement pour l'affichage.
func formatEventRow(e *models.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", severityIcon(e.Severity), e.Timestamp.Local().Format("15:04:05"), e.Verb)
	if e.ObjectName != "" {
		fmt.Fprintf(&b, " %s", e.ObjectName)
	}
	if e.Component != "" {
		fmt.Fprintf(&b, " @%s", e.Component)
	}
	if e.DurationMs != nil {
		fmt.Fprintf(&b, " (%s)", formatMs(float64(*e.DurationMs)))
	}
	return truncateRunes(b.String(), MaxRowLength, TruncateSuffix)
}

// detailRows retourne les lignes affichées sous un événement déplié.
func detailRows(e *models.Event) []string {
	rows := []string{
		"    id: " + e.ID,
		fmt.Sprintf("    %s / %s · %s", e.Severity, e.Category, e.ObjectType),
	}
	add := func(label, value string) {
		if value != "" {
			rows = append(rows, truncateRunes("    "+label+": "+value, MaxRowLength, TruncateSuffix))
		}
	}
	add("session", e.SessionID)
	add("utilisateur", firstNonEmpty(e.Username, e.UserID))
	add("cas", firstNonEmpty(e.CaseName, e.CaseID))
	add("objet", e.ObjectID)
	add("parent", e.ParentComponent)
	add("résultat", e.Result)
	add("message", strings.TrimSpace(e.MessageRole+" "+e.MessageContent))
	if len(e.Context) > 0 {
		if data, err := json.Marshal(e.Context); err == nil {
			add("contexte", string(data))
		}
	}
	return rows
}

func severityIcon(s models.Severity) string {
	switch s {
	case models.SeverityCritical:
		return "🔴"
	case models.SeverityImportant:
		return "🟠"
	case models.SeverityAction:
		return "🟢"
	case models.SeverityInfo:
		return "🔵"
	default:
		return "⚪"
	}
}

func severityLabels() []string {
	labels := make([]string, 0, len(models.Severities()))
	for _, s := range models.Severities() {
		labels = append(labels, s.String())
	}
	return labels
}

func formatAvgDuration(st Stats) string {
	if st.DurationSamples == 0 {
		return "-"
	}
	return fmt.Sprintf("%s (n=%d)", formatMs(st.AvgDurationMs), st.DurationSamples)
}

// formatMs formate une durée en millisecondes.
func formatMs(ms float64) string {
	if ms >= float64(time.Second/time.Millisecond) {
		return humanize.FtoaWithDigits(ms/1000, 1) + " s"
	}
	return humanize.FtoaWithDigits(ms, 0) + " ms"
}

func truncateRunes(s string, n int, suffix string) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := n - len([]rune(suffix))
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + suffix
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
