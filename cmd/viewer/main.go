/*
Point d'entrée du lecteur de journaux de session.

Ceci est le point d'entrée principal pour le binaire du lecteur TUI.
Construction: go build -o viewer ./cmd/viewer
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/agbruneau/learning-events/internal/config"
	"github.com/agbruneau/learning-events/internal/logging"
	"github.com/agbruneau/learning-events/internal/viewer"
	"github.com/agbruneau/learning-events/pkg/models"
	ui "github.com/gizak/termui/v3"
)

// main charge la configuration, lance le rafraîchissement en arrière-plan et
// gère la boucle d'événements de l'interface.
func main() {
	configPath := flag.String("config", os.Getenv("LEARNLOG_CONFIG"), "fichier de configuration YAML ou TOML")
	sessionFlag := flag.String("session", "", "session à afficher (vide: toutes les sessions)")
	flag.Parse()

	appCfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Erreur lors du chargement de la configuration: %v\n", err)
		os.Exit(1)
	}
	sessionID := appCfg.Viewer.SessionID
	if *sessionFlag != "" {
		sessionID = *sessionFlag
	}

	// L'interface occupe le terminal: les diagnostics vont dans un fichier.
	logFile, err := os.OpenFile(config.ViewerLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Printf("Erreur lors de l'ouverture de %s: %v\n", config.ViewerLogFile, err)
		os.Exit(1)
	}
	defer logFile.Close()
	logging.InitFile(logFile, appCfg.App.LogFormat, logging.ParseLevel(appCfg.App.LogLevel))

	client := viewer.NewClient(appCfg.Viewer.BaseURL,
		viewer.WithClientToken(appCfg.Viewer.Token),
		viewer.WithLimit(appCfg.Viewer.Limit),
	)
	model := viewer.NewModel(sessionID, appCfg.Viewer.TopVerbs)
	refresher := viewer.NewRefresher(
		func(ctx context.Context) ([]models.Event, error) { return client.Fetch(ctx, sessionID) },
		appCfg.GetRefreshInterval(),
		func(events []models.Event, err error) {
			if err != nil {
				slog.Warn("fetch failed", "url", client.URL(sessionID), "error", err)
			}
			model.Update(events, err)
		},
	)
	defer refresher.Stop()

	if err := ui.Init(); err != nil {
		fmt.Printf("Erreur lors de l'initialisation de l'UI: %v\n", err)
		os.Exit(1)
	}
	defer ui.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go refresher.Refresh(ctx)
	refresher.Enable(ctx)

	dash := viewer.NewDashboard()
	termWidth, termHeight := ui.TerminalDimensions()
	dash.Resize(termWidth, termHeight)

	var (
		searching bool
		prompt    string
	)
	render := func() {
		dash.Update(model.View(), model.Expansion, refresher.Enabled(), promptText(searching, prompt))
		ui.Render(dash.Drawables()...)
	}
	render()

	uiEvents := ui.PollEvents()
	ticker := time.NewTicker(config.ViewerUIUpdate)
	defer ticker.Stop()

	for {
		select {
		case e := <-uiEvents:
			if searching {
				searching, prompt = handleSearchKey(e.ID, prompt, model)
				render()
				continue
			}
			switch e.ID {
			case "q", "<C-c>":
				return
			case "r":
				go refresher.Refresh(ctx)
			case "a":
				refresher.Toggle(ctx)
			case "j", "<Down>":
				dash.Events.ScrollDown()
			case "k", "<Up>":
				dash.Events.ScrollUp()
			case "<Enter>":
				v := model.View()
				if idx, ok := dash.SelectedEvent(); ok && idx < len(v.Events) {
					model.Expansion.Toggle(v.Events[idx].ID)
				}
			case "/":
				searching, prompt = true, model.View().Filter.Search
			case "1", "2", "3", "4", "5":
				sev := models.Severities()[e.ID[0]-'1']
				model.UpdateFilter(func(f *viewer.Filter) { f.ToggleSeverity(sev) })
			case "v", "o", "c", "s":
				facets := model.View().Facets
				dim := facetKeys[e.ID]
				model.UpdateFilter(func(f *viewer.Filter) { f.CycleFacet(dim, facets) })
			case "x":
				model.SetFilter(viewer.Filter{})
			case "e":
				dash.Notice = export(model.View())
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				dash.Resize(payload.Width, payload.Height)
				ui.Clear()
			}
			render()
		case <-ticker.C:
			render()
		}
	}
}

// facetKeys associe les touches aux dimensions que l'on fait défiler.
var facetKeys = map[string]viewer.FacetDimension{
	"v": viewer.FacetVerb,
	"o": viewer.FacetComponent,
	"c": viewer.FacetCategory,
	"s": viewer.FacetSession,
}

// handleSearchKey édite la recherche en cours. Entrée applique, Échap annule.
func handleSearchKey(id, prompt string, model *viewer.Model) (bool, string) {
	switch id {
	case "<Enter>":
		model.UpdateFilter(func(f *viewer.Filter) { f.Search = prompt })
		return false, ""
	case "<Escape>", "<C-c>":
		return false, ""
	case "<Backspace>", "<C-<Backspace>>":
		r := []rune(prompt)
		if len(r) > 0 {
			r = r[:len(r)-1]
		}
		return true, string(r)
	case "<Space>":
		return true, prompt + " "
	}
	if len([]rune(id)) == 1 {
		return true, prompt + id
	}
	return true, prompt
}

func promptText(searching bool, prompt string) string {
	if !searching {
		return ""
	}
	return prompt + "_"
}

// export écrit les fichiers d'export des événements visibles et retourne le
// message affiché dans la barre d'état.
func export(v viewer.View) string {
	out, err := viewer.SaveExports(".", config.ViewerExportPrefix, v.Events, v.SessionID, time.Now())
	if err != nil {
		slog.Error("export failed", "error", err)
		return fmt.Sprintf("❌ Export impossible: %v", err)
	}
	slog.Info("events exported", "events", len(v.Events), "json", out.JSON, "csv", out.CSV, "text", out.Text)
	return fmt.Sprintf("💾 %d événements exportés: %s, %s, %s", len(v.Events), out.JSON, out.CSV, out.Text)
}
