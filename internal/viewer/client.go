/*
Package viewer fournit le lecteur de journaux de session pour les événements d'apprentissage.

Ce paquet récupère une fenêtre d'événements stockés, dérive les facettes de
filtrage, calcule les statistiques agrégées, exporte les résultats et les
affiche dans une interface terminal utilisant les widgets termui.
*/
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/agbruneau/learning-events/internal/config"
	"github.com/agbruneau/learning-events/pkg/models"
)

// ErrUnauthorized est retournée quand le collecteur refuse le jeton.
var ErrUnauthorized = errors.New("viewer: unauthorized")

// StatusError est retournée pour toute autre réponse non 2xx.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("viewer: HTTP %d", e.Code)
}

// Client lit les événements stockés via l'API du collecteur.
type Client struct {
	baseURL string
	token   string
	limit   int
	http    *http.Client
}

// ClientOption configure un Client.
type ClientOption func(*Client)

// WithClientToken définit le jeton bearer.
func WithClientToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithLimit plafonne la fenêtre récente (toutes sessions).
func WithLimit(limit int) ClientOption {
	return func(c *Client) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// WithHTTPClient remplace le client HTTP.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient crée un client pour l'URL de base du collecteur.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   config.DefaultLimit,
		http:    &http.Client{Timeout: config.SinkTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL retourne l'adresse interrogée pour la session donnée.
// Sans session, la fenêtre récente toutes sessions confondues.
func (c *Client) URL(sessionID string) string {
	if sessionID != "" {
		return c.baseURL + config.SessionPath + url.PathEscape(sessionID)
	}
	return c.baseURL + config.AllEventsPath + "?limit=" + strconv.Itoa(c.limit)
}

// Fetch récupère les événements en une seule requête.
func (c *Client) Fetch(ctx context.Context, sessionID string) ([]models.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("viewer: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("viewer: fetch events: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var batch models.Batch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("viewer: decode events: %w", err)
	}
	if batch.Events == nil {
		batch.Events = []models.Event{}
	}
	return batch.Events, nil
}
