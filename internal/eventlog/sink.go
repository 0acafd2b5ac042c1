package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/agbruneau/learning-events/internal/config"
	"github.com/agbruneau/learning-events/pkg/models"
)

// Sink delivers batches of events.
//
// Send is the normal cancellable path; its error decides whether the batch is
// re-queued. Beacon is the teardown path: it must hand the batch off without
// blocking and without depending on the caller's lifetime. It only fails when
// the batch could not be handed off at all.
type Sink interface {
	Send(ctx context.Context, events []models.Event) error
	Beacon(events []models.Event) error
}

// Drainer is implemented by sinks whose beacons can be waited on.
type Drainer interface {
	// Wait blocks until outstanding beacons finish or timeout elapses.
	// Returns false on timeout.
	Wait(timeout time.Duration) bool
}

// StatusError reports a non-2xx answer from the collector.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("learning events sink: HTTP %d", e.Code)
}

// HTTPOption configures an HTTPSink.
type HTTPOption func(*HTTPSink)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) HTTPOption {
	return func(s *HTTPSink) {
		for k, v := range h {
			s.headers[k] = v
		}
	}
}

// WithToken sends "Authorization: Bearer <token>" with every POST.
func WithToken(token string) HTTPOption {
	return func(s *HTTPSink) {
		if token != "" {
			s.headers["Authorization"] = "Bearer " + token
		}
	}
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSink) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSink) { s.client = c }
}

// WithBeaconTimeout bounds a single beacon POST. Default: 5s.
func WithBeaconTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSink) {
		if d > 0 {
			s.beaconTimeout = d
		}
	}
}

// HTTPSink POSTs batches as {"events": [...]} to the collector batch endpoint.
type HTTPSink struct {
	client        *http.Client
	url           string
	headers       map[string]string
	beaconTimeout time.Duration
	beacons       sync.WaitGroup
}

// NewHTTPSink creates a sink for the collector at baseURL.
func NewHTTPSink(baseURL string, opts ...HTTPOption) *HTTPSink {
	s := &HTTPSink{
		client:        &http.Client{Timeout: config.SinkTimeout},
		url:           strings.TrimRight(baseURL, "/") + config.BatchPath,
		headers:       make(map[string]string),
		beaconTimeout: config.BeaconTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the batch endpoint the sink posts to.
func (s *HTTPSink) URL() string {
	return s.url
}

// Send POSTs the batch and waits for the answer. Any non-2xx is an error.
func (s *HTTPSink) Send(ctx context.Context, events []models.Event) error {
	body, err := encodeBatch(events)
	if err != nil {
		return err
	}
	return s.post(ctx, body)
}

// Beacon POSTs the batch on a detached goroutine and returns at once.
// Failures are only logged.
func (s *HTTPSink) Beacon(events []models.Event) error {
	body, err := encodeBatch(events)
	if err != nil {
		return err
	}

	s.beacons.Add(1)
	go func() {
		defer s.beacons.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.beaconTimeout)
		defer cancel()
		if err := s.post(ctx, body); err != nil {
			slog.Warn("learning events beacon lost", "events", len(events), "error", err)
		}
	}()
	return nil
}

// Wait blocks until outstanding beacons finish or timeout elapses.
func (s *HTTPSink) Wait(timeout time.Duration) bool {
	return waitGroupTimeout(&s.beacons, timeout)
}

func (s *HTTPSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("learning events sink: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("learning events sink: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func encodeBatch(events []models.Event) ([]byte, error) {
	body, err := json.Marshal(models.Batch{Events: events})
	if err != nil {
		return nil, fmt.Errorf("learning events sink: marshal: %w", err)
	}
	return body, nil
}
