/*
Package collector provides the reference sink for learning events.

It accepts batches over HTTP (and optionally from Kafka), stores them in SQLite
with event-id deduplication, keeps an audit trail of every received batch and
serves the read API used by the session log viewer.
*/
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/agbruneau/learning-events/internal/config"
	"github.com/agbruneau/learning-events/internal/retry"
	"github.com/agbruneau/learning-events/pkg/models"
)

// Config contains the collector service configuration.
type Config struct {
	Addr            string        // Listen address
	DBPath          string        // SQLite file, ":memory:" allowed
	AuditFile       string        // Audit trail file
	Token           string        // Bearer token for the read API, empty disables auth
	MetricsInterval time.Duration // Interval between periodic metrics
	MaxBodyBytes    int64         // Upper bound on a batch request body
	Retry           retry.Config  // Store write retries
	Kafka           KafkaConfig   // Optional Kafka ingest
}

// KafkaConfig configures the Kafka ingest loop.
type KafkaConfig struct {
	Enabled       bool
	Broker        string
	Topic         string
	ConsumerGroup string
	ReadTimeout   time.Duration
	MaxErrors     int
}

// NewConfig builds the collector configuration from the application config.
func NewConfig(app *config.AppConfig) *Config {
	return &Config{
		Addr:            app.Collector.Addr,
		DBPath:          app.Collector.DBPath,
		AuditFile:       app.Collector.AuditFile,
		Token:           app.Collector.Token,
		MetricsInterval: app.GetMetricsInterval(),
		MaxBodyBytes:    config.CollectorMaxBodyBytes,
		Retry: retry.Config{
			MaxAttempts:  app.Retry.MaxAttempts,
			InitialDelay: app.GetInitialRetryDelay(),
			MaxDelay:     app.GetMaxRetryDelay(),
			Multiplier:   app.Retry.Multiplier,
		},
		Kafka: KafkaConfig{
			Enabled:       app.Collector.KafkaEnabled,
			Broker:        app.Collector.KafkaBroker,
			Topic:         app.Collector.KafkaTopic,
			ConsumerGroup: app.Collector.ConsumerGroup,
			ReadTimeout:   config.CollectorKafkaReadTimeout,
			MaxErrors:     app.Collector.MaxConsecutiveErrors,
		},
	}
}

// Outcome is what happened to the events of one batch.
type Outcome struct {
	Stored     int `json:"stored"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
}

// badRequestError marks input the sender must not retry unchanged.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func isBadRequest(err error) bool {
	var br *badRequestError
	return errors.As(err, &br)
}

// Collector is the main service: store, audit trail, metrics and transports.
type Collector struct {
	config   *Config
	store    *Store
	audit    *AuditLogger
	metrics  *SystemMetrics
	server   *http.Server
	ingester *KafkaIngester
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new instance of the Collector service.
func New(cfg *Config) *Collector {
	return &Collector{
		config:   cfg,
		metrics:  newSystemMetrics(),
		stopChan: make(chan struct{}),
	}
}

// Initialize opens the store and the audit trail, and the Kafka consumer when enabled.
func (c *Collector) Initialize(ctx context.Context) error {
	var err error

	c.store, err = OpenStore(ctx, c.config.DBPath, c.config.Retry)
	if err != nil {
		return fmt.Errorf("unable to initialize store: %w", err)
	}

	c.audit, err = NewAuditLogger(c.config.AuditFile)
	if err != nil {
		c.Close()
		return fmt.Errorf("unable to initialize audit trail: %w", err)
	}

	if c.config.Kafka.Enabled {
		consumer, err := newKafkaConsumer(c.config.Kafka)
		if err != nil {
			c.Close()
			return err
		}
		c.ingester = NewKafkaIngester(consumer, c.config.Kafka, c.Accept)
		if err := c.ingester.Subscribe(); err != nil {
			c.Close()
			return err
		}
	}

	c.server = &http.Server{
		Addr:              c.config.Addr,
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("collector initialized",
		"db_path", c.config.DBPath,
		"audit_file", c.config.AuditFile,
		"kafka_ingest", c.config.Kafka.Enabled,
		"auth", c.config.Token != "",
	)
	return nil
}

// Run serves HTTP until Stop is called.
func (c *Collector) Run(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.metrics.logPeriodicMetrics(c.config.MetricsInterval, c.stopChan)
	}()

	if c.ingester != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.ingester.Run(ctx)
		}()
	}

	slog.Info("collector listening", "addr", c.config.Addr)
	if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("collector server: %w", err)
	}
	return nil
}

// Stop shuts the HTTP server down and stops background loops.
func (c *Collector) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		if c.ingester != nil {
			c.ingester.Stop()
		}
		if c.server != nil {
			err = c.server.Shutdown(ctx)
		}
		close(c.stopChan)
		c.wg.Wait()
		c.metrics.log("Collector stopped properly")
	})
	return err
}

// Close releases all resources.
func (c *Collector) Close() {
	if c.ingester != nil {
		c.ingester.Close()
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			slog.Error("closing store", "error", err)
		}
	}
	c.audit.Close()
}

// Accept decodes, stores and audits one batch body. source names the sender
// (remote address or Kafka position). Decoding problems and empty batches are
// bad requests; individually invalid events are counted as rejected.
func (c *Collector) Accept(ctx context.Context, source string, body []byte) (Outcome, error) {
	var out Outcome

	var batch models.Batch
	if err := json.Unmarshal(body, &batch); err != nil {
		return c.reject(source, body, nil, &badRequestError{fmt.Errorf("invalid batch: %w", err)})
	}
	if len(batch.Events) == 0 {
		return c.reject(source, body, &batch, &badRequestError{models.ErrEmptyBatch})
	}

	valid := make([]models.Event, 0, len(batch.Events))
	for i := range batch.Events {
		if err := batch.Events[i].Validate(); err != nil {
			slog.Warn("event rejected", "source", source, "index", i, "id", batch.Events[i].ID, "error", err)
			out.Rejected++
			continue
		}
		valid = append(valid, batch.Events[i])
	}

	stored, dups, err := c.store.Insert(ctx, valid)
	if err != nil {
		slog.Error("batch storage failed", "source", source, "events", len(valid), "error", err)
		return c.reject(source, body, &batch, err)
	}
	out.Stored, out.Duplicates = stored, dups

	c.metrics.recordBatch(out)
	c.audit.LogBatch(source, len(body), &batch, out, nil)
	return out, nil
}

func (c *Collector) reject(source string, body []byte, batch *models.Batch, err error) (Outcome, error) {
	c.metrics.recordFailure(isBadRequest(err))
	c.audit.LogBatch(source, len(body), batch, Outcome{}, err)
	return Outcome{}, err
}
