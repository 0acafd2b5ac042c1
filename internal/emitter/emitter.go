/*
Package emitter provides the simulated learner session that feeds the pipeline.

It plays scripted training sessions through the event logger, one interaction
per tick, and ships the resulting events to the collector over HTTP or Kafka.
*/
package emitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/agbruneau/learning-events/internal/config"
	"github.com/agbruneau/learning-events/internal/eventlog"
	"github.com/agbruneau/learning-events/internal/retry"
	"github.com/agbruneau/learning-events/pkg/models"
	"github.com/google/uuid"
)

// Config contains the emitter service configuration.
type Config struct {
	Transport       string          // "http" or "kafka".
	Endpoint        string          // Collector base URL.
	Token           string          // Optional bearer token.
	Timeout         time.Duration   // HTTP client timeout.
	KafkaBroker     string          // Kafka bootstrap servers.
	KafkaTopic      string          // Kafka topic.
	Enabled         bool            // Logger kill-switch.
	BatchSize       int             // Threshold flush size.
	FlushInterval   time.Duration   // Periodic flush interval.
	MinimumSeverity models.Severity // Severity filter.
	ActionInterval  time.Duration   // Interval between simulated interactions.
	ShutdownGrace   time.Duration   // Bound on the final drain.
	Retry           retry.Config    // Shutdown drain backoff.
	DeadLetter      bool            // Spool undeliverable batches.
	DeadLetterFile  string          // Spool path.
}

// NewConfig builds the emitter configuration from the application config.
// An unknown minimum severity falls back to DEBUG.
//
// Parameters:
//   - app: The loaded application configuration.
//
// Returns:
//   - *Config: The initialized configuration.
func NewConfig(app *config.AppConfig) *Config {
	minSeverity, err := models.ParseSeverity(app.Logger.MinimumSeverity)
	if err != nil {
		minSeverity = models.SeverityDebug
	}
	return &Config{
		Transport:       app.Sink.Transport,
		Endpoint:        app.Sink.Endpoint,
		Token:           app.Sink.Token,
		Timeout:         app.GetSinkTimeout(),
		KafkaBroker:     app.Sink.KafkaBroker,
		KafkaTopic:      app.Sink.KafkaTopic,
		Enabled:         app.Logger.Enabled,
		BatchSize:       app.Logger.BatchSize,
		FlushInterval:   app.GetFlushInterval(),
		MinimumSeverity: minSeverity,
		ActionInterval:  config.EmitterActionInterval,
		ShutdownGrace:   config.EmitterShutdownGrace,
		Retry: retry.Config{
			MaxAttempts:  app.Retry.MaxAttempts,
			InitialDelay: app.GetInitialRetryDelay(),
			MaxDelay:     app.GetMaxRetryDelay(),
			Multiplier:   app.Retry.Multiplier,
		},
		DeadLetter:     app.DeadLetter.Enabled,
		DeadLetterFile: app.DeadLetter.File,
	}
}

// NewSink builds the outbound transport selected by cfg.Transport.
// The returned close function releases the transport after the logger drained.
func NewSink(cfg *Config) (eventlog.Sink, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Transport)) {
	case "", "http":
		sink := eventlog.NewHTTPSink(cfg.Endpoint,
			eventlog.WithToken(cfg.Token),
			eventlog.WithTimeout(cfg.Timeout),
		)
		return sink, func() {}, nil
	case "kafka":
		sink, err := eventlog.NewKafkaSink(cfg.KafkaBroker, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink transport %q", cfg.Transport)
	}
}

// SessionEmitter plays the scripts through an event logger.
type SessionEmitter struct {
	config       *Config
	sink         eventlog.Sink
	closeSink    func()
	spool        *retry.DeadLetterSpool
	logger       *eventlog.Logger
	scripts      []SessionScript
	newSessionID func() string

	script   int // index of the running script
	step     int // 0 = session not started, 1..n = action, n+1 = end
	sessions int // completed sessions
}

// New creates a new instance of the SessionEmitter service.
//
// Parameters:
//   - cfg: The emitter configuration.
//
// Returns:
//   - *SessionEmitter: The created instance.
func New(cfg *Config) *SessionEmitter {
	return &SessionEmitter{
		config:       cfg,
		scripts:      DefaultScripts,
		newSessionID: uuid.NewString,
	}
}

// Initialize builds the sink (unless one was injected), the dead-letter spool
// and the logger, then starts the periodic flush loop.
//
// Returns:
//   - error: An error if the transport or the spool cannot be opened.
func (e *SessionEmitter) Initialize(ctx context.Context) error {
	if e.sink == nil {
		sink, closeSink, err := NewSink(e.config)
		if err != nil {
			return fmt.Errorf("failed to create sink: %w", err)
		}
		e.sink, e.closeSink = sink, closeSink
	}

	opts := []eventlog.Option{
		eventlog.WithEnabled(e.config.Enabled),
		eventlog.WithBatchSize(e.config.BatchSize),
		eventlog.WithFlushInterval(e.config.FlushInterval),
		eventlog.WithMinimumSeverity(e.config.MinimumSeverity),
		eventlog.WithRetryConfig(e.config.Retry),
	}
	if e.config.DeadLetter {
		spool, err := retry.NewDeadLetterSpool(e.config.DeadLetterFile, true)
		if err != nil {
			e.releaseSink()
			return fmt.Errorf("failed to open dead letter spool: %w", err)
		}
		e.spool = spool
		opts = append(opts, eventlog.WithDeadLetter(spool))
	}

	e.logger = eventlog.New(e.sink, opts...)
	e.logger.Start(ctx)
	return nil
}

// Logger returns the event logger driven by the emitter.
func (e *SessionEmitter) Logger() *eventlog.Logger {
	return e.logger
}

// Sessions returns the number of completed sessions.
func (e *SessionEmitter) Sessions() int {
	return e.sessions
}

// Step plays the next interaction. A session is started before its first
// action and ended after its last one; the next script then begins.
func (e *SessionEmitter) Step() {
	s := e.scripts[e.script%len(e.scripts)]

	switch {
	case e.step == 0:
		e.logger.SessionStarted(eventlog.Context{
			SessionID: e.newSessionID(),
			UserID:    s.UserID,
			Username:  s.Username,
		})
		e.logger.CaseLoaded(s.CaseID, s.CaseName)
	case e.step <= len(s.Actions):
		s.Actions[e.step-1](e.logger)
	default:
		e.logger.SessionEnded("completed")
		e.sessions++
		e.script++
		e.step = 0
		return
	}
	e.step++
}

// Run starts the simulation loop.
// Continues until a stop signal is received on stopChan.
//
// Parameters:
//   - stopChan: The stop signal channel.
func (e *SessionEmitter) Run(stopChan <-chan os.Signal) {
	ticker := time.NewTicker(e.config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			slog.Info("stop signal received, ending simulated session")
			if e.step > 0 {
				e.logger.SessionEnded("interrupted")
			}
			return
		case <-ticker.C:
			e.Step()
		}
	}
}

// Close drains the logger within the shutdown grace, spooling what cannot be
// delivered, and releases the transport and the spool.
//
// Returns:
//   - error: The drain error, joined with any close error.
func (e *SessionEmitter) Close() error {
	var errs []error
	if e.logger != nil {
		ctx, cancel := context.WithTimeout(context.Background(), e.config.ShutdownGrace)
		errs = append(errs, e.logger.Shutdown(ctx))
		cancel()
	}
	e.releaseSink()
	if e.spool != nil {
		errs = append(errs, e.spool.Close())
	}
	return errors.Join(errs...)
}

func (e *SessionEmitter) releaseSink() {
	if e.closeSink != nil {
		e.closeSink()
		e.closeSink = nil
	}
}
