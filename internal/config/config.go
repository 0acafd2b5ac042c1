/*
Package config provides centralized configuration for the learning-events system.

This package contains the constants and configuration structures shared by the
emitter, collector and viewer components.
*/
package config

import "time"

// Default sink settings
const (
	DefaultSinkEndpoint  = "http://localhost:8080"
	DefaultSinkTransport = "http"
	DefaultKafkaBroker   = "localhost:9092"
	DefaultKafkaTopic    = "learning-events"
	KafkaFlushTimeoutMs  = 15000
)

// API paths
const (
	BatchPath      = "/api/learning-events/batch"
	SessionPath    = "/api/learning-events/session/"
	AllEventsPath  = "/api/learning-events/all"
	HealthPath     = "/healthz"
	DefaultLimit   = 500
	MaxLimit       = 5000
	SinkTimeout    = 10 * time.Second
	BeaconTimeout  = 5 * time.Second
	BeaconDrainMax = 5 * time.Second
)

// Constants for the event logger
const (
	LoggerBatchSize       = 10
	LoggerFlushInterval   = 5 * time.Second
	LoggerMinimumSeverity = "DEBUG"
	LoggerTimingMarkLimit = 256
)

// Constants for the collector
const (
	CollectorAddr            = ":8080"
	CollectorDBPath          = "learning-events.db"
	CollectorAuditFile       = "collector.audit"
	CollectorMetricsInterval = 30 * time.Second
	CollectorMaxBodyBytes    = 4 << 20
	CollectorServiceName     = "learning-events-collector"
	CollectorShutdownTimeout = 10 * time.Second

	DefaultConsumerGroup          = "learning-events-collector"
	CollectorKafkaReadTimeout     = time.Second
	CollectorMaxConsecutiveErrors = 3
)

// Constants for the viewer
const (
	ViewerRefreshInterval = 5 * time.Second
	ViewerTopVerbs        = 10
	ViewerPreviewRunes    = 50
	ViewerUIUpdate        = 500 * time.Millisecond
	ViewerMaxRowLength    = 120
	ViewerTruncateSuffix  = "..."
	ViewerExportPrefix    = "learning-events"
	ViewerLogFile         = "viewer.log"
)

// Emitter (session simulator) constants
const (
	EmitterActionInterval = 400 * time.Millisecond
	EmitterShutdownGrace  = 10 * time.Second
	EmitterDeadLetterFile = "emitter.deadletter"
)
