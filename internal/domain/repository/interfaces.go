package repository

import (
	"context"

	"FlareScope/internal/domain/models"
)

// FluxStream is a live feed of X-ray flux samples (e.g. a GOES real-time
// relay over WebSocket).
type FluxStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.FluxSample, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher emits flux samples and completed-analysis events to the message
// bus.
type Publisher interface {
	Publish(ctx context.Context, s *models.FluxSample) error
	PublishBatch(ctx context.Context, samples []*models.FluxSample) error
	PublishAnalysis(ctx context.Context, source string, result *models.AnalysisResult) error
	Close() error
}

// Storage persists flux samples and serves the recent window back for live
// analysis.
type Storage interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, s *models.FluxSample) error
	StoreBatch(ctx context.Context, samples []*models.FluxSample) error
	// RecentSeries returns up to n of the latest samples for a source in
	// chronological order, projected to (short, long) feature rows.
	RecentSeries(ctx context.Context, source string, n int) (models.TimeSeries, error)
	Health(ctx context.Context) error
	Close() error
}

// AnalysisStore archives a summary row per analysis run.
type AnalysisStore interface {
	StoreRun(ctx context.Context, source string, result *models.AnalysisResult) error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordMessageSent(backend, source string)
	RecordError(kind string)
	RecordAnalysis(outcome string)
	RecordFlareCounts(total, nanoflares int)
	RecordLatency(op string, seconds float64)
}
