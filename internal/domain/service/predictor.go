package service

import (
	"context"

	"FlareScope/internal/domain/models"
)

// FlarePredictor is the external decomposition model. It is constructed once
// at startup and shared for the process lifetime; implementations must be
// reentrant. Any error it returns routes the orchestrator to the synthetic
// fallback.
type FlarePredictor interface {
	Predict(ctx context.Context, windows []models.Window) (models.RawPrediction, error)
	Healthy(ctx context.Context) bool
	Version() string
}

// SeriesLoader turns an uploaded instrument file into a numeric time series.
type SeriesLoader interface {
	Load(path string) (models.TimeSeries, error)
}
