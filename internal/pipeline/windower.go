package pipeline

import (
	"FlareScope/internal/domain/models"
)

// Segment splits a series into fixed-length windows at half-length stride,
// column-adjusted to the model's expected feature count. A series shorter
// than the sequence length yields exactly one left-aligned, zero-padded
// window, so callers always get at least one window to predict on.
func Segment(series models.TimeSeries, cfg models.WindowConfig) []models.Window {
	adjusted := adjustColumns(series, cfg.FeatureCount)
	stride := cfg.Stride()

	if len(adjusted) < cfg.SequenceLength {
		return []models.Window{padWindow(adjusted, cfg)}
	}

	var windows []models.Window
	for off := 0; off+cfg.SequenceLength <= len(adjusted); off += stride {
		windows = append(windows, models.Window(adjusted[off:off+cfg.SequenceLength]))
	}
	return windows
}

// adjustColumns truncates extra feature columns and zero-pads missing ones.
// Truncation keeps the first n columns; there is no projection.
func adjustColumns(series models.TimeSeries, n int) [][]float64 {
	out := make([][]float64, len(series))
	for i, row := range series {
		adj := make([]float64, n)
		copy(adj, row)
		out[i] = adj
	}
	return out
}

func padWindow(rows [][]float64, cfg models.WindowConfig) models.Window {
	w := make(models.Window, cfg.SequenceLength)
	for i := range w {
		if i < len(rows) {
			w[i] = rows[i]
			continue
		}
		w[i] = make([]float64, cfg.FeatureCount)
	}
	return w
}
