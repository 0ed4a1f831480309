package models

// TimeSeries is an ordered sequence of flux samples, one feature vector per
// sample. All rows share the same width; the width is whatever the loader
// found in the source, not what the model expects.
type TimeSeries [][]float64

// FeatureCount returns the width of the series, 0 when empty.
func (s TimeSeries) FeatureCount() int {
	if len(s) == 0 {
		return 0
	}
	return len(s[0])
}

// WindowConfig describes the sequence shape the model consumes.
type WindowConfig struct {
	SequenceLength int
	FeatureCount   int
}

// Stride is fixed at half the sequence length, never below 1.
func (c WindowConfig) Stride() int {
	s := c.SequenceLength / 2
	if s < 1 {
		s = 1
	}
	return s
}

// Window is a contiguous, column-adjusted slice of a TimeSeries with exactly
// SequenceLength rows and FeatureCount columns.
type Window [][]float64

// RawPrediction is the normalized model output: one parameter block per
// window, with energy estimates and classification scores aligned by window
// index. The predictor adapter resolves the model's two output shapes
// (structured bundle or flat tensor) into this form, so the decoder only ever
// sees one.
type RawPrediction struct {
	Params   [][]float64
	Energies []float64
	Scores   []float64
}

// FluxSample is one reading from the real-time X-ray feed: the two GOES XRS
// intensity channels at a point in time.
type FluxSample struct {
	Source string  `json:"source"`
	Time   int64   `json:"t"` // unix seconds
	Short  float64 `json:"short"`
	Long   float64 `json:"long"`
}
