package models

import "errors"

// Failure kinds the orchestrator degrades on. None of them are surfaced as
// hard failures when a fallback is possible; they end up as the error string
// of the failure envelope.
var (
	// ErrLoad: the source file could not be read or its format is not
	// supported.
	ErrLoad = errors.New("load error")
	// ErrShape: the source was readable but held no numeric data after
	// preprocessing.
	ErrShape = errors.New("no numerical data found")
	// ErrModel: the external predictor is unavailable or raised.
	ErrModel = errors.New("model error")
)
