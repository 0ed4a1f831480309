package models

// FlareType labels a flare event by its peak intensity class.
type FlareType string

const (
	FlareNano   FlareType = "nano"
	FlareMicro  FlareType = "micro"
	FlareMinor  FlareType = "minor"
	FlareMajor  FlareType = "major"
	FlareXClass FlareType = "X-class"
)

// FlareEvent is a single decomposed flare. Decoded events carry the raw model
// parameters; classification fills FlareType and the nanoflare fields. Events
// are value objects: downstream stages read them, nothing mutates them after
// classification.
type FlareEvent struct {
	Timestamp           string    `json:"timestamp"` // ISO-8601 with trailing Z; synthetic ordering key
	Intensity           float64   `json:"intensity"`
	Energy              float64   `json:"energy"`
	Alpha               float64   `json:"alpha"`
	PeakTime            float64   `json:"peak_time"`
	RiseTime            float64   `json:"rise_time"`
	DecayTime           float64   `json:"decay_time"`
	Background          float64   `json:"background"`
	Confidence          float64   `json:"confidence"`
	FlareType   FlareType `json:"flare_type"`
	IsNanoflare bool      `json:"is_nanoflare"`
	// NanoflareConfidence is only defined for flagged events; the key is
	// absent otherwise.
	NanoflareConfidence *float64 `json:"nanoflare_confidence,omitempty"`
}
