package pipeline

import (
	"math"

	"FlareScope/internal/domain/models"
)

// Classifier assigns a flare class from intensity and flags the nanoflare
// subpopulation. Thresholds come from configuration; the literals in the
// config defaults are the calibration the upstream model was built against.
type Classifier struct {
	nanoAlpha     float64 // |alpha| above this flags a nanoflare
	nanoIntensity float64 // intensity below this flags a nanoflare
}

func NewClassifier(nanoAlpha, nanoIntensity float64) *Classifier {
	return &Classifier{nanoAlpha: nanoAlpha, nanoIntensity: nanoIntensity}
}

// Classify fills FlareType from intensity, then the nanoflare flag and
// confidence. The returned event is the completed, immutable record.
func (c *Classifier) Classify(e models.FlareEvent) models.FlareEvent {
	e.FlareType = TypeFromIntensity(e.Intensity)
	if flagged, conf := c.Nanoflare(e); flagged {
		e.IsNanoflare = true
		e.NanoflareConfidence = &conf
	}
	return e
}

// Nanoflare applies the nanoflare predicate: any of high |alpha|, low
// intensity, or an already-nano class suffices. Confidence is only defined
// for flagged events.
func (c *Classifier) Nanoflare(e models.FlareEvent) (bool, float64) {
	if math.Abs(e.Alpha) > c.nanoAlpha || e.Intensity < c.nanoIntensity || e.FlareType == models.FlareNano {
		return true, math.Min(math.Abs(e.Alpha)/c.nanoAlpha, 1.0)
	}
	return false, 0
}

// TypeFromIntensity partitions [0,inf) into the five flare classes. First
// match wins; the thresholds leave no gaps or overlaps.
func TypeFromIntensity(intensity float64) models.FlareType {
	switch {
	case intensity > 1000:
		return models.FlareXClass
	case intensity > 500:
		return models.FlareMajor
	case intensity > 100:
		return models.FlareMinor
	case intensity > 50:
		return models.FlareMicro
	default:
		return models.FlareNano
	}
}
