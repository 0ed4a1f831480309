package pipeline

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"FlareScope/internal/domain/models"
)

// paramsPerFlare is the width of one flare parameter group in the model
// output: (amplitude, peak_time, rise_time, decay_time, background).
const paramsPerFlare = 5

// fallbackEnergyScale is the exponential scale used when a window has no
// aligned energy estimate.
const fallbackEnergyScale = 1e28

// Decoder turns normalized model output into unclassified flare events.
// Alpha is a latent draw, not a model output, so the decoder owns a seedable
// RNG; fixing the seed makes decoding reproducible in tests.
type Decoder struct {
	amplitudeMin float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewDecoder(amplitudeMin float64, rng *rand.Rand) *Decoder {
	return &Decoder{amplitudeMin: amplitudeMin, rng: rng}
}

// Decode emits one event per parameter group whose amplitude clears the
// significance threshold. windowBase offsets the synthetic clock when the
// prediction continues an earlier window block. Trailing parameters that do
// not fill a whole group are dropped.
func (d *Decoder) Decode(raw models.RawPrediction, windowBase int) []models.FlareEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	var events []models.FlareEvent
	for i, params := range raw.Params {
		groups := len(params) / paramsPerFlare
		for j := 0; j < groups; j++ {
			g := params[j*paramsPerFlare : (j+1)*paramsPerFlare]
			if math.Abs(g[0]) <= d.amplitudeMin {
				continue
			}

			energy := d.rng.ExpFloat64() * fallbackEnergyScale
			if i < len(raw.Energies) {
				energy = raw.Energies[i]
			}
			confidence := 0.5
			if i < len(raw.Scores) {
				confidence = raw.Scores[i]
			}

			events = append(events, models.FlareEvent{
				Timestamp:  decodeTimestamp(windowBase+i, j),
				Intensity:  math.Abs(g[0]),
				Energy:     energy,
				Alpha:      d.rng.NormFloat64() * 2,
				PeakTime:   g[1],
				RiseTime:   g[2],
				DecayTime:  g[3],
				Background: g[4],
				Confidence: confidence,
			})
		}
	}
	return events
}

// decodeTimestamp places event (window i, group j) on a synthetic clock
// seeded at 2024-01-01T00:00:00Z: 6 hours per window, 30 minutes per group,
// wrapped within the epoch day. It is an ordering key, not wall-clock truth.
func decodeTimestamp(windowIdx, groupIdx int) string {
	offsetHours := float64(windowIdx)*6 + float64(groupIdx)*0.5
	hour := int(offsetHours) % 24
	minute := int((offsetHours - math.Floor(offsetHours)) * 60)
	return fmt.Sprintf("2024-01-01T%02d:%02d:00Z", hour, minute)
}
