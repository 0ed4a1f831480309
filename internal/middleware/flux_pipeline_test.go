package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FlareScope/internal/domain/models"
)

type stubProc struct {
	mu      sync.Mutex
	samples []*models.FluxSample
	err     error
}

func (p *stubProc) Process(_ context.Context, s *models.FluxSample) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.samples = append(p.samples, s)
	return nil
}

func (p *stubProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.samples)
}

type nullMetrics struct{}

func (nullMetrics) RecordMessageSent(string, string) {}
func (nullMetrics) RecordError(string)               {}
func (nullMetrics) RecordAnalysis(string)            {}
func (nullMetrics) RecordFlareCounts(int, int)       {}
func (nullMetrics) RecordLatency(string, float64)    {}

func validSample() *models.FluxSample {
	return &models.FluxSample{Source: "goes-16", Time: 1700000000, Short: 0.5, Long: 0.7}
}

func TestPipelineForwardsValidSamples(t *testing.T) {
	proc := &stubProc{}
	p := NewFluxPipeline(proc, nullMetrics{})

	if err := p.Process(context.Background(), validSample()); err != nil {
		t.Fatal(err)
	}
	if proc.count() != 1 {
		t.Fatalf("forwarded %d samples", proc.count())
	}
}

func TestPipelineRejectsInvalidSamples(t *testing.T) {
	proc := &stubProc{}
	p := NewFluxPipeline(proc, nullMetrics{})

	cases := []*models.FluxSample{
		nil,
		{Source: "", Time: 1700000000},
		{Source: "goes-16", Time: 0},
		{Source: "goes-16", Time: 1700000000, Short: -1},
	}
	for i, s := range cases {
		if err := p.Process(context.Background(), s); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if proc.count() != 0 {
		t.Fatalf("invalid samples reached downstream")
	}
}

func TestPipelineThrottlesPerSource(t *testing.T) {
	proc := &stubProc{}
	p := NewFluxPipeline(proc, nullMetrics{}, WithMaxRPS(1))

	// first sample per source passes, immediate repeats are dropped silently
	if err := p.Process(context.Background(), validSample()); err != nil {
		t.Fatal(err)
	}
	if err := p.Process(context.Background(), validSample()); err != nil {
		t.Fatal(err)
	}
	if proc.count() != 1 {
		t.Fatalf("throttle failed, forwarded %d", proc.count())
	}

	other := validSample()
	other.Source = "goes-18"
	if err := p.Process(context.Background(), other); err != nil {
		t.Fatal(err)
	}
	if proc.count() != 2 {
		t.Fatalf("throttle must be per source, forwarded %d", proc.count())
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &stubProc{err: errors.New("backend down")}
	p := NewFluxPipeline(proc, nullMetrics{}, WithBufferSize(4), WithMaxRPS(0))

	if err := p.Process(context.Background(), validSample()); err == nil {
		t.Fatalf("expected downstream error")
	}

	// recovery: flush loop drains the buffered sample
	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for proc.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("buffered sample never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
