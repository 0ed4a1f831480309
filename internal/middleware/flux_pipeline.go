package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FlareScope/internal/domain/models"
	domrepo "FlareScope/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, s *models.FluxSample) error
}

// FluxPipeline sits between the WebSocket feed and the backend. It
// validates, throttles per source, and buffers samples when downstream is
// unavailable.
type FluxPipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.FluxSample
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-source last accepted time

	bufDepthGauge func(int)
	throttleWarn  func(string)
}

type PipelineOption func(*FluxPipeline)

// WithMaxRPS sets the max samples per second per source.
func WithMaxRPS(n int) PipelineOption {
	return func(p *FluxPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *FluxPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewFluxPipeline creates a new pipeline.
func NewFluxPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *FluxPipeline {
	p := &FluxPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,   // default throttle per source
		bufSize:  1000, // default buffer
		bufCh:    make(chan *models.FluxSample, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.FluxSample, p.bufSize)
	}
	p.bufDepthGauge = func(n int) { p.metrics.RecordLatency("pipeline_buffer_depth", float64(n)) }
	p.throttleWarn = func(src string) { p.metrics.RecordError("pipeline_throttle_" + src) }
	return p
}

// Start launches background flushing of buffered samples.
func (p *FluxPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case s := <-p.bufCh:
				if s == nil {
					continue
				}
				if err := p.proc.Process(ctx, s); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- s:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *FluxPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards a sample downstream, buffering
// on errors.
func (p *FluxPipeline) Process(ctx context.Context, s *models.FluxSample) error {
	start := time.Now()
	if err := validateSample(s); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(s.Source, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		if p.throttleWarn != nil {
			p.throttleWarn(s.Source)
		}
		return nil
	}

	if err := p.proc.Process(ctx, s); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- s:
			if p.bufDepthGauge != nil {
				p.bufDepthGauge(len(p.bufCh))
			}
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateSample(s *models.FluxSample) error {
	if s == nil {
		return fmt.Errorf("sample nil")
	}
	if s.Source == "" {
		return fmt.Errorf("source empty")
	}
	if s.Time <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if s.Short < 0 || s.Long < 0 {
		return fmt.Errorf("negative flux")
	}
	return nil
}

func (p *FluxPipeline) allow(source string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[source]
	if last.IsZero() {
		p.lastSeen[source] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[source] = now
	return true
}
