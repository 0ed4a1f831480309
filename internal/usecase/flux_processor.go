package usecase

import (
	"context"
	"fmt"
	"time"

	"FlareScope/internal/domain/models"
	drepo "FlareScope/internal/domain/repository"
)

// defaultChunk bounds one backend delivery when no batch size is configured.
const defaultChunk = 500

// FluxProcessor delivers flux samples to the configured backend: the message
// bus when backend is "kafka", the sample store when "clickhouse". Batches
// are split into bounded chunks and every delivery runs under the configured
// timeout.
type FluxProcessor struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
	chunk   int
	timeout time.Duration
}

// NewFluxProcessor creates a new FluxProcessor instance.
func NewFluxProcessor(
	pub drepo.Publisher,
	store drepo.Storage,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *FluxProcessor {
	if batchSz <= 0 {
		batchSz = defaultChunk
	}
	return &FluxProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		chunk:   batchSz,
		timeout: batchTO,
	}
}

// Process delivers a single sample.
func (p *FluxProcessor) Process(ctx context.Context, s *models.FluxSample) error {
	if s == nil {
		return fmt.Errorf("sample is nil")
	}
	err := p.deliver(ctx, "process", func(ctx context.Context) error {
		switch p.backend {
		case "kafka":
			return p.pub.Publish(ctx, s)
		case "clickhouse":
			return p.store.Store(ctx, s)
		}
		return fmt.Errorf("unknown backend: %s", p.backend)
	})
	if err != nil {
		return fmt.Errorf("process sample: %w", err)
	}
	p.metrics.RecordMessageSent(p.backend, s.Source)
	return nil
}

// ProcessBatch delivers samples in chunks of the configured batch size.
func (p *FluxProcessor) ProcessBatch(ctx context.Context, samples []*models.FluxSample) error {
	for start := 0; start < len(samples); start += p.chunk {
		end := start + p.chunk
		if end > len(samples) {
			end = len(samples)
		}
		chunk := samples[start:end]

		err := p.deliver(ctx, "process_batch", func(ctx context.Context) error {
			switch p.backend {
			case "kafka":
				return p.pub.PublishBatch(ctx, chunk)
			case "clickhouse":
				return p.store.StoreBatch(ctx, chunk)
			}
			return fmt.Errorf("unknown backend: %s", p.backend)
		})
		if err != nil {
			return fmt.Errorf("process batch: %w", err)
		}
		for _, s := range chunk {
			p.metrics.RecordMessageSent(p.backend, s.Source)
		}
	}
	return nil
}

// deliver runs one backend call under the delivery timeout and records the
// outcome.
func (p *FluxProcessor) deliver(ctx context.Context, op string, fn func(context.Context) error) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	start := time.Now()
	if err := fn(ctx); err != nil {
		p.metrics.RecordError(op)
		return err
	}
	p.metrics.RecordLatency(op, time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *FluxProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
