package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"FlareScope/internal/domain/models"
	drepo "FlareScope/internal/domain/repository"
	mid "FlareScope/internal/middleware"
)

// FluxCollector drives the live flux feed. The stream hands out one pair of
// channels per connected session; when the session dies both channels close,
// the collector reconnects and opens a fresh session. Samples flow through
// the validating pipeline when one is attached, straight to the processor
// otherwise.
type FluxCollector struct {
	stream  drepo.FluxStream
	proc    *FluxProcessor
	metrics drepo.Metrics
	pipe    *mid.FluxPipeline

	started  atomic.Bool
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewFluxCollector creates a new FluxCollector instance.
func NewFluxCollector(stream drepo.FluxStream, proc *FluxProcessor, metrics drepo.Metrics, pipe *mid.FluxPipeline) *FluxCollector {
	return &FluxCollector{
		stream:  stream,
		proc:    proc,
		metrics: metrics,
		pipe:    pipe,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// IsConnected returns true if the flux stream is connected.
func (c *FluxCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects, subscribes, and launches the session loop.
func (c *FluxCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	c.started.Store(true)
	go c.run(ctx)
	return nil
}

// run owns the session lifecycle: read a session to exhaustion, reconnect,
// repeat. It exits only on shutdown.
func (c *FluxCollector) run(ctx context.Context) {
	defer close(c.done)
	for {
		sCh, errCh := c.stream.Read(ctx)
		c.drainSession(ctx, sCh, errCh)

		select {
		case <-ctx.Done():
			return
		case <-c.quit:
			return
		default:
		}
		if !c.reconnect(ctx) {
			return
		}
	}
}

// drainSession consumes one stream session until both channels are closed.
// Closed channels are nil'ed out of the select so a dying session cannot
// spin the loop.
func (c *FluxCollector) drainSession(ctx context.Context, sCh <-chan *models.FluxSample, errCh <-chan error) {
	for sCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return
		case <-c.quit:
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				c.metrics.RecordError("stream")
			}
		case s, ok := <-sCh:
			if !ok {
				sCh = nil
				continue
			}
			if s == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, s)
			} else {
				_ = c.proc.Process(ctx, s)
			}
		}
	}
}

// reconnect retries until the stream is back or shutdown begins. The stream
// paces its own redial delay.
func (c *FluxCollector) reconnect(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-c.quit:
			return false
		default:
		}
		if err := c.stream.Reconnect(ctx); err == nil {
			return true
		}
		c.metrics.RecordError("reconnect")
	}
}

// Stop ends the session loop and closes the stream.
func (c *FluxCollector) Stop() error {
	c.stopOnce.Do(func() { close(c.quit) })
	return c.stream.Close()
}

// Processor returns the underlying FluxProcessor for lifecycle management.
func (c *FluxCollector) Processor() *FluxProcessor { return c.proc }

// Shutdown stops the pipeline, closes the stream, and waits for the session
// loop to exit (bounded by ctx).
func (c *FluxCollector) Shutdown(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.quit) })
	if c.pipe != nil {
		c.pipe.Stop()
	}
	err := c.stream.Close()
	if c.started.Load() {
		select {
		case <-c.done:
		case <-ctx.Done():
		}
	}
	return err
}
