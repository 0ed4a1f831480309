package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FlareScope/internal/domain/models"
)

// scriptedStream plays one failing session followed by a healthy one, the
// shape of a relay drop and redial.
type scriptedStream struct {
	mu         sync.Mutex
	reads      int
	reconnects int
	connected  bool
}

func (s *scriptedStream) Connect(context.Context) error {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

func (s *scriptedStream) Subscribe(context.Context) error { return nil }

func (s *scriptedStream) Read(ctx context.Context) (<-chan *models.FluxSample, <-chan error) {
	s.mu.Lock()
	s.reads++
	n := s.reads
	s.mu.Unlock()

	samples := make(chan *models.FluxSample, 4)
	errs := make(chan error, 1)
	if n == 1 {
		// first session delivers one sample and dies
		samples <- &models.FluxSample{Source: "goes-16", Time: 1700000000, Short: 0.5, Long: 0.7}
		errs <- errors.New("connection reset")
		close(samples)
		close(errs)
		return samples, errs
	}

	// the reconnected session delivers and then stays open until shutdown
	samples <- &models.FluxSample{Source: "goes-16", Time: 1700000060, Short: 0.6, Long: 0.8}
	go func() {
		<-ctx.Done()
		close(samples)
		close(errs)
	}()
	return samples, errs
}

func (s *scriptedStream) Reconnect(context.Context) error {
	s.mu.Lock()
	s.reconnects++
	s.mu.Unlock()
	return nil
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	return nil
}

func (s *scriptedStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *scriptedStream) counts() (reads, reconnects int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.reconnects
}

// lockedStore is a goroutine-safe Storage stub for the collector path.
type lockedStore struct {
	mu      sync.Mutex
	samples []*models.FluxSample
}

func (s *lockedStore) Init(context.Context) error { return nil }

func (s *lockedStore) Store(_ context.Context, sample *models.FluxSample) error {
	s.mu.Lock()
	s.samples = append(s.samples, sample)
	s.mu.Unlock()
	return nil
}

func (s *lockedStore) StoreBatch(ctx context.Context, samples []*models.FluxSample) error {
	for _, sm := range samples {
		if err := s.Store(ctx, sm); err != nil {
			return err
		}
	}
	return nil
}

func (s *lockedStore) RecentSeries(context.Context, string, int) (models.TimeSeries, error) {
	return nil, nil
}

func (s *lockedStore) Health(context.Context) error { return nil }
func (s *lockedStore) Close() error                 { return nil }

func (s *lockedStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

func TestCollectorResumesReadingAfterReconnect(t *testing.T) {
	stream := &scriptedStream{}
	store := &lockedStore{}
	proc := NewFluxProcessor(nil, store, newCountingMetrics(), "clickhouse", 10, time.Second)
	c := NewFluxCollector(stream, proc, newCountingMetrics(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}

	// both the pre-failure and post-reconnect samples must land
	deadline := time.After(2 * time.Second)
	for store.count() < 2 {
		select {
		case <-deadline:
			reads, reconnects := stream.counts()
			t.Fatalf("stored %d samples after reads=%d reconnects=%d", store.count(), reads, reconnects)
		case <-time.After(10 * time.Millisecond):
		}
	}

	reads, reconnects := stream.counts()
	if reconnects != 1 {
		t.Fatalf("reconnects = %d, want 1", reconnects)
	}
	if reads < 2 {
		t.Fatalf("read sessions = %d, want a fresh session after reconnect", reads)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	if err := c.Shutdown(shutdownCtx); err != nil {
		t.Fatal(err)
	}
	if stream.IsConnected() {
		t.Fatalf("stream still connected after shutdown")
	}
}
