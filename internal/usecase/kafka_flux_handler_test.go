package usecase

import (
	"context"
	"errors"
	"testing"

	"FlareScope/internal/domain/models"
)

type memStorage struct {
	samples    []*models.FluxSample
	batchCalls int
	fail       bool
}

func (s *memStorage) Init(context.Context) error { return nil }
func (s *memStorage) Store(_ context.Context, sample *models.FluxSample) error {
	if s.fail {
		return errors.New("insert failed")
	}
	s.samples = append(s.samples, sample)
	return nil
}
func (s *memStorage) StoreBatch(ctx context.Context, samples []*models.FluxSample) error {
	s.batchCalls++
	for _, sm := range samples {
		if err := s.Store(ctx, sm); err != nil {
			return err
		}
	}
	return nil
}
func (s *memStorage) RecentSeries(context.Context, string, int) (models.TimeSeries, error) {
	series := make(models.TimeSeries, 0, len(s.samples))
	for _, sm := range s.samples {
		series = append(series, []float64{sm.Short, sm.Long})
	}
	return series, nil
}
func (s *memStorage) Health(context.Context) error { return nil }
func (s *memStorage) Close() error                 { return nil }

func TestKafkaFluxHandlerStoresSample(t *testing.T) {
	store := &memStorage{}
	h := NewKafkaFluxHandler("goes-flux", store, newCountingMetrics())

	if h.Topic() != "goes-flux" {
		t.Fatalf("topic %q", h.Topic())
	}
	msg := []byte(`{"source":"goes-16","t":1700000000,"short":0.5,"long":0.7}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if len(store.samples) != 1 {
		t.Fatalf("stored %d samples", len(store.samples))
	}
	s := store.samples[0]
	if s.Source != "goes-16" || s.Time != 1700000000 || s.Short != 0.5 || s.Long != 0.7 {
		t.Fatalf("sample %+v", s)
	}
}

func TestKafkaFluxHandlerNormalizesMilliseconds(t *testing.T) {
	store := &memStorage{}
	h := NewKafkaFluxHandler("goes-flux", store, newCountingMetrics())

	msg := []byte(`{"source":"goes-18","t":1700000000000,"short":0.1,"long":0.2}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if store.samples[0].Time != 1700000000 {
		t.Fatalf("time not normalized to seconds: %d", store.samples[0].Time)
	}
}

func TestKafkaFluxHandlerErrors(t *testing.T) {
	metrics := newCountingMetrics()
	h := NewKafkaFluxHandler("goes-flux", &memStorage{}, metrics)
	if err := h.Handle(context.Background(), []byte("not json")); err == nil {
		t.Fatalf("expected unmarshal error")
	}
	if metrics.errors["consumer_unmarshal"] != 1 {
		t.Fatalf("unmarshal error not recorded: %v", metrics.errors)
	}

	h = NewKafkaFluxHandler("goes-flux", &memStorage{fail: true}, metrics)
	msg := []byte(`{"source":"goes-16","t":1700000000,"short":0.5,"long":0.7}`)
	if err := h.Handle(context.Background(), msg); err == nil {
		t.Fatalf("expected store error")
	}
	if metrics.errors["consumer_store"] != 1 {
		t.Fatalf("store error not recorded: %v", metrics.errors)
	}
}
