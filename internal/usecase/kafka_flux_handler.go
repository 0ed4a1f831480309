package usecase

import (
	"context"
	"encoding/json"
	"time"

	"FlareScope/internal/domain/models"
	domrepo "FlareScope/internal/domain/repository"
	pkgkafka "FlareScope/pkg/kafka"
)

// KafkaFluxHandler consumes flux messages off the bus and writes to storage.
type KafkaFluxHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaFluxHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaFluxHandler {
	return &KafkaFluxHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaFluxHandler) Topic() string { return h.topic }

// incoming message schema: {source, t, short, long}
func (h *KafkaFluxHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Source string  `json:"source"`
		T      int64   `json:"t"`
		Short  float64 `json:"short"`
		Long   float64 `json:"long"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &models.FluxSample{
		Source: m.Source,
		Time:   m.T,
		Short:  m.Short,
		Long:   m.Long,
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", m.Source)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaFluxHandler)(nil)
