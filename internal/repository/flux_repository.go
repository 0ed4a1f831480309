package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FlareScope/internal/domain/models"
	"FlareScope/internal/domain/repository"
	pkgkafka "FlareScope/pkg/kafka"
)

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseStorage creates ClickHouse storage for flux samples.
func NewClickHouseStorage(db *sql.DB, table string) repository.Storage {
	return &ClickHouseStorage{db: db, table: table}
}

// Init ensures the raw-flux table exists (idempotent).
func (s *ClickHouseStorage) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ts DateTime,
            source LowCardinality(String),
            flux_short Float64,
            flux_long Float64,
            event_id String
        ) ENGINE = ReplacingMergeTree
        PARTITION BY toYYYYMMDD(ts)
        ORDER BY (source, ts, event_id)
        TTL ts + INTERVAL 30 DAY
    `, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("init flux table: %w", err)
	}
	return nil
}

func (s *ClickHouseStorage) Store(ctx context.Context, f *models.FluxSample) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, source, flux_short, flux_long, event_id) VALUES (?, ?, ?, ?, ?)", s.table)
	// Idempotency key derived from source+timestamp; ReplacingMergeTree
	// collapses re-delivered rows.
	eventID := fmt.Sprintf("%s-%d", f.Source, f.Time)
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(f.Time, 0),
		f.Source,
		f.Short,
		f.Long,
		eventID,
	)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, samples []*models.FluxSample) error {
	if len(samples) == 0 {
		return nil
	}
	// Multi-row VALUES to reduce round-trips. Chunk size tuned to 2000 rows.
	const chunkSize = 2000
	for start := 0; start < len(samples); start += chunkSize {
		end := start + chunkSize
		if end > len(samples) {
			end = len(samples)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, f := range samples[start:end] {
			if f == nil || f.Source == "" || f.Time == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args,
				time.Unix(f.Time, 0),
				f.Source,
				f.Short,
				f.Long,
				fmt.Sprintf("%s-%d", f.Source, f.Time),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, source, flux_short, flux_long, event_id) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// RecentSeries returns up to n of the latest samples for a source as
// chronological (short, long) feature rows.
func (s *ClickHouseStorage) RecentSeries(ctx context.Context, source string, n int) (models.TimeSeries, error) {
	q := fmt.Sprintf("SELECT flux_short, flux_long FROM %s WHERE source = ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, source, n)
	if err != nil {
		return nil, fmt.Errorf("recent series: %w", err)
	}
	defer rows.Close()

	series := make(models.TimeSeries, 0, n)
	for rows.Next() {
		var short, long float64
		if err := rows.Scan(&short, &long); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		series = append(series, []float64{short, long})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(series)-1; i < j; i, j = i+1, j-1 {
		series[i], series[j] = series[j], series[i]
	}
	return series, nil
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer      *pkgkafka.Producer
	fluxTopic     string
	analysisTopic string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, fluxTopic, analysisTopic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, fluxTopic: fluxTopic, analysisTopic: analysisTopic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, f *models.FluxSample) error {
	return p.producer.Publish(ctx, p.fluxTopic, []byte(f.Source), map[string]interface{}{
		"source": f.Source,
		"t":      f.Time,
		"short":  f.Short,
		"long":   f.Long,
	})
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, samples []*models.FluxSample) error {
	if len(samples) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(samples))
	for i, f := range samples {
		msgs[i] = pkgkafka.Message{
			Key: []byte(f.Source),
			Value: map[string]interface{}{
				"source": f.Source,
				"t":      f.Time,
				"short":  f.Short,
				"long":   f.Long,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.fluxTopic, msgs)
}

// PublishAnalysis emits a completed analysis result keyed by source.
func (p *KafkaPublisher) PublishAnalysis(ctx context.Context, source string, result *models.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("analysis result is nil")
	}
	return p.producer.Publish(ctx, p.analysisTopic, []byte(source), result)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
