package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FlareScope/internal/domain/models"
	domrepo "FlareScope/internal/domain/repository"
	pkgch "FlareScope/pkg/clickhouse"
	applogger "FlareScope/pkg/logger"
)

// CHAnalysisStore archives one summary row per analysis run in ClickHouse.
type CHAnalysisStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHAnalysisStore(ch *pkgch.Client, table string) *CHAnalysisStore {
	return &CHAnalysisStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHAnalysisStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init ensures the analysis-runs table exists (idempotent).
func (s *CHAnalysisStore) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ts DateTime,
            source String,
            total_flares UInt32,
            nanoflare_count UInt32,
            power_law_index Float64,
            total_energy Float64,
            data_points UInt32,
            model_version String
        ) ENGINE = MergeTree
        PARTITION BY toYYYYMM(ts)
        ORDER BY (source, ts)
    `, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("init analysis table: %w", err)
	}
	return nil
}

func (s *CHAnalysisStore) StoreRun(ctx context.Context, source string, result *models.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("analysis result is nil")
	}
	start := time.Now()
	q := fmt.Sprintf(`
        INSERT INTO %s (ts, source, total_flares, nanoflare_count, power_law_index, total_energy, data_points, model_version)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `, s.table)
	_, err := s.db.ExecContext(ctx, q,
		time.Now().UTC(),
		source,
		uint32(result.Statistics.TotalFlares),
		uint32(result.Statistics.NanoflareCount),
		result.Statistics.PowerLawIndex,
		result.Statistics.TotalEnergy,
		uint32(result.Metadata.DataPoints),
		result.Metadata.ModelVersion,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store_run insert error",
				applogger.String("table", s.table),
				applogger.String("source", source),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store run: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse store_run ok",
			applogger.String("table", s.table),
			applogger.String("source", source),
			applogger.Int("total_flares", result.Statistics.TotalFlares),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

var _ domrepo.AnalysisStore = (*CHAnalysisStore)(nil)
