package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	svccache "FlareScope/internal/service/cache"
	applogger "FlareScope/pkg/logger"
	"FlareScope/pkg/queue"
)

// AnalysisJobType is the queue message type for deferred analyses.
const AnalysisJobType = "analysis.run"

// AnalysisJobPayload is the queued work item for a deferred analysis.
type AnalysisJobPayload struct {
	JobID       string    `json:"job_id"`
	Path        string    `json:"path"`
	RequestedAt time.Time `json:"requested_at"`
}

// AnalysisJob runs deferred analyses off the redis queue and parks the
// finished envelope in the result cache under the job id.
type AnalysisJob struct {
	analyzer *FlareAnalyzer
	cache    svccache.BytesCache
	ttl      time.Duration
	logger   *applogger.Logger
}

func NewAnalysisJob(analyzer *FlareAnalyzer, cache svccache.BytesCache, ttl time.Duration, lgr *applogger.Logger) *AnalysisJob {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AnalysisJob{analyzer: analyzer, cache: cache, ttl: ttl, logger: lgr}
}

func (j *AnalysisJob) Name() string { return "deferred-analysis" }
func (j *AnalysisJob) Type() string { return AnalysisJobType }

func (j *AnalysisJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[AnalysisJobPayload](payload)
	if err != nil {
		return fmt.Errorf("analysis job payload: %w", err)
	}
	if p.JobID == "" || p.Path == "" {
		return fmt.Errorf("analysis job payload incomplete: id=%q path=%q", p.JobID, p.Path)
	}

	outcome := j.analyzer.AnalyzeFile(ctx, p.Path)
	// The upload was staged to a temp file just for this job.
	defer os.Remove(p.Path)

	b, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	if err := j.cache.SetBytes(JobResultKey(p.JobID), b, j.ttl); err != nil {
		return fmt.Errorf("cache result: %w", err)
	}

	j.logger.Info("deferred analysis complete",
		applogger.String("job_id", p.JobID),
		applogger.String("path", p.Path),
		applogger.Duration("queue_delay_ms", time.Since(p.RequestedAt)))
	return nil
}

// JobResultKey is the cache key holding a finished deferred analysis.
func JobResultKey(jobID string) string {
	return "analysis:job:" + jobID
}

var _ queue.Job = (*AnalysisJob)(nil)
