package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/clubroster/roster/internal/jobs"
)

// ExpiredTokenPurger deletes refresh token records that can no longer be
// honored. auth.Registry implements it.
type ExpiredTokenPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// RefreshTokenSweepJob removes expired refresh token records on a schedule.
type RefreshTokenSweepJob struct {
	Purger  ExpiredTokenPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewRefreshTokenSweepJob initialises the sweep handler.
func NewRefreshTokenSweepJob(purger ExpiredTokenPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *RefreshTokenSweepJob {
	return &RefreshTokenSweepJob{Purger: purger, Logger: logger, Metrics: metrics}
}

// Handle executes the sweep.
func (j *RefreshTokenSweepJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Purger == nil {
		return errors.New("refresh token sweep: handler not configured")
	}
	var payload RefreshTokenSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.Metrics.Track(TaskRefreshTokenSweep)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.String("job", TaskRefreshTokenSweep), slog.String("source", payload.Source))
	removed, err := j.Purger.DeleteExpired(ctx)
	if err != nil {
		logger.Error("refresh token sweep failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddPurged("refresh_tokens", removed)
	logger.Info("refresh token sweep completed", slog.Int64("removed", removed))
	return nil
}

func (j *RefreshTokenSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
