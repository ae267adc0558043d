package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRefreshTokenSweep purges refresh token records past their expiry.
	TaskRefreshTokenSweep = "auth:refresh_tokens:sweep"
)

// RefreshTokenSweepPayload carries the trigger source for audit logging.
type RefreshTokenSweepPayload struct {
	Source string `json:"source"`
}

// NewRefreshTokenSweepTask constructs an Asynq task for the sweep.
func NewRefreshTokenSweepTask(source string) (*asynq.Task, error) {
	if source == "" {
		source = "cron"
	}
	data, err := json.Marshal(RefreshTokenSweepPayload{Source: source})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefreshTokenSweep, data), nil
}
