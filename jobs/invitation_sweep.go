package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/tripora/tripora/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// InvitationSweepJob clears invitation tokens that were never redeemed.
type InvitationSweepJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewInvitationSweepJob wires dependencies for the sweep handler.
func NewInvitationSweepJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvitationSweepJob {
	return &InvitationSweepJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewInvitationSweepTask constructs the scheduler task.
func NewInvitationSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeInvitationSweep, nil)
}

// Handle expires stale invitations in a single statement.
func (j *InvitationSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("invitation sweep: handler not configured")
	}

	tracker := j.metrics().Track(TaskTypeInvitationSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	now := j.now()
	tag, err := j.Pool.Exec(ctx, `
		UPDATE accounts
		SET invitation_token = NULL, invitation_expiry = NULL, updated_at = NOW()
		WHERE invitation_token IS NOT NULL AND invitation_expiry < $1
	`, now)
	if err != nil {
		resultErr = err
		j.logger().Error("expire invitations", slog.Any("error", err))
		return resultErr
	}

	j.logger().Info("invitation sweep completed", slog.Int64("expired", tag.RowsAffected()))
	return resultErr
}

func (j *InvitationSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeInvitationSweep))
	}
	return slog.Default().With(slog.String("job", TaskTypeInvitationSweep))
}

func (j *InvitationSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *InvitationSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
