package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/tripora/tripora/internal/authz"
	"github.com/tripora/tripora/internal/shared"
	jobmetrics "github.com/tripora/tripora/internal/jobs"
)

// CacheWarmupJob pre-resolves permission sets for recently active accounts so
// the first request after a deploy does not pay the resolution cost.
type CacheWarmupJob struct {
	Authz   *authz.Service
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewCacheWarmupJob wires dependencies for the warmup handler.
func NewCacheWarmupJob(authzSvc *authz.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheWarmupJob {
	return &CacheWarmupJob{
		Authz:   authzSvc,
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewCacheWarmupTask constructs the scheduler task.
func NewCacheWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeCacheWarmup, nil)
}

// Handle resolves permissions for accounts seen within the last day.
func (j *CacheWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Authz == nil {
		return errors.New("cache warmup: handler not configured")
	}

	tracker := j.metrics().Track(TaskTypeCacheWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	ids, err := j.fetchActiveAccounts(ctx, start.Add(-24*time.Hour))
	if err != nil {
		resultErr = err
		j.logger().Error("load active accounts", slog.Any("error", err))
		return resultErr
	}
	if len(ids) == 0 {
		j.logger().Info("no accounts to warm")
		return resultErr
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for _, id := range ids {
		group.Go(func() error {
			if _, err := j.Authz.ResolvePermissions(groupCtx, id); err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		resultErr = err
		j.logger().Error("warm permissions", slog.Any("error", err))
		return resultErr
	}

	j.logger().Info("cache warmup completed", slog.Int("accounts", len(ids)), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *CacheWarmupJob) fetchActiveAccounts(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	if j.Pool == nil {
		return nil, errors.New("cache warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `
		SELECT id FROM accounts
		WHERE is_active = TRUE AND last_login_at >= $1
		ORDER BY last_login_at DESC
		LIMIT 500
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (j *CacheWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeCacheWarmup))
	}
	return slog.Default().With(slog.String("job", TaskTypeCacheWarmup))
}

func (j *CacheWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CacheWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
