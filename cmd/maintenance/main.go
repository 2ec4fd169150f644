// Package main is the entrypoint for the maintenance Lambda function.
//
// EventBridge rules send a MaintenancePayload naming the task, and the
// handler routes it to the matching scheduler service:
//  1. Parse and validate the payload.
//  2. Acquire a job lock keyed by task and reference hour.
//  3. Record job start in job_history.
//  4. Dispatch the task.
//  5. Record completion. On failure the lock is released so a retry can run.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"commercekit/internal/app"
	"commercekit/internal/config"
	"commercekit/internal/db"
	"commercekit/internal/scheduler"
	"commercekit/internal/types"
)

// lockTTL covers the Lambda timeout with margin.
const lockTTL = 15 * time.Minute

// Job history statuses.
const (
	statusSuccess = "success"
	statusFailed  = "failed"
	statusSkipped = "skipped"
)

// UsageResetService runs the monthly counter reset.
type UsageResetService interface {
	ResetMonthly(ctx context.Context, now time.Time, force bool) (int64, bool, error)
}

// CommerceCacheService refreshes or clears the commerce caches.
type CommerceCacheService interface {
	Refresh(ctx context.Context) (scheduler.RefreshResult, error)
	Clear(ctx context.Context) error
}

// ServiceRegistry holds the services the handler routes to.
type ServiceRegistry struct {
	Usage    UsageResetService
	Commerce CommerceCacheService
}

// JobLocker abstracts the distributed lock.
type JobLocker interface {
	Acquire(ctx context.Context, lockID string, workerID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, lockID string, workerID string) error
}

// JobHistorian abstracts job history recording.
type JobHistorian interface {
	Start(ctx context.Context, jobType string) (int64, error)
	Finish(ctx context.Context, id int64, status string, items int, err error) error
}

// Handler holds the dependencies for the maintenance handler.
type Handler struct {
	Services   ServiceRegistry
	JobLock    JobLocker
	JobHistory JobHistorian
	WorkerID   string
	Clock      types.Clock
	Logger     *slog.Logger
}

// taskOutcome is what a dispatched task reports back for job history.
type taskOutcome struct {
	items   int
	skipped bool
}

// Handle processes one maintenance event.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) (string, error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	payload, err := scheduler.ParsePayload(raw)
	if err != nil {
		logger.ErrorContext(ctx, "rejecting maintenance payload", "error", err)
		return "", err
	}

	now := h.now()
	if payload.ReferenceTime != nil {
		now = payload.ReferenceTime.UTC()
	}
	task := string(payload.Task)
	ctx = types.WithRequestID(ctx, uuid.NewString())

	logger.InfoContext(ctx, "maintenance handler invoked",
		"task", task,
		"reference_time", now.Format(time.RFC3339),
		"force", payload.Force,
		"worker_id", h.WorkerID,
		"request_id", types.GetRequestID(ctx),
	)

	lockID := fmt.Sprintf("%s:%s", payload.Task, now.Truncate(time.Hour).Format("2006-01-02T15"))
	acquired, err := h.JobLock.Acquire(ctx, lockID, h.WorkerID, lockTTL)
	if err != nil {
		logger.ErrorContext(ctx, "failed to acquire job lock", "lock_id", lockID, "error", err)
		return "", fmt.Errorf("acquiring job lock %s: %w", lockID, err)
	}
	if !acquired {
		logger.InfoContext(ctx, "job lock not acquired, another worker is processing", "lock_id", lockID)
		return fmt.Sprintf("skipped: lock %s held by another worker", lockID), nil
	}

	jobID, err := h.JobHistory.Start(ctx, task)
	if err != nil {
		// Non-fatal; jobID=0 skips Finish.
		logger.ErrorContext(ctx, "failed to start job history", "task", task, "error", err)
		jobID = 0
	}

	outcome, execErr := h.dispatch(ctx, payload, now)

	status := statusSuccess
	switch {
	case execErr != nil:
		status = statusFailed
	case outcome.skipped:
		status = statusSkipped
	}

	if jobID != 0 {
		if finishErr := h.JobHistory.Finish(ctx, jobID, status, outcome.items, execErr); finishErr != nil {
			logger.ErrorContext(ctx, "failed to finish job history",
				"job_id", jobID,
				"task", task,
				"error", finishErr,
			)
		}
	}

	if execErr != nil {
		if relErr := h.JobLock.Release(ctx, lockID, h.WorkerID); relErr != nil {
			logger.WarnContext(ctx, "failed to release job lock", "lock_id", lockID, "error", relErr)
		}
		logger.ErrorContext(ctx, "task execution failed", "task", task, "error", execErr)
		return "", fmt.Errorf("task %s failed: %w", task, execErr)
	}

	if outcome.skipped {
		return fmt.Sprintf("task %s skipped: outside schedule window", task), nil
	}

	result := fmt.Sprintf("task %s complete: %d items processed", task, outcome.items)
	logger.InfoContext(ctx, result, "task", task, "items", outcome.items)
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, p scheduler.MaintenancePayload, now time.Time) (taskOutcome, error) {
	switch p.Task {
	case scheduler.TaskResetUsage:
		users, ran, err := h.Services.Usage.ResetMonthly(ctx, now, p.Force)
		return taskOutcome{items: int(users), skipped: !ran}, err

	case scheduler.TaskRefreshCommerce:
		res, err := h.Services.Commerce.Refresh(ctx)
		return taskOutcome{items: res.PagesWarmed + res.ProductsMarked}, err

	case scheduler.TaskClearCommerce:
		return taskOutcome{}, h.Services.Commerce.Clear(ctx)

	default:
		return taskOutcome{}, fmt.Errorf("unknown task type: %q", p.Task)
	}
}

func (h *Handler) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock.Now().UTC()
}

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(config.NewFileSecretProvider(""))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogLevel, os.Stdout)
	logger.Info("maintenance Lambda initializing (cold start)", "version", cfg.Build.Version)

	a, err := app.New(ctx, cfg, logger, app.Options{Store: app.BackendPostgres, EnsureSchema: true})
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	workerID := uuid.New().String()
	handler := &Handler{
		Services: ServiceRegistry{
			Usage:    a.Resetter,
			Commerce: a.Refresher,
		},
		JobLock:    db.NewJobLockRepository(a.Pool, a.Clock),
		JobHistory: db.NewJobHistoryRepository(a.Pool),
		WorkerID:   workerID,
		Clock:      a.Clock,
		Logger:     logger,
	}

	logger.Info("maintenance Lambda initialized", "worker_id", workerID)
	lambda.Start(handler.Handle)
}
