package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/obralink/obralink/internal/installments"
	"github.com/obralink/obralink/internal/observability"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInstallmentsOverdue flips pending installments past their due
	// date to overdue.
	TaskInstallmentsOverdue = "installments:mark_overdue"
)

// NewMarkOverdueTask constructs the overdue-marking task. It carries no
// payload; the handler works from the clock.
func NewMarkOverdueTask() *asynq.Task {
	return asynq.NewTask(TaskInstallmentsOverdue, nil)
}

// NewMarkOverdueHandler processes TaskInstallmentsOverdue tasks.
func NewMarkOverdueHandler(service *installments.Service, logger *slog.Logger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		marked, err := service.MarkOverdue(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("overdue marking failed", slog.Any("error", err))
			metrics.ObserveJob(TaskInstallmentsOverdue, "error")
			return err
		}
		logger.Info("overdue marking complete", slog.Int64("marked", marked))
		metrics.ObserveJob(TaskInstallmentsOverdue, "ok")
		return nil
	}
}
