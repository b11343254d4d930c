// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	businessflow "github.com/amirphl/Gashadokuro/business_flow"
	"github.com/amirphl/Gashadokuro/config"
	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Queue depth by status, refreshed on every drain pass
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provisioning_queue_depth",
			Help: "Number of provisioning tasks per status",
		},
		[]string{"status"},
	)

	// Terminal task outcomes
	taskOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioning_tasks_total",
			Help: "Total number of provisioning tasks finalized, partitioned by outcome",
		},
		[]string{"outcome"},
	)

	// Wall time spent provisioning a single task
	taskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provisioning_task_duration_seconds",
			Help:    "Provisioning task processing latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// NumberProvisioner is the minimal surface the worker needs from the
// provisioning flow. This keeps the worker independent and easy to test.
type NumberProvisioner interface {
	ProvisionNumber(ctx context.Context, task *models.ProvisioningTask) error
}

// ProvisioningWorker drains the provisioning queue on a fixed interval and
// drives each claimed task through the provisioning flow.
type ProvisioningWorker struct {
	taskRepo    repository.ProvisioningTaskRepository
	provisioner NumberProvisioner
	logger      *log.Logger
	interval    time.Duration
	taskTimeout time.Duration
}

func NewProvisioningWorker(
	taskRepo repository.ProvisioningTaskRepository,
	provisioner NumberProvisioner,
	cfg config.SchedulerConfig,
) *ProvisioningWorker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	taskTimeout := cfg.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = time.Minute
	}

	w := &ProvisioningWorker{
		taskRepo:    taskRepo,
		provisioner: provisioner,
		interval:    interval,
		taskTimeout: taskTimeout,
	}
	w.initWorkerLogger(cfg.LogPath)

	return w
}

// initWorkerLogger configures a logger that writes to both stdout and a
// size-rotated file so provisioning history survives restarts
func (w *ProvisioningWorker) initWorkerLogger(logPath string) {
	if logPath == "" {
		logPath = "data/provisioning_worker.log"
	}
	rotated := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	mw := io.MultiWriter(os.Stdout, rotated)
	// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
	w.logger = log.New(mw, "provisioning_worker ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the worker loop in a background goroutine and returns a stop function
func (w *ProvisioningWorker) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.drainQueue(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.drainQueue(ctx)
			}
		}
	}()

	return cancel
}

// drainQueue claims and processes tasks until the queue is empty or the
// context is canceled. Priority and FIFO order are enforced by the claim
// query, so processing one task at a time keeps ordering observable.
func (w *ProvisioningWorker) drainQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := w.taskRepo.ClaimNext(ctx)
		if err != nil {
			w.logger.Printf("worker: claim next task failed: %v", err)
			break
		}
		if task == nil {
			break
		}

		w.processTask(ctx, task)
	}

	w.reportQueueDepth(ctx)
}

func (w *ProvisioningWorker) processTask(ctx context.Context, task *models.ProvisioningTask) {
	taskCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()

	start := time.Now()
	err := w.provisioner.ProvisionNumber(taskCtx, task)
	taskDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		// The number was handled by the direct call or an operator requeue
		// while this task waited in the queue. Close the task; a failure
		// entry here would be noise in the operator report.
		if businessflow.IsAlreadyProvisioned(err) || businessflow.IsProvisioningInProgress(err) {
			taskOutcomes.WithLabelValues("skipped").Inc()
			w.logger.Printf("worker: task uuid=%s number_id=%d superseded: %v", task.UUID, task.PurchasedNumberID, err)
			if markErr := w.taskRepo.MarkCompleted(ctx, task.ID); markErr != nil {
				w.logger.Printf("worker: mark completed for task uuid=%s: %v", task.UUID, markErr)
			}
			return
		}

		taskOutcomes.WithLabelValues("failed").Inc()
		w.logger.Printf("worker: task uuid=%s number_id=%d failed: %v", task.UUID, task.PurchasedNumberID, err)
		if markErr := w.taskRepo.MarkFailed(ctx, task.ID, err.Error()); markErr != nil {
			w.logger.Printf("worker: mark failed for task uuid=%s: %v", task.UUID, markErr)
		}
		return
	}

	taskOutcomes.WithLabelValues("completed").Inc()
	w.logger.Printf("worker: task uuid=%s number_id=%d completed", task.UUID, task.PurchasedNumberID)
	if markErr := w.taskRepo.MarkCompleted(ctx, task.ID); markErr != nil {
		w.logger.Printf("worker: mark completed for task uuid=%s: %v", task.UUID, markErr)
	}
}

func (w *ProvisioningWorker) reportQueueDepth(ctx context.Context) {
	statuses := []models.ProvisioningTaskStatus{
		models.ProvisioningTaskStatusQueued,
		models.ProvisioningTaskStatusInProgress,
		models.ProvisioningTaskStatusCompleted,
		models.ProvisioningTaskStatusFailed,
	}
	for _, status := range statuses {
		count, err := w.taskRepo.CountByStatus(ctx, status)
		if err != nil {
			w.logger.Printf("worker: count tasks status=%s failed: %v", status, err)
			continue
		}
		queueDepth.WithLabelValues(string(status)).Set(float64(count))
	}
}
