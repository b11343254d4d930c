package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	businessflow "github.com/amirphl/Gashadokuro/business_flow"
	"github.com/amirphl/Gashadokuro/config"
	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// stubProvisioner returns a fixed outcome for every task
type stubProvisioner struct {
	err   error
	calls int
}

func (s *stubProvisioner) ProvisionNumber(ctx context.Context, task *models.ProvisioningTask) error {
	s.calls++
	return s.err
}

// stubTaskRepo records task finalizations
type stubTaskRepo struct {
	repository.ProvisioningTaskRepository
	completed []uint
	failed    map[uint]string
}

func (s *stubTaskRepo) MarkCompleted(ctx context.Context, taskID uint) error {
	s.completed = append(s.completed, taskID)
	return nil
}

func (s *stubTaskRepo) MarkFailed(ctx context.Context, taskID uint, reason string) error {
	if s.failed == nil {
		s.failed = map[uint]string{}
	}
	s.failed[taskID] = reason
	return nil
}

func newTestWorker(t *testing.T, provisioner NumberProvisioner, taskRepo repository.ProvisioningTaskRepository) *ProvisioningWorker {
	t.Helper()
	cfg := config.SchedulerConfig{
		Interval:    time.Minute,
		TaskTimeout: time.Second,
		LogPath:     filepath.Join(t.TempDir(), "worker.log"),
	}
	return NewProvisioningWorker(taskRepo, provisioner, cfg)
}

func testTask(id uint) *models.ProvisioningTask {
	return &models.ProvisioningTask{
		ID:                id,
		UUID:              uuid.New(),
		PurchasedNumberID: 3,
		Operation:         models.ProvisioningOperationProvision,
		Status:            models.ProvisioningTaskStatusInProgress,
	}
}

func TestProcessTask(t *testing.T) {
	t.Run("SuccessCompletes", func(t *testing.T) {
		repo := &stubTaskRepo{}
		worker := newTestWorker(t, &stubProvisioner{}, repo)

		worker.processTask(context.Background(), testTask(7))

		assert.Equal(t, []uint{7}, repo.completed)
		assert.Empty(t, repo.failed)
	})

	t.Run("ProviderFailureRecordsReason", func(t *testing.T) {
		repo := &stubTaskRepo{}
		worker := newTestWorker(t, &stubProvisioner{err: errors.New("provider returned 503")}, repo)

		worker.processTask(context.Background(), testTask(7))

		assert.Empty(t, repo.completed)
		assert.Equal(t, "provider returned 503", repo.failed[7])
	})

	t.Run("AlreadyProvisionedClosesTask", func(t *testing.T) {
		repo := &stubTaskRepo{}
		err := businessflow.NewBusinessError("ALREADY_PROVISIONED", "number is already provisioned", businessflow.ErrAlreadyProvisioned)
		worker := newTestWorker(t, &stubProvisioner{err: err}, repo)

		worker.processTask(context.Background(), testTask(7))

		assert.Equal(t, []uint{7}, repo.completed)
		assert.Empty(t, repo.failed)
	})

	t.Run("InProgressElsewhereClosesTask", func(t *testing.T) {
		repo := &stubTaskRepo{}
		err := businessflow.NewBusinessError("PROVISIONING_IN_PROGRESS", "provisioning is already in progress", businessflow.ErrProvisioningInProgress)
		worker := newTestWorker(t, &stubProvisioner{err: err}, repo)

		worker.processTask(context.Background(), testTask(7))

		assert.Equal(t, []uint{7}, repo.completed)
		assert.Empty(t, repo.failed)
	})
}
