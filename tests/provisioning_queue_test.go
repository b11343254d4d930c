// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"

	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/repository"
	testingutil "github.com/amirphl/Gashadokuro/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueTestEnv holds the shared rows queue tests operate on
type queueTestEnv struct {
	fixtures *testingutil.TestFixtures
	customer *models.Customer
	order    *models.Order
}

func newQueueTestEnv(t *testing.T, testDB *testingutil.TestDB) *queueTestEnv {
	t.Helper()

	fixtures := testingutil.NewTestFixtures(testDB)
	customer, err := fixtures.CreateTestCustomer()
	require.NoError(t, err)
	order, err := fixtures.CreateTestOrder(customer.ID)
	require.NoError(t, err)

	return &queueTestEnv{fixtures: fixtures, customer: customer, order: order}
}

func (e *queueTestEnv) newNumber(t *testing.T, status models.ProvisioningStatus) *models.PurchasedNumber {
	t.Helper()
	number, err := e.fixtures.CreateTestPurchasedNumber(e.customer.ID, e.order.ID, status)
	require.NoError(t, err)
	return number
}

func TestProvisioningTaskEnqueue(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewProvisioningTaskRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		env := newQueueTestEnv(t, testDB)

		t.Run("NewTask", func(t *testing.T) {
			number := env.newNumber(t, models.ProvisioningStatusPending)

			task := &models.ProvisioningTask{PurchasedNumberID: number.ID}
			enqueued, open, err := repo.Enqueue(ctx, task)
			require.NoError(t, err)
			assert.True(t, enqueued)
			require.NotNil(t, open)
			assert.Equal(t, models.ProvisioningTaskStatusQueued, open.Status)
			assert.Equal(t, models.ProvisioningOperationProvision, open.Operation)
		})

		t.Run("OpenTaskBlocksSecondEnqueue", func(t *testing.T) {
			number := env.newNumber(t, models.ProvisioningStatusPending)

			first := &models.ProvisioningTask{PurchasedNumberID: number.ID}
			enqueued, _, err := repo.Enqueue(ctx, first)
			require.NoError(t, err)
			require.True(t, enqueued)

			second := &models.ProvisioningTask{PurchasedNumberID: number.ID}
			enqueued, open, err := repo.Enqueue(ctx, second)
			require.NoError(t, err)
			assert.False(t, enqueued)
			require.NotNil(t, open)
			assert.Equal(t, first.ID, open.ID)
		})

		t.Run("ClosedTaskAllowsReEnqueue", func(t *testing.T) {
			number := env.newNumber(t, models.ProvisioningStatusFailed)

			_, err := env.fixtures.CreateTestProvisioningTask(number.ID, models.ProvisioningTaskStatusFailed, models.TaskPriorityDefault)
			require.NoError(t, err)

			retry := &models.ProvisioningTask{PurchasedNumberID: number.ID, Priority: models.TaskPriorityRequeue}
			enqueued, open, err := repo.Enqueue(ctx, retry)
			require.NoError(t, err)
			assert.True(t, enqueued)
			assert.Equal(t, models.TaskPriorityRequeue, open.Priority)
		})

		t.Run("MissingNumberID", func(t *testing.T) {
			enqueued, _, err := repo.Enqueue(ctx, &models.ProvisioningTask{})
			assert.Error(t, err)
			assert.False(t, enqueued)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestProvisioningTaskClaimNext(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewProvisioningTaskRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		env := newQueueTestEnv(t, testDB)

		t.Run("EmptyQueue", func(t *testing.T) {
			task, err := repo.ClaimNext(ctx)
			require.NoError(t, err)
			assert.Nil(t, task)
		})

		t.Run("HigherPriorityBandFirst", func(t *testing.T) {
			defaultNumber := env.newNumber(t, models.ProvisioningStatusPending)
			requeueNumber := env.newNumber(t, models.ProvisioningStatusFailed)

			// Default-band task enqueued first, requeue-band second
			defaultTask, err := env.fixtures.CreateTestProvisioningTask(defaultNumber.ID, models.ProvisioningTaskStatusQueued, models.TaskPriorityDefault)
			require.NoError(t, err)
			requeueTask, err := env.fixtures.CreateTestProvisioningTask(requeueNumber.ID, models.ProvisioningTaskStatusQueued, models.TaskPriorityRequeue)
			require.NoError(t, err)

			claimed, err := repo.ClaimNext(ctx)
			require.NoError(t, err)
			require.NotNil(t, claimed)
			assert.Equal(t, requeueTask.ID, claimed.ID)
			assert.Equal(t, models.ProvisioningTaskStatusInProgress, claimed.Status)
			require.NotNil(t, claimed.StartedAt)

			claimed, err = repo.ClaimNext(ctx)
			require.NoError(t, err)
			require.NotNil(t, claimed)
			assert.Equal(t, defaultTask.ID, claimed.ID)

			claimed, err = repo.ClaimNext(ctx)
			require.NoError(t, err)
			assert.Nil(t, claimed)
		})

		t.Run("FIFOWithinBand", func(t *testing.T) {
			first := env.newNumber(t, models.ProvisioningStatusPending)
			second := env.newNumber(t, models.ProvisioningStatusPending)

			firstTask, err := env.fixtures.CreateTestProvisioningTask(first.ID, models.ProvisioningTaskStatusQueued, models.TaskPriorityDefault)
			require.NoError(t, err)
			_, err = env.fixtures.CreateTestProvisioningTask(second.ID, models.ProvisioningTaskStatusQueued, models.TaskPriorityDefault)
			require.NoError(t, err)

			claimed, err := repo.ClaimNext(ctx)
			require.NoError(t, err)
			require.NotNil(t, claimed)
			assert.Equal(t, firstTask.ID, claimed.ID)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestProvisioningTaskFinalization(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewProvisioningTaskRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		env := newQueueTestEnv(t, testDB)

		t.Run("MarkCompleted", func(t *testing.T) {
			number := env.newNumber(t, models.ProvisioningStatusProvisioning)
			task, err := env.fixtures.CreateTestProvisioningTask(number.ID, models.ProvisioningTaskStatusInProgress, models.TaskPriorityDefault)
			require.NoError(t, err)

			err = repo.MarkCompleted(ctx, task.ID)
			require.NoError(t, err)

			reloaded, err := repo.ByID(ctx, task.ID)
			require.NoError(t, err)
			require.NotNil(t, reloaded)
			assert.Equal(t, models.ProvisioningTaskStatusCompleted, reloaded.Status)
			require.NotNil(t, reloaded.FinishedAt)
			assert.False(t, reloaded.IsOpen())
		})

		t.Run("MarkFailedRecordsReason", func(t *testing.T) {
			number := env.newNumber(t, models.ProvisioningStatusProvisioning)
			task, err := env.fixtures.CreateTestProvisioningTask(number.ID, models.ProvisioningTaskStatusInProgress, models.TaskPriorityDefault)
			require.NoError(t, err)

			err = repo.MarkFailed(ctx, task.ID, "provider returned 503")
			require.NoError(t, err)

			reloaded, err := repo.ByID(ctx, task.ID)
			require.NoError(t, err)
			require.NotNil(t, reloaded)
			assert.Equal(t, models.ProvisioningTaskStatusFailed, reloaded.Status)
			assert.Equal(t, "provider returned 503", reloaded.FailureReason)
		})

		t.Run("FinalizeRequiresInProgress", func(t *testing.T) {
			number := env.newNumber(t, models.ProvisioningStatusPending)
			task, err := env.fixtures.CreateTestProvisioningTask(number.ID, models.ProvisioningTaskStatusQueued, models.TaskPriorityDefault)
			require.NoError(t, err)

			err = repo.MarkCompleted(ctx, task.ID)
			assert.Error(t, err)
		})

		t.Run("CompleteStaleFailed", func(t *testing.T) {
			number := env.newNumber(t, models.ProvisioningStatusFailed)

			for i := 0; i < 2; i++ {
				_, err := env.fixtures.CreateTestProvisioningTask(number.ID, models.ProvisioningTaskStatusFailed, models.TaskPriorityDefault)
				require.NoError(t, err)
			}

			cleared, err := repo.CompleteStaleFailed(ctx, number.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), cleared)

			status := models.ProvisioningTaskStatusFailed
			remaining, err := repo.Count(ctx, models.ProvisioningTaskFilter{PurchasedNumberID: &number.ID, Status: &status})
			require.NoError(t, err)
			assert.Equal(t, int64(0), remaining)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestProvisioningTaskReporting(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewProvisioningTaskRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		env := newQueueTestEnv(t, testDB)

		queuedNumber := env.newNumber(t, models.ProvisioningStatusPending)
		failedNumber := env.newNumber(t, models.ProvisioningStatusFailed)

		_, err := env.fixtures.CreateTestProvisioningTask(queuedNumber.ID, models.ProvisioningTaskStatusQueued, models.TaskPriorityDefault)
		require.NoError(t, err)
		failedTask, err := env.fixtures.CreateTestProvisioningTask(failedNumber.ID, models.ProvisioningTaskStatusFailed, models.TaskPriorityDefault)
		require.NoError(t, err)

		t.Run("CountByStatus", func(t *testing.T) {
			queued, err := repo.CountByStatus(ctx, models.ProvisioningTaskStatusQueued)
			require.NoError(t, err)
			assert.Equal(t, int64(1), queued)

			failed, err := repo.CountByStatus(ctx, models.ProvisioningTaskStatusFailed)
			require.NoError(t, err)
			assert.Equal(t, int64(1), failed)

			completed, err := repo.CountByStatus(ctx, models.ProvisioningTaskStatusCompleted)
			require.NoError(t, err)
			assert.Equal(t, int64(0), completed)
		})

		t.Run("ListFailed", func(t *testing.T) {
			tasks, err := repo.ListFailed(ctx, 10, 0)
			require.NoError(t, err)
			require.Len(t, tasks, 1)
			assert.Equal(t, failedTask.ID, tasks[0].ID)
		})

		return nil
	})
	require.NoError(t, err)
}
