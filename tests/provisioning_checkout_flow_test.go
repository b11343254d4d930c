package tests

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/amirphl/Gashadokuro/app/dto"
	"github.com/amirphl/Gashadokuro/app/services"
	businessflow "github.com/amirphl/Gashadokuro/business_flow"
	"github.com/amirphl/Gashadokuro/config"
	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/repository"
	testingutil "github.com/amirphl/Gashadokuro/testing"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingTelephony rejects every allocation with a fixed provider error
type failingTelephony struct {
	services.TelephonyProvider
	reason string
}

func (f *failingTelephony) AllocateNumber(_ context.Context, _, _ string, _ bool, _ models.ForwardingType) (*services.NumberAllocation, error) {
	return nil, errors.New(f.reason)
}

// provisioningEnv wires a provisioning flow against the test database
type provisioningEnv struct {
	flow       businessflow.ProvisioningFlow
	numberRepo repository.PurchasedNumberRepository
	taskRepo   repository.ProvisioningTaskRepository
	fixtures   *testingutil.TestFixtures
	customer   *models.Customer
	order      *models.Order
}

func newProvisioningEnv(t *testing.T, testDB *testingutil.TestDB, provider services.TelephonyProvider) *provisioningEnv {
	t.Helper()

	fixtures := testingutil.NewTestFixtures(testDB)
	customer, err := fixtures.CreateTestCustomer()
	require.NoError(t, err)
	order, err := fixtures.CreateTestOrder(customer.ID)
	require.NoError(t, err)

	numberRepo := repository.NewPurchasedNumberRepository(testDB.DB)
	taskRepo := repository.NewProvisioningTaskRepository(testDB.DB)
	notifier := services.NewNotificationService(services.NewMockSMSProvider(), services.NewMockEmailProvider())

	return &provisioningEnv{
		flow: businessflow.NewProvisioningFlow(
			numberRepo,
			taskRepo,
			repository.NewCustomerRepository(testDB.DB),
			repository.NewAuditLogRepository(testDB.DB),
			provider,
			notifier,
			services.NewConfigAuthorizer(nil),
			testDB.DB,
		),
		numberRepo: numberRepo,
		taskRepo:   taskRepo,
		fixtures:   fixtures,
		customer:   customer,
		order:      order,
	}
}

func (e *provisioningEnv) newNumber(t *testing.T, status models.ProvisioningStatus) *models.PurchasedNumber {
	t.Helper()
	number, err := e.fixtures.CreateTestPurchasedNumber(e.customer.ID, e.order.ID, status)
	require.NoError(t, err)
	return number
}

func provisionTask(numberID uint) *models.ProvisioningTask {
	return &models.ProvisioningTask{
		UUID:              uuid.New(),
		PurchasedNumberID: numberID,
		Operation:         models.ProvisioningOperationProvision,
	}
}

func TestProvisionNumberOutcomes(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()

		t.Run("ProviderFailureMarksNumberFailed", func(t *testing.T) {
			env := newProvisioningEnv(t, testDB, &failingTelephony{reason: "carrier rejected allocation"})
			number := env.newNumber(t, models.ProvisioningStatusPending)

			err := env.flow.ProvisionNumber(ctx, provisionTask(number.ID))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "carrier rejected allocation")

			reloaded, err := env.numberRepo.ByID(ctx, number.ID)
			require.NoError(t, err)
			require.NotNil(t, reloaded)
			assert.Equal(t, models.ProvisioningStatusFailed, reloaded.ProvisioningStatus)
			assert.Contains(t, reloaded.StatusReason, "carrier rejected allocation")
			assert.Nil(t, reloaded.ProviderNumberID)
			assert.False(t, reloaded.IsProvisioned())
		})

		t.Run("SuccessActivatesNumber", func(t *testing.T) {
			env := newProvisioningEnv(t, testDB, services.NewMockTelephonyProvider())
			number := env.newNumber(t, models.ProvisioningStatusPending)

			require.NoError(t, env.flow.ProvisionNumber(ctx, provisionTask(number.ID)))

			reloaded, err := env.numberRepo.ByID(ctx, number.ID)
			require.NoError(t, err)
			require.NotNil(t, reloaded)
			assert.Equal(t, models.ProvisioningStatusActive, reloaded.ProvisioningStatus)
			require.NotNil(t, reloaded.ProviderNumberID)
			assert.NotEmpty(t, *reloaded.ProviderNumberID)
			require.NotNil(t, reloaded.ProvisionedAt)
			assert.Empty(t, reloaded.StatusReason)
		})

		t.Run("SecondAttemptRejected", func(t *testing.T) {
			env := newProvisioningEnv(t, testDB, services.NewMockTelephonyProvider())
			number := env.newNumber(t, models.ProvisioningStatusActive)

			err := env.flow.ProvisionNumber(ctx, provisionTask(number.ID))
			require.Error(t, err)
			assert.True(t, businessflow.IsAlreadyProvisioned(err))
		})

		t.Run("ConcurrentAttemptRejected", func(t *testing.T) {
			env := newProvisioningEnv(t, testDB, services.NewMockTelephonyProvider())
			number := env.newNumber(t, models.ProvisioningStatusProvisioning)

			err := env.flow.ProvisionNumber(ctx, provisionTask(number.ID))
			require.Error(t, err)
			assert.True(t, businessflow.IsProvisioningInProgress(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestTriggerProvisioningDirectAttempt(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		env := newProvisioningEnv(t, testDB, services.NewMockTelephonyProvider())
		number := env.newNumber(t, models.ProvisioningStatusPending)

		resp, err := env.flow.TriggerProvisioning(ctx, env.customer.ID, number.UUID.String(), nil)
		require.NoError(t, err)
		assert.True(t, resp.Queued)

		// The queued task is the durable path, but the boundary also fires an
		// immediate attempt; the number should go active without a worker.
		require.Eventually(t, func() bool {
			reloaded, err := env.numberRepo.ByID(ctx, number.ID)
			return err == nil && reloaded != nil && reloaded.ProvisioningStatus == models.ProvisioningStatusActive
		}, 5*time.Second, 25*time.Millisecond)

		reloaded, err := env.numberRepo.ByID(ctx, number.ID)
		require.NoError(t, err)
		require.NotNil(t, reloaded.ProviderNumberID)

		return nil
	})
	require.NoError(t, err)
}

// setupTestRedis connects to the test Redis instance or skips the test when
// none is reachable, mirroring how TestWithDB gates on Postgres.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	host := os.Getenv("TEST_REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("TEST_REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	rc := redis.NewClient(&redis.Options{Addr: host + ":" + port})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		t.Skipf("Skipping Redis-backed test, no Redis at %s:%s: %v", host, port, err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestCheckoutFulfillmentIdempotent(t *testing.T) {
	rc := setupTestRedis(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()

		fixtures := testingutil.NewTestFixtures(testDB)
		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		cacheConfig := &config.CacheConfig{
			Enabled:     true,
			Provider:    "redis",
			RedisPrefix: fmt.Sprintf("test_checkout_%d", time.Now().UnixNano()),
			DefaultTTL:  time.Minute,
		}
		cartFlow := businessflow.NewCartFlow(rc, cacheConfig)

		orderRepo := repository.NewOrderRepository(testDB.DB)
		numberRepo := repository.NewPurchasedNumberRepository(testDB.DB)
		taskRepo := repository.NewProvisioningTaskRepository(testDB.DB)
		checkoutFlow := businessflow.NewCheckoutFlow(
			repository.NewCustomerRepository(testDB.DB),
			orderRepo,
			numberRepo,
			taskRepo,
			repository.NewAuditLogRepository(testDB.DB),
			cartFlow,
			services.NewMockCheckoutGateway(),
			rc,
			cacheConfig,
			testDB.DB,
		)

		_, err = cartFlow.AddItem(ctx, customer.ID, &dto.AddCartItemRequest{
			PhoneNumber:     "+12125550401",
			CountryCode:     "US",
			AreaCode:        "212",
			MonthlyPrice:    500,
			SMSEnabled:      true,
			SMSPrice:        200,
			MonthlyDuration: 12,
		}, nil)
		require.NoError(t, err)
		_, err = cartFlow.AddItem(ctx, customer.ID, &dto.AddCartItemRequest{
			PhoneNumber:     "+12125550402",
			CountryCode:     "US",
			AreaCode:        "212",
			MonthlyPrice:    300,
			ForwardingType:  "call",
			ForwardingPrice: 100,
			MonthlyDuration: 6,
		}, nil)
		require.NoError(t, err)

		session, err := checkoutFlow.CreateSession(ctx, customer.ID, &dto.CreateCheckoutSessionRequest{
			SuccessURL: "https://shop.example.com/success",
			CancelURL:  "https://shop.example.com/cancel",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(10800), session.Total)

		completeReq := &dto.CompleteCheckoutRequest{SessionID: session.SessionID}
		first, err := checkoutFlow.CompleteSession(ctx, completeReq, nil)
		require.NoError(t, err)
		second, err := checkoutFlow.CompleteSession(ctx, completeReq, nil)
		require.NoError(t, err)

		t.Run("ReplayReturnsOriginalOrder", func(t *testing.T) {
			assert.Equal(t, first.UUID, second.UUID)
			assert.Equal(t, session.SessionID, first.CheckoutSessionID)
			assert.Equal(t, uint64(10800), first.TotalAmount)

			count, err := orderRepo.Count(ctx, models.OrderFilter{CustomerID: &customer.ID})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("MaterializesNumbersAndTasksOnce", func(t *testing.T) {
			require.Len(t, first.Numbers, 2)
			assert.Len(t, second.Numbers, 2)

			numbers, err := numberRepo.ListByCheckoutSession(ctx, session.SessionID)
			require.NoError(t, err)
			require.Len(t, numbers, 2)
			for _, number := range numbers {
				assert.Equal(t, models.ProvisioningStatusPending, number.ProvisioningStatus)

				tasks, err := taskRepo.Count(ctx, models.ProvisioningTaskFilter{PurchasedNumberID: &number.ID})
				require.NoError(t, err)
				assert.Equal(t, int64(1), tasks)
			}
		})

		t.Run("CartClearedAfterFulfillment", func(t *testing.T) {
			items, err := cartFlow.Items(ctx, customer.ID)
			require.NoError(t, err)
			assert.Empty(t, items)
		})

		return nil
	})
	require.NoError(t, err)
}
