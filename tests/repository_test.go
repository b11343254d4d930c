// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/repository"
	testingutil "github.com/amirphl/Gashadokuro/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewCustomerRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("Save", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			assert.NotZero(t, customer.ID)
			assert.NotEqual(t, "", customer.UUID.String())
		})

		t.Run("ByID", func(t *testing.T) {
			original, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			customer, err := repo.ByID(ctx, original.ID)
			require.NoError(t, err)
			require.NotNil(t, customer)
			assert.Equal(t, original.ID, customer.ID)
			assert.Equal(t, original.Email, customer.Email)
		})

		t.Run("ByIDNotFound", func(t *testing.T) {
			customer, err := repo.ByID(ctx, 999999)
			assert.NoError(t, err)
			assert.Nil(t, customer)
		})

		t.Run("ByEmail", func(t *testing.T) {
			original, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			customer, err := repo.ByEmail(ctx, original.Email)
			require.NoError(t, err)
			require.NotNil(t, customer)
			assert.Equal(t, original.ID, customer.ID)
		})

		t.Run("ByEmailNotFound", func(t *testing.T) {
			customer, err := repo.ByEmail(ctx, "nonexistent@example.com")
			assert.NoError(t, err)
			assert.Nil(t, customer)
		})

		t.Run("ByUUID", func(t *testing.T) {
			original, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			customer, err := repo.ByUUID(ctx, original.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, customer)
			assert.Equal(t, original.ID, customer.ID)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestOrderRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewOrderRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		t.Run("SaveAndByCheckoutSessionID", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(customer.ID)
			require.NoError(t, err)

			found, err := repo.ByCheckoutSessionID(ctx, order.CheckoutSessionID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, order.ID, found.ID)
			assert.Equal(t, order.TotalAmount, found.TotalAmount)
		})

		t.Run("ByCheckoutSessionIDNotFound", func(t *testing.T) {
			found, err := repo.ByCheckoutSessionID(ctx, "cs_test_missing")
			assert.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("DuplicateCheckoutSessionRejected", func(t *testing.T) {
			order, err := fixtures.CreateTestOrder(customer.ID)
			require.NoError(t, err)

			dup := &models.Order{
				CustomerID:        customer.ID,
				CheckoutSessionID: order.CheckoutSessionID,
				TotalAmount:       100,
				Currency:          "USD",
			}
			err = repo.Save(ctx, dup)
			require.Error(t, err)
			assert.ErrorIs(t, err, repository.ErrDuplicateCheckoutSession)
		})

		t.Run("ListByCustomer", func(t *testing.T) {
			other, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				_, err := fixtures.CreateTestOrder(other.ID)
				require.NoError(t, err)
			}

			orders, err := repo.ListByCustomer(ctx, other.ID, 10, 0)
			require.NoError(t, err)
			assert.Len(t, orders, 3)
			for _, order := range orders {
				assert.Equal(t, other.ID, order.CustomerID)
			}
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPurchasedNumberRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewPurchasedNumberRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)
		order, err := fixtures.CreateTestOrder(customer.ID)
		require.NoError(t, err)

		t.Run("ByUUID", func(t *testing.T) {
			original, err := fixtures.CreateTestPurchasedNumber(customer.ID, order.ID, models.ProvisioningStatusPending)
			require.NoError(t, err)

			number, err := repo.ByUUID(ctx, original.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, number)
			assert.Equal(t, original.ID, number.ID)
			assert.Equal(t, models.ProvisioningStatusPending, number.ProvisioningStatus)
		})

		t.Run("ByUUIDMalformedIsNotFound", func(t *testing.T) {
			number, err := repo.ByUUID(ctx, "not-a-uuid")
			assert.NoError(t, err)
			assert.Nil(t, number)
		})

		t.Run("ListByCustomer", func(t *testing.T) {
			owner, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			ownerOrder, err := fixtures.CreateTestOrder(owner.ID)
			require.NoError(t, err)

			for i := 0; i < 2; i++ {
				_, err := fixtures.CreateTestPurchasedNumber(owner.ID, ownerOrder.ID, models.ProvisioningStatusActive)
				require.NoError(t, err)
			}

			numbers, err := repo.ListByCustomer(ctx, owner.ID, 10, 0)
			require.NoError(t, err)
			assert.Len(t, numbers, 2)
		})

		t.Run("UpdateProvisioningState", func(t *testing.T) {
			number, err := fixtures.CreateTestPurchasedNumber(customer.ID, order.ID, models.ProvisioningStatusPending)
			require.NoError(t, err)

			providerID := "prov_abc123"
			now := time.Now().UTC()
			number.ProvisioningStatus = models.ProvisioningStatusActive
			number.ProviderNumberID = &providerID
			number.ProvisionedAt = &now
			err = repo.UpdateProvisioningState(ctx, number)
			require.NoError(t, err)

			reloaded, err := repo.ByID(ctx, number.ID)
			require.NoError(t, err)
			require.NotNil(t, reloaded)
			assert.Equal(t, models.ProvisioningStatusActive, reloaded.ProvisioningStatus)
			require.NotNil(t, reloaded.ProviderNumberID)
			assert.Equal(t, providerID, *reloaded.ProviderNumberID)
			assert.True(t, reloaded.IsProvisioned())
		})

		t.Run("ByIDForUpdateRequiresTransaction", func(t *testing.T) {
			number, err := fixtures.CreateTestPurchasedNumber(customer.ID, order.ID, models.ProvisioningStatusPending)
			require.NoError(t, err)

			_, err = repo.ByIDForUpdate(ctx, number.ID)
			assert.Error(t, err)

			err = repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				locked, err := repo.ByIDForUpdate(txCtx, number.ID)
				require.NoError(t, err)
				require.NotNil(t, locked)
				assert.Equal(t, number.ID, locked.ID)
				return nil
			})
			require.NoError(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSmsConfigurationRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewSmsConfigurationRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)
		order, err := fixtures.CreateTestOrder(customer.ID)
		require.NoError(t, err)
		number, err := fixtures.CreateTestPurchasedNumber(customer.ID, order.ID, models.ProvisioningStatusActive)
		require.NoError(t, err)

		t.Run("ByPurchasedNumberIDNotFound", func(t *testing.T) {
			config, err := repo.ByPurchasedNumberID(ctx, number.ID)
			assert.NoError(t, err)
			assert.Nil(t, config)
		})

		t.Run("SaveAndUpdate", func(t *testing.T) {
			config, err := fixtures.CreateTestSmsConfiguration(number.ID, false, "")
			require.NoError(t, err)

			found, err := repo.ByPurchasedNumberID(ctx, number.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, config.ID, found.ID)

			enabled := true
			found.AutoReplyEnabled = &enabled
			found.AutoReplyMessage = "Out of office"
			err = repo.Update(ctx, found)
			require.NoError(t, err)

			reloaded, err := repo.ByPurchasedNumberID(ctx, number.ID)
			require.NoError(t, err)
			require.NotNil(t, reloaded)
			require.NotNil(t, reloaded.AutoReplyEnabled)
			assert.True(t, *reloaded.AutoReplyEnabled)
			assert.Equal(t, "Out of office", reloaded.AutoReplyMessage)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAuditLogRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewAuditLogRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		_, err = fixtures.CreateTestAuditLog(&customer.ID, models.AuditActionOrderMaterialized, true)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAuditLog(&customer.ID, models.AuditActionProvisioningFailed, false)
		require.NoError(t, err)

		t.Run("ListByCustomer", func(t *testing.T) {
			logs, err := repo.ListByCustomer(ctx, customer.ID, 10, 0)
			require.NoError(t, err)
			assert.Len(t, logs, 2)
		})

		t.Run("ListByAction", func(t *testing.T) {
			logs, err := repo.ListByAction(ctx, models.AuditActionProvisioningFailed, 10, 0)
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.True(t, logs[0].IsFailed())
		})

		return nil
	})
	require.NoError(t, err)
}
