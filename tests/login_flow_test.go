// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"

	"github.com/amirphl/Gashadokuro/app/dto"
	"github.com/amirphl/Gashadokuro/app/services"
	businessflow "github.com/amirphl/Gashadokuro/business_flow"
	"github.com/amirphl/Gashadokuro/repository"
	testingutil "github.com/amirphl/Gashadokuro/testing"
	"github.com/amirphl/Gashadokuro/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T) services.TokenService {
	t.Helper()

	tokenService, err := services.NewTokenService(
		utils.AccessTokenTTL,
		utils.RefreshTokenTTL,
		"gashadokuro-test",
		"gashadokuro-test-clients",
		false,
		"", "",
		"test-secret-key-for-login-flow-tests",
	)
	require.NoError(t, err)
	return tokenService
}

func testClientMetadata() *businessflow.ClientMetadata {
	return &businessflow.ClientMetadata{
		IPAddress: "127.0.0.1",
		UserAgent: "Test User Agent",
	}
}

func TestLoginFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		customerRepo := repository.NewCustomerRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		tokenService := newTestTokenService(t)
		flow := businessflow.NewLoginFlow(customerRepo, tokenService)
		ctx := testingutil.CreateTestContext()

		t.Run("SuccessfulLogin", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			resp, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    customer.Email,
				Password: "TestPass123!",
			}, testClientMetadata())
			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, customer.UUID.String(), resp.CustomerUUID)
			assert.Equal(t, customer.Email, resp.Email)
			assert.NotEmpty(t, resp.Tokens.AccessToken)
			assert.NotEmpty(t, resp.Tokens.RefreshToken)
			assert.Equal(t, "Bearer", resp.Tokens.TokenType)

			claims, err := tokenService.ValidateToken(resp.Tokens.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, customer.ID, claims.CustomerID)
			assert.Equal(t, "access", claims.TokenType)
		})

		t.Run("UnknownEmail", func(t *testing.T) {
			resp, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    "nobody@example.com",
				Password: "TestPass123!",
			}, testClientMetadata())
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, businessflow.IsCustomerNotFound(err))
		})

		t.Run("IncorrectPassword", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			resp, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    customer.Email,
				Password: "WrongPass123!",
			}, testClientMetadata())
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, businessflow.IsIncorrectPassword(err))
		})

		t.Run("InactiveAccount", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			customer.IsActive = utils.ToPtr(false)
			require.NoError(t, testDB.DB.Save(customer).Error)

			resp, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    customer.Email,
				Password: "TestPass123!",
			}, testClientMetadata())
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, businessflow.IsAccountInactive(err))
		})

		t.Run("RefreshToken", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			resp, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    customer.Email,
				Password: "TestPass123!",
			}, testClientMetadata())
			require.NoError(t, err)

			pair, err := flow.RefreshToken(ctx, &dto.RefreshTokenRequest{
				RefreshToken: resp.Tokens.RefreshToken,
			})
			require.NoError(t, err)
			require.NotNil(t, pair)
			assert.NotEmpty(t, pair.AccessToken)
			assert.NotEmpty(t, pair.RefreshToken)

			claims, err := tokenService.ValidateToken(pair.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, customer.ID, claims.CustomerID)
		})

		t.Run("RefreshWithAccessTokenRejected", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			resp, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    customer.Email,
				Password: "TestPass123!",
			}, testClientMetadata())
			require.NoError(t, err)

			pair, err := flow.RefreshToken(ctx, &dto.RefreshTokenRequest{
				RefreshToken: resp.Tokens.AccessToken,
			})
			require.Error(t, err)
			assert.Nil(t, pair)
		})

		return nil
	})
	require.NoError(t, err)
}
