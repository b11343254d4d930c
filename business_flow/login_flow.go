package businessflow

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/amirphl/Gashadokuro/app/dto"
	"github.com/amirphl/Gashadokuro/app/services"
	"github.com/amirphl/Gashadokuro/repository"
	"github.com/amirphl/Gashadokuro/utils"
	"golang.org/x/crypto/bcrypt"
)

// LoginFlow defines the interface for customer authentication
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenPairDTO, error)
}

// LoginFlowImpl implements the authentication business logic
type LoginFlowImpl struct {
	customerRepo repository.CustomerRepository
	tokenService services.TokenService
	logger       *log.Logger
}

// NewLoginFlow creates a new login flow
func NewLoginFlow(customerRepo repository.CustomerRepository, tokenService services.TokenService) LoginFlow {
	return &LoginFlowImpl{
		customerRepo: customerRepo,
		tokenService: tokenService,
		logger:       log.New(os.Stdout, "[LoginFlow] ", log.LstdFlags),
	}
}

// Login verifies credentials and issues a token pair
func (f *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	customer, err := f.customerRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	if customer == nil {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "customer not found", ErrCustomerNotFound)
	}
	if !utils.IsTrue(customer.IsActive) {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "account is inactive", ErrAccountInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewBusinessError("INCORRECT_PASSWORD", "incorrect password", ErrIncorrectPassword)
	}

	accessToken, refreshToken, err := f.tokenService.GenerateTokens(customer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	f.logger.Printf("Customer %d logged in", customer.ID)

	return &dto.LoginResponse{
		CustomerUUID: customer.UUID.String(),
		Email:        customer.Email,
		FullName:     customer.FullName(),
		Tokens: dto.TokenPairDTO{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int(utils.AccessTokenTTL.Seconds()),
		},
	}, nil
}

// RefreshToken exchanges a refresh token for a new pair
func (f *LoginFlowImpl) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenPairDTO, error) {
	accessToken, refreshToken, err := f.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}
	return &dto.TokenPairDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(utils.AccessTokenTTL.Seconds()),
	}, nil
}
