package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/amirphl/Gashadokuro/app/dto"
	"github.com/amirphl/Gashadokuro/app/services"
	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/repository"
	"github.com/amirphl/Gashadokuro/utils"
)

// SmsConfigFlow defines SMS settings operations on owned, active numbers
type SmsConfigFlow interface {
	GetConfiguration(ctx context.Context, customerID uint, numberUUID string) (*dto.SmsConfigurationDTO, error)
	UpdateConfiguration(ctx context.Context, customerID uint, numberUUID string, req *dto.UpdateSmsConfigurationRequest, metadata *ClientMetadata) (*dto.SmsConfigurationDTO, error)
	SendTestSms(ctx context.Context, customerID uint, numberUUID string, req *dto.SendTestSmsRequest, metadata *ClientMetadata) (*dto.SendTestSmsResponse, error)
}

// SmsConfigFlowImpl implements the SMS configuration business logic
type SmsConfigFlowImpl struct {
	numberRepo repository.PurchasedNumberRepository
	configRepo repository.SmsConfigurationRepository
	auditRepo  repository.AuditLogRepository
	provider   services.TelephonyProvider
	logger     *log.Logger
}

// NewSmsConfigFlow creates a new SMS configuration flow
func NewSmsConfigFlow(
	numberRepo repository.PurchasedNumberRepository,
	configRepo repository.SmsConfigurationRepository,
	auditRepo repository.AuditLogRepository,
	provider services.TelephonyProvider,
) SmsConfigFlow {
	return &SmsConfigFlowImpl{
		numberRepo: numberRepo,
		configRepo: configRepo,
		auditRepo:  auditRepo,
		provider:   provider,
		logger:     log.New(os.Stdout, "[SmsConfigFlow] ", log.LstdFlags),
	}
}

// smsNumber loads the number and enforces ownership, activation and the SMS
// add-on, in that order so the caller gets the most specific error
func (f *SmsConfigFlowImpl) smsNumber(ctx context.Context, customerID uint, numberUUID string) (*models.PurchasedNumber, error) {
	number, err := f.numberRepo.ByUUID(ctx, numberUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load number: %w", err)
	}
	if number == nil || number.CustomerID != customerID {
		return nil, NewBusinessError("NUMBER_NOT_FOUND", "purchased number not found", ErrNumberNotFound)
	}
	if !number.IsProvisioned() {
		return nil, NewBusinessError("NUMBER_NOT_ACTIVE", "number is not active", ErrNumberNotActive)
	}
	if !utils.IsTrue(number.SMSEnabled) {
		return nil, NewBusinessError("SMS_NOT_ENABLED", "SMS is not enabled for this number", ErrSmsNotEnabled)
	}
	return number, nil
}

// configFor returns the number's configuration, creating the default row on
// first touch
func (f *SmsConfigFlowImpl) configFor(ctx context.Context, number *models.PurchasedNumber) (*models.SmsConfiguration, error) {
	config, err := f.configRepo.ByPurchasedNumberID(ctx, number.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load SMS configuration: %w", err)
	}
	if config != nil {
		return config, nil
	}

	config = &models.SmsConfiguration{
		PurchasedNumberID: number.ID,
		AutoReplyEnabled:  utils.ToPtr(false),
	}
	if err := f.configRepo.Save(ctx, config); err != nil {
		return nil, fmt.Errorf("failed to create SMS configuration: %w", err)
	}
	return config, nil
}

// GetConfiguration returns the number's SMS settings
func (f *SmsConfigFlowImpl) GetConfiguration(ctx context.Context, customerID uint, numberUUID string) (*dto.SmsConfigurationDTO, error) {
	number, err := f.smsNumber(ctx, customerID, numberUUID)
	if err != nil {
		return nil, err
	}

	config, err := f.configFor(ctx, number)
	if err != nil {
		return nil, err
	}

	return f.toDTO(number, config), nil
}

// UpdateConfiguration applies a partial settings update
func (f *SmsConfigFlowImpl) UpdateConfiguration(ctx context.Context, customerID uint, numberUUID string, req *dto.UpdateSmsConfigurationRequest, metadata *ClientMetadata) (*dto.SmsConfigurationDTO, error) {
	number, err := f.smsNumber(ctx, customerID, numberUUID)
	if err != nil {
		return nil, err
	}

	config, err := f.configFor(ctx, number)
	if err != nil {
		return nil, err
	}

	if req.AutoReplyEnabled != nil {
		config.AutoReplyEnabled = req.AutoReplyEnabled
	}
	if req.AutoReplyMessage != nil {
		config.AutoReplyMessage = *req.AutoReplyMessage
	}
	if utils.IsTrue(config.AutoReplyEnabled) && config.AutoReplyMessage == "" {
		return nil, NewBusinessError("SMS_MESSAGE_EMPTY", "SMS message is empty", ErrSmsMessageEmpty)
	}

	if err := f.configRepo.Update(ctx, config); err != nil {
		return nil, fmt.Errorf("failed to update SMS configuration: %w", err)
	}

	f.audit(ctx, &number.CustomerID, models.AuditActionSmsConfigUpdated,
		fmt.Sprintf("SMS configuration updated for %s", number.PhoneNumber), true, metadata)

	return f.toDTO(number, config), nil
}

// SendTestSms dispatches one outbound message from the number through the provider
func (f *SmsConfigFlowImpl) SendTestSms(ctx context.Context, customerID uint, numberUUID string, req *dto.SendTestSmsRequest, metadata *ClientMetadata) (*dto.SendTestSmsResponse, error) {
	number, err := f.smsNumber(ctx, customerID, numberUUID)
	if err != nil {
		return nil, err
	}
	if number.ProviderNumberID == nil {
		return nil, NewBusinessError("NUMBER_NOT_ACTIVE", "number is not active", ErrNumberNotActive)
	}

	if err := f.provider.SendSMS(ctx, *number.ProviderNumberID, req.To, req.Message); err != nil {
		f.audit(ctx, &number.CustomerID, models.AuditActionTestSmsSent,
			fmt.Sprintf("test SMS from %s to %s failed: %v", number.PhoneNumber, req.To, err), false, metadata)
		return nil, NewBusinessError("UPSTREAM_FAILURE", "upstream provider request failed", errors.Join(ErrUpstreamFailure, err))
	}

	f.audit(ctx, &number.CustomerID, models.AuditActionTestSmsSent,
		fmt.Sprintf("test SMS from %s to %s", number.PhoneNumber, req.To), true, metadata)

	return &dto.SendTestSmsResponse{
		NumberUUID: number.UUID.String(),
		To:         req.To,
		SentAt:     utils.UTCNow(),
	}, nil
}

func (f *SmsConfigFlowImpl) toDTO(number *models.PurchasedNumber, config *models.SmsConfiguration) *dto.SmsConfigurationDTO {
	return &dto.SmsConfigurationDTO{
		NumberUUID:       number.UUID.String(),
		AutoReplyEnabled: utils.IsTrue(config.AutoReplyEnabled),
		AutoReplyMessage: config.AutoReplyMessage,
		UpdatedAt:        config.UpdatedAt,
	}
}

// audit writes an audit row, never failing the caller
func (f *SmsConfigFlowImpl) audit(ctx context.Context, customerID *uint, action, description string, success bool, metadata *ClientMetadata) {
	entry := &models.AuditLog{
		CustomerID:  customerID,
		Action:      action,
		Description: utils.ToPtr(description),
		Success:     utils.ToPtr(success),
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			entry.IPAddress = utils.ToPtr(metadata.IPAddress)
		}
		if metadata.UserAgent != "" {
			entry.UserAgent = utils.ToPtr(metadata.UserAgent)
		}
		if metadata.RequestID != "" {
			entry.RequestID = utils.ToPtr(metadata.RequestID)
		}
	}
	if err := f.auditRepo.Save(ctx, entry); err != nil {
		f.logger.Printf("Failed to write audit log (%s): %v", action, err)
	}
}
