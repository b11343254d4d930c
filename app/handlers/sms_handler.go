package handlers

import (
	"log"

	"github.com/amirphl/Gashadokuro/app/dto"
	businessflow "github.com/amirphl/Gashadokuro/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// SmsHandlerInterface defines the contract for SMS configuration handlers
type SmsHandlerInterface interface {
	GetConfiguration(c fiber.Ctx) error
	UpdateConfiguration(c fiber.Ctx) error
	SendTestSms(c fiber.Ctx) error
}

// SmsHandler handles SMS configuration HTTP requests
type SmsHandler struct {
	smsConfigFlow businessflow.SmsConfigFlow
	validator     *validator.Validate
}

// NewSmsHandler creates a new SMS configuration handler
func NewSmsHandler(smsConfigFlow businessflow.SmsConfigFlow) *SmsHandler {
	return &SmsHandler{
		smsConfigFlow: smsConfigFlow,
		validator:     validator.New(),
	}
}

func (h *SmsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SmsHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (h *SmsHandler) smsErrorResponse(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsNumberNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Number not found", "NUMBER_NOT_FOUND", nil)
	case businessflow.IsNumberNotActive(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Number is not active", "NUMBER_NOT_ACTIVE", nil)
	case businessflow.IsSmsNotEnabled(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "SMS is not enabled for this number", "SMS_NOT_ENABLED", nil)
	default:
		return nil
	}
}

// GetConfiguration handles reading a number's SMS configuration
// @Summary Get SMS Configuration
// @Description Retrieve the SMS auto reply configuration for an active SMS enabled number
// @Tags SMS
// @Produce json
// @Param uuid path string true "Number UUID"
// @Success 200 {object} dto.APIResponse{data=dto.SmsConfigurationDTO} "SMS configuration"
// @Failure 400 {object} dto.APIResponse "Number not active or SMS not enabled"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Number not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/numbers/{uuid}/sms-config [get]
func (h *SmsHandler) GetConfiguration(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.smsConfigFlow.GetConfiguration(createRequestContext(c, "/api/v1/numbers/:uuid/sms-config"), customerID, c.Params("uuid"))
	if err != nil {
		if resp := h.smsErrorResponse(c, err); resp != nil {
			return resp
		}

		log.Println("SMS configuration lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "SMS configuration lookup failed", "SMS_CONFIG_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "SMS configuration", result)
}

// UpdateConfiguration handles updating a number's SMS configuration
// @Summary Update SMS Configuration
// @Description Update the SMS auto reply configuration for an active SMS enabled number
// @Tags SMS
// @Accept json
// @Produce json
// @Param uuid path string true "Number UUID"
// @Param request body dto.UpdateSmsConfigurationRequest true "New configuration"
// @Success 200 {object} dto.APIResponse{data=dto.SmsConfigurationDTO} "SMS configuration updated"
// @Failure 400 {object} dto.APIResponse "Invalid request or number not eligible"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Number not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/numbers/{uuid}/sms-config [put]
func (h *SmsHandler) UpdateConfiguration(c fiber.Ctx) error {
	var req dto.UpdateSmsConfigurationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.smsConfigFlow.UpdateConfiguration(createRequestContext(c, "/api/v1/numbers/:uuid/sms-config"), customerID, c.Params("uuid"), &req, clientMetadata(c))
	if err != nil {
		if resp := h.smsErrorResponse(c, err); resp != nil {
			return resp
		}
		if businessflow.IsSmsMessageEmpty(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Auto reply message is required when auto reply is enabled", "SMS_MESSAGE_EMPTY", nil)
		}

		log.Println("SMS configuration update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "SMS configuration update failed", "SMS_CONFIG_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "SMS configuration updated", result)
}

// SendTestSms handles sending a test message from a number
// @Summary Send Test SMS
// @Description Send a test SMS from an active SMS enabled number through the telephony provider
// @Tags SMS
// @Accept json
// @Produce json
// @Param uuid path string true "Number UUID"
// @Param request body dto.SendTestSmsRequest true "Test message"
// @Success 200 {object} dto.APIResponse{data=dto.SendTestSmsResponse} "Test SMS sent"
// @Failure 400 {object} dto.APIResponse "Invalid request or number not eligible"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Number not found"
// @Failure 502 {object} dto.APIResponse "Telephony provider failure"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/numbers/{uuid}/sms-config/test [post]
func (h *SmsHandler) SendTestSms(c fiber.Ctx) error {
	var req dto.SendTestSmsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.smsConfigFlow.SendTestSms(createRequestContext(c, "/api/v1/numbers/:uuid/sms-config/test"), customerID, c.Params("uuid"), &req, clientMetadata(c))
	if err != nil {
		if resp := h.smsErrorResponse(c, err); resp != nil {
			return resp
		}
		if businessflow.IsUpstreamFailure(err) {
			return h.ErrorResponse(c, fiber.StatusBadGateway, "Telephony provider failure", "PROVIDER_FAILURE", nil)
		}

		log.Println("Test SMS failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Test SMS failed", "TEST_SMS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Test SMS sent", result)
}
