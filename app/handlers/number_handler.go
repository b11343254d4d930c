package handlers

import (
	"log"
	"strconv"

	"github.com/amirphl/Gashadokuro/app/dto"
	businessflow "github.com/amirphl/Gashadokuro/business_flow"
	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/repository"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// NumberHandlerInterface defines the contract for purchased number handlers
type NumberHandlerInterface interface {
	ListNumbers(c fiber.Ctx) error
	GetNumber(c fiber.Ctx) error
	Provision(c fiber.Ctx) error
	Requeue(c fiber.Ctx) error
	QueueStats(c fiber.Ctx) error
	ListFailedTasks(c fiber.Ctx) error
}

// NumberHandler handles purchased number and provisioning HTTP requests
type NumberHandler struct {
	provisioningFlow businessflow.ProvisioningFlow
	customerRepo     repository.CustomerRepository
	validator        *validator.Validate
}

// NewNumberHandler creates a new number handler
func NewNumberHandler(provisioningFlow businessflow.ProvisioningFlow, customerRepo repository.CustomerRepository) *NumberHandler {
	return &NumberHandler{
		provisioningFlow: provisioningFlow,
		customerRepo:     customerRepo,
		validator:        validator.New(),
	}
}

func (h *NumberHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *NumberHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// actor loads the authenticated customer for operator authorization checks
func (h *NumberHandler) actor(c fiber.Ctx) (*models.Customer, bool) {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return nil, false
	}
	customer, err := h.customerRepo.ByID(createRequestContext(c, c.Path()), customerID)
	if err != nil || customer == nil {
		return nil, false
	}
	return customer, true
}

// ListNumbers handles paging through the customer's numbers
// @Summary List Numbers
// @Description Retrieve the authenticated customer's purchased numbers, newest first
// @Tags Numbers
// @Produce json
// @Param page query int false "Page number (default: 1)" minimum(1)
// @Param page_size query int false "Number of items per page (default: 20, max: 100)" minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=[]dto.PurchasedNumberDTO} "Numbers"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/numbers [get]
func (h *NumberHandler) ListNumbers(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	page := uint(1)
	if pageStr := c.Query("page"); pageStr != "" {
		if parsed, err := strconv.ParseUint(pageStr, 10, 32); err == nil {
			page = uint(parsed)
		}
	}
	pageSize := uint(20)
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.ParseUint(pageSizeStr, 10, 32); err == nil {
			pageSize = uint(parsed)
		}
	}

	result, err := h.provisioningFlow.ListNumbers(createRequestContext(c, "/api/v1/numbers"), customerID, page, pageSize)
	if err != nil {
		log.Println("Listing numbers failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Listing numbers failed", "NUMBER_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Numbers", result)
}

// GetNumber handles a single number lookup
// @Summary Get Number
// @Description Retrieve one of the authenticated customer's numbers
// @Tags Numbers
// @Produce json
// @Param uuid path string true "Number UUID"
// @Success 200 {object} dto.APIResponse{data=dto.PurchasedNumberDTO} "Number"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Number not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/numbers/{uuid} [get]
func (h *NumberHandler) GetNumber(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.provisioningFlow.GetNumber(createRequestContext(c, "/api/v1/numbers/:uuid"), customerID, c.Params("uuid"))
	if err != nil {
		if businessflow.IsNumberNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Number not found", "NUMBER_NOT_FOUND", nil)
		}

		log.Println("Number lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Number lookup failed", "NUMBER_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Number", result)
}

// Provision handles the customer-facing provisioning trigger. Accepted work
// is acknowledged with 202; the worker picks it up asynchronously.
// @Summary Provision Number
// @Description Queue an owned number for provisioning
// @Tags Numbers
// @Produce json
// @Param uuid path string true "Number UUID"
// @Success 202 {object} dto.APIResponse{data=dto.ProvisionNumberResponse} "Provisioning queued"
// @Failure 400 {object} dto.APIResponse "Number already active"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Number not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/numbers/{uuid}/provision [post]
func (h *NumberHandler) Provision(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.provisioningFlow.TriggerProvisioning(createRequestContext(c, "/api/v1/numbers/:uuid/provision"), customerID, c.Params("uuid"), clientMetadata(c))
	if err != nil {
		if businessflow.IsNumberNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Number not found", "NUMBER_NOT_FOUND", nil)
		}
		if businessflow.IsAlreadyProvisioned(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Number is already provisioned", "ALREADY_PROVISIONED", nil)
		}
		if businessflow.IsProvisioningInProgress(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Provisioning is already in progress", "PROVISIONING_IN_PROGRESS", nil)
		}

		log.Println("Provisioning trigger failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Provisioning trigger failed", "PROVISION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Provisioning queued", result)
}

// Requeue handles the operator retry of a failed number
// @Summary Requeue Number
// @Description Reset a failed number to pending and queue a high priority retry
// @Tags Operator
// @Accept json
// @Produce json
// @Param request body dto.RequeueNumberRequest true "Number to retry"
// @Success 202 {object} dto.APIResponse{data=dto.ProvisionNumberResponse} "Retry queued"
// @Failure 400 {object} dto.APIResponse "Number is not failed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Operator access required"
// @Failure 404 {object} dto.APIResponse "Number not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/operator/provisioning/requeue [post]
func (h *NumberHandler) Requeue(c fiber.Ctx) error {
	var req dto.RequeueNumberRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	actor, ok := h.actor(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.provisioningFlow.RequeueNumber(createRequestContext(c, "/api/v1/operator/provisioning/requeue"), actor, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsOperatorAccessRequired(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Operator access required", "OPERATOR_ACCESS_REQUIRED", nil)
		}
		if businessflow.IsNumberNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Number not found", "NUMBER_NOT_FOUND", nil)
		}
		if businessflow.IsNumberNotFailed(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Number is not in a failed state", "NUMBER_NOT_FAILED", nil)
		}

		log.Println("Requeue failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Requeue failed", "REQUEUE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusAccepted, "Retry queued", result)
}

// QueueStats handles the operator queue depth report
// @Summary Queue Stats
// @Description Report provisioning queue depth by status
// @Tags Operator
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.QueueStatsResponse} "Queue stats"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Operator access required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/operator/provisioning/stats [get]
func (h *NumberHandler) QueueStats(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.provisioningFlow.QueueStats(createRequestContext(c, "/api/v1/operator/provisioning/stats"), actor)
	if err != nil {
		if businessflow.IsOperatorAccessRequired(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Operator access required", "OPERATOR_ACCESS_REQUIRED", nil)
		}

		log.Println("Queue stats failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Queue stats failed", "QUEUE_STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Queue stats", result)
}

// ListFailedTasks handles the operator failed task listing
// @Summary List Failed Tasks
// @Description Page through failed provisioning tasks
// @Tags Operator
// @Produce json
// @Param page query int false "Page number (default: 1)" minimum(1)
// @Param page_size query int false "Number of items per page (default: 20, max: 100)" minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.ListFailedTasksResponse} "Failed tasks"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Operator access required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/operator/provisioning/failed [get]
func (h *NumberHandler) ListFailedTasks(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	page := uint(1)
	if pageStr := c.Query("page"); pageStr != "" {
		if parsed, err := strconv.ParseUint(pageStr, 10, 32); err == nil {
			page = uint(parsed)
		}
	}
	pageSize := uint(20)
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.ParseUint(pageSizeStr, 10, 32); err == nil {
			pageSize = uint(parsed)
		}
	}

	result, err := h.provisioningFlow.ListFailedTasks(createRequestContext(c, "/api/v1/operator/provisioning/failed"), actor, page, pageSize)
	if err != nil {
		if businessflow.IsOperatorAccessRequired(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Operator access required", "OPERATOR_ACCESS_REQUIRED", nil)
		}

		log.Println("Listing failed tasks failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Listing failed tasks failed", "FAILED_TASK_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Failed tasks", result)
}
