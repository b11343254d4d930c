package handlers

import (
	"fmt"
	"log"
	"time"

	"github.com/amirphl/Gashadokuro/app/dto"
	businessflow "github.com/amirphl/Gashadokuro/business_flow"
	"github.com/gofiber/fiber/v3"
)

// UsageHandlerInterface defines the contract for usage record handlers
type UsageHandlerInterface interface {
	CallRecords(c fiber.Ctx) error
	SmsRecords(c fiber.Ctx) error
	Stats(c fiber.Ctx) error
	ExportCallRecords(c fiber.Ctx) error
}

// UsageHandler handles call and SMS usage HTTP requests
type UsageHandler struct {
	usageFlow businessflow.UsageFlow
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usageFlow businessflow.UsageFlow) *UsageHandler {
	return &UsageHandler{usageFlow: usageFlow}
}

func (h *UsageHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *UsageHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// usageQuery parses optional RFC3339 start_date and end_date query params
func usageQuery(c fiber.Ctx) (*dto.UsageQueryRequest, error) {
	req := &dto.UsageQueryRequest{}
	if startStr := c.Query("start_date"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, fmt.Errorf("invalid start_date: %w", err)
		}
		req.StartDate = &start
	}
	if endStr := c.Query("end_date"); endStr != "" {
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return nil, fmt.Errorf("invalid end_date: %w", err)
		}
		req.EndDate = &end
	}
	return req, nil
}

func (h *UsageHandler) usageErrorResponse(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsNumberNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "Number not found", "NUMBER_NOT_FOUND", nil)
	case businessflow.IsNumberNotActive(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Number is not active", "NUMBER_NOT_ACTIVE", nil)
	case businessflow.IsStartDateAfterEndDate(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Start date must not be after end date", "INVALID_DATE_RANGE", nil)
	case businessflow.IsUpstreamFailure(err):
		return h.ErrorResponse(c, fiber.StatusBadGateway, "Telephony provider failure", "PROVIDER_FAILURE", nil)
	default:
		return nil
	}
}

// CallRecords handles call detail record queries
// @Summary Call Records
// @Description Retrieve call detail records for an active number, newest first
// @Tags Usage
// @Produce json
// @Param uuid path string true "Number UUID"
// @Param start_date query string false "Range start, RFC3339"
// @Param end_date query string false "Range end, RFC3339"
// @Success 200 {object} dto.APIResponse{data=dto.CallRecordsResponse} "Call records"
// @Failure 400 {object} dto.APIResponse "Invalid range or number not active"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Number not found"
// @Failure 502 {object} dto.APIResponse "Telephony provider failure"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/numbers/{uuid}/usage/calls [get]
func (h *UsageHandler) CallRecords(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req, err := usageQuery(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date range", "INVALID_DATE_RANGE", err.Error())
	}

	result, err := h.usageFlow.FetchCallRecords(createRequestContext(c, "/api/v1/numbers/:uuid/usage/calls"), customerID, c.Params("uuid"), req)
	if err != nil {
		if resp := h.usageErrorResponse(c, err); resp != nil {
			return resp
		}

		log.Println("Call record query failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Call record query failed", "CALL_RECORDS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Call records", result)
}

// SmsRecords handles SMS detail record queries, parameterized by action:
// fetch (default) lists records, stats aggregates, export downloads a file
// @Summary SMS Records
// @Description Retrieve, aggregate, or export SMS detail records for an active number
// @Tags Usage
// @Produce json
// @Param uuid path string true "Number UUID"
// @Param action query string false "Operation" Enums(fetch, stats, export)
// @Param format query string false "Export format when action=export" Enums(csv, json, xlsx)
// @Param start_date query string false "Range start, RFC3339"
// @Param end_date query string false "Range end, RFC3339"
// @Success 200 {object} dto.APIResponse{data=dto.SmsRecordsResponse} "SMS records"
// @Failure 400 {object} dto.APIResponse "Invalid action, range, or number not active"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Number not found"
// @Failure 502 {object} dto.APIResponse "Telephony provider failure"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/numbers/{uuid}/usage/sms [get]
func (h *UsageHandler) SmsRecords(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req, err := usageQuery(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date range", "INVALID_DATE_RANGE", err.Error())
	}

	ctx := createRequestContext(c, "/api/v1/numbers/:uuid/usage/sms")

	switch c.Query("action", "fetch") {
	case "fetch":
		result, err := h.usageFlow.FetchSmsRecords(ctx, customerID, c.Params("uuid"), req)
		if err != nil {
			if resp := h.usageErrorResponse(c, err); resp != nil {
				return resp
			}

			log.Println("SMS record query failed", err)
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "SMS record query failed", "SMS_RECORDS_FAILED", nil)
		}
		return h.SuccessResponse(c, fiber.StatusOK, "SMS records", result)
	case "stats":
		result, err := h.usageFlow.Stats(ctx, customerID, c.Params("uuid"), req)
		if err != nil {
			if resp := h.usageErrorResponse(c, err); resp != nil {
				return resp
			}

			log.Println("SMS stats failed", err)
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "SMS stats failed", "SMS_STATS_FAILED", nil)
		}
		return h.SuccessResponse(c, fiber.StatusOK, "SMS stats", result)
	case "export":
		format := c.Query("format", businessflow.ExportFormatCSV)
		export, err := h.usageFlow.ExportSmsRecords(ctx, customerID, c.Params("uuid"), format, req)
		if err != nil {
			if resp := h.usageErrorResponse(c, err); resp != nil {
				return resp
			}
			if businessflow.IsInvalidExportFormat(err) {
				return h.ErrorResponse(c, fiber.StatusBadRequest, "Unsupported export format", "INVALID_EXPORT_FORMAT", nil)
			}

			log.Println("SMS record export failed", err)
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "SMS record export failed", "EXPORT_FAILED", nil)
		}
		return h.sendExport(c, export)
	default:
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Unsupported action", "INVALID_ACTION", nil)
	}
}

// sendExport writes a rendered report as a file download
func (h *UsageHandler) sendExport(c fiber.Ctx, export *dto.UsageExport) error {
	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
	return c.Send(export.Content)
}

// Stats handles the aggregate usage report
// @Summary Usage Stats
// @Description Aggregate call and SMS usage for an active number
// @Tags Usage
// @Produce json
// @Param uuid path string true "Number UUID"
// @Param start_date query string false "Range start, RFC3339"
// @Param end_date query string false "Range end, RFC3339"
// @Success 200 {object} dto.APIResponse{data=dto.UsageStatsResponse} "Usage stats"
// @Failure 400 {object} dto.APIResponse "Invalid range or number not active"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Number not found"
// @Failure 502 {object} dto.APIResponse "Telephony provider failure"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/numbers/{uuid}/usage/stats [get]
func (h *UsageHandler) Stats(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req, err := usageQuery(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date range", "INVALID_DATE_RANGE", err.Error())
	}

	result, err := h.usageFlow.Stats(createRequestContext(c, "/api/v1/numbers/:uuid/usage/stats"), customerID, c.Params("uuid"), req)
	if err != nil {
		if resp := h.usageErrorResponse(c, err); resp != nil {
			return resp
		}

		log.Println("Usage stats failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Usage stats failed", "USAGE_STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Usage stats", result)
}

// ExportCallRecords handles the call record file download
// @Summary Export Call Records
// @Description Download call detail records as csv, json, or xlsx
// @Tags Usage
// @Produce octet-stream
// @Param uuid path string true "Number UUID"
// @Param format query string true "Export format" Enums(csv, json, xlsx)
// @Param start_date query string false "Range start, RFC3339"
// @Param end_date query string false "Range end, RFC3339"
// @Success 200 {file} file "Rendered report"
// @Failure 400 {object} dto.APIResponse "Invalid format, range, or number not active"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Number not found"
// @Failure 502 {object} dto.APIResponse "Telephony provider failure"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/numbers/{uuid}/usage/export [get]
func (h *UsageHandler) ExportCallRecords(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req, err := usageQuery(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date range", "INVALID_DATE_RANGE", err.Error())
	}

	format := c.Query("format", businessflow.ExportFormatCSV)

	export, err := h.usageFlow.ExportCallRecords(createRequestContext(c, "/api/v1/numbers/:uuid/usage/export"), customerID, c.Params("uuid"), format, req)
	if err != nil {
		if resp := h.usageErrorResponse(c, err); resp != nil {
			return resp
		}
		if businessflow.IsInvalidExportFormat(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unsupported export format", "INVALID_EXPORT_FORMAT", nil)
		}

		log.Println("Call record export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Call record export failed", "EXPORT_FAILED", nil)
	}

	return h.sendExport(c, export)
}
