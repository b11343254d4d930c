package handlers

import (
	"log"
	"strconv"

	"github.com/amirphl/Gashadokuro/app/dto"
	businessflow "github.com/amirphl/Gashadokuro/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CheckoutHandlerInterface defines the contract for checkout handlers
type CheckoutHandlerInterface interface {
	CreateSession(c fiber.Ctx) error
	CompleteSession(c fiber.Ctx) error
	GetOrder(c fiber.Ctx) error
	GetOrderBySession(c fiber.Ctx) error
	ListOrders(c fiber.Ctx) error
}

// CheckoutHandler handles checkout-related HTTP requests
type CheckoutHandler struct {
	checkoutFlow businessflow.CheckoutFlow
	validator    *validator.Validate
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutFlow businessflow.CheckoutFlow) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutFlow: checkoutFlow,
		validator:    validator.New(),
	}
}

func (h *CheckoutHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CheckoutHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateSession handles starting a hosted checkout
// @Summary Create Checkout Session
// @Description Price the cart and open a gateway checkout session for it
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body dto.CreateCheckoutSessionRequest true "Redirect URLs"
// @Success 200 {object} dto.APIResponse{data=dto.CheckoutSessionResponse} "Session created"
// @Failure 400 {object} dto.APIResponse "Validation error or empty cart"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 502 {object} dto.APIResponse "Gateway unavailable"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/checkout/sessions [post]
func (h *CheckoutHandler) CreateSession(c fiber.Ctx) error {
	var req dto.CreateCheckoutSessionRequest
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

	result, err := h.checkoutFlow.CreateSession(createRequestContext(c, "/api/v1/checkout/sessions"), customerID, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsCustomerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsCartEmpty(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Cart is empty", "CART_EMPTY", nil)
		}
		if businessflow.IsCheckoutGatewayFailed(err) {
			return h.ErrorResponse(c, fiber.StatusBadGateway, "Payment gateway is unavailable", "GATEWAY_FAILED", nil)
		}

		log.Println("Checkout session creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Checkout session creation failed", "CHECKOUT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Checkout session created", result)
}

// CompleteSession handles post-payment order materialization
// @Summary Complete Checkout Session
// @Description Materialize the order for a paid session. Safe to replay.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body dto.CompleteCheckoutRequest true "Session to complete"
// @Success 200 {object} dto.APIResponse{data=dto.OrderResponse} "Order materialized"
// @Failure 400 {object} dto.APIResponse "Session not completed at the gateway"
// @Failure 404 {object} dto.APIResponse "Session not found"
// @Failure 502 {object} dto.APIResponse "Gateway unavailable"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/checkout/complete [post]
func (h *CheckoutHandler) CompleteSession(c fiber.Ctx) error {
	var req dto.CompleteCheckoutRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.checkoutFlow.CompleteSession(createRequestContext(c, "/api/v1/checkout/complete"), &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsCheckoutNotCompleted(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Checkout session is not completed", "CHECKOUT_NOT_COMPLETED", nil)
		}
		if businessflow.IsCheckoutSessionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Checkout session not found", "CHECKOUT_SESSION_NOT_FOUND", nil)
		}
		if businessflow.IsCheckoutGatewayFailed(err) {
			return h.ErrorResponse(c, fiber.StatusBadGateway, "Payment gateway is unavailable", "GATEWAY_FAILED", nil)
		}

		log.Println("Checkout completion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Checkout completion failed", "CHECKOUT_COMPLETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Order materialized", result)
}

// GetOrder handles a single order lookup by UUID
// @Summary Get Order
// @Description Retrieve one of the authenticated customer's orders with its numbers
// @Tags Checkout
// @Produce json
// @Param uuid path string true "Order UUID"
// @Success 200 {object} dto.APIResponse{data=dto.OrderResponse} "Order"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Order not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/orders/{uuid} [get]
func (h *CheckoutHandler) GetOrder(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	orderUUID := c.Params("uuid")
	if orderUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Order UUID is required", "MISSING_ORDER_UUID", nil)
	}

	result, err := h.checkoutFlow.GetOrder(createRequestContext(c, "/api/v1/orders/:uuid"), customerID, orderUUID)
	if err != nil {
		if businessflow.IsOrderNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Order not found", "ORDER_NOT_FOUND", nil)
		}

		log.Println("Order lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Order lookup failed", "ORDER_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Order", result)
}

// GetOrderBySession handles order lookup by checkout session ID. Returns
// 404 until the session has been materialized.
// @Summary Get Order By Session
// @Description Look up the order created from a checkout session
// @Tags Checkout
// @Produce json
// @Param session_id path string true "Checkout session ID"
// @Success 200 {object} dto.APIResponse{data=dto.OrderResponse} "Order"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "No order for this session yet"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/checkout/sessions/{session_id}/order [get]
func (h *CheckoutHandler) GetOrderBySession(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	sessionID := c.Params("session_id")
	if sessionID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Session ID is required", "MISSING_SESSION_ID", nil)
	}

	result, err := h.checkoutFlow.GetOrderBySession(createRequestContext(c, "/api/v1/checkout/sessions/:session_id/order"), customerID, sessionID)
	if err != nil {
		if businessflow.IsOrderNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Order not found", "ORDER_NOT_FOUND", nil)
		}

		log.Println("Order lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Order lookup failed", "ORDER_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Order", result)
}

// ListOrders handles paging through the customer's orders
// @Summary List Orders
// @Description Retrieve the authenticated customer's orders, newest first
// @Tags Checkout
// @Produce json
// @Param page query int false "Page number (default: 1)" minimum(1)
// @Param page_size query int false "Number of items per page (default: 20, max: 100)" minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.ListOrdersResponse} "Orders"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/orders [get]
func (h *CheckoutHandler) ListOrders(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := dto.ListOrdersRequest{Page: 1, PageSize: 20}
	if pageStr := c.Query("page"); pageStr != "" {
		if parsed, err := strconv.ParseUint(pageStr, 10, 32); err == nil {
			req.Page = uint(parsed)
		}
	}
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.ParseUint(pageSizeStr, 10, 32); err == nil {
			req.PageSize = uint(parsed)
		}
	}

	result, err := h.checkoutFlow.ListOrders(createRequestContext(c, "/api/v1/orders"), customerID, &req)
	if err != nil {
		log.Println("Listing orders failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Listing orders failed", "ORDER_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Orders", result)
}
