package handlers

import (
	"log"

	"github.com/amirphl/Gashadokuro/app/dto"
	businessflow "github.com/amirphl/Gashadokuro/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CartHandlerInterface defines the contract for cart handlers
type CartHandlerInterface interface {
	AddItem(c fiber.Ctx) error
	UpdateItem(c fiber.Ctx) error
	RemoveItem(c fiber.Ctx) error
	Clear(c fiber.Ctx) error
	Summary(c fiber.Ctx) error
}

// CartHandler handles cart-related HTTP requests
type CartHandler struct {
	cartFlow  businessflow.CartFlow
	validator *validator.Validate
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartFlow businessflow.CartFlow) *CartHandler {
	return &CartHandler{
		cartFlow:  cartFlow,
		validator: validator.New(),
	}
}

func (h *CartHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CartHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// AddItem handles adding a number to the cart
// @Summary Add Cart Item
// @Description Add a phone number with its add-ons to the authenticated customer's cart
// @Tags Cart
// @Accept json
// @Produce json
// @Param request body dto.AddCartItemRequest true "Number selection"
// @Success 200 {object} dto.APIResponse{data=dto.CartSummaryResponse} "Item added"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 409 {object} dto.APIResponse "Number already in cart"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/cart/items [post]
func (h *CartHandler) AddItem(c fiber.Ctx) error {
	var req dto.AddCartItemRequest
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

	result, err := h.cartFlow.AddItem(createRequestContext(c, "/api/v1/cart/items"), customerID, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsInvalidForwardingType(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid forwarding type", "INVALID_FORWARDING_TYPE", nil)
		}
		if businessflow.IsCartItemNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Cart item not found", "CART_ITEM_NOT_FOUND", nil)
		}
		if businessflow.IsPhoneNumberAlreadyInCart(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Number is already in the cart", "NUMBER_ALREADY_IN_CART", nil)
		}

		log.Println("Adding cart item failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Adding cart item failed", "CART_ADD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Item added to cart", result)
}

// UpdateItem handles changing a cart item's add-ons or duration
// @Summary Update Cart Item
// @Description Update add-ons or duration on one cart item
// @Tags Cart
// @Accept json
// @Produce json
// @Param id path string true "Cart item ID"
// @Param request body dto.UpdateCartItemRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.CartSummaryResponse} "Item updated"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Cart item not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/cart/items/{id} [patch]
func (h *CartHandler) UpdateItem(c fiber.Ctx) error {
	var req dto.UpdateCartItemRequest
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

	itemID := c.Params("id")
	if itemID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Cart item ID is required", "MISSING_ITEM_ID", nil)
	}

	result, err := h.cartFlow.UpdateItem(createRequestContext(c, "/api/v1/cart/items/:id"), customerID, itemID, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsCartItemNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Cart item not found", "CART_ITEM_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidForwardingType(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid forwarding type", "INVALID_FORWARDING_TYPE", nil)
		}

		log.Println("Updating cart item failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Updating cart item failed", "CART_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Cart item updated", result)
}

// RemoveItem handles dropping one cart item
// @Summary Remove Cart Item
// @Description Remove one item from the cart
// @Tags Cart
// @Produce json
// @Param id path string true "Cart item ID"
// @Success 200 {object} dto.APIResponse{data=dto.CartSummaryResponse} "Item removed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Cart item not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/cart/items/{id} [delete]
func (h *CartHandler) RemoveItem(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	itemID := c.Params("id")
	if itemID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Cart item ID is required", "MISSING_ITEM_ID", nil)
	}

	result, err := h.cartFlow.RemoveItem(createRequestContext(c, "/api/v1/cart/items/:id"), customerID, itemID, clientMetadata(c))
	if err != nil {
		if businessflow.IsCartItemNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Cart item not found", "CART_ITEM_NOT_FOUND", nil)
		}

		log.Println("Removing cart item failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Removing cart item failed", "CART_REMOVE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Cart item removed", result)
}

// Clear handles emptying the cart
// @Summary Clear Cart
// @Description Remove everything from the cart
// @Tags Cart
// @Produce json
// @Success 200 {object} dto.APIResponse "Cart cleared"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/cart [delete]
func (h *CartHandler) Clear(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	if err := h.cartFlow.Clear(createRequestContext(c, "/api/v1/cart"), customerID); err != nil {
		log.Println("Clearing cart failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Clearing cart failed", "CART_CLEAR_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Cart cleared", nil)
}

// Summary handles the priced cart view
// @Summary Cart Summary
// @Description Retrieve the cart with per-item and overall totals
// @Tags Cart
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CartSummaryResponse} "Cart summary"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/cart [get]
func (h *CartHandler) Summary(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.cartFlow.Summary(createRequestContext(c, "/api/v1/cart"), customerID)
	if err != nil {
		log.Println("Loading cart failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Loading cart failed", "CART_LOAD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Cart summary", result)
}
