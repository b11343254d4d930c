package dto

import "time"

// CreateCheckoutSessionRequest represents the request to start a hosted checkout
type CreateCheckoutSessionRequest struct {
	SuccessURL string `json:"success_url" validate:"required,url"` // Where the gateway redirects after payment
	CancelURL  string `json:"cancel_url" validate:"required,url"`  // Where the gateway redirects on abandonment
}

// CheckoutSessionResponse represents a created gateway session
type CheckoutSessionResponse struct {
	SessionID   string `json:"session_id"`   // Gateway session identifier
	RedirectURL string `json:"redirect_url"` // Hosted payment page URL
	Total       uint64 `json:"total"`        // Amount the session was created for, in cents
	Currency    string `json:"currency"`     // ISO 4217 code
}

// CompleteCheckoutRequest represents the post-payment completion callback
type CompleteCheckoutRequest struct {
	SessionID string `json:"session_id" validate:"required,min=1,max=255"` // Gateway session identifier
}

// PurchasedNumberDTO represents one owned number in API responses
type PurchasedNumberDTO struct {
	UUID               string     `json:"uuid"`                     // Number identifier
	PhoneNumber        string     `json:"phone_number"`             // The number itself
	CountryCode        string     `json:"country_code"`             // Country calling code
	AreaCode           string     `json:"area_code"`                // Area code
	ProvisioningStatus string     `json:"provisioning_status"`      // pending, provisioning, active or failed
	StatusReason       string     `json:"status_reason,omitempty"`  // Failure detail when status is failed
	IsActive           bool       `json:"is_active"`                // Usable on the provider
	SMSEnabled         bool       `json:"sms_enabled"`              // SMS add-on purchased
	ProvisionedAt      *time.Time `json:"provisioned_at,omitempty"` // When the number went active
	CreatedAt          time.Time  `json:"created_at"`               // When the number was materialized
}

// OrderResponse represents a materialized order with its numbers
type OrderResponse struct {
	UUID              string               `json:"uuid"`                // Order identifier
	CheckoutSessionID string               `json:"checkout_session_id"` // Gateway session the order came from
	TotalAmount       uint64               `json:"total_amount"`        // Charged amount in cents
	Currency          string               `json:"currency"`            // ISO 4217 code
	CreatedAt         time.Time            `json:"created_at"`          // Materialization time
	Numbers           []PurchasedNumberDTO `json:"numbers"`             // Numbers created by this order
}

// ListOrdersRequest represents the request to page through a customer's orders
type ListOrdersRequest struct {
	Page     uint `json:"page" validate:"min=1"`              // Page number (1-based)
	PageSize uint `json:"page_size" validate:"min=1,max=100"` // Number of items per page
}

// ListOrdersResponse represents a page of orders
type ListOrdersResponse struct {
	Orders     []OrderResponse `json:"orders"`     // Orders, newest first
	Pagination PaginationInfo  `json:"pagination"` // Pagination information
}
