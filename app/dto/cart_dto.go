package dto

import "time"

// AddCartItemRequest represents the request to add a phone number to the cart
type AddCartItemRequest struct {
	PhoneNumber     string `json:"phone_number" validate:"required,min=5,max=20"`                 // Number to purchase, E.164-ish
	CountryCode     string `json:"country_code" validate:"required,min=1,max=8"`                  // Country calling code, e.g. "1"
	AreaCode        string `json:"area_code" validate:"omitempty,max=8"`                          // Area code within the country
	MonthlyPrice    uint64 `json:"monthly_price" validate:"required,min=1"`                       // Base recurring price in cents
	SetupPrice      uint64 `json:"setup_price" validate:"omitempty"`                              // One-time setup price in cents
	SMSEnabled      bool   `json:"sms_enabled"`                                                   // Whether the SMS add-on is selected
	SMSPrice        uint64 `json:"sms_price" validate:"omitempty"`                                // SMS add-on recurring price in cents
	ForwardingType  string `json:"forwarding_type" validate:"omitempty,oneof=none call sms both"` // Forwarding add-on kind
	ForwardingPrice uint64 `json:"forwarding_price" validate:"omitempty"`                         // Forwarding recurring price in cents
	MonthlyDuration uint   `json:"monthly_duration" validate:"required,min=1,max=120"`            // Subscription length in months
}

// UpdateCartItemRequest represents a partial update of a cart item's add-ons
type UpdateCartItemRequest struct {
	SMSEnabled      *bool   `json:"sms_enabled,omitempty"`                                                   // Toggle the SMS add-on
	ForwardingType  *string `json:"forwarding_type,omitempty" validate:"omitempty,oneof=none call sms both"` // Change forwarding kind
	MonthlyDuration *uint   `json:"monthly_duration,omitempty" validate:"omitempty,min=1,max=120"`           // Change subscription length
}

// CartItemDTO represents one cart line in API responses
type CartItemDTO struct {
	ID              string    `json:"id"`               // Cart item identifier
	PhoneNumber     string    `json:"phone_number"`     // Selected number
	CountryCode     string    `json:"country_code"`     // Country calling code
	AreaCode        string    `json:"area_code"`        // Area code
	MonthlyPrice    uint64    `json:"monthly_price"`    // Base recurring price in cents
	SetupPrice      uint64    `json:"setup_price"`      // One-time setup price in cents
	SMSEnabled      bool      `json:"sms_enabled"`      // SMS add-on selected
	SMSPrice        uint64    `json:"sms_price"`        // SMS add-on price in cents
	ForwardingType  string    `json:"forwarding_type"`  // Forwarding add-on kind
	ForwardingPrice uint64    `json:"forwarding_price"` // Forwarding price in cents
	MonthlyDuration uint      `json:"monthly_duration"` // Subscription length in months, post-normalization
	ItemTotal       uint64    `json:"item_total"`       // Full price of this line in cents
	AddedAt         time.Time `json:"added_at"`         // When the item entered the cart
}

// CartSummaryResponse represents the priced cart
type CartSummaryResponse struct {
	Items     []CartItemDTO `json:"items"`      // Cart lines with per-line totals
	ItemCount int           `json:"item_count"` // Number of lines
	Total     uint64        `json:"total"`      // Sum of line totals in cents
	Currency  string        `json:"currency"`   // ISO 4217 code
}
