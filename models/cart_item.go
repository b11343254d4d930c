// Package models contains domain entities and business models for the number store
package models

import (
	"time"
)

// ForwardingType describes optional call/SMS forwarding sold with a number
type ForwardingType string

const (
	ForwardingNone ForwardingType = "none"
	ForwardingCall ForwardingType = "call"
	ForwardingSMS  ForwardingType = "sms"
	ForwardingBoth ForwardingType = "both"
)

// MinSMSDurationMonths is the minimum subscription length for SMS-enabled items.
// Items with the SMS add-on and a shorter duration are normalized up, never rejected.
const MinSMSDurationMonths = 6

// CartItem is a session-scoped selection of a phone number with its add-ons.
// Cart items live in the session cart store, not in Postgres; they become
// PurchasedNumber rows at checkout fulfillment. All prices are integer cents.
type CartItem struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
	CountryCode string `json:"country_code"`
	AreaCode    string `json:"area_code"`

	MonthlyPrice uint64 `json:"monthly_price"`
	SetupPrice   uint64 `json:"setup_price"`

	SMSEnabled bool   `json:"sms_enabled"`
	SMSPrice   uint64 `json:"sms_price"`

	ForwardingType  ForwardingType `json:"forwarding_type"`
	ForwardingPrice uint64         `json:"forwarding_price"`

	MonthlyDuration uint `json:"monthly_duration"`

	AddedAt time.Time `json:"added_at"`
}

// Normalize enforces the cart item invariants in place. Call before storing,
// on both add and update.
func (i *CartItem) Normalize() {
	if i.MonthlyDuration < 1 {
		i.MonthlyDuration = 1
	}
	if i.ForwardingType == "" {
		i.ForwardingType = ForwardingNone
	}
	if i.SMSEnabled && i.MonthlyDuration < MinSMSDurationMonths {
		i.MonthlyDuration = MinSMSDurationMonths
	}
}

// IsValidForwardingType reports whether v is one of the accepted forwarding kinds
func IsValidForwardingType(v ForwardingType) bool {
	switch v {
	case ForwardingNone, ForwardingCall, ForwardingSMS, ForwardingBoth:
		return true
	}
	return false
}
