// Package models contains domain entities and business models for the number store
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is created exactly once per confirmed checkout session. The gateway
// session identifier is the idempotency key: a unique index on it makes a
// replayed fulfillment fail at insert time regardless of the pre-check.
type Order struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`

	CustomerID uint `gorm:"not null;index" json:"customer_id"`

	CheckoutSessionID string `gorm:"type:varchar(255);uniqueIndex:uk_orders_checkout_session;not null" json:"checkout_session_id"`
	SubscriptionRef   string `gorm:"type:varchar(255);index" json:"subscription_ref"`

	TotalAmount uint64 `gorm:"not null" json:"total_amount"` // integer cents
	Currency    string `gorm:"type:varchar(3);not null" json:"currency"`

	// Status annotations from later reconciliation; the order itself is immutable
	StatusNote string `gorm:"type:text" json:"status_note"`

	Metadata  json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relationships
	Customer Customer          `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"customer,omitempty"`
	Numbers  []PurchasedNumber `gorm:"foreignKey:OrderID" json:"numbers,omitempty"`
}

// BeforeCreate ensures the UUID is set
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == uuid.Nil {
		o.UUID = uuid.New()
	}
	return nil
}

func (Order) TableName() string {
	return "orders"
}

// OrderFilter represents filter criteria for order queries
type OrderFilter struct {
	ID                *uint
	UUID              *uuid.UUID
	CustomerID        *uint
	CheckoutSessionID *string
	CreatedAfter      *time.Time
	CreatedBefore     *time.Time
}
