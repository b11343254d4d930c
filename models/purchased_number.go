// Package models contains domain entities and business models for the number store
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProvisioningStatus represents the lifecycle state of a purchased number
type ProvisioningStatus string

const (
	ProvisioningStatusPending      ProvisioningStatus = "pending"      // Materialized at checkout, not yet provisioned
	ProvisioningStatusProvisioning ProvisioningStatus = "provisioning" // Provider call in flight
	ProvisioningStatusActive       ProvisioningStatus = "active"       // Provider allocation succeeded, number usable
	ProvisioningStatusFailed       ProvisioningStatus = "failed"       // Provider call failed; retry is an explicit operator requeue
)

// PurchasedNumber is one row per cart item at checkout time. Status and the
// provider identifier are mutated only by the provisioning path; SMS fields
// only by the SMS configuration path. The two field sets are disjoint.
type PurchasedNumber struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`

	CustomerID uint `gorm:"not null;index" json:"customer_id"`
	OrderID    uint `gorm:"not null;index" json:"order_id"`

	// Link to the originating checkout session, duplicated from the order so
	// fulfillment lookups need no join
	CheckoutSessionID string `gorm:"type:varchar(255);not null;index" json:"checkout_session_id"`

	PhoneNumber string `gorm:"type:varchar(20);not null;index" json:"phone_number"`
	CountryCode string `gorm:"type:varchar(8);not null" json:"country_code"`
	AreaCode    string `gorm:"type:varchar(8);not null" json:"area_code"`

	MonthlyPrice uint64 `gorm:"not null" json:"monthly_price"` // integer cents
	SetupPrice   uint64 `gorm:"not null" json:"setup_price"`

	ProvisioningStatus ProvisioningStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"provisioning_status"`
	StatusReason       string             `gorm:"type:text" json:"status_reason"`
	IsActive           *bool              `gorm:"default:false;index" json:"is_active"`

	// Opaque identifier assigned by the telephony provider; nil until active
	ProviderNumberID *string `gorm:"type:varchar(255);index" json:"provider_number_id,omitempty"`

	SMSEnabled *bool `gorm:"default:false" json:"sms_enabled"`

	CreatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	ProvisionedAt *time.Time `json:"provisioned_at,omitempty"`

	// Relationships
	Customer Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"customer,omitempty"`
	Order    Order    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order,omitempty"`
}

// BeforeCreate ensures the UUID is set
func (n *PurchasedNumber) BeforeCreate(tx *gorm.DB) error {
	if n.UUID == uuid.Nil {
		n.UUID = uuid.New()
	}
	return nil
}

func (PurchasedNumber) TableName() string {
	return "purchased_numbers"
}

// IsProvisioned returns true once the number reached the active state
func (n *PurchasedNumber) IsProvisioned() bool {
	return n.ProvisioningStatus == ProvisioningStatusActive
}

// PurchasedNumberFilter represents filter criteria for purchased number queries
type PurchasedNumberFilter struct {
	ID                 *uint
	UUID               *uuid.UUID
	CustomerID         *uint
	OrderID            *uint
	CheckoutSessionID  *string
	PhoneNumber        *string
	ProvisioningStatus *ProvisioningStatus
	IsActive           *bool
	SMSEnabled         *bool
	CreatedAfter       *time.Time
	CreatedBefore      *time.Time
}
