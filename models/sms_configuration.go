// Package models contains domain entities and business models for the number store
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SmsConfiguration holds per-number SMS settings. Created lazily the first
// time an owner touches the configuration of an active, SMS-enabled number.
type SmsConfiguration struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`

	PurchasedNumberID uint `gorm:"not null;uniqueIndex:uk_sms_configurations_number" json:"purchased_number_id"`

	AutoReplyEnabled *bool  `gorm:"default:false" json:"auto_reply_enabled"`
	AutoReplyMessage string `gorm:"type:text" json:"auto_reply_message"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relationships
	PurchasedNumber PurchasedNumber `gorm:"foreignKey:PurchasedNumberID;constraint:OnDelete:CASCADE" json:"purchased_number,omitempty"`
}

// BeforeCreate ensures the UUID is set
func (c *SmsConfiguration) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	return nil
}

func (SmsConfiguration) TableName() string {
	return "sms_configurations"
}

// SmsConfigurationFilter represents filter criteria for SMS configuration queries
type SmsConfigurationFilter struct {
	ID                *uint
	UUID              *uuid.UUID
	PurchasedNumberID *uint
	AutoReplyEnabled  *bool
}
