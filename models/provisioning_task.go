// Package models contains domain entities and business models for the number store
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProvisioningTaskStatus represents the status of a queue entry
type ProvisioningTaskStatus string

const (
	ProvisioningTaskStatusQueued     ProvisioningTaskStatus = "queued"
	ProvisioningTaskStatusInProgress ProvisioningTaskStatus = "in_progress"
	ProvisioningTaskStatusCompleted  ProvisioningTaskStatus = "completed"
	ProvisioningTaskStatusFailed     ProvisioningTaskStatus = "failed"
)

// ProvisioningOperation is the kind of work a queue entry requests
type ProvisioningOperation string

const (
	ProvisioningOperationProvision ProvisioningOperation = "provision"
)

// Task priority bands. Higher value means more urgent; within a band the
// queue is FIFO by enqueue time.
const (
	TaskPriorityDefault = 0
	TaskPriorityRequeue = 10 // operator-driven retries jump the default band
)

// ProvisioningTask is one durable provisioning attempt for a purchased
// number. At most one task per number may be queued or in progress at a
// time; the enqueue path enforces this by checking current tasks, callers
// must not write rows directly.
type ProvisioningTask struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`

	PurchasedNumberID uint `gorm:"not null;index" json:"purchased_number_id"`

	Operation ProvisioningOperation `gorm:"type:varchar(30);not null;default:'provision'" json:"operation"`
	Priority  int                   `gorm:"not null;default:0;index" json:"priority"`

	// Attempt payload: provisioning config options plus the requesting user
	Payload json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"payload"`

	Status        ProvisioningTaskStatus `gorm:"type:varchar(20);not null;default:'queued';index" json:"status"`
	FailureReason string                 `gorm:"type:text" json:"failure_reason"`

	CreatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Relationships
	PurchasedNumber PurchasedNumber `gorm:"foreignKey:PurchasedNumberID;constraint:OnDelete:CASCADE" json:"purchased_number,omitempty"`
}

// BeforeCreate ensures the UUID is set
func (t *ProvisioningTask) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	return nil
}

func (ProvisioningTask) TableName() string {
	return "provisioning_tasks"
}

// IsOpen reports whether the task still occupies the per-number slot
func (t *ProvisioningTask) IsOpen() bool {
	return t.Status == ProvisioningTaskStatusQueued || t.Status == ProvisioningTaskStatusInProgress
}

// ProvisioningTaskFilter represents filter criteria for task queries
type ProvisioningTaskFilter struct {
	ID                *uint
	UUID              *uuid.UUID
	PurchasedNumberID *uint
	Operation         *ProvisioningOperation
	Status            *ProvisioningTaskStatus
	Priority          *int
	CreatedAfter      *time.Time
	CreatedBefore     *time.Time
}
