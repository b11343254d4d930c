// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/Gashadokuro/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CustomerRepository defines operations for customers
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByEmail(ctx context.Context, email string) (*models.Customer, error)
	ByUUID(ctx context.Context, uuid string) (*models.Customer, error)
}

// OrderRepository defines operations for orders
type OrderRepository interface {
	Repository[models.Order, models.OrderFilter]
	ByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.Order, error)
}

// PurchasedNumberRepository defines operations for purchased numbers
type PurchasedNumberRepository interface {
	Repository[models.PurchasedNumber, models.PurchasedNumberFilter]
	ByUUID(ctx context.Context, uuid string) (*models.PurchasedNumber, error)
	ByPhoneNumber(ctx context.Context, phoneNumber string) (*models.PurchasedNumber, error)
	ListByCheckoutSession(ctx context.Context, sessionID string) ([]*models.PurchasedNumber, error)
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.PurchasedNumber, error)
	// ByIDForUpdate loads a number under a row lock. Callers must hold a
	// transaction in ctx; the lock is what makes the status guard in the
	// provisioning flow read-then-write atomic.
	ByIDForUpdate(ctx context.Context, id uint) (*models.PurchasedNumber, error)
	UpdateProvisioningState(ctx context.Context, number *models.PurchasedNumber) error
	UpdateSMSFields(ctx context.Context, numberID uint, smsEnabled *bool) error
}

// ProvisioningTaskRepository defines operations for the provisioning queue
type ProvisioningTaskRepository interface {
	Repository[models.ProvisioningTask, models.ProvisioningTaskFilter]
	// Enqueue inserts a queued task unless the number already has an open
	// (queued or in-progress) one, in which case it returns that task and
	// enqueued=false.
	Enqueue(ctx context.Context, task *models.ProvisioningTask) (enqueued bool, open *models.ProvisioningTask, err error)
	// ClaimNext atomically claims the oldest entry in the highest priority
	// band, moving it to in_progress. Returns nil when the queue is empty.
	ClaimNext(ctx context.Context) (*models.ProvisioningTask, error)
	MarkCompleted(ctx context.Context, taskID uint) error
	MarkFailed(ctx context.Context, taskID uint, reason string) error
	// CompleteStaleFailed marks failed entries for a number as completed so
	// they stop showing up in failure reports after an operator requeue.
	CompleteStaleFailed(ctx context.Context, purchasedNumberID uint) (int64, error)
	ListFailed(ctx context.Context, limit, offset int) ([]*models.ProvisioningTask, error)
	CountByStatus(ctx context.Context, status models.ProvisioningTaskStatus) (int64, error)
}

// SmsConfigurationRepository defines operations for SMS configurations
type SmsConfigurationRepository interface {
	Repository[models.SmsConfiguration, models.SmsConfigurationFilter]
	ByPurchasedNumberID(ctx context.Context, numberID uint) (*models.SmsConfiguration, error)
	Update(ctx context.Context, config *models.SmsConfiguration) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
}
