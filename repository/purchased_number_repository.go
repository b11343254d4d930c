// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchasedNumberRepositoryImpl implements PurchasedNumberRepository interface
type PurchasedNumberRepositoryImpl struct {
	*BaseRepository[models.PurchasedNumber, models.PurchasedNumberFilter]
}

// NewPurchasedNumberRepository creates a new purchased number repository
func NewPurchasedNumberRepository(db *gorm.DB) PurchasedNumberRepository {
	return &PurchasedNumberRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PurchasedNumber, models.PurchasedNumberFilter](db),
	}
}

// ByUUID retrieves a purchased number by UUID (string). A malformed UUID
// cannot match any row, so it is reported as not found rather than an error.
func (r *PurchasedNumberRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.PurchasedNumber, error) {
	parsed, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, nil
	}

	filter := models.PurchasedNumberFilter{UUID: &parsed}
	numbers, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(numbers) == 0 {
		return nil, nil
	}
	return numbers[0], nil
}

// ByPhoneNumber retrieves a purchased number by its phone number value
func (r *PurchasedNumberRepositoryImpl) ByPhoneNumber(ctx context.Context, phoneNumber string) (*models.PurchasedNumber, error) {
	filter := models.PurchasedNumberFilter{PhoneNumber: &phoneNumber}
	numbers, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(numbers) == 0 {
		return nil, nil
	}
	return numbers[0], nil
}

// ListByCheckoutSession retrieves all numbers materialized for a session
func (r *PurchasedNumberRepositoryImpl) ListByCheckoutSession(ctx context.Context, sessionID string) ([]*models.PurchasedNumber, error) {
	filter := models.PurchasedNumberFilter{CheckoutSessionID: &sessionID}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ListByCustomer retrieves numbers owned by a customer, newest first
func (r *PurchasedNumberRepositoryImpl) ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.PurchasedNumber, error) {
	filter := models.PurchasedNumberFilter{CustomerID: &customerID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// ByIDForUpdate loads a number under FOR UPDATE. Requires a transaction in
// ctx; without one the lock would be released immediately and the status
// guard would race.
func (r *PurchasedNumberRepositoryImpl) ByIDForUpdate(ctx context.Context, id uint) (*models.PurchasedNumber, error) {
	tx, ok := ctx.Value(TxContextKey).(*gorm.DB)
	if !ok || tx == nil {
		return nil, errors.New("ByIDForUpdate requires a transaction in context")
	}

	var number models.PurchasedNumber
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&number).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &number, nil
}

// UpdateProvisioningState persists the provisioning-owned fields: status,
// reason, active flag, provider identifier and provisioned timestamp
func (r *PurchasedNumberRepositoryImpl) UpdateProvisioningState(ctx context.Context, number *models.PurchasedNumber) error {
	if number == nil {
		return errors.New("purchased number payload is nil")
	}
	if number.ID == 0 {
		return errors.New("purchased number ID is required for update")
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	updates := map[string]any{
		"provisioning_status": number.ProvisioningStatus,
		"status_reason":       number.StatusReason,
		"updated_at":          utils.UTCNow(),
	}
	if number.IsActive != nil {
		updates["is_active"] = *number.IsActive
	}
	if number.ProviderNumberID != nil {
		updates["provider_number_id"] = *number.ProviderNumberID
	}
	if number.ProvisionedAt != nil {
		updates["provisioned_at"] = *number.ProvisionedAt
	}

	result := db.Model(&models.PurchasedNumber{}).
		Where("id = ?", number.ID).
		Updates(updates)

	if result.Error != nil {
		err = result.Error
		return err
	}
	if result.RowsAffected == 0 {
		err = errors.New("purchased number not found with ID: " + strconv.Itoa(int(number.ID)))
		return err
	}
	return nil
}

// UpdateSMSFields persists the SMS-owned field set, disjoint from the
// provisioning fields so the two mutation paths need no mutual exclusion
func (r *PurchasedNumberRepositoryImpl) UpdateSMSFields(ctx context.Context, numberID uint, smsEnabled *bool) error {
	if numberID == 0 {
		return errors.New("purchased number ID is required for update")
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	updates := map[string]any{
		"updated_at": utils.UTCNow(),
	}
	if smsEnabled != nil {
		updates["sms_enabled"] = *smsEnabled
	}

	result := db.Model(&models.PurchasedNumber{}).
		Where("id = ?", numberID).
		Updates(updates)

	if result.Error != nil {
		err = result.Error
		return err
	}
	if result.RowsAffected == 0 {
		err = errors.New("purchased number not found with ID: " + strconv.Itoa(int(numberID)))
		return err
	}
	return nil
}

// applyFilter applies filter criteria to a GORM query
func (r *PurchasedNumberRepositoryImpl) applyFilter(query *gorm.DB, filter models.PurchasedNumberFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if filter.CheckoutSessionID != nil {
		query = query.Where("checkout_session_id = ?", *filter.CheckoutSessionID)
	}
	if filter.PhoneNumber != nil {
		query = query.Where("phone_number = ?", *filter.PhoneNumber)
	}
	if filter.ProvisioningStatus != nil {
		query = query.Where("provisioning_status = ?", *filter.ProvisioningStatus)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.SMSEnabled != nil {
		query = query.Where("sms_enabled = ?", *filter.SMSEnabled)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves purchased numbers based on filter criteria
func (r *PurchasedNumberRepositoryImpl) ByFilter(ctx context.Context, filter models.PurchasedNumberFilter, orderBy string, limit, offset int) ([]*models.PurchasedNumber, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.PurchasedNumber{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var numbers []*models.PurchasedNumber
	if err := query.Find(&numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

// Count returns the number of purchased numbers matching the filter
func (r *PurchasedNumberRepositoryImpl) Count(ctx context.Context, filter models.PurchasedNumberFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.PurchasedNumber{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any purchased number matching the filter exists
func (r *PurchasedNumberRepositoryImpl) Exists(ctx context.Context, filter models.PurchasedNumberFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
