// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/utils"
	"gorm.io/gorm"
)

// SmsConfigurationRepositoryImpl implements SmsConfigurationRepository interface
type SmsConfigurationRepositoryImpl struct {
	*BaseRepository[models.SmsConfiguration, models.SmsConfigurationFilter]
}

// NewSmsConfigurationRepository creates a new SMS configuration repository
func NewSmsConfigurationRepository(db *gorm.DB) SmsConfigurationRepository {
	return &SmsConfigurationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SmsConfiguration, models.SmsConfigurationFilter](db),
	}
}

// ByPurchasedNumberID retrieves the configuration owned by a number
func (r *SmsConfigurationRepositoryImpl) ByPurchasedNumberID(ctx context.Context, numberID uint) (*models.SmsConfiguration, error) {
	filter := models.SmsConfigurationFilter{PurchasedNumberID: &numberID}
	configs, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, nil
	}
	return configs[0], nil
}

// Update updates mutable fields for an SMS configuration by ID
func (r *SmsConfigurationRepositoryImpl) Update(ctx context.Context, config *models.SmsConfiguration) error {
	if config == nil {
		return errors.New("sms configuration payload is nil")
	}
	if config.ID == 0 {
		return errors.New("sms configuration ID is required for update")
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
	if config.AutoReplyEnabled != nil {
		updates["auto_reply_enabled"] = *config.AutoReplyEnabled
	}
	if config.AutoReplyMessage != "" {
		updates["auto_reply_message"] = config.AutoReplyMessage
	}

	result := db.Model(&models.SmsConfiguration{}).
		Where("id = ?", config.ID).
		Updates(updates)

	if result.Error != nil {
		err = result.Error
		return err
	}
	if result.RowsAffected == 0 {
		err = errors.New("sms configuration not found with ID: " + strconv.Itoa(int(config.ID)))
		return err
	}
	return nil
}

// applyFilter applies filter criteria to a GORM query
func (r *SmsConfigurationRepositoryImpl) applyFilter(query *gorm.DB, filter models.SmsConfigurationFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.PurchasedNumberID != nil {
		query = query.Where("purchased_number_id = ?", *filter.PurchasedNumberID)
	}
	if filter.AutoReplyEnabled != nil {
		query = query.Where("auto_reply_enabled = ?", *filter.AutoReplyEnabled)
	}
	return query
}

// ByFilter retrieves SMS configurations based on filter criteria
func (r *SmsConfigurationRepositoryImpl) ByFilter(ctx context.Context, filter models.SmsConfigurationFilter, orderBy string, limit, offset int) ([]*models.SmsConfiguration, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.SmsConfiguration{})

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

	var configs []*models.SmsConfiguration
	if err := query.Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// Count returns the number of configurations matching the filter
func (r *SmsConfigurationRepositoryImpl) Count(ctx context.Context, filter models.SmsConfigurationFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.SmsConfiguration{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any configuration matching the filter exists
func (r *SmsConfigurationRepositoryImpl) Exists(ctx context.Context, filter models.SmsConfigurationFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
