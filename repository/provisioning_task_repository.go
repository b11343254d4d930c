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

// ProvisioningTaskRepositoryImpl implements ProvisioningTaskRepository interface
type ProvisioningTaskRepositoryImpl struct {
	*BaseRepository[models.ProvisioningTask, models.ProvisioningTaskFilter]
}

// NewProvisioningTaskRepository creates a new provisioning task repository
func NewProvisioningTaskRepository(db *gorm.DB) ProvisioningTaskRepository {
	return &ProvisioningTaskRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ProvisioningTask, models.ProvisioningTaskFilter](db),
	}
}

// Enqueue inserts a queued task for a number unless one is already open.
// The open-task check and the insert run in one transaction so two callers
// racing on the same number cannot both enqueue.
func (r *ProvisioningTaskRepositoryImpl) Enqueue(ctx context.Context, task *models.ProvisioningTask) (bool, *models.ProvisioningTask, error) {
	if task == nil {
		return false, nil, errors.New("task payload is nil")
	}
	if task.PurchasedNumberID == 0 {
		return false, nil, errors.New("task purchased number ID is required")
	}
	if task.Operation == "" {
		task.Operation = models.ProvisioningOperationProvision
	}
	if task.Status == "" {
		task.Status = models.ProvisioningTaskStatusQueued
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, nil, err
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

	var open models.ProvisioningTask
	err = db.Where("purchased_number_id = ? AND status IN ?",
		task.PurchasedNumberID,
		[]models.ProvisioningTaskStatus{models.ProvisioningTaskStatusQueued, models.ProvisioningTaskStatusInProgress}).
		Order("id DESC").
		First(&open).Error
	if err == nil {
		return false, &open, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, err
	}
	err = nil // not-found is the go-ahead

	if err = db.Create(task).Error; err != nil {
		return false, nil, err
	}
	return true, task, nil
}

// claimNextSQL claims the oldest queued entry in the highest priority band.
// SKIP LOCKED makes concurrent workers pass over rows another worker is
// claiming instead of blocking or double-claiming.
const claimNextSQL = `
UPDATE provisioning_tasks
SET status = 'in_progress', started_at = NOW(), updated_at = NOW()
WHERE id = (
    SELECT id FROM provisioning_tasks
    WHERE status = 'queued'
    ORDER BY priority DESC, created_at ASC, id ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING *`

// ClaimNext atomically transitions the next queued task to in_progress and
// returns it, or nil when the queue is empty
func (r *ProvisioningTaskRepositoryImpl) ClaimNext(ctx context.Context) (*models.ProvisioningTask, error) {
	db := r.getDB(ctx)

	var task models.ProvisioningTask
	result := db.Raw(claimNextSQL).Scan(&task)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &task, nil
}

// MarkCompleted finalizes a task as completed
func (r *ProvisioningTaskRepositoryImpl) MarkCompleted(ctx context.Context, taskID uint) error {
	return r.finalize(ctx, taskID, models.ProvisioningTaskStatusCompleted, "")
}

// MarkFailed finalizes a task as failed with the reason recorded. It never
// re-enqueues; retries are a distinct, explicit Enqueue by an operator.
func (r *ProvisioningTaskRepositoryImpl) MarkFailed(ctx context.Context, taskID uint, reason string) error {
	return r.finalize(ctx, taskID, models.ProvisioningTaskStatusFailed, reason)
}

func (r *ProvisioningTaskRepositoryImpl) finalize(ctx context.Context, taskID uint, status models.ProvisioningTaskStatus, reason string) error {
	if taskID == 0 {
		return errors.New("task ID is required")
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
		"status":      status,
		"finished_at": utils.UTCNow(),
		"updated_at":  utils.UTCNow(),
	}
	if reason != "" {
		updates["failure_reason"] = reason
	}

	result := db.Model(&models.ProvisioningTask{}).
		Where("id = ? AND status = ?", taskID, models.ProvisioningTaskStatusInProgress).
		Updates(updates)

	if result.Error != nil {
		err = result.Error
		return err
	}
	if result.RowsAffected == 0 {
		err = errors.New("no in-progress task with ID: " + strconv.Itoa(int(taskID)))
		return err
	}
	return nil
}

// CompleteStaleFailed flips failed entries for a number to completed so a
// requeued number does not keep resurfacing old failures in reports
func (r *ProvisioningTaskRepositoryImpl) CompleteStaleFailed(ctx context.Context, purchasedNumberID uint) (int64, error) {
	if purchasedNumberID == 0 {
		return 0, errors.New("purchased number ID is required")
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
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

	result := db.Model(&models.ProvisioningTask{}).
		Where("purchased_number_id = ? AND status = ?", purchasedNumberID, models.ProvisioningTaskStatusFailed).
		Updates(map[string]any{
			"status":     models.ProvisioningTaskStatusCompleted,
			"updated_at": utils.UTCNow(),
		})
	if result.Error != nil {
		err = result.Error
		return 0, err
	}
	return result.RowsAffected, nil
}

// ListFailed retrieves failed tasks for operator review, newest first
func (r *ProvisioningTaskRepositoryImpl) ListFailed(ctx context.Context, limit, offset int) ([]*models.ProvisioningTask, error) {
	status := models.ProvisioningTaskStatusFailed
	filter := models.ProvisioningTaskFilter{Status: &status}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// CountByStatus returns how many tasks sit in the given status
func (r *ProvisioningTaskRepositoryImpl) CountByStatus(ctx context.Context, status models.ProvisioningTaskStatus) (int64, error) {
	return r.Count(ctx, models.ProvisioningTaskFilter{Status: &status})
}

// applyFilter applies filter criteria to a GORM query
func (r *ProvisioningTaskRepositoryImpl) applyFilter(query *gorm.DB, filter models.ProvisioningTaskFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.PurchasedNumberID != nil {
		query = query.Where("purchased_number_id = ?", *filter.PurchasedNumberID)
	}
	if filter.Operation != nil {
		query = query.Where("operation = ?", *filter.Operation)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves provisioning tasks based on filter criteria
func (r *ProvisioningTaskRepositoryImpl) ByFilter(ctx context.Context, filter models.ProvisioningTaskFilter, orderBy string, limit, offset int) ([]*models.ProvisioningTask, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.ProvisioningTask{})

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

	var tasks []*models.ProvisioningTask
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Count returns the number of tasks matching the filter
func (r *ProvisioningTaskRepositoryImpl) Count(ctx context.Context, filter models.ProvisioningTaskFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.ProvisioningTask{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any task matching the filter exists
func (r *ProvisioningTaskRepositoryImpl) Exists(ctx context.Context, filter models.ProvisioningTaskFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
