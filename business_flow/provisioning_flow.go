package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/amirphl/Gashadokuro/app/dto"
	"github.com/amirphl/Gashadokuro/app/services"
	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/repository"
	"github.com/amirphl/Gashadokuro/utils"
	"gorm.io/gorm"
)

// ProvisioningFlow defines number lifecycle operations: the worker-side
// state machine and the customer and operator views over it
type ProvisioningFlow interface {
	// ProvisionNumber executes one claimed queue entry. The provider call
	// runs outside any transaction; only the state transitions around it
	// are transactional.
	ProvisionNumber(ctx context.Context, task *models.ProvisioningTask) error

	// TriggerProvisioning enqueues a provisioning task for an owned number.
	// Idempotent while a task is open: replays return the open task.
	TriggerProvisioning(ctx context.Context, customerID uint, numberUUID string, metadata *ClientMetadata) (*dto.ProvisionNumberResponse, error)

	GetNumber(ctx context.Context, customerID uint, numberUUID string) (*dto.PurchasedNumberDTO, error)
	ListNumbers(ctx context.Context, customerID uint, page, pageSize uint) ([]dto.PurchasedNumberDTO, error)

	// Operator operations, gated on the injected authorizer
	RequeueNumber(ctx context.Context, actor *models.Customer, req *dto.RequeueNumberRequest, metadata *ClientMetadata) (*dto.ProvisionNumberResponse, error)
	QueueStats(ctx context.Context, actor *models.Customer) (*dto.QueueStatsResponse, error)
	ListFailedTasks(ctx context.Context, actor *models.Customer, page, pageSize uint) (*dto.ListFailedTasksResponse, error)
}

// provisioningPayload is what checkout stores on each queue entry
type provisioningPayload struct {
	ForwardingType models.ForwardingType `json:"forwarding_type"`
	SMSEnabled     bool                  `json:"sms_enabled"`
}

// ProvisioningFlowImpl implements the provisioning business logic
type ProvisioningFlowImpl struct {
	numberRepo   repository.PurchasedNumberRepository
	taskRepo     repository.ProvisioningTaskRepository
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditLogRepository
	provider     services.TelephonyProvider
	notifier     services.NotificationService
	authorizer   services.Authorizer
	db           *gorm.DB
	logger       *log.Logger
}

// NewProvisioningFlow creates a new provisioning flow
func NewProvisioningFlow(
	numberRepo repository.PurchasedNumberRepository,
	taskRepo repository.ProvisioningTaskRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditLogRepository,
	provider services.TelephonyProvider,
	notifier services.NotificationService,
	authorizer services.Authorizer,
	db *gorm.DB,
) ProvisioningFlow {
	return &ProvisioningFlowImpl{
		numberRepo:   numberRepo,
		taskRepo:     taskRepo,
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		provider:     provider,
		notifier:     notifier,
		authorizer:   authorizer,
		db:           db,
		logger:       log.New(os.Stdout, "[ProvisioningFlow] ", log.LstdFlags),
	}
}

// ProvisionNumber drives one number through pending -> provisioning and then
// to active or failed. The row lock plus status guard makes the transition
// safe against concurrent workers and operator requeues.
func (f *ProvisioningFlowImpl) ProvisionNumber(ctx context.Context, task *models.ProvisioningTask) error {
	var payload provisioningPayload
	if len(task.Payload) > 0 {
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return fmt.Errorf("failed to decode task payload: %w", err)
		}
	}

	var number *models.PurchasedNumber
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		locked, err := f.numberRepo.ByIDForUpdate(txCtx, task.PurchasedNumberID)
		if err != nil {
			return err
		}
		if locked == nil {
			return NewBusinessError("NUMBER_NOT_FOUND", "purchased number not found", ErrNumberNotFound)
		}

		switch locked.ProvisioningStatus {
		case models.ProvisioningStatusActive:
			return NewBusinessError("ALREADY_PROVISIONED", "number is already provisioned", ErrAlreadyProvisioned)
		case models.ProvisioningStatusProvisioning:
			return NewBusinessError("PROVISIONING_IN_PROGRESS", "provisioning is already in progress", ErrProvisioningInProgress)
		}

		locked.ProvisioningStatus = models.ProvisioningStatusProvisioning
		locked.StatusReason = ""
		if err := f.numberRepo.UpdateProvisioningState(txCtx, locked); err != nil {
			return err
		}
		number = locked
		return nil
	})
	if err != nil {
		return err
	}

	f.audit(ctx, &number.CustomerID, models.AuditActionProvisioningStarted,
		fmt.Sprintf("provisioning %s (task %s)", number.PhoneNumber, task.UUID), true, nil)

	allocation, providerErr := f.provider.AllocateNumber(ctx, number.PhoneNumber, number.CountryCode, payload.SMSEnabled, payload.ForwardingType)

	finalizeErr := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		locked, err := f.numberRepo.ByIDForUpdate(txCtx, number.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return NewBusinessError("NUMBER_NOT_FOUND", "purchased number not found", ErrNumberNotFound)
		}

		if providerErr != nil {
			locked.ProvisioningStatus = models.ProvisioningStatusFailed
			locked.StatusReason = providerErr.Error()
			locked.IsActive = utils.ToPtr(false)
		} else {
			locked.ProvisioningStatus = models.ProvisioningStatusActive
			locked.StatusReason = ""
			locked.IsActive = utils.ToPtr(true)
			locked.ProviderNumberID = utils.ToPtr(allocation.ProviderNumberID)
			locked.ProvisionedAt = utils.ToPtr(utils.UTCNow())
		}
		return f.numberRepo.UpdateProvisioningState(txCtx, locked)
	})
	if finalizeErr != nil {
		return finalizeErr
	}

	if providerErr != nil {
		f.audit(ctx, &number.CustomerID, models.AuditActionProvisioningFailed,
			fmt.Sprintf("provisioning %s failed: %v", number.PhoneNumber, providerErr), false, nil)
		return fmt.Errorf("provider allocation failed: %w", providerErr)
	}

	f.audit(ctx, &number.CustomerID, models.AuditActionProvisioningCompleted,
		fmt.Sprintf("%s active as %s", number.PhoneNumber, allocation.ProviderNumberID), true, nil)
	f.logger.Printf("Number %s provisioned as %s", number.PhoneNumber, allocation.ProviderNumberID)

	f.notifyActivated(number.CustomerID, number.PhoneNumber)

	return nil
}

// notifyActivated tells the owner their number went active. Best effort,
// runs detached so a slow mail relay never blocks the worker.
func (f *ProvisioningFlowImpl) notifyActivated(customerID uint, phoneNumber string) {
	go func() {
		ctx := context.Background()
		customer, err := f.customerRepo.ByID(ctx, customerID)
		if err != nil || customer == nil {
			f.logger.Printf("Skipping activation notice, customer %d lookup failed: %v", customerID, err)
			return
		}
		subject := "Your number is active"
		body := fmt.Sprintf("Hi %s, your number %s is now active and ready to use.", customer.FullName(), phoneNumber)
		if err := f.notifier.SendEmail(ctx, customer.Email, subject, body); err != nil {
			f.logger.Printf("Failed to send activation notice to customer %d: %v", customerID, err)
		}
	}()
}

// TriggerProvisioning queues an owned number for provisioning
func (f *ProvisioningFlowImpl) TriggerProvisioning(ctx context.Context, customerID uint, numberUUID string, metadata *ClientMetadata) (*dto.ProvisionNumberResponse, error) {
	number, err := f.ownedNumber(ctx, customerID, numberUUID)
	if err != nil {
		return nil, err
	}

	switch number.ProvisioningStatus {
	case models.ProvisioningStatusActive:
		return nil, NewBusinessError("ALREADY_PROVISIONED", "number is already provisioned", ErrAlreadyProvisioned)
	case models.ProvisioningStatusProvisioning:
		return nil, NewBusinessError("PROVISIONING_IN_PROGRESS", "provisioning is already in progress", ErrProvisioningInProgress)
	}

	payload, err := json.Marshal(provisioningPayload{SMSEnabled: utils.IsTrue(number.SMSEnabled)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode task payload: %w", err)
	}
	task := &models.ProvisioningTask{
		PurchasedNumberID: number.ID,
		Operation:         models.ProvisioningOperationProvision,
		Priority:          models.TaskPriorityDefault,
		Payload:           payload,
	}
	enqueued, open, err := f.taskRepo.Enqueue(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}
	if !enqueued {
		task = open
	}

	if enqueued {
		f.audit(ctx, &number.CustomerID, models.AuditActionProvisioningQueued,
			fmt.Sprintf("customer queued provisioning for %s (task %s)", number.PhoneNumber, task.UUID), true, metadata)
		f.dispatchDirect(task)
	}

	return &dto.ProvisionNumberResponse{
		NumberUUID: number.UUID.String(),
		TaskUUID:   task.UUID.String(),
		Status:     string(number.ProvisioningStatus),
		Queued:     enqueued,
	}, nil
}

// dispatchDirect makes the low latency provisioning attempt right after a
// task is queued. Best effort: the queued task stays the durable path, and
// whichever of this call and the worker runs second stops on the status
// guard inside ProvisionNumber. Flows wired without a transactional store
// or provider leave provisioning to the worker alone.
func (f *ProvisioningFlowImpl) dispatchDirect(task *models.ProvisioningTask) {
	if f.db == nil || f.provider == nil {
		return
	}
	go func() {
		if err := f.ProvisionNumber(context.Background(), task); err != nil {
			f.logger.Printf("Direct provisioning attempt for task %s stopped: %v", task.UUID, err)
		}
	}()
}

// GetNumber returns one of the customer's numbers
func (f *ProvisioningFlowImpl) GetNumber(ctx context.Context, customerID uint, numberUUID string) (*dto.PurchasedNumberDTO, error) {
	number, err := f.ownedNumber(ctx, customerID, numberUUID)
	if err != nil {
		return nil, err
	}
	resp := ToPurchasedNumberDTO(number)
	return &resp, nil
}

// ListNumbers pages through the customer's numbers, newest first
func (f *ProvisioningFlowImpl) ListNumbers(ctx context.Context, customerID uint, page, pageSize uint) ([]dto.PurchasedNumberDTO, error) {
	if page < 1 {
		return nil, NewBusinessError("INVALID_PAGE", "page must be at least 1", ErrInvalidPage)
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "page size must be between 1 and 100", ErrInvalidPageSize)
	}

	offset := int((page - 1) * pageSize)
	numbers, err := f.numberRepo.ListByCustomer(ctx, customerID, int(pageSize), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list numbers: %w", err)
	}

	out := make([]dto.PurchasedNumberDTO, 0, len(numbers))
	for _, number := range numbers {
		out = append(out, ToPurchasedNumberDTO(number))
	}
	return out, nil
}

// ownedNumber loads a number and enforces ownership. Not-found and
// not-owned are indistinguishable to the caller.
func (f *ProvisioningFlowImpl) ownedNumber(ctx context.Context, customerID uint, numberUUID string) (*models.PurchasedNumber, error) {
	number, err := f.numberRepo.ByUUID(ctx, numberUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load number: %w", err)
	}
	if number == nil || number.CustomerID != customerID {
		return nil, NewBusinessError("NUMBER_NOT_FOUND", "purchased number not found", ErrNumberNotFound)
	}
	return number, nil
}

// RequeueNumber is the operator retry path for failed numbers: reset the
// number to pending and enqueue a high priority task
func (f *ProvisioningFlowImpl) RequeueNumber(ctx context.Context, actor *models.Customer, req *dto.RequeueNumberRequest, metadata *ClientMetadata) (*dto.ProvisionNumberResponse, error) {
	if !f.authorizer.IsAdmin(actor) {
		return nil, NewBusinessError("OPERATOR_ACCESS_REQUIRED", "operator access required", ErrOperatorAccessRequired)
	}

	number, err := f.numberRepo.ByUUID(ctx, req.NumberUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load number: %w", err)
	}
	if number == nil {
		return nil, NewBusinessError("NUMBER_NOT_FOUND", "purchased number not found", ErrNumberNotFound)
	}

	var task *models.ProvisioningTask
	var queued bool
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		locked, err := f.numberRepo.ByIDForUpdate(txCtx, number.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return NewBusinessError("NUMBER_NOT_FOUND", "purchased number not found", ErrNumberNotFound)
		}
		if locked.ProvisioningStatus != models.ProvisioningStatusFailed {
			return NewBusinessError("NUMBER_NOT_FAILED", "number is not in a failed state", ErrNumberNotFailed)
		}

		locked.ProvisioningStatus = models.ProvisioningStatusPending
		locked.StatusReason = ""
		if err := f.numberRepo.UpdateProvisioningState(txCtx, locked); err != nil {
			return err
		}

		if _, err := f.taskRepo.CompleteStaleFailed(txCtx, locked.ID); err != nil {
			return err
		}

		payload, err := json.Marshal(provisioningPayload{SMSEnabled: utils.IsTrue(locked.SMSEnabled)})
		if err != nil {
			return fmt.Errorf("failed to encode task payload: %w", err)
		}
		task = &models.ProvisioningTask{
			PurchasedNumberID: locked.ID,
			Operation:         models.ProvisioningOperationProvision,
			Priority:          models.TaskPriorityRequeue,
			Payload:           payload,
		}
		enqueued, open, err := f.taskRepo.Enqueue(txCtx, task)
		if err != nil {
			return err
		}
		if !enqueued {
			task = open
		}
		queued = enqueued
		number = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.audit(ctx, &number.CustomerID, models.AuditActionProvisioningRequeued,
		fmt.Sprintf("operator %d requeued %s (task %s)", actor.ID, number.PhoneNumber, task.UUID), true, metadata)
	f.logger.Printf("Operator %d requeued number %s", actor.ID, number.PhoneNumber)

	return &dto.ProvisionNumberResponse{
		NumberUUID: number.UUID.String(),
		TaskUUID:   task.UUID.String(),
		Status:     string(number.ProvisioningStatus),
		Queued:     queued,
	}, nil
}

// QueueStats reports queue depth by status
func (f *ProvisioningFlowImpl) QueueStats(ctx context.Context, actor *models.Customer) (*dto.QueueStatsResponse, error) {
	if !f.authorizer.IsAdmin(actor) {
		return nil, NewBusinessError("OPERATOR_ACCESS_REQUIRED", "operator access required", ErrOperatorAccessRequired)
	}

	stats := &dto.QueueStatsResponse{}
	counts := []struct {
		status models.ProvisioningTaskStatus
		dest   *int64
	}{
		{models.ProvisioningTaskStatusQueued, &stats.Queued},
		{models.ProvisioningTaskStatusInProgress, &stats.InProgress},
		{models.ProvisioningTaskStatusCompleted, &stats.Completed},
		{models.ProvisioningTaskStatusFailed, &stats.Failed},
	}
	for _, c := range counts {
		n, err := f.taskRepo.CountByStatus(ctx, c.status)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s tasks: %w", c.status, err)
		}
		*c.dest = n
	}
	return stats, nil
}

// ListFailedTasks pages through failed queue entries for operator review
func (f *ProvisioningFlowImpl) ListFailedTasks(ctx context.Context, actor *models.Customer, page, pageSize uint) (*dto.ListFailedTasksResponse, error) {
	if !f.authorizer.IsAdmin(actor) {
		return nil, NewBusinessError("OPERATOR_ACCESS_REQUIRED", "operator access required", ErrOperatorAccessRequired)
	}
	if page < 1 {
		return nil, NewBusinessError("INVALID_PAGE", "page must be at least 1", ErrInvalidPage)
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "page size must be between 1 and 100", ErrInvalidPageSize)
	}

	offset := int((page - 1) * pageSize)
	tasks, err := f.taskRepo.ListFailed(ctx, int(pageSize), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed tasks: %w", err)
	}

	total, err := f.taskRepo.CountByStatus(ctx, models.ProvisioningTaskStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed tasks: %w", err)
	}

	resp := &dto.ListFailedTasksResponse{
		Tasks: make([]dto.FailedTaskDTO, 0, len(tasks)),
	}
	for _, task := range tasks {
		item := dto.FailedTaskDTO{
			TaskUUID:      task.UUID.String(),
			FailureReason: task.FailureReason,
			CreatedAt:     task.CreatedAt,
			FinishedAt:    task.FinishedAt,
		}
		number, err := f.numberRepo.ByID(ctx, task.PurchasedNumberID)
		if err == nil && number != nil {
			item.NumberUUID = number.UUID.String()
			item.PhoneNumber = number.PhoneNumber
		}
		resp.Tasks = append(resp.Tasks, item)
	}

	totalPages := (uint(total) + pageSize - 1) / pageSize
	resp.Pagination = dto.PaginationInfo{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  uint(total),
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
	return resp, nil
}

// audit writes an audit row, never failing the caller
func (f *ProvisioningFlowImpl) audit(ctx context.Context, customerID *uint, action, description string, success bool, metadata *ClientMetadata) {
	entry := &models.AuditLog{
		CustomerID:  customerID,
		Action:      action,
		Description: utils.ToPtr(description),
		Success:     utils.ToPtr(success),
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			entry.IPAddress = utils.ToPtr(metadata.IPAddress)
		}
		if metadata.UserAgent != "" {
			entry.UserAgent = utils.ToPtr(metadata.UserAgent)
		}
		if metadata.RequestID != "" {
			entry.RequestID = utils.ToPtr(metadata.RequestID)
		}
	}
	if err := f.auditRepo.Save(ctx, entry); err != nil {
		f.logger.Printf("Failed to write audit log (%s): %v", action, err)
	}
}
