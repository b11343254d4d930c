package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/amirphl/Gashadokuro/app/dto"
	"github.com/amirphl/Gashadokuro/app/services"
	"github.com/amirphl/Gashadokuro/config"
	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/repository"
	"github.com/amirphl/Gashadokuro/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CheckoutFlow defines the interface for checkout operations
type CheckoutFlow interface {
	CreateSession(ctx context.Context, customerID uint, req *dto.CreateCheckoutSessionRequest, metadata *ClientMetadata) (*dto.CheckoutSessionResponse, error)
	// CompleteSession materializes the order for a paid session. Safe to call
	// more than once for the same session; replays return the original order.
	CompleteSession(ctx context.Context, req *dto.CompleteCheckoutRequest, metadata *ClientMetadata) (*dto.OrderResponse, error)
	GetOrder(ctx context.Context, customerID uint, orderUUID string) (*dto.OrderResponse, error)
	// GetOrderBySession resolves a checkout session to its order; not found
	// until the session has been materialized.
	GetOrderBySession(ctx context.Context, customerID uint, sessionID string) (*dto.OrderResponse, error)
	ListOrders(ctx context.Context, customerID uint, req *dto.ListOrdersRequest) (*dto.ListOrdersResponse, error)
}

// checkoutSnapshot freezes the priced cart at session creation time so
// fulfillment materializes exactly what the customer paid for, regardless of
// later cart edits.
type checkoutSnapshot struct {
	CustomerID uint               `json:"customer_id"`
	Items      []*models.CartItem `json:"items"`
	Total      uint64             `json:"total"`
	Currency   string             `json:"currency"`
}

// CheckoutFlowImpl implements the checkout business logic
type CheckoutFlowImpl struct {
	customerRepo repository.CustomerRepository
	orderRepo    repository.OrderRepository
	numberRepo   repository.PurchasedNumberRepository
	taskRepo     repository.ProvisioningTaskRepository
	auditRepo    repository.AuditLogRepository
	cartFlow     CartFlow
	gateway      services.CheckoutGateway
	rc           *redis.Client
	cacheConfig  *config.CacheConfig
	db           *gorm.DB
	logger       *log.Logger
}

// NewCheckoutFlow creates a new checkout flow
func NewCheckoutFlow(
	customerRepo repository.CustomerRepository,
	orderRepo repository.OrderRepository,
	numberRepo repository.PurchasedNumberRepository,
	taskRepo repository.ProvisioningTaskRepository,
	auditRepo repository.AuditLogRepository,
	cartFlow CartFlow,
	gateway services.CheckoutGateway,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	db *gorm.DB,
) CheckoutFlow {
	return &CheckoutFlowImpl{
		customerRepo: customerRepo,
		orderRepo:    orderRepo,
		numberRepo:   numberRepo,
		taskRepo:     taskRepo,
		auditRepo:    auditRepo,
		cartFlow:     cartFlow,
		gateway:      gateway,
		rc:           rc,
		cacheConfig:  cacheConfig,
		db:           db,
		logger:       log.New(os.Stdout, "[CheckoutFlow] ", log.LstdFlags),
	}
}

func (f *CheckoutFlowImpl) snapshotKey(sessionID string) string {
	return redisKey(*f.cacheConfig, "checkout_session:"+sessionID)
}

// CreateSession prices the cart, opens a gateway session and freezes a
// snapshot of the cart under the session ID
func (f *CheckoutFlowImpl) CreateSession(ctx context.Context, customerID uint, req *dto.CreateCheckoutSessionRequest, metadata *ClientMetadata) (*dto.CheckoutSessionResponse, error) {
	customer, err := f.customerRepo.ByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	if customer == nil {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "customer not found", ErrCustomerNotFound)
	}
	if !utils.IsTrue(customer.IsActive) {
		return nil, NewBusinessError("ACCOUNT_INACTIVE", "account is inactive", ErrAccountInactive)
	}

	items, err := f.cartFlow.Items(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, NewBusinessError("CART_EMPTY", "cart is empty", ErrCartEmpty)
	}
	for _, item := range items {
		item.Normalize()
	}

	total := CartTotal(items)
	lineItems := make([]services.CheckoutLineItem, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, services.CheckoutLineItem{
			Description: fmt.Sprintf("%s (%d months)", item.PhoneNumber, item.MonthlyDuration),
			Quantity:    1,
			UnitAmount:  ItemTotal(item),
			Currency:    utils.DefaultCurrency,
		})
	}

	session, err := f.gateway.CreateCheckoutSession(ctx, customer.UUID.String(), lineItems, req.SuccessURL, req.CancelURL)
	if err != nil {
		f.audit(ctx, &customer.ID, models.AuditActionCheckoutSessionFailed, fmt.Sprintf("gateway session creation failed: %v", err), false, metadata)
		return nil, NewBusinessError("GATEWAY_FAILED", "payment gateway request failed", errors.Join(ErrCheckoutGatewayFailed, err))
	}

	snapshot := checkoutSnapshot{
		CustomerID: customerID,
		Items:      items,
		Total:      total,
		Currency:   utils.DefaultCurrency,
	}
	bs, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkout snapshot: %w", err)
	}
	if f.rc == nil {
		return nil, ErrCacheNotAvailable
	}
	if err := f.rc.Set(ctx, f.snapshotKey(session.SessionID), bs, utils.CheckoutSessionTTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to store checkout snapshot: %w", err)
	}

	f.audit(ctx, &customer.ID, models.AuditActionCheckoutSessionCreated,
		fmt.Sprintf("session %s for %d items, total %d", session.SessionID, len(items), total), true, metadata)
	f.logger.Printf("Created checkout session %s for customer %d (total %d)", session.SessionID, customerID, total)

	return &dto.CheckoutSessionResponse{
		SessionID:   session.SessionID,
		RedirectURL: session.RedirectURL,
		Total:       total,
		Currency:    utils.DefaultCurrency,
	}, nil
}

// CompleteSession turns a paid session into an order with its numbers and
// queue entries, exactly once per session
func (f *CheckoutFlowImpl) CompleteSession(ctx context.Context, req *dto.CompleteCheckoutRequest, metadata *ClientMetadata) (*dto.OrderResponse, error) {
	completed, err := f.gateway.IsCheckoutCompleted(ctx, req.SessionID)
	if err != nil {
		return nil, NewBusinessError("GATEWAY_FAILED", "payment gateway request failed", errors.Join(ErrCheckoutGatewayFailed, err))
	}
	if !completed {
		return nil, NewBusinessError("CHECKOUT_NOT_COMPLETED", "checkout session is not completed", ErrCheckoutNotCompleted)
	}

	// Replay fast path. The unique index on checkout_session_id is the hard
	// guarantee; this avoids burning a transaction on obvious duplicates.
	if existing, err := f.orderRepo.ByCheckoutSessionID(ctx, req.SessionID); err != nil {
		return nil, fmt.Errorf("failed to look up order: %w", err)
	} else if existing != nil {
		f.audit(ctx, &existing.CustomerID, models.AuditActionOrderReplayIgnored,
			fmt.Sprintf("session %s already materialized as order %s", req.SessionID, existing.UUID), true, metadata)
		return f.toOrderResponse(ctx, existing)
	}

	snapshot, err := f.loadSnapshot(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		order = &models.Order{
			CustomerID:        snapshot.CustomerID,
			CheckoutSessionID: req.SessionID,
			SubscriptionRef:   req.SessionID,
			TotalAmount:       snapshot.Total,
			Currency:          snapshot.Currency,
			Metadata:          json.RawMessage(`{}`),
		}
		if err := f.orderRepo.Save(txCtx, order); err != nil {
			return err
		}

		for _, item := range snapshot.Items {
			number := &models.PurchasedNumber{
				CustomerID:         snapshot.CustomerID,
				OrderID:            order.ID,
				CheckoutSessionID:  req.SessionID,
				PhoneNumber:        item.PhoneNumber,
				CountryCode:        item.CountryCode,
				AreaCode:           item.AreaCode,
				MonthlyPrice:       item.MonthlyPrice,
				SetupPrice:         item.SetupPrice,
				ProvisioningStatus: models.ProvisioningStatusPending,
				IsActive:           utils.ToPtr(false),
				SMSEnabled:         utils.ToPtr(item.SMSEnabled),
			}
			if err := f.numberRepo.Save(txCtx, number); err != nil {
				return err
			}

			payload, err := json.Marshal(map[string]any{
				"forwarding_type": item.ForwardingType,
				"sms_enabled":     item.SMSEnabled,
			})
			if err != nil {
				return fmt.Errorf("failed to encode task payload: %w", err)
			}
			task := &models.ProvisioningTask{
				PurchasedNumberID: number.ID,
				Operation:         models.ProvisioningOperationProvision,
				Priority:          models.TaskPriorityDefault,
				Payload:           payload,
			}
			if _, _, err := f.taskRepo.Enqueue(txCtx, task); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// A concurrent completion won the insert race; serve its order.
		if errors.Is(err, repository.ErrDuplicateCheckoutSession) {
			existing, lookupErr := f.orderRepo.ByCheckoutSessionID(ctx, req.SessionID)
			if lookupErr != nil || existing == nil {
				return nil, fmt.Errorf("failed to load order after duplicate session: %w", lookupErr)
			}
			f.audit(ctx, &existing.CustomerID, models.AuditActionOrderReplayIgnored,
				fmt.Sprintf("session %s lost materialization race", req.SessionID), true, metadata)
			return f.toOrderResponse(ctx, existing)
		}
		f.audit(ctx, &snapshot.CustomerID, models.AuditActionCheckoutSessionFailed,
			fmt.Sprintf("materialization of session %s failed: %v", req.SessionID, err), false, metadata)
		return nil, fmt.Errorf("failed to materialize order: %w", err)
	}

	if err := f.cartFlow.Clear(ctx, snapshot.CustomerID); err != nil {
		f.logger.Printf("Failed to clear cart for customer %d after checkout: %v", snapshot.CustomerID, err)
	}
	_ = f.rc.Del(ctx, f.snapshotKey(req.SessionID)).Err()

	f.audit(ctx, &snapshot.CustomerID, models.AuditActionOrderMaterialized,
		fmt.Sprintf("order %s from session %s (%d numbers, total %d)", order.UUID, req.SessionID, len(snapshot.Items), snapshot.Total), true, metadata)
	f.logger.Printf("Materialized order %s from session %s", order.UUID, req.SessionID)

	return f.toOrderResponse(ctx, order)
}

func (f *CheckoutFlowImpl) loadSnapshot(ctx context.Context, sessionID string) (*checkoutSnapshot, error) {
	if f.rc == nil {
		return nil, ErrCacheNotAvailable
	}
	bs, err := f.rc.Get(ctx, f.snapshotKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, NewBusinessError("CHECKOUT_SESSION_NOT_FOUND", "checkout session not found", ErrCheckoutSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout snapshot: %w", err)
	}
	var snapshot checkoutSnapshot
	if err := json.Unmarshal(bs, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode checkout snapshot: %w", err)
	}
	if len(snapshot.Items) == 0 {
		return nil, NewBusinessError("CART_EMPTY", "cart is empty", ErrCartEmpty)
	}
	return &snapshot, nil
}

// GetOrder returns one of the customer's orders with its numbers
func (f *CheckoutFlowImpl) GetOrder(ctx context.Context, customerID uint, orderUUID string) (*dto.OrderResponse, error) {
	parsed, err := utils.ParseUUID(orderUUID)
	if err != nil {
		return nil, NewBusinessError("ORDER_NOT_FOUND", "order not found", ErrOrderNotFound)
	}

	orders, err := f.orderRepo.ByFilter(ctx, models.OrderFilter{UUID: &parsed, CustomerID: &customerID}, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if len(orders) == 0 {
		return nil, NewBusinessError("ORDER_NOT_FOUND", "order not found", ErrOrderNotFound)
	}
	return f.toOrderResponse(ctx, orders[0])
}

// GetOrderBySession resolves a checkout session to the customer's order
func (f *CheckoutFlowImpl) GetOrderBySession(ctx context.Context, customerID uint, sessionID string) (*dto.OrderResponse, error) {
	order, err := f.orderRepo.ByCheckoutSessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil || order.CustomerID != customerID {
		return nil, NewBusinessError("ORDER_NOT_FOUND", "order not found", ErrOrderNotFound)
	}
	return f.toOrderResponse(ctx, order)
}

// ListOrders pages through the customer's orders, newest first
func (f *CheckoutFlowImpl) ListOrders(ctx context.Context, customerID uint, req *dto.ListOrdersRequest) (*dto.ListOrdersResponse, error) {
	page := req.Page
	if page < 1 {
		return nil, NewBusinessError("INVALID_PAGE", "page must be at least 1", ErrInvalidPage)
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "page size must be between 1 and 100", ErrInvalidPageSize)
	}

	offset := int((page - 1) * pageSize)
	orders, err := f.orderRepo.ListByCustomer(ctx, customerID, int(pageSize), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	total, err := f.orderRepo.Count(ctx, models.OrderFilter{CustomerID: &customerID})
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	resp := &dto.ListOrdersResponse{
		Orders: make([]dto.OrderResponse, 0, len(orders)),
	}
	for _, order := range orders {
		orderResp, err := f.toOrderResponse(ctx, order)
		if err != nil {
			return nil, err
		}
		resp.Orders = append(resp.Orders, *orderResp)
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

// toOrderResponse loads the order's numbers and maps the pair to the response shape
func (f *CheckoutFlowImpl) toOrderResponse(ctx context.Context, order *models.Order) (*dto.OrderResponse, error) {
	numbers, err := f.numberRepo.ListByCheckoutSession(ctx, order.CheckoutSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order numbers: %w", err)
	}

	resp := &dto.OrderResponse{
		UUID:              order.UUID.String(),
		CheckoutSessionID: order.CheckoutSessionID,
		TotalAmount:       order.TotalAmount,
		Currency:          order.Currency,
		CreatedAt:         order.CreatedAt,
		Numbers:           make([]dto.PurchasedNumberDTO, 0, len(numbers)),
	}
	for _, number := range numbers {
		resp.Numbers = append(resp.Numbers, ToPurchasedNumberDTO(number))
	}
	return resp, nil
}

// ToPurchasedNumberDTO maps a purchased number model to its response shape
func ToPurchasedNumberDTO(number *models.PurchasedNumber) dto.PurchasedNumberDTO {
	return dto.PurchasedNumberDTO{
		UUID:               number.UUID.String(),
		PhoneNumber:        number.PhoneNumber,
		CountryCode:        number.CountryCode,
		AreaCode:           number.AreaCode,
		ProvisioningStatus: string(number.ProvisioningStatus),
		StatusReason:       number.StatusReason,
		IsActive:           utils.IsTrue(number.IsActive),
		SMSEnabled:         utils.IsTrue(number.SMSEnabled),
		ProvisionedAt:      number.ProvisionedAt,
		CreatedAt:          number.CreatedAt,
	}
}

// audit writes an audit row, never failing the caller
func (f *CheckoutFlowImpl) audit(ctx context.Context, customerID *uint, action, description string, success bool, metadata *ClientMetadata) {
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
