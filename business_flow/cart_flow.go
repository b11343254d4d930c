package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/amirphl/Gashadokuro/app/dto"
	"github.com/amirphl/Gashadokuro/config"
	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// cartTTL bounds how long an abandoned cart survives in the cache
const cartTTL = 7 * 24 * time.Hour

// CartFlow defines the interface for cart operations
type CartFlow interface {
	AddItem(ctx context.Context, customerID uint, req *dto.AddCartItemRequest, metadata *ClientMetadata) (*dto.CartSummaryResponse, error)
	UpdateItem(ctx context.Context, customerID uint, itemID string, req *dto.UpdateCartItemRequest, metadata *ClientMetadata) (*dto.CartSummaryResponse, error)
	RemoveItem(ctx context.Context, customerID uint, itemID string, metadata *ClientMetadata) (*dto.CartSummaryResponse, error)
	Clear(ctx context.Context, customerID uint) error
	Summary(ctx context.Context, customerID uint) (*dto.CartSummaryResponse, error)
	// Items exposes the raw cart lines for checkout materialization
	Items(ctx context.Context, customerID uint) ([]*models.CartItem, error)
}

// CartFlowImpl implements the cart business logic on the session cache
type CartFlowImpl struct {
	rc          *redis.Client
	cacheConfig *config.CacheConfig
	logger      *log.Logger
}

// NewCartFlow creates a new cart flow
func NewCartFlow(rc *redis.Client, cacheConfig *config.CacheConfig) CartFlow {
	return &CartFlowImpl{
		rc:          rc,
		cacheConfig: cacheConfig,
		logger:      log.New(os.Stdout, "[CartFlow] ", log.LstdFlags),
	}
}

// redisKey builds a namespaced cache key
func redisKey(cfg config.CacheConfig, key string) string {
	if cfg.RedisPrefix == "" {
		return key
	}
	return cfg.RedisPrefix + ":" + key
}

func (f *CartFlowImpl) cartKey(customerID uint) string {
	return redisKey(*f.cacheConfig, fmt.Sprintf("cart:%d", customerID))
}

// loadCart reads the customer's cart from the cache. A missing key is an
// empty cart, not an error.
func (f *CartFlowImpl) loadCart(ctx context.Context, customerID uint) ([]*models.CartItem, error) {
	if f.rc == nil {
		return nil, ErrCacheNotAvailable
	}

	bs, err := f.rc.Get(ctx, f.cartKey(customerID)).Bytes()
	if err == redis.Nil {
		return []*models.CartItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var items []*models.CartItem
	if err := json.Unmarshal(bs, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return items, nil
}

// saveCart writes the cart back and refreshes its TTL
func (f *CartFlowImpl) saveCart(ctx context.Context, customerID uint, items []*models.CartItem) error {
	if f.rc == nil {
		return ErrCacheNotAvailable
	}

	bs, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := f.rc.Set(ctx, f.cartKey(customerID), bs, cartTTL).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// AddItem adds a number selection to the cart and returns the priced cart
func (f *CartFlowImpl) AddItem(ctx context.Context, customerID uint, req *dto.AddCartItemRequest, metadata *ClientMetadata) (*dto.CartSummaryResponse, error) {
	forwarding := models.ForwardingType(req.ForwardingType)
	if req.ForwardingType == "" {
		forwarding = models.ForwardingNone
	}
	if !models.IsValidForwardingType(forwarding) {
		return nil, NewBusinessError("INVALID_FORWARDING_TYPE", "invalid forwarding type", ErrInvalidForwardingType)
	}

	items, err := f.loadCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	for _, existing := range items {
		if existing.PhoneNumber == req.PhoneNumber {
			return nil, NewBusinessError("NUMBER_ALREADY_IN_CART", "phone number is already in the cart", ErrPhoneNumberAlreadyInCart)
		}
	}

	item := &models.CartItem{
		ID:              uuid.New().String(),
		PhoneNumber:     req.PhoneNumber,
		CountryCode:     req.CountryCode,
		AreaCode:        req.AreaCode,
		MonthlyPrice:    req.MonthlyPrice,
		SetupPrice:      req.SetupPrice,
		SMSEnabled:      req.SMSEnabled,
		SMSPrice:        req.SMSPrice,
		ForwardingType:  forwarding,
		ForwardingPrice: req.ForwardingPrice,
		MonthlyDuration: req.MonthlyDuration,
		AddedAt:         utils.UTCNow(),
	}
	item.Normalize()

	items = append(items, item)
	if err := f.saveCart(ctx, customerID, items); err != nil {
		return nil, err
	}

	f.logger.Printf("Customer %d added %s to cart", customerID, item.PhoneNumber)
	return f.toSummary(items), nil
}

// UpdateItem changes add-ons or duration on one cart line. The item is
// re-normalized after the update so enabling SMS lifts short durations.
func (f *CartFlowImpl) UpdateItem(ctx context.Context, customerID uint, itemID string, req *dto.UpdateCartItemRequest, metadata *ClientMetadata) (*dto.CartSummaryResponse, error) {
	items, err := f.loadCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	var target *models.CartItem
	for _, item := range items {
		if item.ID == itemID {
			target = item
			break
		}
	}
	if target == nil {
		return nil, NewBusinessError("CART_ITEM_NOT_FOUND", "cart item not found", ErrCartItemNotFound)
	}

	if req.SMSEnabled != nil {
		target.SMSEnabled = *req.SMSEnabled
	}
	if req.ForwardingType != nil {
		forwarding := models.ForwardingType(*req.ForwardingType)
		if !models.IsValidForwardingType(forwarding) {
			return nil, NewBusinessError("INVALID_FORWARDING_TYPE", "invalid forwarding type", ErrInvalidForwardingType)
		}
		target.ForwardingType = forwarding
	}
	if req.MonthlyDuration != nil {
		target.MonthlyDuration = *req.MonthlyDuration
	}
	target.Normalize()

	if err := f.saveCart(ctx, customerID, items); err != nil {
		return nil, err
	}

	return f.toSummary(items), nil
}

// RemoveItem drops one line from the cart
func (f *CartFlowImpl) RemoveItem(ctx context.Context, customerID uint, itemID string, metadata *ClientMetadata) (*dto.CartSummaryResponse, error) {
	items, err := f.loadCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	remaining := make([]*models.CartItem, 0, len(items))
	found := false
	for _, item := range items {
		if item.ID == itemID {
			found = true
			continue
		}
		remaining = append(remaining, item)
	}
	if !found {
		return nil, NewBusinessError("CART_ITEM_NOT_FOUND", "cart item not found", ErrCartItemNotFound)
	}

	if err := f.saveCart(ctx, customerID, remaining); err != nil {
		return nil, err
	}

	return f.toSummary(remaining), nil
}

// Clear empties the customer's cart
func (f *CartFlowImpl) Clear(ctx context.Context, customerID uint) error {
	if f.rc == nil {
		return ErrCacheNotAvailable
	}
	if err := f.rc.Del(ctx, f.cartKey(customerID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Summary returns the priced cart
func (f *CartFlowImpl) Summary(ctx context.Context, customerID uint) (*dto.CartSummaryResponse, error) {
	items, err := f.loadCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return f.toSummary(items), nil
}

// Items returns the raw cart lines
func (f *CartFlowImpl) Items(ctx context.Context, customerID uint) ([]*models.CartItem, error) {
	return f.loadCart(ctx, customerID)
}

// toSummary prices the cart into the response shape
func (f *CartFlowImpl) toSummary(items []*models.CartItem) *dto.CartSummaryResponse {
	summary := &dto.CartSummaryResponse{
		Items:     make([]dto.CartItemDTO, 0, len(items)),
		ItemCount: len(items),
		Total:     CartTotal(items),
		Currency:  utils.DefaultCurrency,
	}
	for _, item := range items {
		summary.Items = append(summary.Items, dto.CartItemDTO{
			ID:              item.ID,
			PhoneNumber:     item.PhoneNumber,
			CountryCode:     item.CountryCode,
			AreaCode:        item.AreaCode,
			MonthlyPrice:    item.MonthlyPrice,
			SetupPrice:      item.SetupPrice,
			SMSEnabled:      item.SMSEnabled,
			SMSPrice:        item.SMSPrice,
			ForwardingType:  string(item.ForwardingType),
			ForwardingPrice: item.ForwardingPrice,
			MonthlyDuration: item.MonthlyDuration,
			ItemTotal:       ItemTotal(item),
			AddedAt:         item.AddedAt,
		})
	}
	return summary
}
