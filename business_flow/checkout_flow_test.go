package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/Gashadokuro/app/dto"
	"github.com/amirphl/Gashadokuro/app/services"
	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/repository"
	"github.com/amirphl/Gashadokuro/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCustomerRepo serves customers by numeric ID
type fakeCustomerRepo struct {
	repository.CustomerRepository
	customers map[uint]*models.Customer
}

func (f *fakeCustomerRepo) ByID(ctx context.Context, id uint) (*models.Customer, error) {
	return f.customers[id], nil
}

// fakeOrderRepo serves orders keyed by checkout session
type fakeOrderRepo struct {
	repository.OrderRepository
	orders map[string]*models.Order
}

func (f *fakeOrderRepo) ByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	return f.orders[sessionID], nil
}

func (f *fakeOrderRepo) ByFilter(ctx context.Context, filter models.OrderFilter, orderBy string, limit, offset int) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if filter.UUID != nil && o.UUID != *filter.UUID {
			continue
		}
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrderRepo) ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) Count(ctx context.Context, filter models.OrderFilter) (int64, error) {
	orders, _ := f.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(orders)), nil
}

// fakeCartFlow serves a fixed set of cart lines
type fakeCartFlow struct {
	CartFlow
	items   []*models.CartItem
	cleared bool
}

func (f *fakeCartFlow) Items(ctx context.Context, customerID uint) ([]*models.CartItem, error) {
	return f.items, nil
}

func (f *fakeCartFlow) Clear(ctx context.Context, customerID uint) error {
	f.cleared = true
	return nil
}

// fakeGateway controls session completion state
type fakeGateway struct {
	services.CheckoutGateway
	completed bool
	createErr error
	checkErr  error
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, customerRef string, items []services.CheckoutLineItem, successURL, cancelURL string) (*services.CheckoutSession, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &services.CheckoutSession{SessionID: "cs_fake", RedirectURL: "https://pay.example.com/cs_fake"}, nil
}

func (f *fakeGateway) IsCheckoutCompleted(ctx context.Context, sessionID string) (bool, error) {
	return f.completed, f.checkErr
}

// listNumbersBySession extends fakeNumberRepo for order mapping
func (f *fakeNumberRepo) ListByCheckoutSession(ctx context.Context, sessionID string) ([]*models.PurchasedNumber, error) {
	var out []*models.PurchasedNumber
	for _, n := range f.numbers {
		if n.CheckoutSessionID == sessionID {
			out = append(out, n)
		}
	}
	return out, nil
}

type checkoutFlowFixture struct {
	flow      CheckoutFlow
	customers *fakeCustomerRepo
	orders    *fakeOrderRepo
	numbers   *fakeNumberRepo
	cart      *fakeCartFlow
	gateway   *fakeGateway
	audit     *fakeAuditRepo
}

func newCheckoutFlowFixture() *checkoutFlowFixture {
	fx := &checkoutFlowFixture{
		customers: &fakeCustomerRepo{customers: map[uint]*models.Customer{}},
		orders:    &fakeOrderRepo{orders: map[string]*models.Order{}},
		numbers:   &fakeNumberRepo{numbers: map[string]*models.PurchasedNumber{}},
		cart:      &fakeCartFlow{},
		gateway:   &fakeGateway{},
		audit:     &fakeAuditRepo{},
	}
	fx.flow = NewCheckoutFlow(fx.customers, fx.orders, fx.numbers, nil, fx.audit, fx.cart, fx.gateway, nil, nil, nil)
	return fx
}

func (fx *checkoutFlowFixture) withCustomer(id uint, active bool) *models.Customer {
	customer := &models.Customer{
		ID:       id,
		UUID:     uuid.New(),
		Email:    "buyer@example.com",
		IsActive: utils.ToPtr(active),
	}
	fx.customers.customers[id] = customer
	return customer
}

func (fx *checkoutFlowFixture) withOrder(customerID uint, sessionID string) *models.Order {
	order := &models.Order{
		ID:                uint(len(fx.orders.orders) + 1),
		UUID:              uuid.New(),
		CustomerID:        customerID,
		CheckoutSessionID: sessionID,
		TotalAmount:       2500,
		Currency:          "USD",
	}
	fx.orders.orders[sessionID] = order
	return order
}

func TestCreateSessionGuards(t *testing.T) {
	ctx := context.Background()
	req := &dto.CreateCheckoutSessionRequest{
		SuccessURL: "https://shop.example.com/ok",
		CancelURL:  "https://shop.example.com/cancel",
	}

	t.Run("UnknownCustomer", func(t *testing.T) {
		fx := newCheckoutFlowFixture()

		_, err := fx.flow.CreateSession(ctx, 1, req, testMetadata())
		require.Error(t, err)
		assert.True(t, IsCustomerNotFound(err))
	})

	t.Run("InactiveCustomer", func(t *testing.T) {
		fx := newCheckoutFlowFixture()
		fx.withCustomer(1, false)

		_, err := fx.flow.CreateSession(ctx, 1, req, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAccountInactive(err))
	})

	t.Run("EmptyCart", func(t *testing.T) {
		fx := newCheckoutFlowFixture()
		fx.withCustomer(1, true)

		_, err := fx.flow.CreateSession(ctx, 1, req, testMetadata())
		require.Error(t, err)
		assert.True(t, IsCartEmpty(err))
	})

	t.Run("GatewayFailure", func(t *testing.T) {
		fx := newCheckoutFlowFixture()
		fx.withCustomer(1, true)
		fx.cart.items = []*models.CartItem{
			{ID: "i1", PhoneNumber: "+12125550100", MonthlyPrice: 500, MonthlyDuration: 1, ForwardingType: models.ForwardingNone},
		}
		fx.gateway.createErr = errors.New("gateway unreachable")

		_, err := fx.flow.CreateSession(ctx, 1, req, testMetadata())
		require.Error(t, err)
		assert.True(t, IsCheckoutGatewayFailed(err))

		require.Len(t, fx.audit.entries, 1)
		assert.Equal(t, models.AuditActionCheckoutSessionFailed, fx.audit.entries[0].Action)
	})
}

func TestCompleteSession(t *testing.T) {
	ctx := context.Background()

	t.Run("NotCompletedRejected", func(t *testing.T) {
		fx := newCheckoutFlowFixture()
		fx.gateway.completed = false

		_, err := fx.flow.CompleteSession(ctx, &dto.CompleteCheckoutRequest{SessionID: "cs_1"}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsCheckoutNotCompleted(err))
	})

	t.Run("GatewayCheckFailure", func(t *testing.T) {
		fx := newCheckoutFlowFixture()
		fx.gateway.checkErr = errors.New("gateway timeout")

		_, err := fx.flow.CompleteSession(ctx, &dto.CompleteCheckoutRequest{SessionID: "cs_1"}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsCheckoutGatewayFailed(err))
	})

	t.Run("ReplayReturnsExistingOrder", func(t *testing.T) {
		fx := newCheckoutFlowFixture()
		fx.gateway.completed = true
		order := fx.withOrder(1, "cs_replay")

		resp, err := fx.flow.CompleteSession(ctx, &dto.CompleteCheckoutRequest{SessionID: "cs_replay"}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, order.UUID.String(), resp.UUID)
		assert.Equal(t, "cs_replay", resp.CheckoutSessionID)

		require.Len(t, fx.audit.entries, 1)
		assert.Equal(t, models.AuditActionOrderReplayIgnored, fx.audit.entries[0].Action)
	})
}

func TestGetOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidUUID", func(t *testing.T) {
		fx := newCheckoutFlowFixture()

		_, err := fx.flow.GetOrder(ctx, 1, "not-a-uuid")
		require.Error(t, err)
		assert.True(t, IsOrderNotFound(err))
	})

	t.Run("NotOwned", func(t *testing.T) {
		fx := newCheckoutFlowFixture()
		order := fx.withOrder(1, "cs_owned")

		_, err := fx.flow.GetOrder(ctx, 2, order.UUID.String())
		require.Error(t, err)
		assert.True(t, IsOrderNotFound(err))
	})

	t.Run("Found", func(t *testing.T) {
		fx := newCheckoutFlowFixture()
		order := fx.withOrder(1, "cs_found")
		number := activeTestNumber(1)
		number.CheckoutSessionID = "cs_found"
		fx.numbers.numbers[number.UUID.String()] = number

		resp, err := fx.flow.GetOrder(ctx, 1, order.UUID.String())
		require.NoError(t, err)
		assert.Equal(t, order.UUID.String(), resp.UUID)
		require.Len(t, resp.Numbers, 1)
		assert.Equal(t, number.PhoneNumber, resp.Numbers[0].PhoneNumber)
	})
}

func TestGetOrderBySession(t *testing.T) {
	ctx := context.Background()

	t.Run("NotMaterialized", func(t *testing.T) {
		fx := newCheckoutFlowFixture()

		_, err := fx.flow.GetOrderBySession(ctx, 1, "cs_missing")
		require.Error(t, err)
		assert.True(t, IsOrderNotFound(err))
	})

	t.Run("NotOwned", func(t *testing.T) {
		fx := newCheckoutFlowFixture()
		fx.withOrder(1, "cs_theirs")

		_, err := fx.flow.GetOrderBySession(ctx, 2, "cs_theirs")
		require.Error(t, err)
		assert.True(t, IsOrderNotFound(err))
	})

	t.Run("Found", func(t *testing.T) {
		fx := newCheckoutFlowFixture()
		order := fx.withOrder(1, "cs_mine")

		resp, err := fx.flow.GetOrderBySession(ctx, 1, "cs_mine")
		require.NoError(t, err)
		assert.Equal(t, order.UUID.String(), resp.UUID)
	})
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("PageValidation", func(t *testing.T) {
		fx := newCheckoutFlowFixture()

		_, err := fx.flow.ListOrders(ctx, 1, &dto.ListOrdersRequest{Page: 0, PageSize: 20})
		assert.Error(t, err)

		_, err = fx.flow.ListOrders(ctx, 1, &dto.ListOrdersRequest{Page: 1, PageSize: 0})
		assert.Error(t, err)
	})

	t.Run("PagesOrders", func(t *testing.T) {
		fx := newCheckoutFlowFixture()
		fx.withOrder(1, "cs_a")
		fx.withOrder(1, "cs_b")
		fx.withOrder(2, "cs_other")

		resp, err := fx.flow.ListOrders(ctx, 1, &dto.ListOrdersRequest{Page: 1, PageSize: 20})
		require.NoError(t, err)
		assert.Len(t, resp.Orders, 2)
		assert.Equal(t, uint(2), resp.Pagination.TotalItems)
		assert.Equal(t, uint(1), resp.Pagination.TotalPages)
		assert.False(t, resp.Pagination.HasNext)
	})
}
