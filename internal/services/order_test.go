package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/apperr"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage/memory"
)

func createAccount(t *testing.T, env *testEnv) *models.Account {
	t.Helper()
	acct, err := env.accounts.Create(context.Background(), validInput())
	require.NoError(t, err)
	return acct
}

func orderRequest(accountID string) models.CreateOrderRequest {
	return models.CreateOrderRequest{
		AccountID:     accountID,
		CustomerName:  "  Aether ",
		CustomerEmail: " Aether@Example.COM ",
		CustomerPhone: "0900000000",
	}
}

func accountStatus(t *testing.T, env *testEnv, id string) models.AccountStatus {
	t.Helper()
	acct, err := env.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return acct.Status
}

func TestCreateOrderReservesAccount(t *testing.T) {
	env := newTestEnv(t)
	acct := createAccount(t, env)

	order, err := env.orders.CreateOrder(context.Background(), orderRequest(acct.ID.Hex()))
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, float64(2500000), order.TotalPrice)
	assert.Equal(t, models.PaymentBankTransfer, order.PaymentMethod)
	assert.Equal(t, "Aether", order.CustomerName)
	assert.Equal(t, "aether@example.com", order.CustomerEmail)
	assert.Equal(t, models.AccountReserved, accountStatus(t, env, acct.ID.Hex()))
}

func TestCreateOrderPriceIsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := createAccount(t, env)

	order, err := env.orders.CreateOrder(ctx, orderRequest(acct.ID.Hex()))
	require.NoError(t, err)

	_, err = env.accounts.Update(ctx, acct.ID.Hex(), models.AccountInput{Price: floatPtr(1)})
	require.NoError(t, err)

	got, err := env.orders.GetOrder(ctx, order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, float64(2500000), got.TotalPrice)
	assert.Equal(t, float64(1), got.Account.Price)
}

func TestCreateOrderRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := createAccount(t, env)

	_, err := env.orders.CreateOrder(ctx, orderRequest("64b7f0c2a1b2c3d4e5f60718"))
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = env.orders.CreateOrder(ctx, orderRequest("bogus"))
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	req := orderRequest(acct.ID.Hex())
	req.CustomerEmail = "not-an-email"
	_, err = env.orders.CreateOrder(ctx, req)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	req = orderRequest(acct.ID.Hex())
	req.CustomerName = "   "
	_, err = env.orders.CreateOrder(ctx, req)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	req = orderRequest(acct.ID.Hex())
	req.PaymentMethod = "cash"
	_, err = env.orders.CreateOrder(ctx, req)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	assert.Equal(t, models.AccountAvailable, accountStatus(t, env, acct.ID.Hex()))

	_, err = env.orders.CreateOrder(ctx, orderRequest(acct.ID.Hex()))
	require.NoError(t, err)
	_, err = env.orders.CreateOrder(ctx, orderRequest(acct.ID.Hex()))
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestConcurrentOrdersReserveOnce(t *testing.T) {
	env := newTestEnv(t)
	acct := createAccount(t, env)

	const buyers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.orders.CreateOrder(context.Background(), orderRequest(acct.ID.Hex()))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperr.IsKind(err, apperr.KindConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, conflicts)

	orders, err := env.orders.ListOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

type failingOrders struct {
	*memory.Store
}

func (failingOrders) CreateOrder(context.Context, *models.Order) error {
	return errors.New("insert failed")
}

func TestCreateOrderReleasesReservationOnFailure(t *testing.T) {
	env := newTestEnv(t)
	acct := createAccount(t, env)
	svc := NewOrderService(env.store, failingOrders{env.store}, nil, zap.NewNop())

	_, err := svc.CreateOrder(context.Background(), orderRequest(acct.ID.Hex()))
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
	assert.Equal(t, models.AccountAvailable, accountStatus(t, env, acct.ID.Hex()))
}

func TestOrderStatusSideEffects(t *testing.T) {
	tests := []struct {
		name    string
		path    []models.OrderStatus
		account models.AccountStatus
	}{
		{"delivered marks sold", []models.OrderStatus{models.OrderDelivered}, models.AccountSold},
		{"cancelled releases", []models.OrderStatus{models.OrderCancelled}, models.AccountAvailable},
		{"paid keeps reservation", []models.OrderStatus{models.OrderPaid}, models.AccountReserved},
		{"paid then delivered", []models.OrderStatus{models.OrderPaid, models.OrderDelivered}, models.AccountSold},
		{"paid then cancelled", []models.OrderStatus{models.OrderPaid, models.OrderCancelled}, models.AccountAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			acct := createAccount(t, env)
			order, err := env.orders.CreateOrder(ctx, orderRequest(acct.ID.Hex()))
			require.NoError(t, err)

			for _, status := range tt.path {
				updated, err := env.orders.UpdateOrderStatus(ctx, order.ID.Hex(), models.UpdateOrderStatusRequest{Status: string(status)})
				require.NoError(t, err)
				assert.Equal(t, status, updated.Status)
			}
			assert.Equal(t, tt.account, accountStatus(t, env, acct.ID.Hex()))
		})
	}
}

func TestOrderStatusTransitionsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := createAccount(t, env)
	order, err := env.orders.CreateOrder(ctx, orderRequest(acct.ID.Hex()))
	require.NoError(t, err)
	id := order.ID.Hex()

	_, err = env.orders.UpdateOrderStatus(ctx, id, models.UpdateOrderStatusRequest{Status: "shipped"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = env.orders.UpdateOrderStatus(ctx, "64b7f0c2a1b2c3d4e5f60718", models.UpdateOrderStatusRequest{Status: "paid"})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = env.orders.UpdateOrderStatus(ctx, id, models.UpdateOrderStatusRequest{Status: "cancelled"})
	require.NoError(t, err)

	// terminal
	_, err = env.orders.UpdateOrderStatus(ctx, id, models.UpdateOrderStatusRequest{Status: "delivered"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, models.AccountAvailable, accountStatus(t, env, acct.ID.Hex()))

	// same state is a no-op
	same, err := env.orders.UpdateOrderStatus(ctx, id, models.UpdateOrderStatusRequest{Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, same.Status)
}

// interleavedOrders runs afterGet once the order has been read.
type interleavedOrders struct {
	*memory.Store
	afterGet func()
}

func (s interleavedOrders) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.Store.GetOrder(ctx, id)
	s.afterGet()
	return order, err
}

func TestOrderStatusUpdateLosesRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := createAccount(t, env)
	order, err := env.orders.CreateOrder(ctx, orderRequest(acct.ID.Hex()))
	require.NoError(t, err)
	id := order.ID.Hex()

	svc := NewOrderService(env.store, interleavedOrders{Store: env.store, afterGet: func() {
		_, err := env.orders.UpdateOrderStatus(ctx, id, models.UpdateOrderStatusRequest{Status: "cancelled"})
		require.NoError(t, err)
	}}, nil, zap.NewNop())

	_, err = svc.UpdateOrderStatus(ctx, id, models.UpdateOrderStatusRequest{Status: "delivered"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	detail, err := env.orders.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, detail.Status)
	assert.Equal(t, models.AccountAvailable, accountStatus(t, env, acct.ID.Hex()))
}

func TestOrderSurvivesAccountDeletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := createAccount(t, env)
	order, err := env.orders.CreateOrder(ctx, orderRequest(acct.ID.Hex()))
	require.NoError(t, err)

	require.NoError(t, env.accounts.Delete(ctx, acct.ID.Hex()))

	detail, err := env.orders.GetOrder(ctx, order.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, detail.Account)

	updated, err := env.orders.UpdateOrderStatus(ctx, order.ID.Hex(), models.UpdateOrderStatusRequest{Status: "delivered"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, updated.Status)
}

func TestListOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := createAccount(t, env)
	second := createAccount(t, env)
	o1, err := env.orders.CreateOrder(ctx, orderRequest(first.ID.Hex()))
	require.NoError(t, err)
	o2, err := env.orders.CreateOrder(ctx, orderRequest(second.ID.Hex()))
	require.NoError(t, err)
	_, err = env.orders.UpdateOrderStatus(ctx, o1.ID.Hex(), models.UpdateOrderStatusRequest{Status: "paid"})
	require.NoError(t, err)

	all, err := env.orders.ListOrders(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, o2.ID, all[0].ID, "newest first")
	require.NotNil(t, all[0].Account)
	assert.Equal(t, second.ID, all[0].Account.ID)

	paid, err := env.orders.ListOrders(ctx, models.OrderPaid)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, o1.ID, paid[0].ID)

	_, err = env.orders.ListOrders(ctx, "shipped")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = env.orders.GetOrder(ctx, "bogus")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
