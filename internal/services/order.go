package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/apperr"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/logger"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/metrics"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage"
)

var errNotAvailable = apperr.Conflict("account is not available for purchase")

// OrderService runs the purchase workflow: placing an order reserves its
// account, delivery marks it sold and cancellation releases it.
type OrderService struct {
	accounts storage.AccountStore
	orders   storage.OrderStore
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewOrderService(accounts storage.AccountStore, orders storage.OrderStore, m *metrics.Metrics, log *zap.Logger) *OrderService {
	return &OrderService{accounts: accounts, orders: orders, metrics: m, log: log}
}

// CreateOrder reserves the account and records a pending order priced at the
// account's price at reservation time. Two concurrent purchases of the same
// account cannot both succeed.
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	req.AccountID = strings.TrimSpace(req.AccountID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.ToLower(strings.TrimSpace(req.CustomerEmail))
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	if err := models.Validate(req); err != nil {
		return nil, apperr.FromValidator(err)
	}
	accountID, err := primitive.ObjectIDFromHex(req.AccountID)
	if err != nil {
		return nil, apperr.NotFound("account not found")
	}

	acct, err := s.accounts.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, accountErr(err, "failed to get account")
	}
	if acct.Status != models.AccountAvailable {
		return nil, errNotAvailable
	}

	reserved, err := s.accounts.SwapAccountStatus(ctx, req.AccountID, models.AccountAvailable, models.AccountReserved)
	switch {
	case errors.Is(err, storage.ErrStatusChanged):
		s.metrics.ReservationConflict()
		return nil, errNotAvailable
	case err != nil:
		return nil, accountErr(err, "failed to reserve account")
	}

	method := models.PaymentMethod(req.PaymentMethod)
	if method == "" {
		method = models.PaymentBankTransfer
	}
	now := time.Now().UTC()
	order := &models.Order{
		AccountID:     accountID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		TotalPrice:    reserved.Price,
		Status:        models.OrderPending,
		PaymentMethod: method,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.release(ctx, req.AccountID)
		return nil, apperr.Internal("failed to create order", err)
	}

	s.metrics.OrderCreated()
	logger.FromContext(ctx, s.log).Info("order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("account_id", req.AccountID),
		zap.Float64("total_price", order.TotalPrice),
	)
	return order, nil
}

// release undoes a reservation after a failed order insert. It only touches the
// account if it is still reserved.
func (s *OrderService) release(ctx context.Context, accountID string) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.accounts.SwapAccountStatus(ctx, accountID, models.AccountReserved, models.AccountAvailable); err != nil {
		logger.FromContext(ctx, s.log).Error("failed to release reservation",
			zap.String("account_id", accountID), zap.Error(err))
	}
}

// UpdateOrderStatus moves the order to status and applies the matching account
// side effect. Setting the current status again is a no-op.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, req models.UpdateOrderStatusRequest) (*models.Order, error) {
	if err := models.Validate(req); err != nil {
		return nil, apperr.FromValidator(err)
	}
	next := models.OrderStatus(req.Status)

	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, orderErr(err, "failed to get order")
	}
	if order.Status == next {
		return order, nil
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, apperr.Conflict("cannot change order status from " + string(order.Status) + " to " + string(next))
	}

	_, err = s.orders.SwapOrderStatus(ctx, id, order.Status, next)
	switch {
	case errors.Is(err, storage.ErrStatusChanged):
		return nil, apperr.Conflict("order status changed concurrently")
	case err != nil:
		return nil, orderErr(err, "failed to update order")
	}
	prev := order.Status
	order.Status = next
	order.UpdatedAt = time.Now().UTC()
	s.metrics.OrderTransition(string(prev), string(next))

	var accountStatus models.AccountStatus
	switch next {
	case models.OrderDelivered:
		accountStatus = models.AccountSold
	case models.OrderCancelled:
		accountStatus = models.AccountAvailable
	}
	if accountStatus != "" {
		log := logger.FromContext(ctx, s.log).With(zap.String("order_id", id), zap.String("account_id", order.AccountID.Hex()))
		err := s.accounts.SetAccountStatus(ctx, order.AccountID.Hex(), accountStatus)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			log.Warn("order account no longer exists", zap.String("status", string(next)))
		case err != nil:
			return nil, apperr.Internal("failed to update account status", err)
		}
	}
	return order, nil
}

// ListOrders returns orders newest first with their accounts joined. An empty
// status lists every order.
func (s *OrderService) ListOrders(ctx context.Context, status models.OrderStatus) ([]models.OrderDetail, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("validation failed",
			apperr.FieldError{Field: "status", Message: "status must be one of: pending paid delivered cancelled"})
	}

	orders, err := s.orders.ListOrders(ctx, status)
	if err != nil {
		return nil, apperr.Internal("failed to list orders", err)
	}
	ids := lo.Uniq(lo.Map(orders, func(o models.Order, _ int) primitive.ObjectID { return o.AccountID }))
	accounts, err := s.accounts.GetAccounts(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("failed to load order accounts", err)
	}

	return lo.Map(orders, func(o models.Order, _ int) models.OrderDetail {
		detail := models.OrderDetail{Order: o}
		if acct, ok := accounts[o.AccountID]; ok {
			detail.Account = &acct
		}
		return detail
	}), nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.OrderDetail, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, orderErr(err, "failed to get order")
	}
	detail := &models.OrderDetail{Order: *order}
	acct, err := s.accounts.GetAccount(ctx, order.AccountID.Hex())
	switch {
	case err == nil:
		detail.Account = acct
	case !errors.Is(err, storage.ErrNotFound):
		return nil, apperr.Internal("failed to load order account", err)
	}
	return detail, nil
}

func orderErr(err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("order not found")
	}
	return apperr.Internal(msg, err)
}
