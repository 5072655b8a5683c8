package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// orderTransitions lists the statuses reachable from each status.
// delivered and cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderDelivered, OrderCancelled},
	OrderPaid:    {OrderDelivered, OrderCancelled},
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentMomo         PaymentMethod = "momo"
	PaymentZaloPay      PaymentMethod = "zalopay"
	PaymentCard         PaymentMethod = "card"
)

// Order is a purchase request against a single account. TotalPrice is the
// account price captured when the order was placed.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AccountID     primitive.ObjectID `bson:"account_id" json:"accountId"`
	CustomerName  string             `bson:"customer_name" json:"customerName"`
	CustomerEmail string             `bson:"customer_email" json:"customerEmail"`
	CustomerPhone string             `bson:"customer_phone,omitempty" json:"customerPhone,omitempty"`
	TotalPrice    float64            `bson:"total_price" json:"totalPrice"`
	Status        OrderStatus        `bson:"status" json:"status"`
	PaymentMethod PaymentMethod      `bson:"payment_method" json:"paymentMethod"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}

// OrderDetail is an order with its account joined in. Account is nil when the
// account was deleted after the order was placed.
type OrderDetail struct {
	Order
	Account *Account `json:"account"`
}

type CreateOrderRequest struct {
	AccountID     string `json:"accountId" validate:"required"`
	CustomerName  string `json:"customerName" validate:"required"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
	CustomerPhone string `json:"customerPhone"`
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=bank_transfer momo zalopay card"`
	Notes         string `json:"notes"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending paid delivered cancelled"`
}
