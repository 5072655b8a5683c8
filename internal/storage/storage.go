// Package storage declares the persistence contracts for accounts, orders and
// users. Implementations live in the mongostore and memory subpackages.
package storage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
)

var (
	// ErrNotFound is returned when no document matches the given id or key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStatusChanged is returned by the status swaps when the record exists
	// but no longer holds the expected status.
	ErrStatusChanged = errors.New("status changed concurrently")
)

// AccountStore persists catalog accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccounts(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Account, error)
	ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error)
	// UpdateAccount writes only the present fields of in and returns the
	// account as stored afterwards.
	UpdateAccount(ctx context.Context, id string, in models.AccountInput) (*models.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	DeleteAllAccounts(ctx context.Context) (int64, error)
	// SwapAccountStatus sets the status to `to` only if it currently equals
	// `from`, and returns the account as it was before the write.
	SwapAccountStatus(ctx context.Context, id string, from, to models.AccountStatus) (*models.Account, error)
	SetAccountStatus(ctx context.Context, id string, status models.AccountStatus) error
	AccountStats(ctx context.Context) (models.AccountStats, error)
}

// OrderStore persists orders. Orders are never deleted.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	// SwapOrderStatus sets the status to `to` only if it currently equals
	// `from`, and returns the order as it was before the write.
	SwapOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) (*models.Order, error)
}

// UserStore persists users. Username and email are unique.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	// FindUserByLogin matches login against the username or the email.
	FindUserByLogin(ctx context.Context, login string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	// UpdateUserProfile writes the present fields of p and returns the user as
	// stored afterwards.
	UpdateUserProfile(ctx context.Context, id string, p models.ProfileRequest) (*models.User, error)
	SetUserPassword(ctx context.Context, id, hash string) error
	// ToggleUserActive flips is_active in a single write.
	ToggleUserActive(ctx context.Context, id string) (*models.User, error)
}

// Store bundles every collection.
type Store interface {
	AccountStore
	OrderStore
	UserStore
}
