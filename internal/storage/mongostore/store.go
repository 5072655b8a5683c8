// Package mongostore implements the storage interfaces on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage"
)

const (
	accountsCollection = "accounts"
	ordersCollection   = "orders"
	usersCollection    = "users"

	opTimeout   = 5 * time.Second
	listTimeout = 10 * time.Second
)

type Store struct {
	accounts *mongo.Collection
	orders   *mongo.Collection
	users    *mongo.Collection
}

var _ storage.Store = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{
		accounts: db.Collection(accountsCollection),
		orders:   db.Collection(ordersCollection),
		users:    db.Collection(usersCollection),
	}
}

// EnsureIndexes creates the indexes every query path relies on, including the
// unique username and email indexes on users.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.accounts: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "region", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		s.orders: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "account_id", Value: 1}}},
		},
		s.users: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid id %q: %w", id, storage.ErrNotFound)
	}
	return oid, nil
}

// wrapErr maps driver errors onto the storage sentinels.
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, storage.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
