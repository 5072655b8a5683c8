package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage"
)

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	_, err := s.orders.InsertOne(ctx, order)
	return wrapErr("insert order", err)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var order models.Order
	if err := s.orders.FindOne(ctx, bson.M{"_id": oid}).Decode(&order); err != nil {
		return nil, wrapErr("find order", err)
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	cur, err := s.orders.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, wrapErr("find orders", err)
	}

	orders := make([]models.Order, 0)
	defer cur.Close(ctx)
	if err := cur.All(ctx, &orders); err != nil {
		return nil, wrapErr("decode orders", err)
	}
	return orders, nil
}

func (s *Store) SwapOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) (*models.Order, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.Order
	err = s.orders.FindOneAndUpdate(ctx, bson.M{"_id": oid, "status": from}, update, opts).Decode(&before)
	if err == nil {
		return &before, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, wrapErr("swap order status", err)
	}

	n, err := s.orders.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return nil, wrapErr("count order", err)
	}
	if n == 0 {
		return nil, wrapErr("swap order status", mongo.ErrNoDocuments)
	}
	return nil, storage.ErrStatusChanged
}
