package mongostore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage"
)

func (s *Store) CreateAccount(ctx context.Context, acct *models.Account) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if acct.ID.IsZero() {
		acct.ID = primitive.NewObjectID()
	}
	_, err := s.accounts.InsertOne(ctx, acct)
	return wrapErr("insert account", err)
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var acct models.Account
	if err := s.accounts.FindOne(ctx, bson.M{"_id": oid}).Decode(&acct); err != nil {
		return nil, wrapErr("find account", err)
	}
	return &acct, nil
}

func (s *Store) GetAccounts(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Account, error) {
	result := make(map[primitive.ObjectID]models.Account, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	cur, err := s.accounts.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, wrapErr("find accounts", err)
	}
	var accounts []models.Account
	defer cur.Close(ctx)
	if err := cur.All(ctx, &accounts); err != nil {
		return nil, wrapErr("decode accounts", err)
	}
	for _, acct := range accounts {
		result[acct.ID] = acct
	}
	return result, nil
}

// accountQuery translates a catalog filter into a MongoDB query document.
func accountQuery(f models.AccountFilter) bson.M {
	query := bson.M{}
	if f.Region != "" {
		query["region"] = f.Region
	}
	if f.MinAR != nil {
		query["adventure_rank"] = bson.M{"$gte": *f.MinAR}
	}
	if f.MaxPrice != nil {
		query["price"] = bson.M{"$lte": *f.MaxPrice}
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.Search != "" {
		query["characters"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}
	return query
}

func (s *Store) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.accounts.Find(ctx, accountQuery(filter), opts)
	if err != nil {
		return nil, wrapErr("find accounts", err)
	}

	accounts := make([]models.Account, 0)
	defer cur.Close(ctx)
	if err := cur.All(ctx, &accounts); err != nil {
		return nil, wrapErr("decode accounts", err)
	}
	return accounts, nil
}

// accountUpdate builds a $set document holding only the present fields of in.
func accountUpdate(in models.AccountInput, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if in.AdventureRank != nil {
		set["adventure_rank"] = *in.AdventureRank
	}
	if in.Characters != nil {
		set["characters"] = in.Characters
	}
	if in.FiveStars != nil {
		set["five_stars"] = *in.FiveStars
	}
	if in.FourStars != nil {
		set["four_stars"] = *in.FourStars
	}
	if in.Primogems != nil {
		set["primogems"] = *in.Primogems
	}
	if in.Price != nil {
		set["price"] = *in.Price
	}
	if in.Region != nil {
		set["region"] = models.Region(*in.Region)
	}
	if in.Status != nil {
		set["status"] = models.AccountStatus(*in.Status)
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Images != nil {
		set["images"] = in.Images
	}
	return bson.M{"$set": set}
}

func (s *Store) UpdateAccount(ctx context.Context, id string, in models.AccountInput) (*models.Account, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var acct models.Account
	err = s.accounts.FindOneAndUpdate(ctx, bson.M{"_id": oid}, accountUpdate(in, time.Now().UTC()), opts).Decode(&acct)
	if err != nil {
		return nil, wrapErr("update account", err)
	}
	return &acct, nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.accounts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return wrapErr("delete account", err)
	}
	if res.DeletedCount == 0 {
		return wrapErr("delete account", mongo.ErrNoDocuments)
	}
	return nil
}

func (s *Store) DeleteAllAccounts(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	res, err := s.accounts.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, wrapErr("delete accounts", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) SwapAccountStatus(ctx context.Context, id string, from, to models.AccountStatus) (*models.Account, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.Account
	err = s.accounts.FindOneAndUpdate(ctx, bson.M{"_id": oid, "status": from}, update, opts).Decode(&before)
	if err == nil {
		return &before, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, wrapErr("swap account status", err)
	}

	// the guard failed: tell a missing account apart from a lost race
	n, err := s.accounts.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return nil, wrapErr("count account", err)
	}
	if n == 0 {
		return nil, wrapErr("swap account status", mongo.ErrNoDocuments)
	}
	return nil, storage.ErrStatusChanged
}

func (s *Store) SetAccountStatus(ctx context.Context, id string, status models.AccountStatus) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}}
	res, err := s.accounts.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return wrapErr("update account status", err)
	}
	if res.MatchedCount == 0 {
		return wrapErr("update account status", mongo.ErrNoDocuments)
	}
	return nil
}

func (s *Store) AccountStats(ctx context.Context) (models.AccountStats, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var stats models.AccountStats
	var err error
	if stats.Total, err = s.accounts.CountDocuments(ctx, bson.M{}); err != nil {
		return stats, wrapErr("count accounts", err)
	}
	if stats.Available, err = s.accounts.CountDocuments(ctx, bson.M{"status": models.AccountAvailable}); err != nil {
		return stats, wrapErr("count available accounts", err)
	}
	if stats.Sold, err = s.accounts.CountDocuments(ctx, bson.M{"status": models.AccountSold}); err != nil {
		return stats, wrapErr("count sold accounts", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg_price", Value: bson.D{{Key: "$avg", Value: "$price"}}},
		}}},
	}
	cur, err := s.accounts.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, wrapErr("aggregate average price", err)
	}
	var groups []struct {
		AvgPrice float64 `bson:"avg_price"`
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &groups); err != nil {
		return stats, wrapErr("decode average price", err)
	}
	if len(groups) > 0 {
		stats.AveragePrice = groups[0].AvgPrice
	}
	return stats, nil
}
