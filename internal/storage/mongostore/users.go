package mongostore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := s.users.InsertOne(ctx, user)
	return wrapErr("insert user", err)
}

func (s *Store) findUser(ctx context.Context, op string, query bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user models.User
	if err := s.users.FindOne(ctx, query).Decode(&user); err != nil {
		return nil, wrapErr(op, err)
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, "find user", bson.M{"_id": oid})
}

func (s *Store) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	return s.findUser(ctx, "find user by login", bson.M{"$or": bson.A{
		bson.M{"username": login},
		bson.M{"email": strings.ToLower(login)},
	}})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "find user by email", bson.M{"email": email})
}

func (s *Store) UserExists(ctx context.Context, username, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := bson.M{"$or": bson.A{bson.M{"username": username}, bson.M{"email": email}}}
	n, err := s.users.CountDocuments(ctx, query, options.Count().SetLimit(1))
	if err != nil {
		return false, wrapErr("count users", err)
	}
	return n > 0, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	opts := options.Find().
		SetProjection(bson.D{{Key: "password", Value: 0}}).
		SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.users.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, wrapErr("find users", err)
	}

	users := make([]models.User, 0)
	defer cur.Close(ctx)
	if err := cur.All(ctx, &users); err != nil {
		return nil, wrapErr("decode users", err)
	}
	return users, nil
}

// updateUser applies update to one user and returns the stored result.
func (s *Store) updateUser(ctx context.Context, op, id string, update any) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "password", Value: 0}})
	var user models.User
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&user); err != nil {
		return nil, wrapErr(op, err)
	}
	return &user, nil
}

func profileUpdate(p models.ProfileRequest, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if p.FullName != nil {
		set["fullname"] = *p.FullName
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	return bson.M{"$set": set}
}

func (s *Store) UpdateUserProfile(ctx context.Context, id string, p models.ProfileRequest) (*models.User, error) {
	return s.updateUser(ctx, "update user profile", id, profileUpdate(p, time.Now().UTC()))
}

func (s *Store) SetUserPassword(ctx context.Context, id, hash string) error {
	update := bson.M{"$set": bson.M{"password": hash, "updated_at": time.Now().UTC()}}
	_, err := s.updateUser(ctx, "set user password", id, update)
	return err
}

// ToggleUserActive negates is_active server side with a pipeline update.
func (s *Store) ToggleUserActive(ctx context.Context, id string) (*models.User, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "is_active", Value: bson.D{{Key: "$not", Value: bson.A{"$is_active"}}}},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
	}
	return s.updateUser(ctx, "toggle user", id, update)
}
