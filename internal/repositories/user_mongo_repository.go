package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promptshare/internal/apperr"
	"promptshare/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

// MongoUserRepository stores users as documents in a "users" collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a new instance of MongoUserRepository.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{
		coll: db.Collection(usersCollection),
	}
}

// EnsureIndexes creates the unique email index and the sparse unique
// provider-id indexes. Sparse indexes skip documents without the field, so
// accounts lacking a provider link never collide.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
	}
	for _, field := range []string{"github_id", "google_id", "facebook_id"} {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_" + field),
		})
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return storageErr("create user indexes", err)
	}
	return nil
}

// FindByEmail retrieves a user by their email, without the password hash.
func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	opts := options.FindOne().SetProjection(bson.D{{Key: "password_hash", Value: 0}})
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}}, opts)
}

// FindByEmailWithPassword retrieves a user by their email, including the password hash.
func (r *MongoUserRepository) FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// FindByID retrieves a user by their ID, without the password hash.
func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	opts := options.FindOne().SetProjection(bson.D{{Key: "password_hash", Value: 0}})
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}}, opts)
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.D, opts ...options.Lister[options.FindOneOptions]) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user matching %s: %w", filter[0].Key, apperr.ErrUserNotFound)
		}
		return nil, storageErr("find user", err)
	}
	return &user, nil
}

// Create inserts a new user document. The unique email index makes the
// insert the arbiter of concurrent registrations.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := validateNewUser(user); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = bson.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create user %s: %w", user.Email, apperr.ErrDuplicateEmail)
		}
		return storageErr("create user", err)
	}
	return nil
}
