package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pennywise/pennywise/backend/go-services/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicateExternalID = errors.New("external account already linked")
	ErrNotFound            = errors.New("user not found")
)

// Store defines persistence operations for identities. Lookups return
// (nil, nil) when nothing matches.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, u *models.User) (*models.User, error)
	Save(ctx context.Context, u *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

const (
	emailIndex    = "email_1"
	externalIndex = "authProvider_1_externalId_1"
)

// MongoStore implements Store using a MongoDB collection
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore creates a new store for the given collection
func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

// EnsureIndexes creates the uniqueness constraints the store relies on.
// Email uniqueness must live in the index: a read-then-insert check alone
// races under concurrent registration.
func (r *MongoStore) EnsureIndexes(ctx context.Context) error {
	idx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(emailIndex).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "authProvider", Value: 1}, {Key: "externalId", Value: 1}},
			Options: options.Index().
				SetName(externalIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"externalId": bson.M{"$type": "string"}}),
		},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, idx); err != nil {
		return fmt.Errorf("ensure user indexes: %w", err)
	}
	return nil
}

func (r *MongoStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

func (r *MongoStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoStore) Create(ctx context.Context, u *models.User) (*models.User, error) {
	rec := prepareCreate(u, time.Now().UTC())
	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		return nil, translateWriteError(err)
	}
	return rec.Clone(), nil
}

func (r *MongoStore) Save(ctx context.Context, u *models.User) (*models.User, error) {
	rec := u.Clone()
	rec.Email = models.NormalizeEmail(rec.Email)
	rec.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec)
	if err != nil {
		return nil, translateWriteError(err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (r *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// prepareCreate copies u, assigning an id, normalized email and timestamps.
func prepareCreate(u *models.User, now time.Time) *models.User {
	rec := u.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Email = models.NormalizeEmail(rec.Email)
	if rec.UserType == "" {
		rec.UserType = models.DefaultUserType
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return rec
}

// translateWriteError maps unique index violations to store errors.
func translateWriteError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if strings.Contains(err.Error(), externalIndex) {
		return ErrDuplicateExternalID
	}
	return ErrDuplicateEmail
}
