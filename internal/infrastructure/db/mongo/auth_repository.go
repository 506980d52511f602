package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/studenthub/marketplace/internal/core/domain"
)

const principalsCollection = "principals"

// AuthRepository stores principals and their credentials in MongoDB.
type AuthRepository struct {
	coll *mongo.Collection
}

func NewAuthRepository(db *mongo.Database) *AuthRepository {
	return &AuthRepository{coll: db.Collection(principalsCollection)}
}

type principalDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email,omitempty"`
	Username     string             `bson:"username,omitempty"`
	Role         string             `bson:"role"`
	DisplayName  string             `bson:"display_name"`
	Phone        string             `bson:"phone,omitempty"`
	University   string             `bson:"university,omitempty"`
	PasswordHash string             `bson:"password_hash"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

// Create inserts a new principal. A duplicate email or username maps to
// domain.ErrUserExists.
func (r *AuthRepository) Create(ctx context.Context, acc *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := principalDoc{
		Email:        acc.Email,
		Username:     acc.Username,
		Role:         string(acc.Role),
		DisplayName:  acc.DisplayName,
		Phone:        acc.Phone,
		University:   acc.University,
		PasswordHash: acc.PasswordHash,
		CreatedAt:    timeToUnix(acc.CreatedAt),
		UpdatedAt:    timeToUnix(acc.UpdatedAt),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert principal: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toAccount(), nil
}

// FindByEmail looks a principal up by email.
func (r *AuthRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByUsername looks a principal up by username.
func (r *AuthRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *AuthRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc principalDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	return doc.toAccount(), nil
}

// EnsureIndexes creates the unique identifier indexes. Both are sparse since
// students and owners have no username and admins have no email.
func (r *AuthRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create principal indexes: %w", err)
	}
	return nil
}

func (d principalDoc) toAccount() *domain.Account {
	return &domain.Account{
		Principal: domain.Principal{
			ID:          d.ID.Hex(),
			Email:       d.Email,
			Username:    d.Username,
			Role:        domain.Role(d.Role),
			DisplayName: d.DisplayName,
		},
		Phone:        d.Phone,
		University:   d.University,
		PasswordHash: d.PasswordHash,
		CreatedAt:    unixToTime(d.CreatedAt),
		UpdatedAt:    unixToTime(d.UpdatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
