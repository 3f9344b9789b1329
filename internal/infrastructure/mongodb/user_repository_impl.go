package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/repository"
)

const usersCollection = "users"

const (
	emailIndex        = "uniq_email"
	verificationIndex = "uniq_verification_token"
)

type UserRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewUserRepository(db *mongo.Database, timeout time.Duration) *UserRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &UserRepository{coll: db.Collection(usersCollection), timeout: timeout}
}

// EnsureIndexes creates the unique email index, a unique index over pending
// verification codes and the reset token lookup index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
		{
			Keys:    bson.D{{Key: "verificationToken", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(verificationIndex).
				SetPartialFilterExpression(bson.M{"verificationToken": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}, Options: options.Index().SetSparse(true).SetName("idx_reset_token")},
	})
	return err
}

func (r *UserRepository) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	now := time.Now().UTC()
	doc := fromEntity(u)
	doc.ID = bson.NewObjectID()
	doc.CreatedAt, doc.UpdatedAt = now, now
	if doc.LastLogin.IsZero() {
		doc.LastLogin = now
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return classifyInsertError(err)
	}
	u.ID = doc.ID.Hex()
	u.CreatedAt, u.UpdatedAt, u.LastLogin = doc.CreatedAt, doc.UpdatedAt, doc.LastLogin
	return nil
}

// classifyInsertError maps duplicate key errors to the repository error of the
// index that rejected the insert.
func classifyInsertError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if strings.Contains(e.Message, verificationIndex) {
				return repository.ErrDuplicateVerificationCode
			}
		}
	}
	return repository.ErrDuplicateEmail
}

func (r *UserRepository) findOne(ctx context.Context, filter any) (*entity.User, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"lastLogin": at, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// findAndUpdate applies update to the single document matching filter and returns it afterwards.
func (r *UserRepository) findAndUpdate(ctx context.Context, filter, update bson.M) (*entity.User, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *UserRepository) ConsumeVerificationToken(ctx context.Context, code, userID string, now time.Time) (*entity.User, error) {
	var oid bson.ObjectID
	if userID != "" {
		var err error
		if oid, err = bson.ObjectIDFromHex(userID); err != nil {
			return nil, repository.ErrNotFound
		}
	}
	return r.findAndUpdate(ctx, verificationFilter(code, oid, now), bson.M{
		"$set": bson.M{
			"isVerified":                 true,
			"verificationToken":          nil,
			"verificationTokenExpiresAt": nil,
			"updatedAt":                  now,
		},
	})
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"resetPasswordToken":     tokenHash,
		"resetPasswordExpiresAt": expiresAt,
		"updatedAt":              time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*entity.User, error) {
	return r.findAndUpdate(ctx, resetFilter(tokenHash, now), bson.M{
		"$set": bson.M{
			"password":               passwordHash,
			"resetPasswordToken":     nil,
			"resetPasswordExpiresAt": nil,
			"updatedAt":              now,
		},
	})
}

func (r *UserRepository) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	verification, err := r.coll.UpdateMany(ctx,
		bson.M{"verificationTokenExpiresAt": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"verificationToken": nil, "verificationTokenExpiresAt": nil}},
	)
	if err != nil {
		return 0, err
	}
	reset, err := r.coll.UpdateMany(ctx,
		bson.M{"resetPasswordExpiresAt": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"resetPasswordToken": nil, "resetPasswordExpiresAt": nil}},
	)
	if err != nil {
		return verification.ModifiedCount, err
	}
	return verification.ModifiedCount + reset.ModifiedCount, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
