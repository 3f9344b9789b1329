package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
)

func TestUserDocumentKeepsTokensAndHexID(t *testing.T) {
	code := "123456"
	exp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u := &entity.User{Name: "Alice", Email: "alice@x.com", Password: "$2a$10$hash", VerificationToken: &code, VerificationTokenExpiresAt: &exp}

	doc := fromEntity(u)
	doc.ID = bson.NewObjectID()

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded userDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	got := decoded.toEntity()
	assert.Equal(t, doc.ID.Hex(), got.ID)
	require.NotNil(t, got.VerificationToken)
	assert.Equal(t, "123456", *got.VerificationToken)
	assert.True(t, exp.Equal(*got.VerificationTokenExpiresAt))
	assert.Nil(t, got.ResetPasswordToken)
}

func TestClearedTokensAreStoredAsNull(t *testing.T) {
	raw, err := bson.Marshal(fromEntity(&entity.User{Email: "a@b.com"}))
	require.NoError(t, err)

	v, err := bson.Raw(raw).LookupErr("verificationToken")
	require.NoError(t, err)
	assert.Equal(t, bson.TypeNull, v.Type)
}

func TestVerificationFilter(t *testing.T) {
	now := time.Now()

	f := verificationFilter("123456", bson.ObjectID{}, now)
	assert.Equal(t, "123456", f["verificationToken"])
	assert.Equal(t, bson.M{"$gt": now}, f["verificationTokenExpiresAt"])
	assert.NotContains(t, f, "_id")

	oid := bson.NewObjectID()
	f = verificationFilter("123456", oid, now)
	assert.Equal(t, oid, f["_id"])
}

func TestResetFilter(t *testing.T) {
	now := time.Now()
	f := resetFilter("digest", now)
	assert.Equal(t, "digest", f["resetPasswordToken"])
	assert.Equal(t, bson.M{"$gt": now}, f["resetPasswordExpiresAt"])
}
