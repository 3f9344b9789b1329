package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
)

// userDocument is the stored shape of a user in the users collection.
type userDocument struct {
	ID                         bson.ObjectID `bson:"_id,omitempty"`
	Name                       string        `bson:"name"`
	Email                      string        `bson:"email"`
	Password                   string        `bson:"password"`
	IsVerified                 bool          `bson:"isVerified"`
	VerificationToken          *string       `bson:"verificationToken"`
	VerificationTokenExpiresAt *time.Time    `bson:"verificationTokenExpiresAt"`
	ResetPasswordToken         *string       `bson:"resetPasswordToken"`
	ResetPasswordExpiresAt     *time.Time    `bson:"resetPasswordExpiresAt"`
	LastLogin                  time.Time     `bson:"lastLogin"`
	CreatedAt                  time.Time     `bson:"createdAt"`
	UpdatedAt                  time.Time     `bson:"updatedAt"`
}

func fromEntity(u *entity.User) userDocument {
	return userDocument{
		Name:                       u.Name,
		Email:                      u.Email,
		Password:                   u.Password,
		IsVerified:                 u.IsVerified,
		VerificationToken:          u.VerificationToken,
		VerificationTokenExpiresAt: u.VerificationTokenExpiresAt,
		ResetPasswordToken:         u.ResetPasswordToken,
		ResetPasswordExpiresAt:     u.ResetPasswordExpiresAt,
		LastLogin:                  u.LastLogin,
		CreatedAt:                  u.CreatedAt,
		UpdatedAt:                  u.UpdatedAt,
	}
}

func (d *userDocument) toEntity() *entity.User {
	return &entity.User{
		ID:                         d.ID.Hex(),
		Name:                       d.Name,
		Email:                      d.Email,
		Password:                   d.Password,
		IsVerified:                 d.IsVerified,
		VerificationToken:          d.VerificationToken,
		VerificationTokenExpiresAt: d.VerificationTokenExpiresAt,
		ResetPasswordToken:         d.ResetPasswordToken,
		ResetPasswordExpiresAt:     d.ResetPasswordExpiresAt,
		LastLogin:                  d.LastLogin,
		CreatedAt:                  d.CreatedAt,
		UpdatedAt:                  d.UpdatedAt,
	}
}

func verificationFilter(code string, userID bson.ObjectID, now time.Time) bson.M {
	f := bson.M{
		"verificationToken":          code,
		"verificationTokenExpiresAt": bson.M{"$gt": now},
	}
	if !userID.IsZero() {
		f["_id"] = userID
	}
	return f
}

func resetFilter(tokenHash string, now time.Time) bson.M {
	return bson.M{
		"resetPasswordToken":     tokenHash,
		"resetPasswordExpiresAt": bson.M{"$gt": now},
	}
}
