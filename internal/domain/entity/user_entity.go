package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Password only ever holds a bcrypt hash; ResetPasswordToken holds the SHA-256
// digest of the issued reset token, never the token itself.
type User struct {
	ID                         string
	Name                       string
	Email                      string
	Password                   string
	IsVerified                 bool
	VerificationToken          *string
	VerificationTokenExpiresAt *time.Time
	ResetPasswordToken         *string
	ResetPasswordExpiresAt     *time.Time
	LastLogin                  time.Time
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// PublicUser is the subset of User safe to return to a client.
type PublicUser struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"isVerified"`
	LastLogin  time.Time `json:"lastLogin"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Public projects u for API responses.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// HasPendingVerification reports whether a verification code is outstanding at now.
func (u *User) HasPendingVerification(now time.Time) bool {
	return u.VerificationToken != nil && u.VerificationTokenExpiresAt != nil && now.Before(*u.VerificationTokenExpiresAt)
}
