package helpers

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is used when JWT_EXPIRATION is missing or unparseable.
const DefaultSessionTTL = time.Hour

var ttlPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseTTL parses "<integer><unit>" with unit one of s, m, h, d.
// Anything else, including a duration too large to represent, falls back
// to DefaultSessionTTL.
func ParseTTL(s string) time.Duration {
	m := ttlPattern.FindStringSubmatch(s)
	if m == nil {
		return DefaultSessionTTL
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return DefaultSessionTTL
	}
	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	if n > math.MaxInt64/int64(unit) {
		return DefaultSessionTTL
	}
	return time.Duration(n) * unit
}

// JWTManager signs and validates session tokens
type JWTManager struct {
	Secret []byte
	TTL    time.Duration
	now    func() time.Time
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &JWTManager{Secret: []byte(secret), TTL: ttl, now: time.Now}
}

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// GenerateSessionToken returns a signed token for userID and its expiry.
func (m *JWTManager) GenerateSessionToken(userID string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.TTL)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

// ParseSessionToken checks signature and expiry and returns the claims.
func (m *JWTManager) ParseSessionToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !tkn.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
