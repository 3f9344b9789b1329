package helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"strconv"
	"time"
)

// VerificationCodeTTL is how long an email verification code stays valid.
const VerificationCodeTTL = 24 * time.Hour

const (
	codeMin   = 100000
	codeRange = 900000 // codeMin..999999 inclusive
)

// GenVerificationCode returns a uniformly random 6-digit code in [100000, 999999].
func GenVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// GenResetToken returns a 256-bit random token, base64url encoded without padding.
func GenResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken is the storage form of an opaque token; only the digest is persisted.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
