package user

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/klimatholod/store-backend/internal/apperror"
)

type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Password   string    `json:"password,omitempty"`
	IsVerified bool      `json:"is_verified"`
	IsAdmin    bool      `json:"isAdmin"`
	Phone      *string   `json:"phone"`
	Address    *string   `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
}

// Token is a row of email_verification_tokens. One row per user serves both
// email verification and password reset.
type Token struct {
	UserID    int64
	Value     string
	ExpiresAt time.Time
}

// TokenTTL is how long an issued token stays usable.
const TokenTTL = time.Hour

var (
	ErrNotFound              = apperror.NotFound("user not found")
	ErrEmailExists           = apperror.New(apperror.ErrConflict, "user with this email already exists")
	ErrInvalidCredentials    = apperror.New(apperror.ErrUnauthorized, "invalid email or password")
	ErrNotVerified           = apperror.New(apperror.ErrForbidden, "account is not verified, check your email")
	ErrWrongPassword         = apperror.New(apperror.ErrUnauthorized, "current password is incorrect")
	ErrAlreadyVerified       = apperror.Validation("email is already verified")
	ErrInvalidToken          = apperror.New(apperror.ErrInvalidToken, "invalid or expired token")
	ErrExpiredOrInvalidToken = apperror.New(apperror.ErrExpiredOrInvalidToken, "token is invalid or expired")

	errTokenNotFound = errors.New("token not found")
)

// newTokenValue returns 32 random bytes, hex encoded.
func newTokenValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func sanitizeUser(user User) User {
	user.Password = ""
	return user
}
