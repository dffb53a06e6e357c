package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/klimatholod/store-backend/internal/apperror"
	"github.com/klimatholod/store-backend/internal/mail"
	"github.com/klimatholod/store-backend/internal/ratelimit"
	"golang.org/x/crypto/bcrypt"
)

const (
	MsgRegistered        = "User registered. Check your email to confirm the account."
	MsgMailNotSupported  = "mail service is not supported"
	sessionTokenLifetime = 72 * time.Hour
)

type Service struct {
	users   Repository
	tokens  TokenRepository
	mailer  mail.Mailer
	limiter ratelimit.Limiter
	secret  []byte
	log     *slog.Logger

	now      func() time.Time
	newToken func() (string, error)
}

type Options struct {
	Mailer    mail.Mailer
	Limiter   ratelimit.Limiter
	JWTSecret string
	Logger    *slog.Logger
}

func NewService(users Repository, tokens TokenRepository, opts Options) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		mailer:   opts.Mailer,
		limiter:  opts.Limiter,
		secret:   []byte(opts.JWTSecret),
		log:      opts.Logger,
		now:      time.Now,
		newToken: newTokenValue,
	}
	if s.limiter == nil {
		s.limiter = ratelimit.Noop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Register creates an unverified account and mails a verification link.
// Token and mail failures are logged and do not fail the registration; the
// returned message tells the caller whether a mail could be sent at all.
func (s *Service) Register(ctx context.Context, name, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", apperror.Validation("email and password are required")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return "", ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	id, err := s.users.Create(ctx, User{Name: name, Email: email, Password: string(hashed)})
	if err != nil {
		return "", err
	}

	token, err := s.issueToken(ctx, id)
	if err != nil {
		s.log.Error("store verification token", "user_id", id, "error", err)
		return MsgRegistered, nil
	}

	if err := s.mailer.SendVerification(ctx, email, name, token); err != nil {
		if errors.Is(err, mail.ErrUnsupportedDomain) {
			return MsgMailNotSupported, nil
		}
		s.log.Error("send verification mail", "user_id", id, "error", err)
	}
	return MsgRegistered, nil
}

// Login checks credentials and returns the user with a signed session
// token. Unverified accounts are refused before the password is checked.
func (s *Service) Login(ctx context.Context, email, password string) (User, string, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if err := s.limiter.Allow(ctx, key); err != nil {
		if errors.Is(err, apperror.ErrTooManyRequests) {
			return User{}, "", err
		}
		s.log.Warn("login limiter unavailable", "error", err)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		s.recordFailure(ctx, key)
		return User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return User{}, "", err
	}
	if !u.IsVerified {
		return User{}, "", ErrNotVerified
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		s.recordFailure(ctx, key)
		return User{}, "", ErrInvalidCredentials
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		s.log.Warn("reset login failures", "error", err)
	}

	signed, err := s.sign(u)
	if err != nil {
		return User{}, "", fmt.Errorf("sign token: %w", err)
	}
	return sanitizeUser(u), signed, nil
}

func (s *Service) recordFailure(ctx context.Context, key string) {
	if err := s.limiter.Fail(ctx, key); err != nil {
		s.log.Warn("record login failure", "error", err)
	}
}

func (s *Service) sign(u User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  u.ID,
		"email":    u.Email,
		"is_admin": u.IsAdmin,
		"exp":      s.now().Add(sessionTokenLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyEmail consumes a verification token. The token's expiry is not
// checked here, unlike ResetPassword and VerifyToken.
func (s *Service) VerifyEmail(ctx context.Context, value string) error {
	t, err := s.tokens.Find(ctx, value)
	if errors.Is(err, errTokenNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if err := s.users.MarkVerified(ctx, t.UserID); err != nil {
		return err
	}
	if err := s.tokens.Delete(ctx, value); err != nil {
		s.log.Error("delete consumed token", "user_id", t.UserID, "error", err)
	}
	return nil
}

// VerifyToken reports whether value is an existing, unexpired token.
func (s *Service) VerifyToken(ctx context.Context, value string) error {
	_, err := s.tokens.FindActive(ctx, value)
	if errors.Is(err, errTokenNotFound) {
		return ErrExpiredOrInvalidToken
	}
	return err
}

func (s *Service) ResendVerification(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}

	token, err := s.issueToken(ctx, u.ID)
	if err != nil {
		return err
	}
	if err := s.mailer.SendVerification(ctx, u.Email, u.Name, token); err != nil {
		s.log.Error("resend verification mail", "user_id", u.ID, "error", err)
	}
	return nil
}

// RequestPasswordReset issues a token and mails the reset link. Delivery
// failures are returned; an address no provider serves gets no mail.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.issueToken(ctx, u.ID)
	if err != nil {
		return err
	}
	err = s.mailer.SendPasswordReset(ctx, u.Email, u.Name, token)
	if errors.Is(err, mail.ErrUnsupportedDomain) {
		s.log.Warn("password reset for unsupported mail domain", "user_id", u.ID)
		return nil
	}
	return err
}

// ResetPassword consumes an unexpired token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, value, newPassword string) error {
	if newPassword == "" {
		return apperror.Validation("newPassword is required")
	}
	t, err := s.tokens.FindActive(ctx, value)
	if errors.Is(err, errTokenNotFound) {
		return ErrExpiredOrInvalidToken
	}
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, t.UserID, string(hashed)); err != nil {
		return err
	}
	if err := s.tokens.Delete(ctx, value); err != nil {
		s.log.Error("delete consumed token", "user_id", t.UserID, "error", err)
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if next == "" {
		return apperror.Validation("newPassword is required")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(current)) != nil {
		return ErrWrongPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, string(hashed))
}

func (s *Service) UpdateUserInfo(ctx context.Context, userID int64, phone, address *string) error {
	return s.users.UpdateContact(ctx, userID, phone, address)
}

func (s *Service) issueToken(ctx context.Context, userID int64) (string, error) {
	value, err := s.newToken()
	if err != nil {
		return "", err
	}
	err = s.tokens.Upsert(ctx, Token{
		UserID:    userID,
		Value:     value,
		ExpiresAt: s.now().Add(TokenTTL),
	})
	if err != nil {
		return "", err
	}
	return value, nil
}
