package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/klimatholod/store-backend/internal/mail"
	"github.com/klimatholod/store-backend/internal/ratelimit"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type sentMail struct {
	kind, to, token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) record(kind, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !strings.HasSuffix(to, "@mail.ru") && !strings.HasSuffix(to, "@gmail.com") {
		return mail.ErrUnsupportedDomain
	}
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind, to, token})
	return nil
}

func (m *fakeMailer) SendVerification(_ context.Context, to, _, token string) error {
	return m.record("verify", to, token)
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, _, token string) error {
	return m.record("reset", to, token)
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type fixture struct {
	app    *fiber.App
	users  *InMemoryRepository
	tokens *InMemoryTokenRepository
	mailer *fakeMailer
	clock  *time.Time
}

func newFixture(t *testing.T, seed ...User) *fixture {
	t.Helper()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	f := &fixture{
		users:  NewInMemoryRepository(seed),
		mailer: &fakeMailer{},
		clock:  &now,
	}
	f.tokens = NewInMemoryTokenRepository(func() time.Time { return *f.clock })

	svc := NewService(f.users, f.tokens, Options{
		Mailer:    f.mailer,
		Limiter:   ratelimit.NewMemory(3, time.Minute),
		JWTSecret: testSecret,
	})
	svc.now = func() time.Time { return *f.clock }

	f.app = fiber.New()
	NewHandler(svc, nil).RegisterPublicRoutes(f.app)
	return f
}

func (f *fixture) post(t *testing.T, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	out := map[string]any{}
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res.StatusCode, out
}

func hash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func TestRegisterVerifyLogin_EndToEnd(t *testing.T) {
	f := newFixture(t)

	status, body := f.post(t, "/register", `{"name":"Anna","email":"a@mail.ru","password":"pw"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201 got %d (%v)", status, body)
	}
	u, err := f.users.GetByEmail(context.Background(), "a@mail.ru")
	if err != nil {
		t.Fatal(err)
	}
	if u.IsVerified {
		t.Fatalf("new user must not be verified")
	}
	if u.Password == "pw" {
		t.Fatalf("password must be stored hashed")
	}

	status, _ = f.post(t, "/login", `{"email":"a@mail.ru","password":"pw"}`)
	if status != fiber.StatusForbidden {
		t.Fatalf("expected 403 before verification, got %d", status)
	}

	token := f.mailer.last().token
	if len(token) != 64 {
		t.Fatalf("expected 64 hex chars, got %q", token)
	}
	status, _ = f.post(t, "/verify-email", fmt.Sprintf(`{"token":%q}`, token))
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 on verify, got %d", status)
	}
	if f.tokens.Len() != 0 {
		t.Fatalf("token row must be deleted after use")
	}
	u, _ = f.users.GetByEmail(context.Background(), "a@mail.ru")
	if !u.IsVerified {
		t.Fatalf("user must be verified")
	}

	status, body = f.post(t, "/login", `{"email":"a@mail.ru","password":"pw"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 after verification, got %d", status)
	}
	if _, leaked := body["user"].(map[string]any)["password"]; leaked {
		t.Fatalf("password must not be returned")
	}
	// the service clock is fixed in the past, so exp is checked by hand
	parser := &jwt.Parser{SkipClaimsValidation: true}
	parsed, err := parser.Parse(body["token"].(string), func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("invalid token: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["user_id"] != float64(u.ID) || claims["is_admin"] != false {
		t.Fatalf("unexpected claims %v", claims)
	}
	if exp := claims["exp"].(float64); int64(exp) != f.clock.Add(72*time.Hour).Unix() {
		t.Fatalf("expected 72h expiry, got %v", exp)
	}

	status, _ = f.post(t, "/verify-email", fmt.Sprintf(`{"token":%q}`, token))
	if status != fiber.StatusBadRequest {
		t.Fatalf("token must be single use, got %d", status)
	}
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t, User{ID: 1, Email: "taken@mail.ru", Password: "x"})

	status, _ := f.post(t, "/register", `{"name":"A","email":"taken@mail.ru","password":"pw"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", status)
	}
	status, _ = f.post(t, "/register", `{"name":"A","email":"","password":"pw"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for missing email, got %d", status)
	}
}

func TestRegister_UnsupportedDomainStillCreated(t *testing.T) {
	f := newFixture(t)

	status, body := f.post(t, "/register", `{"name":"B","email":"b@example.com","password":"pw"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201 got %d", status)
	}
	if body["message"] != MsgMailNotSupported {
		t.Fatalf("unexpected message %v", body["message"])
	}
	if _, err := f.users.GetByEmail(context.Background(), "b@example.com"); err != nil {
		t.Fatalf("user must be stored: %v", err)
	}
}

func TestRegister_MailFailureNotSurfaced(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp down")

	status, body := f.post(t, "/register", `{"name":"C","email":"c@gmail.com","password":"pw"}`)
	if status != fiber.StatusCreated || body["message"] != MsgRegistered {
		t.Fatalf("expected 201 with registered message, got %d %v", status, body)
	}
}

func TestVerifyEmail_IgnoresExpiryButResetDoesNot(t *testing.T) {
	f := newFixture(t, User{ID: 5, Email: "d@mail.ru", Password: hash(t, "old")})
	ctx := context.Background()
	past := f.clock.Add(-time.Minute)

	f.tokens.Upsert(ctx, Token{UserID: 5, Value: "expired-token", ExpiresAt: past})

	status, _ := f.post(t, "/verify-token", `{"token":"expired-token"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("verify-token must reject an expired token, got %d", status)
	}
	status, body := f.post(t, "/reset-password", `{"token":"expired-token","newPassword":"new"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("reset-password must reject an expired token, got %d", status)
	}
	if body["error"] != ErrExpiredOrInvalidToken.Error() {
		t.Fatalf("unexpected error %v", body["error"])
	}

	status, _ = f.post(t, "/verify-email", `{"token":"expired-token"}`)
	if status != fiber.StatusOK {
		t.Fatalf("verify-email accepts expired tokens, got %d", status)
	}
	u, _ := f.users.GetByID(ctx, 5)
	if !u.IsVerified {
		t.Fatalf("user must be verified")
	}
}

func TestPasswordReset_Flow(t *testing.T) {
	f := newFixture(t, User{ID: 9, Name: "E", Email: "e@gmail.com", Password: hash(t, "old"), IsVerified: true})

	status, _ := f.post(t, "/request-password-reset", `{"email":"nobody@gmail.com"}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 got %d", status)
	}

	status, _ = f.post(t, "/request-password-reset", `{"email":"e@gmail.com"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	token := f.mailer.last().token

	status, _ = f.post(t, "/verify-token", fmt.Sprintf(`{"token":%q}`, token))
	if status != fiber.StatusOK {
		t.Fatalf("fresh token must be valid, got %d", status)
	}

	status, _ = f.post(t, "/reset-password", fmt.Sprintf(`{"token":%q,"newPassword":"new"}`, token))
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	if f.tokens.Len() != 0 {
		t.Fatalf("token must be consumed")
	}
	status, _ = f.post(t, "/login", `{"email":"e@gmail.com","password":"new"}`)
	if status != fiber.StatusOK {
		t.Fatalf("login with new password failed: %d", status)
	}
}

func TestPasswordReset_MailFailureIsServerError(t *testing.T) {
	f := newFixture(t, User{ID: 9, Email: "e@gmail.com", Password: "x"})
	f.mailer.err = errors.New("smtp down")

	status, body := f.post(t, "/request-password-reset", `{"email":"e@gmail.com"}`)
	if status != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", status)
	}
	if body["error"] != "failed to request password reset" {
		t.Fatalf("internal detail must not leak, got %v", body["error"])
	}
}

func TestResendVerification(t *testing.T) {
	f := newFixture(t,
		User{ID: 1, Email: "done@mail.ru", IsVerified: true},
		User{ID: 2, Email: "todo@mail.ru"},
	)

	status, _ := f.post(t, "/resend-verification", `{"email":"done@mail.ru"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for verified user, got %d", status)
	}
	if f.tokens.Len() != 0 {
		t.Fatalf("no token may be issued for a verified user")
	}

	status, _ = f.post(t, "/resend-verification", `{"email":"ghost@mail.ru"}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 got %d", status)
	}

	f.post(t, "/resend-verification", `{"email":"todo@mail.ru"}`)
	first := f.mailer.last().token
	f.post(t, "/resend-verification", `{"email":"todo@mail.ru"}`)
	second := f.mailer.last().token
	if first == second {
		t.Fatalf("resend must issue a fresh token")
	}
	if f.tokens.Len() != 1 {
		t.Fatalf("resend must replace the row, got %d rows", f.tokens.Len())
	}
	status, _ = f.post(t, "/verify-email", fmt.Sprintf(`{"token":%q}`, first))
	if status != fiber.StatusBadRequest {
		t.Fatalf("replaced token must be invalid, got %d", status)
	}
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t, User{ID: 1, Email: "f@mail.ru", Password: hash(t, "right"), IsVerified: true})

	status, _ := f.post(t, "/login", `{"email":"nobody@mail.ru","password":"x"}`)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", status)
	}
	status, _ = f.post(t, "/login", `{"email":"f@mail.ru","password":"wrong"}`)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", status)
	}
	f.post(t, "/login", `{"email":"f@mail.ru","password":"wrong"}`)
	f.post(t, "/login", `{"email":"f@mail.ru","password":"wrong"}`)

	status, _ = f.post(t, "/login", `{"email":"f@mail.ru","password":"right"}`)
	if status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 after repeated failures, got %d", status)
	}
}

func TestChangePasswordAndUserInfo(t *testing.T) {
	f := newFixture(t, User{ID: 3, Email: "g@mail.ru", Password: hash(t, "cur"), IsVerified: true})

	status, _ := f.post(t, "/change-password", `{"userId":3,"currentPassword":"bad","newPassword":"n"}`)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", status)
	}
	status, _ = f.post(t, "/change-password", `{"userId":42,"currentPassword":"cur","newPassword":"n"}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 got %d", status)
	}
	status, _ = f.post(t, "/change-password", `{"userId":3,"currentPassword":"cur","newPassword":"n"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	u, _ := f.users.GetByID(context.Background(), 3)
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("n")) != nil {
		t.Fatalf("password not updated")
	}

	status, _ = f.post(t, "/update-user-info", `{"userId":3,"phone":"+79990000000","address":"Tverskaya 1"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	u, _ = f.users.GetByID(context.Background(), 3)
	if u.Phone == nil || *u.Phone != "+79990000000" || *u.Address != "Tverskaya 1" {
		t.Fatalf("contact not updated: %+v", u)
	}
	status, _ = f.post(t, "/update-user-info", `{"userId":77,"phone":"1"}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 got %d", status)
	}
}

func TestRequireAdmin(t *testing.T) {
	app := fiber.New()
	app.Use(RequireToken(testSecret), RequireAdmin)
	app.Get("/orders/all", func(c *fiber.Ctx) error { return c.SendString("ok") })

	sign := func(admin bool) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": 1, "is_admin": admin, "exp": time.Now().Add(time.Hour).Unix(),
		})
		s, err := tok.SignedString([]byte(testSecret))
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	cases := []struct {
		auth   string
		status int
	}{
		{"", fiber.StatusUnauthorized},
		{"Bearer garbage", fiber.StatusUnauthorized},
		{"Bearer " + sign(false), fiber.StatusForbidden},
		{"Bearer " + sign(true), fiber.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/orders/all", nil)
		if tc.auth != "" {
			req.Header.Set("Authorization", tc.auth)
		}
		res, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if res.StatusCode != tc.status {
			t.Errorf("auth %q: expected %d got %d", tc.auth, tc.status, res.StatusCode)
		}
	}
}
