package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/klimatholod/store-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	provider Provider
	msg      Message
	calls    int
	err      error
}

func (r *recordingTransport) Deliver(_ context.Context, p Provider, m Message) error {
	r.calls++
	r.provider = p
	r.msg = m
	return r.err
}

func newTestService(t *recordingTransport) *Service {
	return NewService(Providers(config.MailConfig{
		GmailUser:  "shop@gmail.com",
		GmailPass:  "g",
		MailRuUser: "shop@mail.ru",
		MailRuPass: "m",
		YandexUser: "shop@yandex.ru",
		YandexPass: "y",
	}), "http://localhost:8080/", t)
}

func TestProviderFor_SelectsBySuffix(t *testing.T) {
	s := newTestService(&recordingTransport{})

	cases := map[string]string{
		"a@gmail.com":   "smtp.gmail.com",
		"B@Mail.Ru":     "smtp.mail.ru",
		"c@yandex.ru":   "smtp.yandex.ru",
		" d@gmail.com ": "smtp.gmail.com",
	}
	for addr, host := range cases {
		p, err := s.ProviderFor(addr)
		require.NoError(t, err, addr)
		assert.Equal(t, host, p.Host, addr)
		assert.Equal(t, 465, p.Port)
	}
}

func TestProviderFor_UnsupportedDomain(t *testing.T) {
	s := newTestService(&recordingTransport{})
	_, err := s.ProviderFor("someone@example.com")
	assert.ErrorIs(t, err, ErrUnsupportedDomain)
}

func TestSendVerification_RendersLink(t *testing.T) {
	tr := &recordingTransport{}
	s := newTestService(tr)

	require.NoError(t, s.SendVerification(context.Background(), "user@mail.ru", "Olga", "abc123"))

	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, "smtp.mail.ru", tr.provider.Host)
	assert.Equal(t, "shop@mail.ru", tr.msg.From)
	assert.Equal(t, "user@mail.ru", tr.msg.To)
	assert.Contains(t, tr.msg.HTML, "http://localhost:8080/verify-account?token=abc123")
	assert.Contains(t, tr.msg.HTML, "Hello, Olga!")
}

func TestSendPasswordReset_RendersLink(t *testing.T) {
	tr := &recordingTransport{}
	s := newTestService(tr)

	require.NoError(t, s.SendPasswordReset(context.Background(), "user@gmail.com", "", "tok"))
	assert.Contains(t, tr.msg.HTML, "http://localhost:8080/reset-password?token=tok")
	assert.Equal(t, "Password reset", tr.msg.Subject)
}

func TestSend_UnsupportedDomainSkipsTransport(t *testing.T) {
	tr := &recordingTransport{}
	s := newTestService(tr)

	err := s.SendVerification(context.Background(), "user@example.org", "x", "tok")
	assert.ErrorIs(t, err, ErrUnsupportedDomain)
	assert.Equal(t, 0, tr.calls)
}

func TestSend_WrapsTransportError(t *testing.T) {
	boom := errors.New("dial tcp: timeout")
	s := newTestService(&recordingTransport{err: boom})

	err := s.SendPasswordReset(context.Background(), "user@yandex.ru", "x", "tok")
	assert.ErrorIs(t, err, boom)
}
