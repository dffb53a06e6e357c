// Package mail sends account emails through the SMTP account that matches the
// recipient's mail domain.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/klimatholod/store-backend/internal/config"
)

// ErrUnsupportedDomain is returned when no SMTP account serves the
// recipient's domain.
var ErrUnsupportedDomain = errors.New("mail service is not supported")

// Provider is one SMTP account.
type Provider struct {
	Suffix string
	Host   string
	Port   int
	User   string
	Pass   string
}

// Message is a rendered email ready for delivery.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Transport delivers a message through a provider.
type Transport interface {
	Deliver(ctx context.Context, p Provider, m Message) error
}

// Mailer is what the user flows depend on.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, token string) error
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

// Service picks a provider by recipient domain, renders the body and hands
// the message to its transport.
type Service struct {
	providers []Provider
	baseURL   string
	transport Transport
}

// Providers builds the domain suffix table from configured credentials.
func Providers(cfg config.MailConfig) []Provider {
	return []Provider{
		{Suffix: "@gmail.com", Host: "smtp.gmail.com", Port: 465, User: cfg.GmailUser, Pass: cfg.GmailPass},
		{Suffix: "@mail.ru", Host: "smtp.mail.ru", Port: 465, User: cfg.MailRuUser, Pass: cfg.MailRuPass},
		{Suffix: "@yandex.ru", Host: "smtp.yandex.ru", Port: 465, User: cfg.YandexUser, Pass: cfg.YandexPass},
	}
}

func NewService(providers []Provider, baseURL string, t Transport) *Service {
	return &Service{
		providers: providers,
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: t,
	}
}

// ProviderFor returns the account serving addr.
func (s *Service) ProviderFor(addr string) (Provider, error) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	for _, p := range s.providers {
		if strings.HasSuffix(addr, p.Suffix) {
			return p, nil
		}
	}
	return Provider{}, ErrUnsupportedDomain
}

func (s *Service) SendVerification(ctx context.Context, to, name, token string) error {
	body, err := render(verificationTmpl, linkData{Name: name, Link: s.link("/verify-account", token)})
	if err != nil {
		return err
	}
	return s.send(ctx, to, "Email verification", body)
}

func (s *Service) SendPasswordReset(ctx context.Context, to, name, token string) error {
	body, err := render(resetTmpl, linkData{Name: name, Link: s.link("/reset-password", token)})
	if err != nil {
		return err
	}
	return s.send(ctx, to, "Password reset", body)
}

func (s *Service) send(ctx context.Context, to, subject, html string) error {
	p, err := s.ProviderFor(to)
	if err != nil {
		return err
	}
	m := Message{From: p.User, To: to, Subject: subject, HTML: html}
	if err := s.transport.Deliver(ctx, p, m); err != nil {
		return fmt.Errorf("send mail via %s: %w", p.Host, err)
	}
	return nil
}

func (s *Service) link(path, token string) string {
	return s.baseURL + path + "?token=" + token
}
