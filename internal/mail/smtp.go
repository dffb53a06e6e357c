package mail

import (
	"context"

	gomail "github.com/wneessen/go-mail"
)

// SMTPTransport dials the provider over implicit TLS for every message.
type SMTPTransport struct{}

func (SMTPTransport) Deliver(ctx context.Context, p Provider, m Message) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return err
	}
	if err := msg.To(m.To); err != nil {
		return err
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextHTML, m.HTML)

	client, err := gomail.NewClient(p.Host,
		gomail.WithPort(p.Port),
		gomail.WithSSL(),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(p.User),
		gomail.WithPassword(p.Pass),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
