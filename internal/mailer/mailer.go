// Package mailer defines outbound email delivery for verification ceremonies.
package mailer

import (
	"context"

	"github.com/rs/zerolog"
)

// Message is one outbound email. Body is plain text.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages. Delivery failures surface to the caller so the
// ceremony can report that the code never went out.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// LogMailer writes messages to the log instead of delivering them. It is the
// development implementation; production deployments plug in a real provider.
type LogMailer struct {
	Log zerolog.Logger
}

// Send logs the message instead of delivering it. The body carries the code
// and the code-bearing link, so it is logged at debug only; the info entry
// records just the envelope.
func (l LogMailer) Send(_ context.Context, m Message) error {
	l.Log.Info().
		Str("to", m.To).
		Str("subject", m.Subject).
		Msg("outbound email")
	l.Log.Debug().
		Str("to", m.To).
		Str("body", m.Body).
		Msg("outbound email body")
	return nil
}
