package mailer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogMailerKeepsBodyOutOfInfo(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{Log: zerolog.New(&buf).Level(zerolog.InfoLevel)}

	err := m.Send(context.Background(), Message{
		To:      "a@example.com",
		Subject: "Sign in",
		Body:    "Your code is ABC123: https://app.example.com/verify?code=abc123xyz",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "a@example.com") || !strings.Contains(out, "Sign in") {
		t.Fatalf("envelope not logged: %s", out)
	}
	if strings.Contains(out, "abc123xyz") || strings.Contains(out, "ABC123") {
		t.Fatalf("code leaked at info level: %s", out)
	}
}

func TestLogMailerBodyAtDebug(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{Log: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	if err := m.Send(context.Background(), Message{To: "a@example.com", Body: "code=abc123xyz"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "abc123xyz") {
		t.Fatalf("body missing from debug output: %s", buf.String())
	}
}
