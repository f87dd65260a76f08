package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// newTestSender points a Resend sender at a local server.
func newTestSender(t *testing.T, handler http.HandlerFunc) Sender {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewResendSenderWithLogger("re_test_key", logger).(*resendSender)

	base, err := url.Parse(server.URL + "/")
	if err != nil {
		t.Fatalf("Failed to parse server URL: %v", err)
	}
	s.client.BaseURL = base
	return s
}

func TestResendSender_Success(t *testing.T) {
	var got map[string]any
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/emails" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer re_test_key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "email-123"}`))
	})

	err := sender.Send(context.Background(), Message{
		From:    "send@example.com",
		To:      []string{"me@example.com"},
		Subject: "From your reading list",
		HTML:    "<p>hi</p>",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got["subject"] != "From your reading list" {
		t.Errorf("subject = %v", got["subject"])
	}
	if got["html"] != "<p>hi</p>" {
		t.Errorf("html = %v", got["html"])
	}
	if got["from"] != "send@example.com" {
		t.Errorf("from = %v", got["from"])
	}
}

func TestResendSender_Failure(t *testing.T) {
	sender := newTestSender(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode": 422, "name": "validation_error", "message": "Invalid from address"}`))
	})

	err := sender.Send(context.Background(), Message{Subject: "Nothing more to read"})
	if err == nil {
		t.Fatal("Send() should fail on a rejected request")
	}

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("Send() error = %T, want *DeliveryError", err)
	}
	if deliveryErr.Subject != "Nothing more to read" {
		t.Errorf("Subject = %q", deliveryErr.Subject)
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	err := sender.Send(context.Background(), Message{
		To:      []string{"me@example.com"},
		Subject: "Nothing more to read",
		Text:    "All done",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Nothing more to read", "All done", "mailer.log"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestDeliveryErrorUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := error(&DeliveryError{Subject: "s", Err: cause})
	if !errors.Is(err, cause) {
		t.Error("DeliveryError should unwrap to its cause")
	}
}
