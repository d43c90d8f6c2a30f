package notify

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func TestSMTP_ComposeWithAttachment(t *testing.T) {
	var got []byte
	var rcpt []string
	s := NewSMTP(SMTPConfig{Host: "mail.example.com", Port: 25, From: "payroll@example.com"})
	s.send = func(_ string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		rcpt, got = to, msg
		return nil
	}

	err := s.Send(context.Background(), &Message{
		To:      "ion@example.com",
		Subject: "Your Salary Slip",
		Body:    "Hello Ion,\n",
		Attachment: &Attachment{
			Name:      "salary_slip_E001.pdf",
			MediaType: "application/pdf",
			Data:      []byte("%PDF-1.4 fake"),
		},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(rcpt) != 1 || rcpt[0] != "ion@example.com" {
		t.Fatalf("recipients = %v", rcpt)
	}

	msg, err := mail.ReadMessage(strings.NewReader(string(got)))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if id := msg.Header.Get("Message-ID"); !strings.HasSuffix(id, "@mail.example.com>") {
		t.Errorf("Message-ID = %q", id)
	}
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/mixed" {
		t.Fatalf("Content-Type = %q, %v", mediaType, err)
	}

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var parts []*multipart.Part
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		_, _ = io.ReadAll(p)
		parts = append(parts, p)
	}
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	if fn := parts[1].FileName(); fn != "salary_slip_E001.pdf" {
		t.Errorf("attachment name = %q", fn)
	}
}

func TestSMTP_TransportErrorAndTimeout(t *testing.T) {
	s := NewSMTP(SMTPConfig{Host: "mail.example.com", Port: 25})
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("421 service not available")
	}

	err := s.Send(context.Background(), &Message{To: "a@example.com", Subject: "x"})
	var te *TransportError
	if !errors.As(err, &te) || te.To != "a@example.com" {
		t.Fatalf("got %v, want *TransportError", err)
	}

	block := make(chan struct{})
	defer close(block)
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-block
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Send(ctx, &Message{To: "a@example.com"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}

	if err := s.Send(context.Background(), &Message{}); !errors.Is(err, ErrNoAddress) {
		t.Fatalf("got %v, want ErrNoAddress", err)
	}
}
