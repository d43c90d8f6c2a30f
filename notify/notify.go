// Package notify delivers documents to recipients. Sender is the outward
// collaborator of the dispatch engine; SMTP is the production transport.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoAddress is returned for a message without a recipient address.
var ErrNoAddress = errors.New("payroll: recipient has no email address")

// Attachment is a file carried by a message.
type Attachment struct {
	Name      string
	MediaType string
	Data      []byte
}

// Message is one outbound email.
type Message struct {
	To         string
	Subject    string
	Body       string
	Attachment *Attachment
}

// Validate checks the fields a transport needs.
func (m *Message) Validate() error {
	if m.To == "" {
		return ErrNoAddress
	}
	return nil
}

// Sender delivers a message. Implementations must honor ctx cancellation
// so a per-send timeout can bound them.
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, m *Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, m *Message) error { return f(ctx, m) }

// TransportError wraps a delivery failure reported by a transport.
type TransportError struct {
	To  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("payroll: send to %s: %v", e.To, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
