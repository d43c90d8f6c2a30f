package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Recorder keeps every message it is asked to send. Fail, when set,
// decides per message whether the send fails.
type Recorder struct {
	mu   sync.Mutex
	sent []*Message
	Fail func(m *Message) error
}

var _ Sender = (*Recorder)(nil)

// Send records m unless Fail returns an error.
func (r *Recorder) Send(ctx context.Context, m *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Fail != nil {
		if err := r.Fail(m); err != nil {
			return &TransportError{To: m.To, Err: err}
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.sent = append(r.sent, &cp)
	return nil
}

// Sent returns the recorded messages.
func (r *Recorder) Sent() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Message(nil), r.sent...)
}

// Log returns a Sender that only logs messages. payrolld uses it when no
// SMTP host is configured.
func Log(logger *slog.Logger) Sender {
	return SenderFunc(func(_ context.Context, m *Message) error {
		attrs := []any{slog.String("to", m.To), slog.String("subject", m.Subject)}
		if m.Attachment != nil {
			attrs = append(attrs, slog.String("attachment", m.Attachment.Name), slog.Int("size", len(m.Attachment.Data)))
		}
		logger.Info("email not sent: no smtp host configured", attrs...)
		return nil
	})
}
