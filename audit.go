package authcore

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// EventKind classifies audit events. The set is closed; reason codes add
// the detail.
type EventKind string

const (
	// EventSuccess records a completed authentication.
	EventSuccess EventKind = "SUCCESS"
	// EventFailure records any rejected authentication attempt.
	EventFailure EventKind = "FAILURE"
	// EventMFARequired records a password-accepted, challenge-issued
	// branch.
	EventMFARequired EventKind = "MFA_REQUIRED"
	// EventLogout records a voluntary session end.
	EventLogout EventKind = "LOGOUT"
	// EventPasswordReset records the bulk family revocation that follows a
	// password change.
	EventPasswordReset EventKind = "PASSWORD_RESET"
)

// Reason codes attached to audit events.
const (
	ReasonUserNotFound   = "user_not_found"
	ReasonBadPassword    = "bad_password"
	ReasonMFAInvalid     = "mfa_invalid"
	ReasonMFAChallenge   = "challenge"
	ReasonRefreshReuse   = "refresh_reuse"
	ReasonRefreshInvalid = "refresh_invalid"
)

// AuditEvent is one immutable, append-only record of an authentication
// decision. Write-only from the core's perspective.
type AuditEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	Kind       EventKind         `json:"kind"`
	Identifier string            `json:"identifier,omitempty"`
	UserID     string            `json:"user_id,omitempty"`
	FamilyID   string            `json:"family_id,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the engine's dispatcher. Emit must not
// block indefinitely; slow sinks cause events to be dropped, never logins
// to stall.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards everything.
type NoOpSink struct{}

// Emit implements AuditSink.
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel for the embedding
// application to drain.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink allocates a sink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

// Emit implements AuditSink.
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events exposes the stream.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line to a writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink wraps w; the sink serializes concurrent emits.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

// Emit implements AuditSink.
func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
