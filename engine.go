package authcore

import (
	"time"

	"go.uber.org/zap"

	"github.com/arkivault/authcore/password"
	"github.com/arkivault/authcore/secretbox"
	"github.com/arkivault/authcore/token"
)

// Engine is the authentication core. Build one through [Builder]; it is
// immutable afterwards and safe for concurrent use. There is no shared
// mutable state across requests beyond the metrics counters and the audit
// channel.
type Engine struct {
	config    Config
	directory UserDirectory
	keyring   *secretbox.Keyring
	hasher    *password.Hasher
	issuer    *token.Issuer
	metrics   *Metrics
	audit     *auditDispatcher
	logger    *zap.Logger
	dummyHash string
}

// Close flushes and stops the audit dispatcher. The engine must not be
// used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// ParseAccess validates a self-contained access token without any store
// round-trip.
func (e *Engine) ParseAccess(raw string) (*token.AccessClaims, error) {
	if e == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}
	return e.issuer.ParseAccess(raw)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// emitAudit queues one event. Fire-and-forget: a full buffer or a dead
// sink never influences the authentication decision.
func (e *Engine) emitAudit(kind EventKind, identifier, userID, familyID, reason string, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Emit(AuditEvent{
		Timestamp:  time.Now(),
		Kind:       kind,
		Identifier: identifier,
		UserID:     userID,
		FamilyID:   familyID,
		Reason:     reason,
		Metadata:   metadata,
	})
}
