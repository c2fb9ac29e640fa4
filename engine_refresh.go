package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/arkivault/authcore/token"
)

// Refresh exchanges a refresh token for a new access/refresh pair,
// preserving the family ID. Reuse of a rotated-away token revokes the
// whole family and returns ErrReuseDetected; callers must force a full
// re-login and should present it to the user as an ordinary credential
// failure.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil || e.issuer == nil {
		return nil, ErrEngineNotReady
	}

	session, err := e.issuer.Rotate(ctx, refreshToken)
	switch {
	case errors.Is(err, token.ErrReuseDetected):
		e.metricInc(MetricRefreshReuse)
		e.emitAudit(EventFailure, "", "", familyIDForAudit(e, refreshToken), ReasonRefreshReuse, nil)
		return nil, ErrReuseDetected
	case errors.Is(err, token.ErrRefreshInvalid):
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(EventFailure, "", "", familyIDForAudit(e, refreshToken), ReasonRefreshInvalid, nil)
		return nil, ErrRefreshInvalid
	case errors.Is(err, token.ErrStoreUnavailable):
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case err != nil:
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)

	return &LoginResult{
		User: PublicUser{
			ID:   session.UserID,
			Role: Role(session.Role),
		},
		AccessToken:      session.AccessToken,
		RefreshToken:     session.RefreshToken,
		RefreshExpiresAt: session.RefreshExpiresAt,
		FamilyID:         session.FamilyID,
		Message:          "Session refreshed",
		RecoveryCodeUsed: -1,
	}, nil
}

// Logout revokes the family behind a refresh token. Idempotent: a token
// whose family is already gone still logs out cleanly.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.issuer == nil {
		return ErrEngineNotReady
	}

	familyID, err := e.issuer.FamilyID(refreshToken)
	if err != nil {
		// Malformed token: nothing to revoke, nothing to reveal.
		return nil
	}

	if err := e.issuer.Revoke(ctx, familyID); err != nil {
		if errors.Is(err, token.ErrStoreUnavailable) {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(EventLogout, "", "", familyID, "", nil)
	return nil
}

// OnPasswordReset revokes every refresh family a user owns. The password
// change itself happens in the credential flow outside this core; this is
// the session-security consequence.
func (e *Engine) OnPasswordReset(ctx context.Context, userID string) error {
	if e == nil || e.issuer == nil {
		return ErrEngineNotReady
	}

	if err := e.issuer.RevokeUser(ctx, userID); err != nil {
		if errors.Is(err, token.ErrStoreUnavailable) {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return err
	}

	e.metricInc(MetricPasswordReset)
	e.emitAudit(EventPasswordReset, "", userID, "", "", nil)
	return nil
}

// RevokeFamily invalidates a single family directly, for administrative
// session termination.
func (e *Engine) RevokeFamily(ctx context.Context, familyID string) error {
	if e == nil || e.issuer == nil {
		return ErrEngineNotReady
	}
	if err := e.issuer.Revoke(ctx, familyID); err != nil {
		if errors.Is(err, token.ErrStoreUnavailable) {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return err
	}
	return nil
}

// familyIDForAudit best-effort decodes the family ID so failure events
// stay attributable; an undecodable token audits with an empty family.
func familyIDForAudit(e *Engine, refreshToken string) string {
	familyID, err := e.issuer.FamilyID(refreshToken)
	if err != nil {
		return ""
	}
	return familyID
}
