package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arkivault/authcore/token"
	"github.com/arkivault/authcore/totp"
)

// Login runs the credential state machine: password check, optional MFA
// challenge, token issue. Every rejection is ErrInvalidCredentials with
// MessageInvalidCredentials; the only distinguishable branch is a nil
// error with MFARequired set, which asks the caller to retry with a TOTP
// or recovery code.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.directory.FindByIdentifier(ctx, req.Identifier)
	switch {
	case errors.Is(err, ErrUserNotFound) || (err == nil && user == nil):
		// Burn the same hash work a real row would cost, so response
		// timing does not reveal whether the account exists.
		_ = e.hasher.Verify(e.dummyHash, req.Password)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(EventFailure, req.Identifier, "", "", ReasonUserNotFound, nil)
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !e.hasher.Verify(user.PasswordHash, req.Password) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(EventFailure, req.Identifier, user.ID, "", ReasonBadPassword, nil)
		return nil, ErrInvalidCredentials
	}

	secret := user.MFA
	if !secret.Active() {
		return e.completeLogin(ctx, req.Identifier, user, -1, nil)
	}

	if req.MFACode == "" && req.RecoveryCode == "" {
		e.metricInc(MetricMFARequired)
		e.emitAudit(EventMFARequired, req.Identifier, user.ID, "", ReasonMFAChallenge, nil)
		return &LoginResult{
			MFARequired:      true,
			Message:          MessageMFARequired,
			RecoveryCodeUsed: -1,
		}, nil
	}

	seed, needsRotation, err := e.keyring.Open(secret.SeedCiphertext)
	if err != nil {
		// A corrupt or misconfigured stored seed is an MFA verification
		// failure to the caller, never a server error.
		e.logger.Warn("mfa seed unreadable",
			zap.String("secret_id", secret.ID),
			zap.Error(err))
		e.metricInc(MetricMFAFailure)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(EventFailure, req.Identifier, user.ID, "", ReasonMFAInvalid, nil)
		return nil, ErrInvalidCredentials
	}

	recoveryIdx := -1
	verified := false
	mfaKind := "totp"
	if req.MFACode != "" {
		verified = e.config.TOTP.Verify(string(seed), req.MFACode, time.Now())
	} else {
		mfaKind = "recovery"
		if idx, ok := totp.FindRecoveryCode(secret.RecoveryCodeHashes, req.RecoveryCode, e.hasher.VerifyUsable); ok {
			recoveryIdx = idx
			verified = true
		}
	}
	if !verified {
		e.metricInc(MetricMFAFailure)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(EventFailure, req.Identifier, user.ID, "", ReasonMFAInvalid, nil)
		return nil, ErrInvalidCredentials
	}

	e.metricInc(MetricMFASuccess)
	metadata := map[string]string{"mfa": mfaKind}
	if recoveryIdx >= 0 {
		e.metricInc(MetricRecoveryCodeUsed)
	}

	if needsRotation {
		if e.rotateSeedCiphertext(ctx, secret, seed) {
			metadata["seed_rotated"] = "true"
		}
	}

	return e.completeLogin(ctx, req.Identifier, user, recoveryIdx, metadata)
}

// completeLogin mints the session and emits the SUCCESS event. Shared by
// the no-MFA and post-MFA paths.
func (e *Engine) completeLogin(ctx context.Context, identifier string, user *UserRecord, recoveryIdx int, metadata map[string]string) (*LoginResult, error) {
	session, err := e.issuer.Issue(ctx, user.ID, string(user.Role))
	if err != nil {
		if errors.Is(err, token.ErrStoreUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(EventSuccess, identifier, user.ID, session.FamilyID, "", metadata)

	return &LoginResult{
		User: PublicUser{
			ID:         user.ID,
			Identifier: user.Identifier,
			Role:       user.Role,
		},
		AccessToken:      session.AccessToken,
		RefreshToken:     session.RefreshToken,
		RefreshExpiresAt: session.RefreshExpiresAt,
		FamilyID:         session.FamilyID,
		Message:          "Login successful",
		RecoveryCodeUsed: recoveryIdx,
	}, nil
}

// rotateSeedCiphertext re-encrypts a seed that was sealed under an old key
// version. Strictly best-effort: any failure is logged and swallowed so a
// storage hiccup can never turn a correct MFA code into a failed login.
func (e *Engine) rotateSeedCiphertext(ctx context.Context, secret *MFASecretRecord, seed []byte) bool {
	fresh, err := e.keyring.Encrypt(seed)
	if err != nil {
		e.metricInc(MetricSeedRotationFailed)
		e.logger.Warn("seed re-encryption failed",
			zap.String("secret_id", secret.ID),
			zap.Error(err))
		return false
	}

	if err := e.directory.UpdateMFASecret(ctx, secret.ID, fresh, time.Now()); err != nil {
		e.metricInc(MetricSeedRotationFailed)
		e.logger.Warn("seed rotation persist failed",
			zap.String("secret_id", secret.ID),
			zap.Error(err))
		return false
	}

	e.metricInc(MetricSeedRotated)
	return true
}

// NewMFAEnrollment mints everything a fresh TOTP enrollment needs: raw
// secret, provisioning URI, encrypted seed blob, and a recovery-code set
// in both plaintext (shown to the user once) and hashed (stored) forms.
// Persisting the record and confirming the first code are the enrollment
// collaborator's responsibility, not this core's.
func (e *Engine) NewMFAEnrollment(account string) (*MFAEnrollment, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	_, secretBase32, err := totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	ciphertext, err := e.keyring.Encrypt([]byte(secretBase32))
	if err != nil {
		return nil, err
	}

	codes, err := totp.GenerateRecoveryCodes(totp.RecoveryCodeCount)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hash, err := e.hasher.Hash(totp.NormalizeRecoveryCode(code))
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}

	return &MFAEnrollment{
		SecretBase32:       secretBase32,
		ProvisionURI:       e.config.TOTP.ProvisionURI(secretBase32, account),
		SeedCiphertext:     ciphertext,
		RecoveryCodes:      codes,
		RecoveryCodeHashes: hashes,
	}, nil
}
