package authcore

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called on a
	// nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidCredentials is the single rejection every failed login
	// collapses into: unknown user, wrong password, and wrong MFA code are
	// deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMFARequired is returned when the password checked out but the
	// account has an active MFA secret and no code was supplied. It
	// carries no further detail.
	ErrMFARequired = errors.New("mfa required")
	// ErrReuseDetected is returned when a refresh token that was already
	// rotated away is presented again. The owning family has been revoked
	// by the time the caller sees this; present it to end users as an
	// invalid-credentials rejection.
	ErrReuseDetected = errors.New("refresh token reuse detected")
	// ErrRefreshInvalid is returned for refresh tokens that are malformed,
	// expired, or belong to a revoked family.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrStoreUnavailable is returned when an external dependency (user
	// directory or family store) cannot be reached. It is the only error
	// class an HTTP adapter may surface as a 5xx.
	ErrStoreUnavailable = errors.New("backing store unavailable")
)

const (
	// MessageInvalidCredentials is the caller-visible text for every
	// coalesced rejection.
	MessageInvalidCredentials = "Invalid credentials"
	// MessageMFARequired is the caller-visible text for the MFA challenge
	// branch.
	MessageMFARequired = "MFA challenge required"
)
