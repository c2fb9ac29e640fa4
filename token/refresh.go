package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

const refreshSecretSize = 32

// ErrTokenMalformed is returned for refresh tokens that do not decode to a
// family ID plus secret. Callers surface it as a generic credential
// failure.
var ErrTokenMalformed = errors.New("token: malformed refresh token")

// newRefreshSecret draws the high-entropy secret half of a refresh token.
func newRefreshSecret() ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// hashRefreshSecret is the only form of the secret that is ever stored.
func hashRefreshSecret(secret [refreshSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// encodeRefreshToken packs the family UUID and secret into the opaque
// wire form: base64url(familyID || secret), 48 raw bytes, no padding.
func encodeRefreshToken(familyID string, secret [refreshSecretSize]byte) (string, error) {
	fid, err := uuid.Parse(familyID)
	if err != nil {
		return "", err
	}

	raw := make([]byte, 0, len(fid)+refreshSecretSize)
	raw = append(raw, fid[:]...)
	raw = append(raw, secret[:]...)
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeRefreshToken reverses encodeRefreshToken. Any structural problem
// is ErrTokenMalformed; the caller must not learn more than that.
func decodeRefreshToken(presented string) (string, [refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(presented)
	if err != nil {
		return "", secret, ErrTokenMalformed
	}
	if len(raw) != 16+refreshSecretSize {
		return "", secret, ErrTokenMalformed
	}

	fid, err := uuid.FromBytes(raw[:16])
	if err != nil {
		return "", secret, ErrTokenMalformed
	}
	copy(secret[:], raw[16:])

	return fid.String(), secret, nil
}
