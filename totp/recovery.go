package totp

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// RecoveryCodeCount is the size of a freshly issued recovery set.
	RecoveryCodeCount = 10
	// RecoveryCodeLength is the length of each code in alphabet characters.
	RecoveryCodeLength = 12

	recoveryAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// HashVerify checks one provided code against one stored hash. It is
// supplied by the caller so recovery codes share the deployment's
// memory-hard password hash. A false second return marks the stored hash
// itself as unreadable.
type HashVerify func(encodedHash, code string) (match bool, usable bool)

// FindRecoveryCode scans the stored recovery hashes for one matching the
// provided code and returns its index. Every entry is visited even after a
// match so the call's cost depends on the set size, not the match position;
// the per-entry work is dominated by the memory-hard verify itself.
// Corrupt or malformed entries are skipped: one bad record must not break
// recovery for a user whose remaining codes are valid.
func FindRecoveryCode(hashedCodes []string, provided string, verify HashVerify) (int, bool) {
	if verify == nil {
		return 0, false
	}

	normalized := normalizeRecoveryCode(provided)
	if normalized == "" {
		return 0, false
	}

	matched := -1
	for i, encoded := range hashedCodes {
		ok, usable := verify(encoded, normalized)
		if !usable {
			continue
		}
		if ok && matched < 0 {
			matched = i
		}
	}

	if matched < 0 {
		return 0, false
	}
	return matched, true
}

// GenerateRecoveryCodes returns count fresh one-time codes in display form
// ("XXXX-XXXX-XXXX"). The caller hashes them before storage; the plaintext
// is shown to the user exactly once.
func GenerateRecoveryCodes(count int) ([]string, error) {
	if count <= 0 {
		count = RecoveryCodeCount
	}

	codes := make([]string, 0, count)
	max := big.NewInt(int64(len(recoveryAlphabet)))
	for i := 0; i < count; i++ {
		var b strings.Builder
		b.Grow(RecoveryCodeLength + 2)
		for j := 0; j < RecoveryCodeLength; j++ {
			if j > 0 && j%4 == 0 {
				b.WriteByte('-')
			}
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return nil, err
			}
			b.WriteByte(recoveryAlphabet[n.Int64()])
		}
		codes = append(codes, b.String())
	}

	return codes, nil
}

// normalizeRecoveryCode strips separators and whitespace and upcases, so
// user-typed variants of the displayed code all hash identically.
func normalizeRecoveryCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == ' ' || c == '-' || c == '\t':
			continue
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// NormalizeRecoveryCode exposes the canonical form used for hashing so the
// enrollment flow and the login flow agree on it.
func NormalizeRecoveryCode(code string) string {
	return normalizeRecoveryCode(code)
}
