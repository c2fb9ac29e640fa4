package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// MinDigits and MaxDigits bound the RFC 4226 code width.
	MinDigits = 6
	MaxDigits = 10

	secretBytes = 20
)

// ErrInvalidDigits is returned by Generate for a digit count outside
// [MinDigits, MaxDigits].
var ErrInvalidDigits = errors.New("totp: digits must be between 6 and 10")

// Params holds the verification parameters shared by a deployment. The
// zero value is not usable; call WithDefaults or fill every field.
type Params struct {
	Issuer string
	Digits int
	Period int
	Skew   int
}

// WithDefaults fills unset fields with the RFC 6238 conventions: 6 digits,
// 30-second period, one step of clock-skew tolerance each side.
func (p Params) WithDefaults() Params {
	if p.Digits == 0 {
		p.Digits = MinDigits
	}
	if p.Period == 0 {
		p.Period = 30
	}
	if p.Skew == 0 {
		p.Skew = 1
	}
	return p
}

// DecodeBase32 decodes an RFC 4648 base32 secret. Input is normalized
// first: whitespace is stripped, letters are upcased, and trailing '='
// padding is dropped. Any byte outside A-Z2-7 yields nil rather than an
// error; callers probe secrets speculatively and nil simply means "not a
// usable secret".
func DecodeBase32(secret string) []byte {
	cleaned := make([]byte, 0, len(secret))
	for i := 0; i < len(secret); i++ {
		c := secret[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '=':
			continue
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		cleaned = append(cleaned, c)
	}
	if len(cleaned) == 0 {
		return nil
	}

	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(string(cleaned))
	if err != nil {
		return nil
	}
	return raw
}

// EncodeBase32 encodes raw secret bytes in the canonical unpadded form
// produced by GenerateSecret.
func EncodeBase32(raw []byte) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)
}

// Generate computes the RFC 4226 HOTP code for a counter value: HMAC-SHA1
// over the 8-byte big-endian counter, dynamic truncation, reduction mod
// 10^digits, zero-padded to the full width.
func Generate(secret []byte, counter uint64, digits int) (string, error) {
	if digits < MinDigits || digits > MaxDigits {
		return "", ErrInvalidDigits
	}
	if len(secret) == 0 {
		return "", errors.New("totp: empty secret")
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (uint64(sum[offset])&0x7f)<<24 |
		(uint64(sum[offset+1])&0xff)<<16 |
		(uint64(sum[offset+2])&0xff)<<8 |
		(uint64(sum[offset+3]) & 0xff)

	mod := uint64(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

// Verify checks a time-based code against a base32 secret at the given
// instant, tolerating Skew counter steps each side of now. It returns
// false for every structural problem (bad secret, bad token shape) as
// well as for a wrong code; the two cases are deliberately
// indistinguishable to the caller, and candidate comparison is
// constant-time.
func (p Params) Verify(secret, token string, now time.Time) bool {
	p = p.WithDefaults()

	trimmed := strings.TrimSpace(token)
	if len(trimmed) != p.Digits || !isDigits(trimmed) {
		return false
	}

	raw := DecodeBase32(secret)
	if raw == nil {
		return false
	}

	base := now.Unix() / int64(p.Period)
	for step := -p.Skew; step <= p.Skew; step++ {
		counter := base + int64(step)
		if counter < 0 {
			continue
		}
		candidate, err := Generate(raw, uint64(counter), p.Digits)
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(trimmed)) == 1 {
			return true
		}
	}

	return false
}

// GenerateSecret returns fresh random secret material and its canonical
// base32 encoding for the enrollment flow.
func GenerateSecret() ([]byte, string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	return raw, EncodeBase32(raw), nil
}

// ProvisionURI renders the otpauth:// URI that authenticator apps enroll
// from.
func (p Params) ProvisionURI(secretBase32, account string) string {
	p = p.WithDefaults()
	label := url.PathEscape(p.Issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", p.Issuer)
	v.Set("period", strconv.Itoa(p.Period))
	v.Set("digits", strconv.Itoa(p.Digits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
