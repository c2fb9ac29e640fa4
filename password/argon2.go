package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	algorithmID = "argon2id"
)

// ErrInvalidParams is returned by NewHasher for parameters below the
// accepted floor.
var ErrInvalidParams = errors.New("password: hash parameters below minimum")

// Params are the Argon2id cost parameters, fixed per deployment by
// external configuration.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follows the interactive-login profile: 64 MiB, 3 passes.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher wraps Argon2id with fixed parameters. It hashes login passwords
// and MFA recovery codes; both use the same PHC-encoded storage form
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash).
//
// A Hasher is immutable and safe for concurrent use.
type Hasher struct {
	params Params
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
	keyLength   uint32
}

// NewHasher validates the parameters and returns a ready Hasher.
func NewHasher(p Params) (*Hasher, error) {
	switch {
	case p.Memory < minMemoryKB:
		return nil, fmt.Errorf("%w: memory %d KiB", ErrInvalidParams, p.Memory)
	case p.Time < minTimeCost:
		return nil, fmt.Errorf("%w: time cost %d", ErrInvalidParams, p.Time)
	case p.Parallelism < minParallelism:
		return nil, fmt.Errorf("%w: parallelism %d", ErrInvalidParams, p.Parallelism)
	case p.SaltLength < minSaltLength:
		return nil, fmt.Errorf("%w: salt length %d", ErrInvalidParams, p.SaltLength)
	case p.KeyLength < minKeyLength:
		return nil, fmt.Errorf("%w: key length %d", ErrInvalidParams, p.KeyLength)
	}
	return &Hasher{params: p}, nil
}

// Hash derives a PHC-encoded Argon2id hash with a fresh random salt.
// Secret bytes are used exactly as provided; no normalization.
func (h *Hasher) Hash(secret string) (string, error) {
	if h == nil {
		return "", ErrInvalidParams
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(secret),
		salt,
		h.params.Time,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify checks a secret against a stored PHC hash. A malformed or
// unsupported stored hash is a verification failure, never an error: the
// login path must treat a corrupt credential row exactly like a wrong
// password.
func (h *Hasher) Verify(encodedHash, secret string) bool {
	ok, _ := h.VerifyUsable(encodedHash, secret)
	return ok
}

// VerifyUsable is Verify plus a flag distinguishing "wrong secret" from
// "stored hash unreadable". Recovery-code matching uses the flag to skip
// corrupt entries without counting them as mismatches.
func (h *Hasher) VerifyUsable(encodedHash, secret string) (match bool, usable bool) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, false
	}

	computed := argon2.IDKey(
		[]byte(secret),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		parsed.keyLength,
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, true
}

// NeedsUpgrade reports whether a stored hash was produced with weaker
// parameters than the hasher is configured with.
func (h *Hasher) NeedsUpgrade(encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	if h.params.Memory > parsed.memory {
		return true, nil
	}
	if h.params.Time > parsed.time {
		return true, nil
	}
	if h.params.Parallelism > parsed.parallelism {
		return true, nil
	}
	if h.params.KeyLength != parsed.keyLength {
		return true, nil
	}
	return false, nil
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	versionPart, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, errors.New("missing argon2 version")
	}
	version, err := strconv.Atoi(versionPart)
	if err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	params, err := parseCostParams(parts[3])
	if err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, errors.New("invalid salt encoding")
	}
	hash, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, errors.New("invalid hash encoding")
	}
	if len(salt) == 0 || len(hash) == 0 {
		return nil, errors.New("empty salt or hash")
	}

	params.salt = salt
	params.hash = hash
	params.keyLength = uint32(len(hash))
	return params, nil
}

func parseCostParams(s string) (*parsedPHC, error) {
	out := &parsedPHC{}
	for _, field := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return nil, errors.New("invalid cost parameter")
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, errors.New("invalid cost value")
		}
		switch key {
		case "m":
			out.memory = uint32(n)
		case "t":
			out.time = uint32(n)
		case "p":
			if n == 0 || n > 255 {
				return nil, errors.New("invalid parallelism")
			}
			out.parallelism = uint8(n)
		default:
			return nil, errors.New("unknown cost parameter")
		}
	}
	if out.memory == 0 || out.time == 0 || out.parallelism == 0 {
		return nil, errors.New("missing cost parameter")
	}
	return out, nil
}
