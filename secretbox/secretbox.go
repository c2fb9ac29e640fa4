package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// KeySize is the required key length in bytes (AES-256).
const KeySize = 32

// ErrDecryptionFailed is returned for any blob that cannot be decrypted:
// tampered ciphertext, wrong key, unknown key version, or malformed
// encoding. Callers must treat it as a hard failure; no partial plaintext
// is ever returned.
var ErrDecryptionFailed = errors.New("secretbox: decryption failed")

// ErrInvalidKey is returned when a keyring is constructed with a key of the
// wrong length or an empty version set.
var ErrInvalidKey = errors.New("secretbox: invalid key material")

const blobPrefix = "v"

// Keyring seals and opens secret blobs with AES-256-GCM under a set of
// versioned keys. Encrypt always uses the current version; Open accepts any
// version present in the ring and reports whether the blob is due for
// re-encryption under the current version.
//
// A Keyring is immutable after construction and safe for concurrent use.
type Keyring struct {
	current int
	keys    map[int][]byte
}

// NewKeyring builds a keyring from version-tagged keys. Every key must be
// exactly KeySize bytes and the current version must be present.
func NewKeyring(current int, keys map[int][]byte) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, ErrInvalidKey
	}
	if _, ok := keys[current]; !ok {
		return nil, fmt.Errorf("%w: current version %d not in key set", ErrInvalidKey, current)
	}

	copied := make(map[int][]byte, len(keys))
	for version, key := range keys {
		if version <= 0 {
			return nil, fmt.Errorf("%w: version %d must be positive", ErrInvalidKey, version)
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("%w: version %d key is %d bytes, want %d", ErrInvalidKey, version, len(key), KeySize)
		}
		copied[version] = append([]byte(nil), key...)
	}

	return &Keyring{current: current, keys: copied}, nil
}

// NewSingleKeyring is a convenience constructor for deployments that have
// never rotated their secret key.
func NewSingleKeyring(key []byte) (*Keyring, error) {
	return NewKeyring(1, map[int][]byte{1: key})
}

// CurrentVersion reports the version Encrypt seals with.
func (k *Keyring) CurrentVersion() int {
	if k == nil {
		return 0
	}
	return k.current
}

// Encrypt seals plaintext under the current key version. The blob format is
// "v<version>:" followed by base64url(nonce || ciphertext || tag); the
// nonce is freshly random per call, so encrypting the same plaintext twice
// yields different blobs.
func (k *Keyring) Encrypt(plaintext []byte) (string, error) {
	if k == nil {
		return "", ErrInvalidKey
	}

	gcm, err := k.aead(k.current)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return blobPrefix + strconv.Itoa(k.current) + ":" + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a blob produced by Encrypt. needsRotation is true when the
// blob was sealed under an older key version than the ring's current one;
// the plaintext is still returned so callers can re-encrypt opportunistically.
func (k *Keyring) Open(blob string) (plaintext []byte, needsRotation bool, err error) {
	if k == nil {
		return nil, false, ErrDecryptionFailed
	}

	version, sealed, err := splitBlob(blob)
	if err != nil {
		return nil, false, ErrDecryptionFailed
	}

	key, ok := k.keys[version]
	if !ok {
		return nil, false, ErrDecryptionFailed
	}

	gcm, err := newAEAD(key)
	if err != nil {
		return nil, false, ErrDecryptionFailed
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, false, ErrDecryptionFailed
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err = gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// GCM tag mismatch covers both tampering and a wrong key; the two
		// are indistinguishable and both map to the same hard failure.
		return nil, false, ErrDecryptionFailed
	}

	return plaintext, version != k.current, nil
}

func (k *Keyring) aead(version int) (cipher.AEAD, error) {
	key, ok := k.keys[version]
	if !ok {
		return nil, fmt.Errorf("%w: no key for version %d", ErrInvalidKey, version)
	}
	return newAEAD(key)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func splitBlob(blob string) (int, []byte, error) {
	if !strings.HasPrefix(blob, blobPrefix) {
		return 0, nil, errors.New("missing version prefix")
	}
	rest := blob[len(blobPrefix):]
	sep := strings.IndexByte(rest, ':')
	if sep <= 0 {
		return 0, nil, errors.New("missing version separator")
	}

	version, err := strconv.Atoi(rest[:sep])
	if err != nil || version <= 0 {
		return 0, nil, errors.New("invalid version")
	}

	sealed, err := base64.RawURLEncoding.DecodeString(rest[sep+1:])
	if err != nil {
		return 0, nil, err
	}
	return version, sealed, nil
}
