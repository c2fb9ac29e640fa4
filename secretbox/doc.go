// Package secretbox protects MFA seeds and third-party credentials at rest
// with AES-256-GCM under a versioned keyring.
//
// Blobs are self-describing: "v<version>:" + base64url(nonce || ciphertext
// || tag). Decryption needs only the blob and the ring; there is no
// side-channel state. Any tag mismatch or malformed blob is a hard
// [ErrDecryptionFailed], never a partially decrypted result.
package secretbox
