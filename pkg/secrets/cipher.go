package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	dErrors "veil/pkg/domain-errors"
)

// AESCipher encrypts small secrets (email addresses) at rest with AES-GCM.
// Lookups never decrypt; equality search goes through the derived email key
// instead, so the ciphertext is only ever read on privileged surfaces.
type AESCipher struct {
	aead cipher.AEAD
}

// NewAESCipher derives a 256-bit key from the passphrase. The passphrase is
// hashed so operators can supply keys of any length.
func NewAESCipher(passphrase string) (*AESCipher, error) {
	if passphrase == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "cipher passphrase cannot be empty")
	}
	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build cipher")
	}
	return &AESCipher{aead: aead}, nil
}

// Encrypt seals the plaintext and returns base64(nonce || ciphertext).
func (c *AESCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate nonce")
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *AESCipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "ciphertext is not valid base64")
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "ciphertext is truncated")
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "ciphertext failed authentication")
	}
	return string(plaintext), nil
}
