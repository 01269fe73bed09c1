package channel

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// credentialCipher wraps AES-256-GCM keyed by SHA-256(encryptionKey), so
// an arbitrary-length configured ENCRYPTION_KEY string always yields a
// valid key size. No ecosystem package in the retrieved corpus offers
// symmetric encryption-at-rest beyond the standard library's own
// crypto/aes+crypto/cipher, which is the recommended primitive for this;
// see DESIGN.md.
type credentialCipher struct {
	gcm cipher.AEAD
}

func newCredentialCipher(encryptionKey string) (*credentialCipher, error) {
	if encryptionKey == "" {
		return nil, errors.New("encryption key must not be empty")
	}
	key := sha256.Sum256([]byte(encryptionKey))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("build aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("build gcm: %w", err)
	}
	return &credentialCipher{gcm: gcm}, nil
}

func (c *credentialCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *credentialCipher) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}
	n := c.gcm.NonceSize()
	if len(sealed) < n {
		return "", errors.New("encrypted credential is too short")
	}
	nonce, ciphertext := sealed[:n], sealed[n:]
	plaintext, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt credential: %w", err)
	}
	return string(plaintext), nil
}
