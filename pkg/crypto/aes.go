// Package crypto seals secrets stored in the database (squad Slack
// webhooks) with AES-256-GCM.
//
// Sealed values are base64(nonce || ciphertext || tag) behind the "enc:"
// prefix, so rows written before a key was configured still read back as
// plain text.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// SealedPrefix marks a value produced by Cipher.Seal.
const SealedPrefix = "enc:"

// DeriveKey turns ENCRYPTION_KEY into a 32-byte AES key. A 64 char hex
// string is used as is; anything else is hashed with SHA-256.
func DeriveKey(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("encryption key is empty")
	}
	if len(secret) == 64 {
		if key, err := hex.DecodeString(secret); err == nil {
			return key, nil
		}
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:], nil
}

// Encrypt seals plaintext and returns the base64 payload without prefix.
func Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce generation: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func Decrypt(encoded string, key []byte) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed, wrong key or corrupted data: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}

// Cipher applies the prefix convention. A nil *Cipher stores values in
// clear, which is what happens when ENCRYPTION_KEY is unset.
type Cipher struct {
	key []byte
}

// NewCipher returns nil, nil for an empty secret.
func NewCipher(secret string) (*Cipher, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, nil
	}
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	return &Cipher{key: key}, nil
}

// Seal encrypts a non-empty value. Empty stays empty so "no webhook" is
// still detectable in SQL.
func (c *Cipher) Seal(plaintext string) (string, error) {
	if c == nil || plaintext == "" {
		return plaintext, nil
	}
	enc, err := Encrypt(plaintext, c.key)
	if err != nil {
		return "", err
	}
	return SealedPrefix + enc, nil
}

// Open decrypts a sealed value and passes anything else through.
func (c *Cipher) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, SealedPrefix) {
		return stored, nil
	}
	if c == nil {
		return "", fmt.Errorf("value is encrypted but no encryption key is configured")
	}
	return Decrypt(strings.TrimPrefix(stored, SealedPrefix), c.key)
}
