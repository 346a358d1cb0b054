// Package crypt provides AES-256-GCM authenticated encryption for small
// values kept in the key/value store, such as saved card metadata.
//
// Ciphertext is base64url(nonce || ciphertext || tag), so one string can be
// stored directly.
//
//	c, _ := crypt.FromConfig()
//	enc, _ := c.EncryptJSON(cards)
//	err := c.DecryptJSON(enc, &cards)
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shashiranjanraj/kirana/config"
)

// ErrDecrypt is returned when decryption or authentication fails.
var ErrDecrypt = errors.New("crypt: decryption failed")

// Cipher encrypts with a key derived from a secret.
type Cipher struct {
	aead cipher.AEAD
}

// New derives a 32-byte key from secret via SHA-256.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("crypt: empty secret")
	}
	k := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(k[:])
	if err != nil {
		return nil, fmt.Errorf("crypt: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypt: new GCM: %w", err)
	}
	return &Cipher{aead: gcm}, nil
}

// FromConfig keys the cipher from APP_KEY, falling back to JWT_SECRET.
func FromConfig() (*Cipher, error) {
	return New(config.Get("APP_KEY", config.JWTSecret()))
}

// Encrypt seals data and returns a base64url string.
func (c *Cipher) Encrypt(data []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypt: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a string produced by Encrypt.
func (c *Cipher) Decrypt(encoded string) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrDecrypt
	}
	n := c.aead.NonceSize()
	if len(data) < n {
		return nil, ErrDecrypt
	}
	plain, err := c.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// EncryptJSON marshals v to JSON then encrypts it.
func (c *Cipher) EncryptJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("crypt: marshal: %w", err)
	}
	return c.Encrypt(raw)
}

// DecryptJSON decrypts encoded and unmarshals the result into dest.
func (c *Cipher) DecryptJSON(encoded string, dest any) error {
	raw, err := c.Decrypt(encoded)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("crypt: unmarshal: %w", err)
	}
	return nil
}
