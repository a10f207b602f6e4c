package securefield

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Codec provides AES-256-GCM encryption for sensitive booking and document
// attributes. It is applied explicitly at the data-access boundary so that the
// encode/decode obligation is visible at every call site; nothing intercepts
// reads or writes implicitly.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec creates a Codec from a 32-byte AES-256 key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("securefield: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("securefield: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("securefield: create GCM: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Encode encrypts plaintext and returns base64(nonce + ciphertext). The nonce
// is random, so Encode is not deterministic, but Decode always round-trips
// exactly. The empty string encodes to the empty string so nullable columns
// stay empty.
func (c *Codec) Encode(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("securefield: generate nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, so the result is nonce + ciphertext.
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode reverses Encode. A corrupt or foreign ciphertext is an error for this
// read; the raw stored value is never returned in its place.
func (c *Codec) Decode(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("securefield: base64 decode: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("securefield: ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("securefield: decrypt: %w", err)
	}
	return string(plaintext), nil
}
