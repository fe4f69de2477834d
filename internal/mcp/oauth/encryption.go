package oauth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// PayloadCipher seals records written to shared storage (Redis) with AES-256-GCM.
// Authorization code records carry Google's upstream code, so anyone reading
// the store could otherwise redeem it.
//
// A cipher built without a key passes data through unchanged.
type PayloadCipher struct {
	aead cipher.AEAD
}

// NewPayloadCipher creates a cipher for a 32-byte key. An empty key disables
// encryption.
func NewPayloadCipher(key []byte) (*PayloadCipher, error) {
	if len(key) == 0 {
		return &PayloadCipher{}, nil
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes (256 bits), got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &PayloadCipher{aead: aead}, nil
}

// Enabled reports whether payloads are encrypted
func (c *PayloadCipher) Enabled() bool {
	return c != nil && c.aead != nil
}

// Seal returns nonce || ciphertext || tag. Disabled ciphers return plaintext.
func (c *PayloadCipher) Seal(plaintext []byte) ([]byte, error) {
	if !c.Enabled() {
		return plaintext, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal and fails on tampered input
func (c *PayloadCipher) Open(sealed []byte) ([]byte, error) {
	if !c.Enabled() {
		return sealed, nil
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptionKeyFromBase64 decodes a standard base64 key, as stored in
// OAUTH_ENCRYPTION_KEY. An empty string yields a nil key.
func EncryptionKeyFromBase64(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d bytes", len(key))
	}
	return key, nil
}
