// Package encryption is the payload gateway: consent content is stored only as
// ciphertext produced here. A single process-wide key is injected at startup;
// stores and services treat the output as opaque.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	dErrors "pacto/pkg/domain-errors"
)

// Codec encrypts and decrypts consent payloads. Implementations must satisfy
// Decrypt(Encrypt(x)) == x under a fixed key.
type Codec interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// AESCodec is an AES-256-GCM Codec. Ciphertext is base64(nonce || sealed).
// GCM makes tampering and wrong-key decryption a detectable error instead of
// silent garbage.
type AESCodec struct {
	aead cipher.AEAD
}

// NewAESCodec builds a codec from a 32-byte key.
func NewAESCodec(key []byte) (*AESCodec, error) {
	if len(key) != 32 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payload key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &AESCodec{aead: aead}, nil
}

// KeyFromBase64 decodes a base64-encoded key from configuration.
func KeyFromBase64(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payload key must be base64")
	}
	return key, nil
}

func (c *AESCodec) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AESCodec) Decrypt(ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ciphertext is not base64")
	}
	if len(raw) < c.aead.NonceSize() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ciphertext too short")
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decrypt payload")
	}
	if plaintext == nil {
		// Open returns nil for an empty payload; keep round trips exact.
		plaintext = []byte{}
	}
	return plaintext, nil
}
