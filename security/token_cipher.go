package security

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// EnvelopePrefix marks a stored value as sealed. Values without it are read
// back unchanged.
const EnvelopePrefix = "crm.token.v1:"

type Option func(*AppKeyTokenCipher)

// AppKeyTokenCipher seals OAuth tokens at rest with AES-GCM under a single
// application key.
type AppKeyTokenCipher struct {
	key     []byte
	keyID   string
	version int
}

type envelope struct {
	KeyID      string `json:"kid"`
	Version    int    `json:"ver"`
	Algorithm  string `json:"alg"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func WithKeyID(id string) Option {
	return func(c *AppKeyTokenCipher) {
		trimmed := strings.TrimSpace(id)
		if trimmed != "" {
			c.keyID = trimmed
		}
	}
}

func WithVersion(version int) Option {
	return func(c *AppKeyTokenCipher) {
		if version > 0 {
			c.version = version
		}
	}
}

func NewAppKeyTokenCipher(keyMaterial []byte, opts ...Option) (*AppKeyTokenCipher, error) {
	key := bytes.TrimSpace(keyMaterial)
	if len(key) == 0 {
		return nil, fmt.Errorf("security: key material is required")
	}
	c := &AppKeyTokenCipher{
		key:     normalizeKey(key),
		keyID:   "app-key",
		version: 1,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c, nil
}

func NewAppKeyTokenCipherFromString(key string, opts ...Option) (*AppKeyTokenCipher, error) {
	return NewAppKeyTokenCipher([]byte(key), opts...)
}

// Seal encrypts a token. Empty tokens stay empty so "no refresh token" is
// still observable in storage.
func (c *AppKeyTokenCipher) Seal(_ context.Context, plaintext string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("security: token cipher is nil")
	}
	if plaintext == "" {
		return "", nil
	}
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("security: nonce generation failed: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	data, err := json.Marshal(envelope{
		KeyID:      c.keyID,
		Version:    c.version,
		Algorithm:  "aes-256-gcm",
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	})
	if err != nil {
		return "", fmt.Errorf("security: encode envelope: %w", err)
	}
	return EnvelopePrefix + base64.RawURLEncoding.EncodeToString(data), nil
}

func (c *AppKeyTokenCipher) Open(_ context.Context, stored string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("security: token cipher is nil")
	}
	if !strings.HasPrefix(stored, EnvelopePrefix) {
		return stored, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(stored, EnvelopePrefix))
	if err != nil {
		return "", fmt.Errorf("security: decode envelope: %w", err)
	}
	var parsed envelope
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("security: decode envelope: %w", err)
	}
	if parsed.KeyID != "" && parsed.KeyID != c.keyID {
		return "", fmt.Errorf("security: key id mismatch: got %q want %q", parsed.KeyID, c.keyID)
	}
	if parsed.Version > 0 && parsed.Version != c.version {
		return "", fmt.Errorf("security: key version mismatch: got %d want %d", parsed.Version, c.version)
	}

	nonce, err := base64.StdEncoding.DecodeString(parsed.Nonce)
	if err != nil {
		return "", fmt.Errorf("security: decode nonce: %w", err)
	}
	payload, err := base64.StdEncoding.DecodeString(parsed.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("security: decode ciphertext payload: %w", err)
	}
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, payload, nil)
	if err != nil {
		return "", fmt.Errorf("security: decrypt payload: %w", err)
	}
	return string(plaintext), nil
}

func (c *AppKeyTokenCipher) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

func (c *AppKeyTokenCipher) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: create gcm: %w", err)
	}
	return gcm, nil
}

func normalizeKey(value []byte) []byte {
	if len(value) == 16 || len(value) == 24 || len(value) == 32 {
		key := make([]byte, len(value))
		copy(key, value)
		return key
	}
	sum := sha256.Sum256(value)
	key := make([]byte, len(sum))
	copy(key, sum[:])
	return key
}
