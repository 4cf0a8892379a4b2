// Package encryption provides best-effort symmetric encryption of structured
// payloads. Envelopes are versioned by algorithm and key id so stored cipher
// text survives a key rotation. Cryptographic operations on protected data
// are themselves auditable events, so every call emits one audit record.
package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	dErrors "github.com/acganger/ganger-platform-sub002/pkg/domain-errors"
)

// Algorithm identifies the only cipher this codec produces.
const Algorithm = "aes-256-gcm"

const derivationContext = "ganger-audit-field-encryption"

// Envelope is the stored form of an encrypted payload.
type Envelope struct {
	CipherText string    `json:"cipherText"`
	Algorithm  string    `json:"algorithm"`
	KeyVersion string    `json:"keyVersion"`
	Timestamp  time.Time `json:"timestamp"`
}

// Config carries the key material. Key is base64-encoded and should hold at
// least 32 bytes of entropy.
type Config struct {
	Key        string
	KeyVersion string
}

// Recorder receives one audit record per cryptographic operation.
type Recorder interface {
	Log(ctx context.Context, record audit.Record) error
}

// Codec encrypts and decrypts structured payloads with AES-256-GCM under an
// HKDF-derived key.
type Codec struct {
	aead       cipher.AEAD
	keyVersion string
	degraded   bool
	recorder   Recorder
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Codec)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) { c.logger = logger }
}

// WithRecorder makes the codec audit every encrypt and decrypt call.
func WithRecorder(recorder Recorder) Option {
	return func(c *Codec) { c.recorder = recorder }
}

func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// New constructs a Codec. When no key is configured the codec generates a
// process-lifetime random key and surfaces a warning: data encrypted in this
// degraded mode cannot be decrypted after a restart.
func New(cfg Config, opts ...Option) (*Codec, error) {
	c := &Codec{
		keyVersion: cfg.KeyVersion,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.keyVersion == "" {
		c.keyVersion = "v1"
	}

	var master []byte
	if cfg.Key == "" {
		master = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, master); err != nil {
			return nil, fmt.Errorf("generate ephemeral key: %w", err)
		}
		c.degraded = true
		c.keyVersion = "ephemeral"
		if c.logger != nil {
			c.logger.Warn("no encryption key configured, using process-lifetime random key; encrypted data will not survive restart")
		}
	} else {
		var err error
		master, err = base64.StdEncoding.DecodeString(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("decode encryption key: %w", err)
		}
		if len(master) < 16 {
			return nil, fmt.Errorf("encryption key must hold at least 16 bytes, got %d", len(master))
		}
	}

	derived, err := deriveKey(master, []byte(derivationContext), 32)
	if err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM cipher: %w", err)
	}
	c.aead = aead
	return c, nil
}

func deriveKey(secret, context []byte, keyLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, nil, context)
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Degraded reports whether the codec runs on a generated ephemeral key.
func (c *Codec) Degraded() bool {
	return c.degraded
}

// Encrypt seals the JSON encoding of payload. A fresh random nonce is
// prepended to the cipher text, so identical payloads never produce
// identical envelopes.
func (c *Codec) Encrypt(ctx context.Context, payload any) (Envelope, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, dErrors.Wrap(err, dErrors.CodeValidation, "encode payload")
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Envelope{}, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)

	env := Envelope{
		CipherText: base64.StdEncoding.EncodeToString(sealed),
		Algorithm:  Algorithm,
		KeyVersion: c.keyVersion,
		Timestamp:  c.now(),
	}
	c.record(ctx, audit.ActionEncryptData, "")
	return env, nil
}

// Decrypt opens the envelope into out, which must be a pointer. A malformed
// envelope or a key mismatch fails with a decryption error, never with
// silently wrong plaintext; the failure itself is audited.
func (c *Codec) Decrypt(ctx context.Context, env Envelope, out any) error {
	if err := c.open(env, out); err != nil {
		c.record(ctx, audit.ActionDecryptDataFailed, err.Error())
		return err
	}
	c.record(ctx, audit.ActionDecryptData, "")
	return nil
}

func (c *Codec) open(env Envelope, out any) error {
	if env.Algorithm != Algorithm {
		return dErrors.Newf(dErrors.CodeDecryptionFailed, "unsupported algorithm %q", env.Algorithm)
	}
	data, err := base64.StdEncoding.DecodeString(env.CipherText)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeDecryptionFailed, "decode cipher text")
	}
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize+c.aead.Overhead() {
		return dErrors.New(dErrors.CodeDecryptionFailed, "cipher text too short")
	}
	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeDecryptionFailed, "open envelope")
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeDecryptionFailed, "decode payload")
	}
	return nil
}

func (c *Codec) record(ctx context.Context, action, errMsg string) {
	if c.recorder == nil {
		return
	}
	err := c.recorder.Log(ctx, audit.Record{
		Action:       action,
		ResourceType: "encrypted_payloads",
		ErrorMessage: errMsg,
		Details: map[string]any{
			"algorithm":   Algorithm,
			"key_version": c.keyVersion,
		},
	})
	if err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "failed to audit cryptographic operation", "action", action, "error", err)
	}
}

// GenerateKey returns a base64-encoded 256-bit key suitable for Config.Key.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generate random key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
