package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// EnvelopeState is the state name of a stored encrypted location.
const EnvelopeState = "$encrypted$"

const envelopeParam = "__encrypted__"

// ErrNotEncrypted is returned by Load when the stored location is not an envelope.
var ErrNotEncrypted = errors.New("location is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new locations. Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt,
	// so keys can be rotated without losing sessions.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.LocationStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals locations with
// AES-GCM. The stored envelope keeps the transition id and writer in clear, so
// stale write detection keeps working, and hides the state and params.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(config.ActiveKey))
	}
	return func(next ports.LocationStore) ports.LocationStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, key string, loc *domain.Location) error {
	plain, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("failed to marshal location: %w", err)
	}
	sealed, err := seal(plain, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt location: %w", err)
	}

	envelope := &domain.Location{
		State:        EnvelopeState,
		Params:       map[string]any{envelopeParam: base64.StdEncoding.EncodeToString(sealed)},
		TransitionID: loc.TransitionID,
		Writer:       loc.Writer,
		UpdatedAt:    loc.UpdatedAt,
	}
	return m.next.Save(ctx, key, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, key string) (*domain.Location, error) {
	envelope, err := m.next.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	encoded, ok := envelope.Params[envelopeParam].(string)
	if envelope.State != EnvelopeState || !ok {
		return nil, ErrNotEncrypted
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plain, err := openWithRotation(sealed, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt location: %w", err)
	}

	var loc domain.Location
	if err := json.Unmarshal(plain, &loc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted location: %w", err)
	}
	return &loc, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal prepends a random nonce to the ciphertext.
func seal(plain, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func open(sealed, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func openWithRotation(sealed, active []byte, fallbacks [][]byte) ([]byte, error) {
	for _, key := range append([][]byte{active}, fallbacks...) {
		if plain, err := open(sealed, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}
