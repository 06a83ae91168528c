package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gtank/cryptopasta"
)

const keyDerivationTag = "gofinances storage key"

// ErrDecrypt is returned when a stored value cannot be authenticated with
// the configured key.
var ErrDecrypt = errors.New("decrypt stored value")

// Encrypted wraps a Store and seals values with AES-256-GCM.
type Encrypted struct {
	Store
	key *[32]byte
}

func NewEncrypted(inner Store, key *[32]byte) *Encrypted {
	return &Encrypted{Store: inner, key: key}
}

// KeyFromSecret accepts a base64 encoded 32 byte key; any other non-empty
// secret is treated as a passphrase and hashed into a key.
func KeyFromSecret(secret string) (*[32]byte, error) {
	if secret == "" {
		return nil, errors.New("empty encryption secret")
	}
	key := &[32]byte{}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawURLEncoding} {
		if raw, err := enc.DecodeString(secret); err == nil && len(raw) == len(key) {
			copy(key[:], raw)
			return key, nil
		}
	}
	copy(key[:], cryptopasta.Hash(keyDerivationTag, []byte(secret)))
	return key, nil
}

func (e *Encrypted) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := e.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := cryptopasta.Decrypt(sealed, e.key)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrDecrypt, key, err)
	}
	return plain, nil
}

func (e *Encrypted) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := cryptopasta.Encrypt(value, e.key)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", key, err)
	}
	return e.Store.Set(ctx, key, sealed)
}
