package store

import (
	"context"
	"fmt"
)

// Sealer encrypts values at rest. *crypto.Vault satisfies it.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
	Close() error
}

// SealedStore encrypts every value before handing it to the inner store.
// Keys are stored in the clear.
type SealedStore struct {
	inner  Store
	sealer Sealer
}

// NewSealedStore wraps inner so that all values pass through sealer.
func NewSealedStore(inner Store, sealer Sealer) *SealedStore {
	return &SealedStore{inner: inner, sealer: sealer}
}

// Get opens the sealed value under key.
func (s *SealedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	sealed, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	plain, err := s.sealer.Open(sealed)
	if err != nil {
		return nil, false, fmt.Errorf("open %q: %w", key, err)
	}
	return plain, true, nil
}

// Set seals value and stores it under key.
func (s *SealedStore) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("seal %q: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

// Delete removes key from the inner store.
func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

// Keys lists the inner store's keys.
func (s *SealedStore) Keys(ctx context.Context) ([]string, error) {
	return s.inner.Keys(ctx)
}

// Close closes the inner store and wipes the sealer.
func (s *SealedStore) Close() error {
	err := s.inner.Close()
	if cerr := s.sealer.Close(); err == nil {
		err = cerr
	}
	return err
}
