// Package globalconfig persists the application-wide default model
// configuration that masks can copy from.
package globalconfig

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/masque/internal/apperr"
	"github.com/starford/masque/internal/kvstore"
	"github.com/starford/masque/internal/models"
)

// Storage key and schema version.
const (
	StoreKey = "app-config"
	Version  = 1
)

// Config is the persisted document.
type Config struct {
	ModelConfig models.ModelConfig `json:"modelConfig"`
}

// Store holds the global configuration.
type Store struct {
	mu   sync.RWMutex
	slot *kvstore.Slot[Config]
	cur  Config
}

// Open loads the stored configuration; seed is used when nothing is stored.
func Open(ctx context.Context, kv kvstore.Store, seed models.ModelConfig) (*Store, error) {
	slot := kvstore.NewSlot(kv, StoreKey, Version, func() Config {
		return Config{ModelConfig: seed}
	})
	cur, err := slot.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("globalconfig: load: %w", err)
	}
	return &Store{slot: slot, cur: cur}, nil
}

// ModelConfig returns a copy of the global model configuration.
func (s *Store) ModelConfig() models.ModelConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.ModelConfig
}

// Update applies fn to a copy of the model configuration and stores it if valid.
func (s *Store) Update(ctx context.Context, fn func(*models.ModelConfig)) (models.ModelConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cur
	fn(&next.ModelConfig)
	if err := next.ModelConfig.Validate(); err != nil {
		return s.cur.ModelConfig, fmt.Errorf("globalconfig: %v: %w", err, apperr.ErrInvalid)
	}
	if err := s.slot.Save(ctx, next); err != nil {
		return s.cur.ModelConfig, err
	}
	s.cur = next
	return next.ModelConfig, nil
}
