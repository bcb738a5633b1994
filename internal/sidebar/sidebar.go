// Package sidebar persists the active sidebar tab.
package sidebar

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/starford/masque/internal/apperr"
	"github.com/starford/masque/internal/kvstore"
	"github.com/starford/masque/internal/models"
)

// Storage key and schema version of the preference document.
const (
	StoreKey = "sidebar"
	Version  = 1
)

// Store holds the sidebar preference.
type Store struct {
	mu   sync.RWMutex
	slot *kvstore.Slot[models.SidebarConfig]
	cur  models.SidebarConfig
}

// Open loads the stored preference or the default.
func Open(ctx context.Context, kv kvstore.Store) (*Store, error) {
	slot := kvstore.NewSlot(kv, StoreKey, Version, models.DefaultSidebarConfig).
		WithMigration(migrate)
	cur, err := slot.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("sidebar: load: %w", err)
	}
	if !cur.ActiveTab.Valid() {
		cur = models.DefaultSidebarConfig()
	}
	return &Store{slot: slot, cur: cur}, nil
}

// Get returns the current preference.
func (s *Store) Get() models.SidebarConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// SetActiveTab stores tab as the active tab.
func (s *Store) SetActiveTab(ctx context.Context, tab models.Tab) error {
	if !tab.Valid() {
		return fmt.Errorf("sidebar: tab %q: %w", tab, apperr.ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := models.SidebarConfig{ActiveTab: tab}
	if err := s.slot.Save(ctx, next); err != nil {
		return err
	}
	s.cur = next
	return nil
}

// migrate upgrades version 0 documents, which stored the tab under "tab".
func migrate(from int, raw []byte) (models.SidebarConfig, error) {
	if from != 0 {
		return models.SidebarConfig{}, fmt.Errorf("no migration from version %d", from)
	}
	var legacy struct {
		Tab models.Tab `json:"tab"`
	}
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return models.SidebarConfig{}, err
	}
	if !legacy.Tab.Valid() {
		return models.DefaultSidebarConfig(), nil
	}
	return models.SidebarConfig{ActiveTab: legacy.Tab}, nil
}
