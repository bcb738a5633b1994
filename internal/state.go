package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/starford/masque/internal/globalconfig"
	"github.com/starford/masque/internal/kvstore"
	"github.com/starford/masque/internal/maskstore"
	"github.com/starford/masque/internal/sidebar"
)

// StateKeys are the documents the reset command may drop.
var StateKeys = []string{sidebar.StoreKey, globalconfig.StoreKey, maskstore.StoreKey}

// ResetState deletes the named stored documents, or all of them when keys is
// empty, so the next start loads their defaults. It returns the keys that
// were present and deleted.
func ResetState(ctx context.Context, keys []string, opts ...Option) ([]string, error) {
	for _, k := range keys {
		if !slices.Contains(StateKeys, k) {
			return nil, fmt.Errorf("unknown state key %q (want one of %v)", k, StateKeys)
		}
	}
	if len(keys) == 0 {
		keys = StateKeys
	}

	kv, err := openStorage(opts...)
	if err != nil {
		return nil, err
	}
	defer kv.Close()

	stored, err := kv.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	var deleted []string
	for _, k := range keys {
		if !slices.Contains(stored, k) {
			continue
		}
		if err := kv.Delete(ctx, k); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", k, err)
		}
		deleted = append(deleted, k)
	}
	return deleted, nil
}

// openStorage opens the configured kvstore without loading any document.
func openStorage(opts ...Option) (kvstore.Store, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config.Storage
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	kv, err := kvstore.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return kv, nil
}

// readyHandler reports 503 while the storage backend cannot be read.
func readyHandler(kv kvstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := kv.Keys(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
