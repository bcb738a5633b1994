package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/masque/internal/apperr"
)

// Migration upgrades a document written with schema version from.
type Migration[T any] func(from int, raw []byte) (T, error)

// Slot binds one key to a typed, versioned document.
//
// Load yields the default when nothing is stored. A document written with a
// different version is passed to the migration, if any; when there is no
// migration or it fails, the slot is reset to the default.
type Slot[T any] struct {
	store   Store
	key     string
	version int
	def     func() T
	migrate Migration[T]
	logger  *slog.Logger
}

// NewSlot returns a slot for key at the given schema version.
func NewSlot[T any](store Store, key string, version int, def func() T) *Slot[T] {
	return &Slot[T]{
		store:   store,
		key:     key,
		version: version,
		def:     def,
		logger:  slog.Default(),
	}
}

// WithMigration sets the upgrade path for older documents.
func (s *Slot[T]) WithMigration(m Migration[T]) *Slot[T] {
	s.migrate = m
	return s
}

// WithLogger sets the logger used to report resets.
func (s *Slot[T]) WithLogger(l *slog.Logger) *Slot[T] {
	s.logger = l
	return s
}

// Key returns the store key.
func (s *Slot[T]) Key() string { return s.key }

// Version returns the schema version written by Save.
func (s *Slot[T]) Version() int { return s.version }

// Load reads the current value or the default.
func (s *Slot[T]) Load(ctx context.Context) (T, error) {
	rec, err := s.store.Get(ctx, s.key)
	if errors.Is(err, apperr.ErrNotFound) {
		return s.def(), nil
	}
	if err != nil {
		var zero T
		return zero, err
	}

	if rec.Version == s.version {
		v := s.def()
		if err := json.Unmarshal(rec.Value, &v); err != nil {
			s.logger.Warn("kvstore: corrupt document, resetting",
				slog.String("key", s.key), slog.String("error", err.Error()))
			return s.reset(ctx)
		}
		return v, nil
	}

	if s.migrate == nil {
		s.logger.Warn("kvstore: version mismatch, resetting",
			slog.String("key", s.key), slog.Int("stored", rec.Version), slog.Int("want", s.version))
		return s.reset(ctx)
	}
	v, err := s.migrate(rec.Version, rec.Value)
	if err != nil {
		s.logger.Warn("kvstore: migration failed, resetting",
			slog.String("key", s.key), slog.Int("stored", rec.Version), slog.String("error", err.Error()))
		return s.reset(ctx)
	}
	if err := s.Save(ctx, v); err != nil {
		return v, err
	}
	s.logger.Info("kvstore: migrated",
		slog.String("key", s.key), slog.Int("from", rec.Version), slog.Int("to", s.version))
	return v, nil
}

// Save writes v at the slot's version.
func (s *Slot[T]) Save(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kvstore: encode %s: %w", s.key, err)
	}
	return s.store.Put(ctx, Record{Key: s.key, Version: s.version, Value: data})
}

func (s *Slot[T]) reset(ctx context.Context) (T, error) {
	v := s.def()
	return v, s.Save(ctx, v)
}
