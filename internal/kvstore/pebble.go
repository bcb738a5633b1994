package kvstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/starford/masque/internal/apperr"
)

var keyPrefix = []byte("kv:")

// Pebble stores records in a pebble LSM directory. Values are encoded as
// uvarint(version) | varint(updated unix nanos) | document.
type Pebble struct {
	db *pebble.DB
}

var _ Store = (*Pebble)(nil)

// OpenPebble opens (or creates) the pebble directory at path.
func OpenPebble(path string) (*Pebble, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("kvstore: mkdir: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("kvstore: open pebble: %w", err)
	}
	return &Pebble{db: db}, nil
}

func pebbleKey(key string) []byte {
	return append(append([]byte{}, keyPrefix...), key...)
}

// Get returns the record stored under key.
func (p *Pebble) Get(_ context.Context, key string) (Record, error) {
	v, closer, err := p.db.Get(pebbleKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, apperr.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("kvstore: get %s: %w", key, err)
	}
	defer closer.Close()
	rec, err := decodeValue(v)
	if err != nil {
		return Record{}, fmt.Errorf("kvstore: decode %s: %w", key, err)
	}
	rec.Key = key
	return rec, nil
}

// Put writes the record with a synced commit.
func (p *Pebble) Put(_ context.Context, rec Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	if err := p.db.Set(pebbleKey(rec.Key), encodeValue(rec), pebble.Sync); err != nil {
		return fmt.Errorf("kvstore: put %s: %w", rec.Key, err)
	}
	return nil
}

// Delete removes key; missing keys are not an error.
func (p *Pebble) Delete(_ context.Context, key string) error {
	if err := p.db.Delete(pebbleKey(key), pebble.Sync); err != nil {
		return fmt.Errorf("kvstore: delete %s: %w", key, err)
	}
	return nil
}

// Keys returns every stored key in lexical order.
func (p *Pebble) Keys(_ context.Context) ([]string, error) {
	upper := append(append([]byte{}, keyPrefix[:len(keyPrefix)-1]...), keyPrefix[len(keyPrefix)-1]+1)
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("kvstore: keys: %w", err)
	}
	defer it.Close()
	var out []string
	for ok := it.First(); ok; ok = it.Next() {
		k := it.Key()
		if !bytes.HasPrefix(k, keyPrefix) {
			continue
		}
		out = append(out, string(k[len(keyPrefix):]))
	}
	return out, it.Error()
}

// Close flushes and closes the database.
func (p *Pebble) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func encodeValue(rec Record) []byte {
	buf := make([]byte, 0, 2*binary.MaxVarintLen64+len(rec.Value))
	buf = binary.AppendUvarint(buf, uint64(rec.Version))
	buf = binary.AppendVarint(buf, rec.UpdatedAt.UnixNano())
	return append(buf, rec.Value...)
}

func decodeValue(v []byte) (Record, error) {
	version, n := binary.Uvarint(v)
	if n <= 0 {
		return Record{}, fmt.Errorf("bad version header")
	}
	v = v[n:]
	nanos, n := binary.Varint(v)
	if n <= 0 {
		return Record{}, fmt.Errorf("bad timestamp header")
	}
	value := make([]byte, len(v)-n)
	copy(value, v[n:])
	return Record{
		Version:   int(version),
		Value:     value,
		UpdatedAt: time.Unix(0, nanos),
	}, nil
}
