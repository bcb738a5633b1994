// Package importer imports mask files dropped into a directory: once at
// startup and then for every new file while the watcher runs. Imported files
// are moved to imported/, rejected ones to failed/.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/masque/internal/models"
	"github.com/starford/masque/internal/storage"
)

// Subdirectories receiving processed files.
const (
	ImportedDir = "imported"
	FailedDir   = "failed"
)

const settleDelay = 200 * time.Millisecond

// Target stores imported masks.
type Target interface {
	Import(ctx context.Context, m models.Mask) (models.Mask, error)
}

// ImageChecker validates image references in a mask context.
type ImageChecker interface {
	CheckMessages(msgs []models.ChatMessage) error
}

// EventCallback is called after each processed file. kind is "imported" or
// "failed"; masks is empty on failure.
type EventCallback func(kind, path string, masks []models.Mask)

// Dir imports mask files from a directory.
type Dir struct {
	store  storage.Provider
	target Target
	images ImageChecker
	logger *slog.Logger
	cb     EventCallback
}

// Option configures a Dir.
type Option func(*Dir)

// WithImageChecker validates images before import.
func WithImageChecker(c ImageChecker) Option { return func(d *Dir) { d.images = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(d *Dir) { d.logger = l } }

// WithCallback sets the per-file callback.
func WithCallback(cb EventCallback) Option { return func(d *Dir) { d.cb = cb } }

// New returns an importer reading from store.
func New(store storage.Provider, target Target, opts ...Option) *Dir {
	d := &Dir{store: store, target: target, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sync imports every pending *.json file and returns how many succeeded.
func (d *Dir) Sync(ctx context.Context) (int, error) {
	metas, err := d.store.List("", ".json")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := d.ImportFile(ctx, m.Path); err == nil {
			n++
		}
	}
	return n, nil
}

// ImportFile imports the masks in the file at rel and moves the file out of
// the way. Rejected files go to failed/ and the error is returned.
func (d *Dir) ImportFile(ctx context.Context, rel string) ([]models.Mask, error) {
	masks, err := d.importFile(ctx, rel)
	if err != nil {
		d.logger.Warn("importer: rejected",
			slog.String("path", rel), slog.String("error", err.Error()))
		d.move(rel, FailedDir)
		if d.cb != nil {
			d.cb("failed", rel, nil)
		}
		return nil, err
	}
	d.logger.Info("importer: imported", slog.String("path", rel), slog.Int("masks", len(masks)))
	d.move(rel, ImportedDir)
	if d.cb != nil {
		d.cb("imported", rel, masks)
	}
	return masks, nil
}

func (d *Dir) importFile(ctx context.Context, rel string) ([]models.Mask, error) {
	data, err := d.store.Read(rel)
	if err != nil {
		return nil, err
	}
	decoded, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if d.images != nil {
		for i, m := range decoded {
			if err := d.images.CheckMessages(m.Context); err != nil {
				return nil, fmt.Errorf("mask %d: %w", i, err)
			}
		}
	}
	out := make([]models.Mask, 0, len(decoded))
	for _, m := range decoded {
		stored, err := d.target.Import(ctx, m)
		if err != nil {
			return out, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func (d *Dir) move(rel, dir string) {
	dest := path.Join(dir, path.Base(filepath.ToSlash(rel)))
	if err := d.store.Move(rel, dest); err != nil {
		d.logger.Warn("importer: move failed",
			slog.String("path", rel), slog.String("to", dest), slog.String("error", err.Error()))
	}
}

// Watch imports files written into the directory until ctx is cancelled.
// A file is imported once it has been quiet for a short settle delay, so
// partially written files are not picked up.
func (d *Dir) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := d.store.Root()
	if err := w.Add(root); err != nil {
		return err
	}
	d.logger.Info("importer: watching", slog.String("dir", root))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(settleDelay)
			timerCh = timer.C
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			d.logger.Info("importer: stopped")
			return nil

		case <-timerCh:
			for rel := range pending {
				delete(pending, rel)
				if _, err := d.ImportFile(ctx, rel); err != nil && errors.Is(err, context.Canceled) {
					return nil
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if filepath.Dir(ev.Name) != root || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
				continue
			}
			pending[name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			d.logger.Error("importer: watch error", slog.String("error", watchErr.Error()))
		}
	}
}
