package promptlist

import (
	"context"
	"time"

	"github.com/starford/masque/internal/dnd"
	"github.com/starford/masque/internal/models"
)

// Updater commits a command against the sequence owned by someone else.
type Updater func(ctx context.Context, cmd Command) error

// Editor issues context edits through an Updater; it holds no copy of the
// sequence itself.
type Editor struct {
	update Updater
	now    func() time.Time
}

// NewEditor returns an editor that commits through update.
func NewEditor(update Updater) *Editor {
	return &Editor{update: update, now: time.Now}
}

// WithClock overrides the clock used to stamp inserted entries.
func (e *Editor) WithClock(now func() time.Time) *Editor {
	e.now = now
	return e
}

func (e *Editor) Insert(ctx context.Context, entry models.ChatMessage, at int) error {
	return e.update(ctx, InsertCommand{Entry: entry, At: at})
}

func (e *Editor) Remove(ctx context.Context, at int) error {
	return e.update(ctx, RemoveCommand{At: at})
}

func (e *Editor) UpdateAt(ctx context.Context, at int, entry models.ChatMessage) error {
	return e.update(ctx, UpdateCommand{At: at, Entry: entry})
}

func (e *Editor) Reorder(ctx context.Context, from, to int) error {
	return e.update(ctx, ReorderCommand{From: from, To: to})
}

// DragEnd commits a drag result; no-op results never reach the updater.
func (e *Editor) DragEnd(ctx context.Context, r dnd.Result) error {
	if r.IsNoop() {
		return nil
	}
	return e.update(ctx, DropCommand{Result: r})
}

func (e *Editor) AddBlank(ctx context.Context) error {
	return e.update(ctx, AddBlankCommand{})
}

func (e *Editor) InsertAfter(ctx context.Context, at int) error {
	return e.update(ctx, InsertAfterCommand{At: at, Now: e.now()})
}
