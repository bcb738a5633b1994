package promptlist

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/masque/internal/dnd"
	"github.com/starford/masque/internal/models"
)

// Command is a context edit that can be applied to the authoritative sequence.
type Command interface {
	Apply(seq []models.ChatMessage) []models.ChatMessage
	Validate() error
}

// target resolves an entry position: a non-empty id wins over the index
// captured when the command was built.
func target(seq []models.ChatMessage, at int, id string) int {
	if id != "" {
		return IndexOf(seq, id)
	}
	return at
}

// InsertCommand inserts Entry before position At.
type InsertCommand struct {
	Entry models.ChatMessage
	At    int
}

func (c InsertCommand) Apply(seq []models.ChatMessage) []models.ChatMessage {
	entry := c.Entry
	if entry.ID == "" || IndexOf(seq, entry.ID) >= 0 {
		entry.ID = uuid.NewString()
	}
	return Insert(seq, entry, c.At)
}

func (c InsertCommand) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Entry),
		validation.Field(&c.At, validation.Min(0)),
	)
}

// RemoveCommand deletes the entry identified by ID, or at At when ID is empty.
type RemoveCommand struct {
	At int
	ID string
}

func (c RemoveCommand) Apply(seq []models.ChatMessage) []models.ChatMessage {
	return Remove(seq, target(seq, c.At, c.ID))
}

func (c RemoveCommand) Validate() error { return nil }

// UpdateCommand replaces the entry identified by ID, or at At.
type UpdateCommand struct {
	At    int
	ID    string
	Entry models.ChatMessage
}

func (c UpdateCommand) Apply(seq []models.ChatMessage) []models.ChatMessage {
	return UpdateAt(seq, target(seq, c.At, c.ID), c.Entry)
}

func (c UpdateCommand) Validate() error {
	return validation.ValidateStruct(&c, validation.Field(&c.Entry))
}

// ReorderCommand moves the entry at From to To.
type ReorderCommand struct {
	From, To int
}

func (c ReorderCommand) Apply(seq []models.ChatMessage) []models.ChatMessage {
	return Reorder(seq, c.From, c.To)
}

func (c ReorderCommand) Validate() error { return nil }

// DropCommand commits a drag result.
type DropCommand struct {
	Result dnd.Result
}

func (c DropCommand) Apply(seq []models.ChatMessage) []models.ChatMessage {
	return Drop(seq, c.Result)
}

func (c DropCommand) Validate() error { return nil }

// AddBlankCommand is the empty-state add action.
type AddBlankCommand struct{}

func (AddBlankCommand) Apply(seq []models.ChatMessage) []models.ChatMessage {
	return AddBlank(seq)
}

func (AddBlankCommand) Validate() error { return nil }

// InsertAfterCommand adds a blank entry after the one identified by ID, or at At.
type InsertAfterCommand struct {
	At  int
	ID  string
	Now time.Time
}

func (c InsertAfterCommand) Apply(seq []models.ChatMessage) []models.ChatMessage {
	now := c.Now
	if now.IsZero() {
		now = time.Now()
	}
	return InsertAfter(seq, target(seq, c.At, c.ID), now)
}

func (c InsertAfterCommand) Validate() error { return nil }
