// Package promptlist edits the ordered prompt context of a mask.
//
// Every operation is a pure function from one sequence to a new one; the
// input slice is never modified. Commands wrap the operations so callers can
// hand them to the store that owns the sequence, which applies them to its
// authoritative copy.
package promptlist

import (
	"time"

	"github.com/starford/masque/internal/dnd"
	"github.com/starford/masque/internal/models"
)

// ListID identifies the context list in drag results.
const ListID = "context-prompt-list"

// DateLayout renders insertion timestamps the way the client shows local time.
const DateLayout = "1/2/2006, 3:04:05 PM"

// Insert places entry before position at. at is clamped to [0, len(seq)].
func Insert(seq []models.ChatMessage, entry models.ChatMessage, at int) []models.ChatMessage {
	if at < 0 {
		at = 0
	}
	if at > len(seq) {
		at = len(seq)
	}
	out := make([]models.ChatMessage, 0, len(seq)+1)
	out = append(out, models.CloneMessages(seq[:at])...)
	out = append(out, entry.Clone())
	out = append(out, models.CloneMessages(seq[at:])...)
	return out
}

// Remove deletes the entry at position at. Out-of-range indices leave the
// sequence unchanged.
func Remove(seq []models.ChatMessage, at int) []models.ChatMessage {
	if at < 0 || at >= len(seq) {
		return models.CloneMessages(seq)
	}
	out := make([]models.ChatMessage, 0, len(seq)-1)
	out = append(out, models.CloneMessages(seq[:at])...)
	return append(out, models.CloneMessages(seq[at+1:])...)
}

// UpdateAt replaces the entry at position at.
//
// When the replaced entry carried images, the result keeps them: its content
// becomes one text segment holding entry's text followed by the original
// images in order. Otherwise entry is stored as given. An empty entry ID
// keeps the existing one.
func UpdateAt(seq []models.ChatMessage, at int, entry models.ChatMessage) []models.ChatMessage {
	out := models.CloneMessages(seq)
	if at < 0 || at >= len(out) {
		return out
	}
	images := out[at].Content.Images()
	next := entry.Clone()
	next.ID = out[at].ID
	if len(images) > 0 {
		parts := []models.ContentPart{models.TextPart(next.Content.TextContent())}
		for _, img := range images {
			parts = append(parts, models.ImagePart(img))
		}
		next.Content = models.Multimodal(parts...)
	}
	out[at] = next
	return out
}

// Reorder moves the entry at from so that it ends up at index to of the
// result.
func Reorder(seq []models.ChatMessage, from, to int) []models.ChatMessage {
	return models.CloneMessages(dnd.Move(seq, from, to))
}

// Blank returns an empty user entry stamped with date.
func Blank(date string) models.ChatMessage {
	return models.NewMessage(models.RoleUser, models.Text(""), date)
}

// AddBlank is the empty-state action: on an empty sequence it appends a
// blank user entry with an empty date. Non-empty sequences are unchanged.
func AddBlank(seq []models.ChatMessage) []models.ChatMessage {
	if len(seq) != 0 {
		return models.CloneMessages(seq)
	}
	return []models.ChatMessage{Blank("")}
}

// InsertAfter adds a blank user entry right after position at, dated now.
func InsertAfter(seq []models.ChatMessage, at int, now time.Time) []models.ChatMessage {
	if at < 0 || at >= len(seq) {
		return models.CloneMessages(seq)
	}
	return Insert(seq, Blank(now.Format(DateLayout)), at+1)
}

// Drop commits a drag result against the current sequence.
func Drop(seq []models.ChatMessage, r dnd.Result) []models.ChatMessage {
	from, to, ok := dnd.Resolve(r, ListID, IDs(seq))
	if !ok {
		return models.CloneMessages(seq)
	}
	return Reorder(seq, from, to)
}

// IDs returns entry ids in order.
func IDs(seq []models.ChatMessage) []string {
	ids := make([]string, len(seq))
	for i, m := range seq {
		ids[i] = m.ID
	}
	return ids
}

// IndexOf returns the position of the entry with id, or -1.
func IndexOf(seq []models.ChatMessage, id string) int {
	for i, m := range seq {
		if m.ID == id {
			return i
		}
	}
	return -1
}
