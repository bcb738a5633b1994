// Package listview builds the sidebar list view-models: the mask list and
// the config list.
package listview

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/starford/masque/internal/collab"
	"github.com/starford/masque/internal/dnd"
	"github.com/starford/masque/internal/models"
	"github.com/starford/masque/internal/promptlist"
)

// DeleteConfirmMessage is asked before deleting on narrow or mobile layouts.
const DeleteConfirmMessage = "Delete this mask?"

// ScrollBlockCenter is the scroll alignment of the selected row.
const ScrollBlockCenter = "center"

// MaskStore is the subset of the mask store the list needs.
type MaskStore interface {
	GetAll() []models.Mask
	Get() (models.Mask, bool)
	Delete(ctx context.Context, id string) (bool, error)
	Reorder(ctx context.Context, r dnd.Result) (bool, error)
}

// MaskRow is one rendered mask entry.
type MaskRow struct {
	ID                string    `json:"id"`
	Index             int       `json:"index"`
	Title             string    `json:"title"`
	Count             string    `json:"count,omitempty"`
	Avatar            string    `json:"avatar"`
	Model             string    `json:"model"`
	UsesDefaultAvatar bool      `json:"usesDefaultAvatar"`
	CreatedAt         time.Time `json:"createdAt"`
	Created           string    `json:"created,omitempty"`
	CreatedAgo        string    `json:"createdAgo,omitempty"`
	Builtin           bool      `json:"builtin"`
	Selected          bool      `json:"selected"`
	ScrollIntoView    bool      `json:"scrollIntoView"`
	ScrollBlock       string    `json:"scrollBlock,omitempty"`
	IconOnly          bool      `json:"iconOnly"`
}

// MaskList is the sidebar list of masks.
type MaskList struct {
	Narrow bool
	Mobile bool

	store   MaskStore
	confirm collab.Confirmer
	nav     collab.Navigator
	now     func() time.Time
	loc     *time.Location
}

// NewMaskList returns a list over store.
func NewMaskList(store MaskStore, confirm collab.Confirmer, nav collab.Navigator) *MaskList {
	if confirm == nil {
		confirm = &collab.StaticConfirmer{}
	}
	return &MaskList{
		store:   store,
		confirm: confirm,
		nav:     nav,
		now:     time.Now,
		loc:     time.Local,
	}
}

// WithClock overrides the reference time for relative dates.
func (l *MaskList) WithClock(now func() time.Time) *MaskList {
	l.now = now
	return l
}

// WithLocation sets the zone absolute dates are rendered in.
func (l *MaskList) WithLocation(loc *time.Location) *MaskList {
	l.loc = loc
	return l
}

// Rows returns the list in display order.
func (l *MaskList) Rows() []MaskRow {
	selected, hasSel := l.store.Get()
	masks := l.store.GetAll()
	now := l.now()

	rows := make([]MaskRow, len(masks))
	for i, m := range masks {
		created := m.Created()
		row := MaskRow{
			ID:                m.ID,
			Index:             i,
			Title:             m.Name,
			Avatar:            m.Avatar,
			Model:             m.ModelConfig.Model,
			UsesDefaultAvatar: m.UsesDefaultAvatar(),
			CreatedAt:         created,
			Builtin:           m.Builtin,
			Selected:          hasSel && selected.ID == m.ID,
			IconOnly:          l.Narrow,
		}
		if row.Selected {
			row.ScrollIntoView = true
			row.ScrollBlock = ScrollBlockCenter
		}
		if !l.Narrow {
			row.Count = fmt.Sprintf("%d prompts", len(m.Context))
			row.Created = created.In(l.loc).Format(promptlist.DateLayout)
			row.CreatedAgo = humanize.RelTime(created, now, "ago", "from now")
		}
		rows[i] = row
	}
	return rows
}

// Click opens the masks page. Selection is left alone.
func (l *MaskList) Click(id string) {
	l.nav.GoTo(collab.RouteMasks)
}

// Delete removes a mask. Narrow and mobile layouts ask first; a declined
// prompt deletes nothing.
func (l *MaskList) Delete(ctx context.Context, id string) (bool, error) {
	if l.Narrow || l.Mobile {
		yes, err := l.confirm.AskYesNo(ctx, DeleteConfirmMessage)
		if err != nil || !yes {
			return false, err
		}
	}
	return l.store.Delete(ctx, id)
}

// DragEnd commits a completed drag.
func (l *MaskList) DragEnd(ctx context.Context, r dnd.Result) (bool, error) {
	if r.IsNoop() {
		return false, nil
	}
	return l.store.Reorder(ctx, r)
}
