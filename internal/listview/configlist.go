package listview

import (
	"context"

	"github.com/starford/masque/internal/collab"
	"github.com/starford/masque/internal/dnd"
)

// ConfigListID identifies the config list in drag results.
const ConfigListID = "config-list"

// GeneralConfigID is the only config entry.
const GeneralConfigID = "general"

// ConfigRow is one rendered config entry.
type ConfigRow struct {
	ID       string `json:"id"`
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Selected bool   `json:"selected"`
	IconOnly bool   `json:"iconOnly"`
}

// ConfigList is the sidebar list of configuration pages.
type ConfigList struct {
	Narrow bool

	nav collab.Navigator
}

// NewConfigList returns the config list.
func NewConfigList(nav collab.Navigator) *ConfigList {
	return &ConfigList{nav: nav}
}

// Rows returns the fixed entries. None is ever selected.
func (l *ConfigList) Rows() []ConfigRow {
	return []ConfigRow{{
		ID:       GeneralConfigID,
		Title:    "General",
		IconOnly: l.Narrow,
	}}
}

// Click opens the settings page.
func (l *ConfigList) Click(id string) {
	l.nav.GoTo(collab.RouteSettings)
}

// DragEnd ignores every drag; the list has a single entry.
func (l *ConfigList) DragEnd(_ context.Context, _ dnd.Result) (bool, error) {
	return false, nil
}
