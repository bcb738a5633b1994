package maskconfig

import (
	"github.com/starford/masque/internal/maskstore"
	"github.com/starford/masque/internal/models"
	"github.com/starford/masque/internal/promptlist"
)

// The types below are the mask field commands. Each implements
// maskstore.Mutator and is applied by the store to a private copy.

// SetAvatar replaces the avatar.
type SetAvatar struct{ Avatar string }

func (c SetAvatar) Mutate(m *models.Mask) { m.Avatar = c.Avatar }

// SetName replaces the display name.
type SetName struct{ Name string }

func (c SetName) Mutate(m *models.Mask) { m.Name = c.Name }

// SetHideContext toggles context visibility. It leaves the sync flag alone.
type SetHideContext struct{ Hide bool }

func (c SetHideContext) Mutate(m *models.Mask) { m.HideContext = c.Hide }

// SetModelConfig replaces the model configuration and leaves sync mode:
// the mask now diverges from the global baseline.
type SetModelConfig struct{ Config models.ModelConfig }

func (c SetModelConfig) Mutate(m *models.Mask) {
	m.ModelConfig = c.Config
	m.SyncGlobalConfig = false
}

// EditContext applies a prompt list command to the mask context.
type EditContext struct{ Cmd promptlist.Command }

func (c EditContext) Mutate(m *models.Mask) { m.Context = c.Cmd.Apply(m.Context) }

// EnableSync copies the global configuration and sets the sync flag in one step.
type EnableSync struct{ Global models.ModelConfig }

func (c EnableSync) Mutate(m *models.Mask) {
	m.ModelConfig = c.Global
	m.SyncGlobalConfig = true
}

// DisableSync clears the sync flag and keeps the mask's own configuration.
type DisableSync struct{}

func (DisableSync) Mutate(m *models.Mask) { m.SyncGlobalConfig = false }

// Batch applies commands in order as a single edit.
type Batch []maskstore.Mutator

func (b Batch) Mutate(m *models.Mask) {
	for _, c := range b {
		c.Mutate(m)
	}
}
