package maskservice

import (
	"context"
	"fmt"

	"github.com/starford/masque/internal/apperr"
	"github.com/starford/masque/internal/dnd"
	"github.com/starford/masque/internal/maskconfig"
	"github.com/starford/masque/internal/maskstore"
	"github.com/starford/masque/internal/models"
	"github.com/starford/masque/internal/promptlist"
)

// Command ops.
const (
	OpSetAvatar          = "set_avatar"
	OpSetName            = "set_name"
	OpSetHideContext     = "set_hide_context"
	OpSetModelConfig     = "set_model_config"
	OpSetSync            = "set_sync"
	OpContextInsert      = "context_insert"
	OpContextRemove      = "context_remove"
	OpContextUpdate      = "context_update"
	OpContextReorder     = "context_reorder"
	OpContextDrop        = "context_drop"
	OpContextAddBlank    = "context_add_blank"
	OpContextInsertAfter = "context_insert_after"
)

// Command is one edit in an EditRequest. Only the fields used by Op are read.
type Command struct {
	Op          string              `json:"op"`
	Avatar      string              `json:"avatar,omitempty"`
	Name        string              `json:"name,omitempty"`
	Value       *bool               `json:"value,omitempty"`
	ModelConfig *models.ModelConfig `json:"modelConfig,omitempty"`
	Entry       *models.ChatMessage `json:"entry,omitempty"`
	At          int                 `json:"at,omitempty"`
	ID          string              `json:"id,omitempty"`
	From        int                 `json:"from,omitempty"`
	To          int                 `json:"to,omitempty"`
	Drop        *dnd.Result         `json:"drop,omitempty"`
}

// EditRequest is a batch of commands committed as one edit.
type EditRequest struct {
	IfMatch string `json:"-"`
	// Confirm answers the prompt raised when enabling sync.
	Confirm  bool      `json:"confirm"`
	Commands []Command `json:"commands"`
}

func (c Command) mutator(ctx context.Context, p *maskconfig.Panel) (maskstore.Mutator, error) {
	switch c.Op {
	case OpSetAvatar:
		return maskconfig.SetAvatar{Avatar: c.Avatar}, nil
	case OpSetName:
		return maskconfig.SetName{Name: c.Name}, nil
	case OpSetHideContext:
		if c.Value == nil {
			return nil, fmt.Errorf("%w: value is required", apperr.ErrInvalid)
		}
		return maskconfig.SetHideContext{Hide: *c.Value}, nil
	case OpSetModelConfig:
		if c.ModelConfig == nil {
			return nil, fmt.Errorf("%w: modelConfig is required", apperr.ErrInvalid)
		}
		return maskconfig.ModelConfigCommand(*c.ModelConfig)
	case OpSetSync:
		if c.Value == nil {
			return nil, fmt.Errorf("%w: value is required", apperr.ErrInvalid)
		}
		return p.SyncCommand(ctx, *c.Value)
	}

	cmd, err := c.contextCommand()
	if err != nil {
		return nil, err
	}
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return maskconfig.EditContext{Cmd: cmd}, nil
}

func (c Command) contextCommand() (promptlist.Command, error) {
	switch c.Op {
	case OpContextInsert:
		if c.Entry == nil {
			return nil, fmt.Errorf("%w: entry is required", apperr.ErrInvalid)
		}
		return promptlist.InsertCommand{Entry: *c.Entry, At: c.At}, nil
	case OpContextRemove:
		return promptlist.RemoveCommand{At: c.At, ID: c.ID}, nil
	case OpContextUpdate:
		if c.Entry == nil {
			return nil, fmt.Errorf("%w: entry is required", apperr.ErrInvalid)
		}
		return promptlist.UpdateCommand{At: c.At, ID: c.ID, Entry: *c.Entry}, nil
	case OpContextReorder:
		return promptlist.ReorderCommand{From: c.From, To: c.To}, nil
	case OpContextDrop:
		if c.Drop == nil {
			return nil, fmt.Errorf("%w: drop is required", apperr.ErrInvalid)
		}
		return promptlist.DropCommand{Result: *c.Drop}, nil
	case OpContextAddBlank:
		return promptlist.AddBlankCommand{}, nil
	case OpContextInsertAfter:
		return promptlist.InsertAfterCommand{At: c.At, ID: c.ID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown op %q", apperr.ErrInvalid, c.Op)
	}
}
