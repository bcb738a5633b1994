package api

import (
	"github.com/starford/masque/internal/dnd"
	"github.com/starford/masque/internal/listview"
	"github.com/starford/masque/internal/maskservice"
	"github.com/starford/masque/internal/models"
)

// MaskDetail is the full mask response type (aliased from the domain layer).
type MaskDetail = maskservice.MaskDetail

// MaskListResponse wraps mask listings.
type MaskListResponse struct {
	Masks []MaskDetail `json:"masks" validate:"required"`
	Total int          `json:"total" example:"3" validate:"required"`
}

// CreateMaskRequest is the request body for creating a mask. Every field is
// optional; a missing model configuration copies the global one.
type CreateMaskRequest struct {
	Name        string               `json:"name" example:"Translator"`
	Avatar      string               `json:"avatar" example:"1f4da"`
	Lang        string               `json:"lang,omitempty" example:"en"`
	HideContext bool                 `json:"hideContext"`
	ModelConfig *models.ModelConfig  `json:"modelConfig,omitempty"`
	Context     []models.ChatMessage `json:"context"`
}

func (r CreateMaskRequest) seed() models.Mask {
	m := models.Mask{
		Name:        r.Name,
		Avatar:      r.Avatar,
		Lang:        r.Lang,
		HideContext: r.HideContext,
		Context:     r.Context,
	}
	if r.ModelConfig != nil {
		m.ModelConfig = *r.ModelConfig
	}
	return m
}

// EditRequest is the commands envelope of POST /masks/{id}/commands.
type EditRequest = maskservice.EditRequest

// SyncRequest toggles global sync on a mask.
type SyncRequest struct {
	Enabled bool `json:"enabled"`
	Confirm bool `json:"confirm"`
}

// ContextEntryRequest inserts or replaces a context entry.
type ContextEntryRequest struct {
	Entry models.ChatMessage `json:"entry" validate:"required"`
	At    int                `json:"at" example:"0"`
}

// ContextReorderRequest moves a context entry.
type ContextReorderRequest struct {
	From int `json:"from" example:"2"`
	To   int `json:"to" example:"0"`
}

// DragResult is a completed drag gesture.
type DragResult = dnd.Result

// ShareResponse carries a mask deep link.
type ShareResponse struct {
	Link string `json:"link" example:"https://chat.example.com/#/new-chat?mask=123" validate:"required"`
}

// ExportResponse names the written export file.
type ExportResponse struct {
	Filename string `json:"filename" example:"Translator.json" validate:"required"`
}

// RouteResponse names the route the client should open.
type RouteResponse struct {
	Route string `json:"route" example:"/chat" validate:"required"`
}

// MaskRowsResponse wraps the mask list view-model.
type MaskRowsResponse struct {
	Rows []listview.MaskRow `json:"rows" validate:"required"`
}

// ConfigRowsResponse wraps the config list view-model.
type ConfigRowsResponse struct {
	Rows []listview.ConfigRow `json:"rows" validate:"required"`
}

// ListDeleteResponse reports whether a list delete went through.
type ListDeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// ListDragResponse reports whether a drop changed the order.
type ListDragResponse struct {
	Moved bool               `json:"moved"`
	Rows  []listview.MaskRow `json:"rows"`
}
