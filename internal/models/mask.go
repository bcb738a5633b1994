// Package models defines the domain types for masque.
package models

import "time"

// DefaultMaskAvatar marks a mask that renders the model's own avatar.
const DefaultMaskAvatar = "gpt-bot"

// Mask is a named, reusable preset bundling a model configuration and a
// prompt context.
type Mask struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Avatar           string        `json:"avatar"`
	HideContext      bool          `json:"hideContext"`
	SyncGlobalConfig bool          `json:"syncGlobalConfig"`
	ModelConfig      ModelConfig   `json:"modelConfig"`
	Context          []ChatMessage `json:"context"`
	Builtin          bool          `json:"builtin"`
	CreatedAt        int64         `json:"createdAt"`
	Lang             string        `json:"lang,omitempty"`
	Order            int           `json:"order"`
}

// Clone returns a deep copy whose context can be mutated independently.
func (m Mask) Clone() Mask {
	m.Context = CloneMessages(m.Context)
	return m
}

// Created returns CreatedAt as a time.
func (m Mask) Created() time.Time {
	return time.UnixMilli(m.CreatedAt)
}

// UsesDefaultAvatar reports whether the avatar falls back to the model's.
func (m Mask) UsesDefaultAvatar() bool {
	return m.Avatar == "" || m.Avatar == DefaultMaskAvatar
}
