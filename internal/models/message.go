package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Role is the author of a chat message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Roles lists every role a context entry may carry, in display order.
var Roles = []Role{RoleSystem, RoleUser, RoleAssistant}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// PartType discriminates the parts of multimodal content.
type PartType string

// Content part types, as they appear on the wire.
const (
	PartText     PartType = "text"
	PartImageURL PartType = "image_url"
)

// ImageURL references an image by URL or data URI.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is one segment of multimodal content.
type ContentPart struct {
	Type     PartType  `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// TextPart returns a text segment.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart returns an image segment referencing url.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartImageURL, ImageURL: &ImageURL{URL: url}}
}

// MessageContent is either plain text or a sequence of parts.
// A nil Parts slice means plain; on the wire plain content is a JSON string
// and multimodal content is a JSON array.
type MessageContent struct {
	Plain string
	Parts []ContentPart
}

// Text returns plain content.
func Text(s string) MessageContent {
	return MessageContent{Plain: s}
}

// Multimodal returns content made of the given parts.
func Multimodal(parts ...ContentPart) MessageContent {
	if parts == nil {
		parts = []ContentPart{}
	}
	return MessageContent{Parts: parts}
}

// IsMultimodal reports whether the content is a part sequence.
func (c MessageContent) IsMultimodal() bool {
	return c.Parts != nil
}

// TextContent returns the plain text, or the first text segment of
// multimodal content.
func (c MessageContent) TextContent() string {
	if !c.IsMultimodal() {
		return c.Plain
	}
	for _, p := range c.Parts {
		if p.Type == PartText {
			return p.Text
		}
	}
	return ""
}

// Images returns the image references in order of appearance.
func (c MessageContent) Images() []string {
	var out []string
	for _, p := range c.Parts {
		if p.Type == PartImageURL && p.ImageURL != nil {
			out = append(out, p.ImageURL.URL)
		}
	}
	return out
}

// Clone returns a deep copy.
func (c MessageContent) Clone() MessageContent {
	if c.Parts == nil {
		return MessageContent{Plain: c.Plain}
	}
	parts := make([]ContentPart, len(c.Parts))
	for i, p := range c.Parts {
		parts[i] = p
		if p.ImageURL != nil {
			u := *p.ImageURL
			parts[i].ImageURL = &u
		}
	}
	return MessageContent{Parts: parts}
}

// MarshalJSON encodes plain content as a string and multimodal content as an array.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsMultimodal() {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Plain)
}

// UnmarshalJSON accepts a string, an array of parts, or null.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*c = MessageContent{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Text(s)
		return nil
	case data[0] == '[':
		var parts []ContentPart
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		*c = Multimodal(parts...)
		return nil
	default:
		return fmt.Errorf("models: content must be a string or an array of parts")
	}
}

// ChatMessage is one entry of a mask's prompt context.
type ChatMessage struct {
	ID      string         `json:"id"`
	Role    Role           `json:"role"`
	Content MessageContent `json:"content"`
	Date    string         `json:"date"`
}

// NewMessage creates a message with a fresh id.
func NewMessage(role Role, content MessageContent, date string) ChatMessage {
	return ChatMessage{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
		Date:    date,
	}
}

// Validate checks that the role is one of Roles.
func (m ChatMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Role, validation.Required, validation.By(func(v any) error {
			if r, _ := v.(Role); !r.Valid() {
				return fmt.Errorf("must be one of system, user, assistant")
			}
			return nil
		})),
	)
}

// Clone returns a deep copy.
func (m ChatMessage) Clone() ChatMessage {
	m.Content = m.Content.Clone()
	return m
}

// CloneMessages deep-copies a context sequence. A nil input yields an empty slice.
func CloneMessages(in []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}
