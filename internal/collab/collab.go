// Package collab defines the external collaborators the mask editors depend
// on and the implementations used when the editors run server-side.
package collab

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/masque/internal/storage"
)

// Confirmer asks the user a yes/no question. A dismissed prompt answers no.
type Confirmer interface {
	AskYesNo(ctx context.Context, msg string) (bool, error)
}

// Clipboard receives text copied on the user's behalf.
type Clipboard interface {
	CopyText(text string)
}

// Exporter hands a file to the user.
type Exporter interface {
	DownloadAsFile(ctx context.Context, content []byte, filename string) error
}

// Navigator moves between application routes.
type Navigator interface {
	GoTo(route string)
	GoBack()
}

// Routes.
const (
	RouteHome     = "/"
	RouteChat     = "/chat"
	RouteMasks    = "/masks"
	RouteNewChat  = "/new-chat"
	RouteSettings = "/settings"
)

// StaticConfirmer answers every question with a fixed value. Over HTTP the
// answer travels with the request that triggered the question.
type StaticConfirmer struct {
	Answer bool

	mu    sync.Mutex
	asked []string
}

// AskYesNo records msg and returns the fixed answer.
func (c *StaticConfirmer) AskYesNo(ctx context.Context, msg string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	c.asked = append(c.asked, msg)
	c.mu.Unlock()
	return c.Answer, nil
}

// Asked returns the questions asked so far.
func (c *StaticConfirmer) Asked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.asked...)
}

// MemoryClipboard keeps the last copied text.
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
}

// CopyText replaces the clipboard contents.
func (c *MemoryClipboard) CopyText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

// Text returns the clipboard contents.
func (c *MemoryClipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// FileExporter writes exported files into a directory.
type FileExporter struct {
	store storage.Provider
}

// NewFileExporter returns an exporter writing through store.
func NewFileExporter(store storage.Provider) *FileExporter {
	return &FileExporter{store: store}
}

// DownloadAsFile writes content under filename, replacing any previous export.
func (e *FileExporter) DownloadAsFile(ctx context.Context, content []byte, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.store.Write(filename, content); err != nil {
		return fmt.Errorf("collab: export %s: %w", filename, err)
	}
	return nil
}

// History is a route stack.
type History struct {
	mu    sync.Mutex
	stack []string
}

// NewHistory returns a history positioned at start.
func NewHistory(start string) *History {
	return &History{stack: []string{start}}
}

// GoTo pushes route.
func (h *History) GoTo(route string) {
	h.mu.Lock()
	h.stack = append(h.stack, route)
	h.mu.Unlock()
}

// GoBack pops the current route. The first route is never popped.
func (h *History) GoBack() {
	h.mu.Lock()
	if len(h.stack) > 1 {
		h.stack = h.stack[:len(h.stack)-1]
	}
	h.mu.Unlock()
}

// Current returns the route on top of the stack.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stack[len(h.stack)-1]
}
