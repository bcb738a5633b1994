// Package maskconfig implements the mask configuration panel: field edits,
// context editing, the global sync toggle, sharing and export.
package maskconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/starford/masque/internal/apperr"
	"github.com/starford/masque/internal/collab"
	"github.com/starford/masque/internal/maskstore"
	"github.com/starford/masque/internal/models"
	"github.com/starford/masque/internal/promptlist"
)

// SyncConfirmMessage is the question asked before enabling global sync.
const SyncConfirmMessage = "Enabling sync will overwrite this mask's model settings with the global settings. Continue?"

// Store is the subset of the mask store the panel needs.
type Store interface {
	Lookup(id string) (models.Mask, bool)
	UpdateMaskIfMatch(ctx context.Context, id, ifMatch string, mut maskstore.Mutator) (models.Mask, bool, error)
}

// TabSetter switches the sidebar tab.
type TabSetter interface {
	SetActiveTab(ctx context.Context, tab models.Tab) error
}

// Panel edits one mask. It holds no copy of the mask: every read goes to the
// store and every edit is a command committed by the store.
type Panel struct {
	store         Store
	id            string
	readonly      bool
	syncSupported bool
	ifMatch       string
	shareBase     string
	global        func() models.ModelConfig
	confirm       collab.Confirmer
	clipboard     collab.Clipboard
	exporter      collab.Exporter
	nav           collab.Navigator
	sidebar       TabSetter
	editor        *promptlist.Editor
}

// Option configures a Panel.
type Option func(*Panel)

// WithReadonly forces read-only mode. Builtin masks are always read-only.
func WithReadonly(v bool) Option { return func(p *Panel) { p.readonly = v } }

// WithSyncSupported puts the panel in global-sync mode: the sync toggle is
// offered and the share action is not.
func WithSyncSupported(v bool) Option { return func(p *Panel) { p.syncSupported = v } }

// WithIfMatch guards the first edit with a revision tag. Later edits through
// the same panel chain on the revision each edit produced.
func WithIfMatch(rev string) Option { return func(p *Panel) { p.ifMatch = rev } }

// WithShareBase sets the origin used in share links, e.g. https://chat.example.com.
func WithShareBase(base string) Option { return func(p *Panel) { p.shareBase = base } }

// WithGlobalConfig sets the source of the global model configuration.
func WithGlobalConfig(fn func() models.ModelConfig) Option {
	return func(p *Panel) { p.global = fn }
}

// WithConfirmer sets the yes/no prompt. Without one, every prompt is declined.
func WithConfirmer(c collab.Confirmer) Option { return func(p *Panel) { p.confirm = c } }

// WithClipboard sets the clipboard used by Share.
func WithClipboard(c collab.Clipboard) Option { return func(p *Panel) { p.clipboard = c } }

// WithExporter sets the file exporter used by Export.
func WithExporter(e collab.Exporter) Option { return func(p *Panel) { p.exporter = e } }

// WithNavigator sets the navigator.
func WithNavigator(n collab.Navigator) Option { return func(p *Panel) { p.nav = n } }

// WithSidebar sets the sidebar store switched by StartChat.
func WithSidebar(s TabSetter) Option { return func(p *Panel) { p.sidebar = s } }

// New returns a panel bound to the mask with id.
func New(store Store, id string, opts ...Option) *Panel {
	p := &Panel{
		store:     store,
		id:        id,
		global:    models.DefaultModelConfig,
		confirm:   &collab.StaticConfirmer{},
		clipboard: &collab.MemoryClipboard{},
		nav:       collab.NewHistory(collab.RouteMasks),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.editor = promptlist.NewEditor(func(ctx context.Context, cmd promptlist.Command) error {
		_, err := p.EditContext(ctx, cmd)
		return err
	})
	return p
}

// Mask returns the current state of the edited mask.
func (p *Panel) Mask() (models.Mask, error) {
	m, ok := p.store.Lookup(p.id)
	if !ok {
		return models.Mask{}, apperr.ErrNotFound
	}
	return m, nil
}

// Readonly reports whether edits are ignored.
func (p *Panel) Readonly() bool {
	m, ok := p.store.Lookup(p.id)
	return p.readonly || (ok && m.Builtin)
}

// Revision returns the revision the next edit is checked against, if any.
func (p *Panel) Revision() string { return p.ifMatch }

// Context returns the prompt list editor for the mask context.
func (p *Panel) Context() *promptlist.Editor { return p.editor }

// apply commits mut. In read-only mode it returns the mask untouched.
func (p *Panel) apply(ctx context.Context, mut maskstore.Mutator) (models.Mask, error) {
	m, ok := p.store.Lookup(p.id)
	if !ok {
		return models.Mask{}, apperr.ErrNotFound
	}
	if p.readonly || m.Builtin {
		return m, nil
	}
	updated, ok, err := p.store.UpdateMaskIfMatch(ctx, p.id, p.ifMatch, mut)
	if err != nil {
		return updated, err
	}
	if !ok {
		return models.Mask{}, apperr.ErrNotFound
	}
	if p.ifMatch != "" {
		p.ifMatch = maskstore.Revision(updated)
	}
	return updated, nil
}

// SetAvatar sets the avatar chosen in the picker.
func (p *Panel) SetAvatar(ctx context.Context, avatar string) (models.Mask, error) {
	return p.apply(ctx, SetAvatar{Avatar: avatar})
}

// SetName sets the display name.
func (p *Panel) SetName(ctx context.Context, name string) (models.Mask, error) {
	return p.apply(ctx, SetName{Name: name})
}

// SetHideContext toggles whether the context is shown in chats.
func (p *Panel) SetHideContext(ctx context.Context, hide bool) (models.Mask, error) {
	return p.apply(ctx, SetHideContext{Hide: hide})
}

// UpdateModelConfig edits a copy of the model configuration and commits it.
// The edit takes the mask out of sync mode.
func (p *Panel) UpdateModelConfig(ctx context.Context, edit func(*models.ModelConfig)) (models.Mask, error) {
	m, err := p.Mask()
	if err != nil {
		return models.Mask{}, err
	}
	if p.readonly || m.Builtin {
		return m, nil
	}
	cfg := m.ModelConfig
	edit(&cfg)
	cmd, err := ModelConfigCommand(cfg)
	if err != nil {
		return m, err
	}
	return p.apply(ctx, cmd)
}

// EditContext applies a prompt list command to the mask context.
func (p *Panel) EditContext(ctx context.Context, cmd promptlist.Command) (models.Mask, error) {
	if err := cmd.Validate(); err != nil {
		return models.Mask{}, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return p.apply(ctx, EditContext{Cmd: cmd})
}

// SyncCommand resolves a sync toggle into a command. Enabling asks for
// confirmation and captures the global configuration; a declined prompt
// yields a nil command.
func (p *Panel) SyncCommand(ctx context.Context, enabled bool) (maskstore.Mutator, error) {
	if !p.syncSupported {
		return nil, apperr.ErrUnsupported
	}
	if !enabled {
		return DisableSync{}, nil
	}
	yes, err := p.confirm.AskYesNo(ctx, SyncConfirmMessage)
	if err != nil || !yes {
		return nil, err
	}
	return EnableSync{Global: p.global()}, nil
}

// SetSync turns global sync on or off. Turning it on asks for confirmation
// and, once confirmed, copies the global configuration into the mask; a
// declined prompt changes nothing.
func (p *Panel) SetSync(ctx context.Context, enabled bool) (models.Mask, error) {
	if !p.syncSupported {
		return models.Mask{}, apperr.ErrUnsupported
	}
	m, err := p.Mask()
	if err != nil {
		return models.Mask{}, err
	}
	if p.readonly || m.Builtin {
		return m, nil
	}
	cmd, err := p.SyncCommand(ctx, enabled)
	if err != nil || cmd == nil {
		return m, err
	}
	return p.apply(ctx, cmd)
}

// ModelConfigCommand validates cfg and returns the command replacing the
// mask's model configuration.
func ModelConfigCommand(cfg models.ModelConfig) (maskstore.Mutator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return SetModelConfig{Config: cfg}, nil
}

// Apply commits cmds as one edit. Nil commands are skipped.
func (p *Panel) Apply(ctx context.Context, cmds ...maskstore.Mutator) (models.Mask, error) {
	batch := make(Batch, 0, len(cmds))
	for _, c := range cmds {
		if c != nil {
			batch = append(batch, c)
		}
	}
	if len(batch) == 0 {
		return p.Mask()
	}
	return p.apply(ctx, batch)
}

// ShareLink returns the deep link that opens a new chat with the mask.
func (p *Panel) ShareLink() string {
	return strings.TrimRight(p.shareBase, "/") + "/#" + collab.RouteNewChat + "?mask=" + url.QueryEscape(p.id)
}

// Share copies the mask's deep link to the clipboard and returns it.
// It is not offered in global-sync mode.
func (p *Panel) Share(ctx context.Context) (string, error) {
	if p.syncSupported {
		return "", apperr.ErrSyncMode
	}
	if _, err := p.Mask(); err != nil {
		return "", err
	}
	link := p.ShareLink()
	p.clipboard.CopyText(link)
	return link, nil
}

// ExportFilename returns the download name for m.
func ExportFilename(m models.Mask) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(m.Name))
	if name == "" || name == "." || name == ".." {
		name = "mask"
	}
	return name + ".json"
}

// Export hands the mask's JSON to the exporter and returns the file name.
func (p *Panel) Export(ctx context.Context) (string, error) {
	if p.exporter == nil {
		return "", apperr.ErrUnsupported
	}
	m, err := p.Mask()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("maskconfig: encode: %w", err)
	}
	name := ExportFilename(m)
	if err := p.exporter.DownloadAsFile(ctx, data, name); err != nil {
		return "", err
	}
	return name, nil
}

// StartChat switches the sidebar to chats and navigates to the chat route.
// Builtin masks cannot start a chat from the panel.
func (p *Panel) StartChat(ctx context.Context) error {
	m, err := p.Mask()
	if err != nil {
		return err
	}
	if m.Builtin {
		return apperr.ErrReadOnly
	}
	if p.sidebar != nil {
		if err := p.sidebar.SetActiveTab(ctx, models.TabChat); err != nil {
			return err
		}
	}
	p.nav.GoTo(collab.RouteChat)
	return nil
}

// Close leaves the panel.
func (p *Panel) Close() { p.nav.GoBack() }
