// Package maskservice coordinates the mask, sidebar and global config stores
// for the HTTP, MCP and CLI front doors.
package maskservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/masque/internal/apperr"
	"github.com/starford/masque/internal/collab"
	"github.com/starford/masque/internal/dnd"
	"github.com/starford/masque/internal/globalconfig"
	"github.com/starford/masque/internal/importer"
	"github.com/starford/masque/internal/listview"
	"github.com/starford/masque/internal/maskconfig"
	"github.com/starford/masque/internal/maskstore"
	"github.com/starford/masque/internal/models"
	"github.com/starford/masque/internal/promptlist"
	"github.com/starford/masque/internal/sidebar"
)

// Notification kinds passed to the notifier.
const (
	NotifySidebar = "sidebar"
	NotifyConfig  = "config"
)

// MaskDetail is a mask with its revision tag and edit state.
type MaskDetail struct {
	models.Mask
	Revision string `json:"revision"`
	Readonly bool   `json:"readonly"`
	Selected bool   `json:"selected"`
}

// ImageChecker validates image references in a context.
type ImageChecker interface {
	CheckMessages(msgs []models.ChatMessage) error
}

// Notifier is told about changes that don't pass through the mask store.
type Notifier func(kind string, data any)

// Service is the application service over the stores.
type Service struct {
	masks         *maskstore.Store
	sidebar       *sidebar.Store
	global        *globalconfig.Store
	exporter      collab.Exporter
	images        ImageChecker
	notify        Notifier
	shareBase     string
	syncSupported bool
	logger        *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithExporter enables exports to a file collaborator.
func WithExporter(e collab.Exporter) Option { return func(s *Service) { s.exporter = e } }

// WithImageChecker validates images in created, imported and edited masks.
func WithImageChecker(c ImageChecker) Option { return func(s *Service) { s.images = c } }

// WithNotifier sets the sidebar/config change notifier.
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notify = n } }

// WithShareBase sets the origin used for share links.
func WithShareBase(base string) Option { return func(s *Service) { s.shareBase = base } }

// WithSyncSupported enables the global sync toggle on mask panels.
func WithSyncSupported(v bool) Option { return func(s *Service) { s.syncSupported = v } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// New creates a service.
func New(masks *maskstore.Store, side *sidebar.Store, global *globalconfig.Store, opts ...Option) *Service {
	s := &Service{
		masks:   masks,
		sidebar: side,
		global:  global,
		notify:  func(string, any) {},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) detail(m models.Mask) *MaskDetail {
	sel, ok := s.masks.Get()
	return &MaskDetail{
		Mask:     m,
		Revision: maskstore.Revision(m),
		Readonly: m.Builtin,
		Selected: ok && sel.ID == m.ID,
	}
}

// PanelRequest carries per-request panel state.
type PanelRequest struct {
	IfMatch string
	// Confirm answers any yes/no prompt raised by the request.
	Confirm   bool
	Clipboard collab.Clipboard
	Navigator collab.Navigator
}

// Panel returns a configuration panel for mask id.
func (s *Service) Panel(id string, req PanelRequest) *maskconfig.Panel {
	opts := []maskconfig.Option{
		maskconfig.WithIfMatch(req.IfMatch),
		maskconfig.WithSyncSupported(s.syncSupported),
		maskconfig.WithShareBase(s.shareBase),
		maskconfig.WithGlobalConfig(s.global.ModelConfig),
		maskconfig.WithConfirmer(&collab.StaticConfirmer{Answer: req.Confirm}),
		maskconfig.WithSidebar(s),
	}
	if req.Clipboard != nil {
		opts = append(opts, maskconfig.WithClipboard(req.Clipboard))
	}
	if req.Navigator != nil {
		opts = append(opts, maskconfig.WithNavigator(req.Navigator))
	}
	if s.exporter != nil {
		opts = append(opts, maskconfig.WithExporter(s.exporter))
	}
	return maskconfig.New(s.masks, id, opts...)
}

// ListMasks returns every mask in display order.
func (s *Service) ListMasks(_ context.Context) []MaskDetail {
	all := s.masks.GetAll()
	out := make([]MaskDetail, len(all))
	for i, m := range all {
		out[i] = *s.detail(m)
	}
	return out
}

// GetMask returns one mask.
func (s *Service) GetMask(_ context.Context, id string) (*MaskDetail, error) {
	m, ok := s.masks.Lookup(id)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s.detail(m), nil
}

// SelectedMask returns the selected mask.
func (s *Service) SelectedMask(_ context.Context) (*MaskDetail, error) {
	m, ok := s.masks.Get()
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s.detail(m), nil
}

// CreateMask creates and selects a mask built from seed.
func (s *Service) CreateMask(ctx context.Context, seed models.Mask) (*MaskDetail, error) {
	if seed.ModelConfig != (models.ModelConfig{}) {
		if err := seed.ModelConfig.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
		}
	}
	if err := s.checkContext(seed.Context); err != nil {
		return nil, err
	}
	m, err := s.masks.Create(ctx, seed)
	if err != nil {
		return nil, err
	}
	return s.detail(m), nil
}

// SelectMask selects an existing mask.
func (s *Service) SelectMask(ctx context.Context, id string) (*MaskDetail, error) {
	ok, err := s.masks.Select(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s.GetMask(ctx, id)
}

// DeleteMask removes a user mask.
func (s *Service) DeleteMask(ctx context.Context, id string) error {
	m, ok := s.masks.Lookup(id)
	if !ok {
		return apperr.ErrNotFound
	}
	if m.Builtin {
		return apperr.ErrReadOnly
	}
	_, err := s.masks.Delete(ctx, id)
	return err
}

// ReorderMasks commits a drag result from the mask list and returns the
// new order.
func (s *Service) ReorderMasks(ctx context.Context, r dnd.Result) ([]MaskDetail, error) {
	if _, err := s.DragEndMasks(ctx, r); err != nil {
		return nil, err
	}
	return s.ListMasks(ctx), nil
}

// DragEndMasks commits a drop on the mask list. moved is false for drops
// outside the list or onto the starting position.
func (s *Service) DragEndMasks(ctx context.Context, r dnd.Result) (bool, error) {
	return s.maskList(ListLayout{}, collab.NewHistory(collab.RouteHome)).DragEnd(ctx, r)
}

// ImportMasks decodes a mask file (one mask or an array) and stores its masks.
func (s *Service) ImportMasks(ctx context.Context, data []byte) ([]MaskDetail, error) {
	decoded, err := importer.Decode(data)
	if err != nil {
		return nil, err
	}
	for _, m := range decoded {
		if err := s.checkContext(m.Context); err != nil {
			return nil, err
		}
	}
	out := make([]MaskDetail, 0, len(decoded))
	for _, m := range decoded {
		stored, err := s.masks.Import(ctx, m)
		if err != nil {
			return out, err
		}
		out = append(out, *s.detail(stored))
	}
	return out, nil
}

// MaskFile returns the export file name and JSON of a mask.
func (s *Service) MaskFile(_ context.Context, id string) (string, []byte, error) {
	m, ok := s.masks.Lookup(id)
	if !ok {
		return "", nil, apperr.ErrNotFound
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("maskservice: encode: %w", err)
	}
	return maskconfig.ExportFilename(m), data, nil
}

// ExportMask writes a mask through the configured exporter and returns the file name.
func (s *Service) ExportMask(ctx context.Context, id string) (string, error) {
	return s.Panel(id, PanelRequest{}).Export(ctx)
}

// ShareMask returns the deep link of a mask.
func (s *Service) ShareMask(ctx context.Context, id string) (string, error) {
	return s.Panel(id, PanelRequest{}).Share(ctx)
}

// StartChat switches to the chat tab and returns the route to open.
func (s *Service) StartChat(ctx context.Context, id string) (string, error) {
	nav := collab.NewHistory(collab.RouteMasks)
	if err := s.Panel(id, PanelRequest{Navigator: nav}).StartChat(ctx); err != nil {
		return "", err
	}
	return nav.Current(), nil
}

// Edit applies a batch of commands to a mask as one edit.
func (s *Service) Edit(ctx context.Context, id string, req EditRequest) (*MaskDetail, error) {
	p := s.Panel(id, PanelRequest{IfMatch: req.IfMatch, Confirm: req.Confirm})
	if _, err := p.Mask(); err != nil {
		return nil, err
	}
	muts := make([]maskstore.Mutator, 0, len(req.Commands))
	for i, c := range req.Commands {
		mut, err := c.mutator(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("command %d (%s): %w", i, c.Op, err)
		}
		if c.Entry != nil {
			if err := s.checkContext([]models.ChatMessage{*c.Entry}); err != nil {
				return nil, fmt.Errorf("command %d (%s): %w", i, c.Op, err)
			}
		}
		muts = append(muts, mut)
	}
	m, err := p.Apply(ctx, muts...)
	if err != nil {
		return nil, err
	}
	return s.detail(m), nil
}

// ReorderContext moves the context entry at from to to.
func (s *Service) ReorderContext(ctx context.Context, id, ifMatch string, from, to int) (*MaskDetail, error) {
	return s.editContext(ctx, id, ifMatch, func(e *promptlist.Editor) error {
		return e.Reorder(ctx, from, to)
	})
}

// DropContext commits a drag result on the context list. No-op drags leave
// the mask, and its revision, untouched.
func (s *Service) DropContext(ctx context.Context, id, ifMatch string, r dnd.Result) (*MaskDetail, error) {
	return s.editContext(ctx, id, ifMatch, func(e *promptlist.Editor) error {
		return e.DragEnd(ctx, r)
	})
}

func (s *Service) editContext(ctx context.Context, id, ifMatch string, fn func(*promptlist.Editor) error) (*MaskDetail, error) {
	p := s.Panel(id, PanelRequest{IfMatch: ifMatch})
	if _, err := p.Mask(); err != nil {
		return nil, err
	}
	if err := fn(p.Context()); err != nil {
		return nil, err
	}
	m, err := p.Mask()
	if err != nil {
		return nil, err
	}
	return s.detail(m), nil
}

func (s *Service) checkContext(msgs []models.ChatMessage) error {
	for i, msg := range msgs {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("%w: context %d: %v", apperr.ErrInvalid, i, err)
		}
	}
	if s.images == nil {
		return nil
	}
	return s.images.CheckMessages(msgs)
}

// Sidebar returns the sidebar preferences.
func (s *Service) Sidebar(_ context.Context) models.SidebarConfig {
	return s.sidebar.Get()
}

// SetActiveTab switches the sidebar tab.
func (s *Service) SetActiveTab(ctx context.Context, tab models.Tab) error {
	if err := s.sidebar.SetActiveTab(ctx, tab); err != nil {
		return err
	}
	s.notify(NotifySidebar, s.sidebar.Get())
	return nil
}

// GlobalConfig returns the global model configuration.
func (s *Service) GlobalConfig(_ context.Context) models.ModelConfig {
	return s.global.ModelConfig()
}

// UpdateGlobalConfig replaces the global model configuration. Masks in sync
// mode are not touched: sync is a one-time copy.
func (s *Service) UpdateGlobalConfig(ctx context.Context, cfg models.ModelConfig) (models.ModelConfig, error) {
	out, err := s.global.Update(ctx, func(c *models.ModelConfig) { *c = cfg })
	if err != nil {
		return out, err
	}
	s.notify(NotifyConfig, out)
	return out, nil
}

// ListLayout describes the client layout a list is rendered for.
type ListLayout struct {
	Narrow  bool
	Mobile  bool
	Confirm bool
}

func (s *Service) maskList(layout ListLayout, nav collab.Navigator) *listview.MaskList {
	l := listview.NewMaskList(s.masks, &collab.StaticConfirmer{Answer: layout.Confirm}, nav)
	l.Narrow, l.Mobile = layout.Narrow, layout.Mobile
	return l
}

// MaskRows returns the mask list view-model.
func (s *Service) MaskRows(_ context.Context, layout ListLayout) []listview.MaskRow {
	return s.maskList(layout, collab.NewHistory(collab.RouteHome)).Rows()
}

// ClickMask returns the route the mask list opens. Selection is unchanged.
func (s *Service) ClickMask(_ context.Context, id string) (string, error) {
	if _, ok := s.masks.Lookup(id); !ok {
		return "", apperr.ErrNotFound
	}
	nav := collab.NewHistory(collab.RouteHome)
	s.maskList(ListLayout{}, nav).Click(id)
	return nav.Current(), nil
}

// DeleteFromList deletes through the mask list, which asks for confirmation
// on narrow and mobile layouts. deleted is false when the prompt was declined.
func (s *Service) DeleteFromList(ctx context.Context, id string, layout ListLayout) (bool, error) {
	m, ok := s.masks.Lookup(id)
	if !ok {
		return false, apperr.ErrNotFound
	}
	if m.Builtin {
		return false, apperr.ErrReadOnly
	}
	return s.maskList(layout, collab.NewHistory(collab.RouteHome)).Delete(ctx, id)
}

// ConfigRows returns the config list view-model.
func (s *Service) ConfigRows(_ context.Context, narrow bool) []listview.ConfigRow {
	l := listview.NewConfigList(collab.NewHistory(collab.RouteHome))
	l.Narrow = narrow
	return l.Rows()
}

// ClickConfig returns the route the config list opens.
func (s *Service) ClickConfig(_ context.Context, id string) (string, error) {
	if id != listview.GeneralConfigID {
		return "", apperr.ErrNotFound
	}
	nav := collab.NewHistory(collab.RouteHome)
	listview.NewConfigList(nav).Click(id)
	return nav.Current(), nil
}
