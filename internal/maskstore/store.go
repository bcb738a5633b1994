// Package maskstore owns the collection of masks, their display order, and
// the current selection. It is the only place masks are mutated: callers
// pass mutators, which run against a private copy that is committed and
// persisted as a whole.
package maskstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/masque/internal/apperr"
	"github.com/starford/masque/internal/checksum"
	"github.com/starford/masque/internal/dnd"
	"github.com/starford/masque/internal/kvstore"
	"github.com/starford/masque/internal/models"
)

// Storage key and schema version of the mask collection.
const (
	StoreKey = "masks"
	Version  = 3
)

// ListID identifies the mask list in drag results.
const ListID = "mask-list"

// DefaultName is given to masks created without one.
const DefaultName = "New Mask"

// Mutator changes a mask in place. The store always passes a private copy.
type Mutator interface {
	Mutate(m *models.Mask)
}

// MutatorFunc adapts a function to Mutator.
type MutatorFunc func(m *models.Mask)

// Mutate calls f(m).
func (f MutatorFunc) Mutate(m *models.Mask) { f(m) }

// EventKind names a committed change.
type EventKind string

// Event kinds.
const (
	EventCreated   EventKind = "created"
	EventUpdated   EventKind = "updated"
	EventDeleted   EventKind = "deleted"
	EventReordered EventKind = "reordered"
	EventSelected  EventKind = "selected"
)

// Event describes a committed change.
type Event struct {
	Kind EventKind
	ID   string
}

// Listener observes committed changes. It runs after the store lock is released.
type Listener func(Event)

type state struct {
	Masks    map[string]models.Mask `json:"masks"`
	Selected string                 `json:"selected,omitempty"`
}

func emptyState() state {
	return state{Masks: map[string]models.Mask{}}
}

// Store is the mask collection.
type Store struct {
	mu        sync.Mutex
	slot      *kvstore.Slot[state]
	st        state
	builtin   []models.Mask
	hideBuilt bool
	global    func() models.ModelConfig
	now       func() time.Time
	listeners []Listener
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithBuiltin registers read-only presets listed ahead of user masks.
func WithBuiltin(masks []models.Mask) Option {
	return func(s *Store) {
		s.builtin = make([]models.Mask, len(masks))
		for i, m := range masks {
			m = m.Clone()
			m.Builtin = true
			m.Order = i
			s.builtin[i] = m
		}
	}
}

// WithHideBuiltin leaves builtin presets out of GetAll. They can still be
// looked up and selected by id.
func WithHideBuiltin(hide bool) Option {
	return func(s *Store) { s.hideBuilt = hide }
}

// WithGlobalConfig sets the source of the model configuration given to new masks.
func WithGlobalConfig(fn func() models.ModelConfig) Option {
	return func(s *Store) { s.global = fn }
}

// WithClock overrides the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithListener subscribes l to committed changes.
func WithListener(l Listener) Option {
	return func(s *Store) { s.listeners = append(s.listeners, l) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open loads the persisted collection.
func Open(ctx context.Context, kv kvstore.Store, opts ...Option) (*Store, error) {
	s := &Store{
		global: models.DefaultModelConfig,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.slot = kvstore.NewSlot(kv, StoreKey, Version, emptyState).WithLogger(s.logger)
	st, err := s.slot.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("maskstore: load: %w", err)
	}
	if st.Masks == nil {
		st.Masks = map[string]models.Mask{}
	}
	s.st = st
	if _, ok := s.lookup(st.Selected); !ok {
		s.st.Selected = ""
	}
	return s, nil
}

// Revision returns the revision tag of m, used for optimistic concurrency.
func Revision(m models.Mask) string {
	return checksum.Of(m)
}

// GetAll returns every mask: builtin presets first, then user masks by
// ascending order, creation time, and id.
func (s *Store) GetAll() []models.Mask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all(s.st)
}

func (s *Store) all(st state) []models.Mask {
	out := make([]models.Mask, 0, len(s.builtin)+len(st.Masks))
	for _, m := range s.builtin[:s.pinned()] {
		out = append(out, m.Clone())
	}
	return append(out, userMasks(st)...)
}

func userMasks(st state) []models.Mask {
	out := make([]models.Mask, 0, len(st.Masks))
	for _, m := range st.Masks {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID < b.ID
	})
	return out
}

// Count returns the number of user masks.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.Masks)
}

// Lookup returns the mask with id.
func (s *Store) Lookup(id string) (models.Mask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.lookup(id)
	if !ok {
		return models.Mask{}, false
	}
	return m.Clone(), true
}

func (s *Store) lookup(id string) (models.Mask, bool) {
	if id == "" {
		return models.Mask{}, false
	}
	if m, ok := s.st.Masks[id]; ok {
		return m, true
	}
	for _, m := range s.builtin {
		if m.ID == id {
			return m, true
		}
	}
	return models.Mask{}, false
}

// Get returns the selected mask.
func (s *Store) Get() (models.Mask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.lookup(s.st.Selected)
	if !ok {
		return models.Mask{}, false
	}
	return m.Clone(), true
}

// Create stores a new mask built from seed and selects it. Zero fields of
// seed get defaults; the global model configuration is copied in when
// seed.ModelConfig is zero, and in that case the mask starts in sync mode.
func (s *Store) Create(ctx context.Context, seed models.Mask) (models.Mask, error) {
	s.mu.Lock()
	m := seed.Clone()
	m.ID = uuid.NewString()
	m.Builtin = false
	if m.Name == "" {
		m.Name = DefaultName
	}
	if m.Avatar == "" {
		m.Avatar = models.DefaultMaskAvatar
	}
	if m.ModelConfig == (models.ModelConfig{}) {
		m.ModelConfig = s.global()
		m.SyncGlobalConfig = true
	}
	if m.Context == nil {
		m.Context = []models.ChatMessage{}
	}
	assignContextIDs(m.Context)
	if m.CreatedAt == 0 {
		m.CreatedAt = s.now().UnixMilli()
	}
	m.Order = s.nextOrder()

	next := s.copyState()
	next.Masks[m.ID] = m
	next.Selected = m.ID
	if err := s.commit(ctx, next); err != nil {
		s.mu.Unlock()
		return models.Mask{}, err
	}
	s.mu.Unlock()
	s.emit(Event{Kind: EventCreated, ID: m.ID}, Event{Kind: EventSelected, ID: m.ID})
	return m.Clone(), nil
}

// Import stores m as a user mask. It gets a fresh id when it has none or
// its id is taken, and is never builtin.
func (s *Store) Import(ctx context.Context, m models.Mask) (models.Mask, error) {
	s.mu.Lock()
	m = m.Clone()
	if _, taken := s.lookup(m.ID); m.ID == "" || taken {
		m.ID = uuid.NewString()
	}
	m.Builtin = false
	if m.Name == "" {
		m.Name = DefaultName
	}
	if m.Avatar == "" {
		m.Avatar = models.DefaultMaskAvatar
	}
	if m.Context == nil {
		m.Context = []models.ChatMessage{}
	}
	assignContextIDs(m.Context)
	if m.CreatedAt == 0 {
		m.CreatedAt = s.now().UnixMilli()
	}
	m.Order = s.nextOrder()

	next := s.copyState()
	next.Masks[m.ID] = m
	if err := s.commit(ctx, next); err != nil {
		s.mu.Unlock()
		return models.Mask{}, err
	}
	s.mu.Unlock()
	s.emit(Event{Kind: EventCreated, ID: m.ID})
	return m.Clone(), nil
}

// assignContextIDs gives every entry without an id, or with an id already
// used earlier in msgs, a fresh one.
func assignContextIDs(msgs []models.ChatMessage) {
	seen := make(map[string]struct{}, len(msgs))
	for i := range msgs {
		if _, dup := seen[msgs[i].ID]; msgs[i].ID == "" || dup {
			msgs[i].ID = uuid.NewString()
		}
		seen[msgs[i].ID] = struct{}{}
	}
}

// Select makes id the selected mask. Unknown ids are ignored.
func (s *Store) Select(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	if _, ok := s.lookup(id); !ok {
		s.mu.Unlock()
		return false, nil
	}
	if s.st.Selected == id {
		s.mu.Unlock()
		return true, nil
	}
	next := s.copyState()
	next.Selected = id
	if err := s.commit(ctx, next); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.mu.Unlock()
	s.emit(Event{Kind: EventSelected, ID: id})
	return true, nil
}

// UpdateMask applies mut to the mask with id. Unknown ids and builtin masks
// are left alone and reported with ok=false.
func (s *Store) UpdateMask(ctx context.Context, id string, mut Mutator) (models.Mask, bool, error) {
	return s.UpdateMaskIfMatch(ctx, id, "", mut)
}

// UpdateMaskIfMatch is UpdateMask guarded by a revision tag: a non-empty
// ifMatch that differs from the stored revision fails with apperr.ErrConflict.
func (s *Store) UpdateMaskIfMatch(ctx context.Context, id, ifMatch string, mut Mutator) (models.Mask, bool, error) {
	s.mu.Lock()
	cur, ok := s.st.Masks[id]
	if !ok {
		s.mu.Unlock()
		return models.Mask{}, false, nil
	}
	if ifMatch != "" && ifMatch != Revision(cur) {
		s.mu.Unlock()
		return cur.Clone(), true, apperr.ErrConflict
	}
	m := cur.Clone()
	mut.Mutate(&m)
	// Identity and provenance are owned by the store.
	m.ID = cur.ID
	m.Builtin = false
	if m.Context == nil {
		m.Context = []models.ChatMessage{}
	}

	next := s.copyState()
	next.Masks[id] = m
	if err := s.commit(ctx, next); err != nil {
		s.mu.Unlock()
		return cur.Clone(), true, err
	}
	s.mu.Unlock()
	s.emit(Event{Kind: EventUpdated, ID: id})
	return m.Clone(), true, nil
}

// Delete removes the mask with id. When it was selected, selection moves to
// the first remaining mask in GetAll order, or is cleared.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	if _, ok := s.st.Masks[id]; !ok {
		s.mu.Unlock()
		return false, nil
	}
	next := s.copyState()
	delete(next.Masks, id)
	reselected := false
	if next.Selected == id {
		next.Selected = ""
		if all := s.all(next); len(all) > 0 {
			next.Selected = all[0].ID
		}
		reselected = true
	}
	if err := s.commit(ctx, next); err != nil {
		s.mu.Unlock()
		return false, err
	}
	selected := next.Selected
	s.mu.Unlock()

	events := []Event{{Kind: EventDeleted, ID: id}}
	if reselected {
		events = append(events, Event{Kind: EventSelected, ID: selected})
	}
	s.emit(events...)
	return true, nil
}

// Reorder commits a drag result from the mask list. Builtin presets stay
// pinned at the top; user masks are renumbered to match the new order.
func (s *Store) Reorder(ctx context.Context, r dnd.Result) (bool, error) {
	s.mu.Lock()
	all := s.all(s.st)
	ids := make([]string, len(all))
	for i, m := range all {
		ids[i] = m.ID
	}
	from, to, ok := dnd.Resolve(r, ListID, ids)
	if !ok || all[from].Builtin {
		s.mu.Unlock()
		return false, nil
	}
	if to < s.pinned() {
		to = s.pinned()
	}
	if from == to {
		s.mu.Unlock()
		return false, nil
	}
	moved := dnd.Move(all, from, to)[s.pinned():]

	next := s.copyState()
	for i, m := range moved {
		stored := next.Masks[m.ID]
		stored.Order = i
		next.Masks[m.ID] = stored
	}
	if err := s.commit(ctx, next); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.mu.Unlock()
	s.emit(Event{Kind: EventReordered, ID: all[from].ID})
	return true, nil
}

// pinned returns how many builtin presets lead GetAll.
func (s *Store) pinned() int {
	if s.hideBuilt {
		return 0
	}
	return len(s.builtin)
}

func (s *Store) nextOrder() int {
	n := 0
	for _, m := range s.st.Masks {
		if m.Order >= n {
			n = m.Order + 1
		}
	}
	return n
}

// copyState returns a shallow copy of the map; values are replaced, never
// mutated in place.
func (s *Store) copyState() state {
	next := state{Masks: make(map[string]models.Mask, len(s.st.Masks)), Selected: s.st.Selected}
	for k, v := range s.st.Masks {
		next.Masks[k] = v
	}
	return next
}

// commit persists next and makes it current. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next state) error {
	if err := s.slot.Save(ctx, next); err != nil {
		return fmt.Errorf("maskstore: save: %w", err)
	}
	s.st = next
	return nil
}

func (s *Store) emit(events ...Event) {
	for _, ev := range events {
		for _, l := range s.listeners {
			l(ev)
		}
	}
}
