package maskstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/masque/internal/apperr"
	"github.com/starford/masque/internal/dnd"
	"github.com/starford/masque/internal/kvstore"
	"github.com/starford/masque/internal/models"
	"github.com/starford/masque/internal/testutil"
)

func tick() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func openStore(t *testing.T, kv kvstore.Store, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(tick())}, opts...)
	s, err := Open(context.Background(), kv, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func create(t *testing.T, s *Store, name string) models.Mask {
	t.Helper()
	m, err := s.Create(context.Background(), models.Mask{Name: name})
	if err != nil {
		t.Fatalf("Create(%s): %v", name, err)
	}
	return m
}

func names(masks []models.Mask) []string {
	out := make([]string, len(masks))
	for i, m := range masks {
		out[i] = m.Name
	}
	return out
}

func TestCreateDefaultsAndSelects(t *testing.T) {
	global := models.DefaultModelConfig()
	global.Model = "X"
	s := openStore(t, testutil.TestKV(t), WithGlobalConfig(func() models.ModelConfig { return global }))

	m, err := s.Create(context.Background(), models.Mask{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.ID == "" || m.Name != DefaultName || m.Avatar != models.DefaultMaskAvatar {
		t.Errorf("unexpected defaults: %+v", m)
	}
	if !m.SyncGlobalConfig || m.ModelConfig != global {
		t.Errorf("new mask should copy global config in sync mode, got %+v", m)
	}
	if m.Context == nil || len(m.Context) != 0 {
		t.Errorf("context = %v, want empty", m.Context)
	}
	sel, ok := s.Get()
	if !ok || sel.ID != m.ID {
		t.Errorf("selected = %q (%v), want %q", sel.ID, ok, m.ID)
	}
}

func TestGetAllOrder(t *testing.T) {
	builtin, err := ParseBuiltin([]byte("masks:\n  - name: Preset\n"))
	if err != nil {
		t.Fatalf("ParseBuiltin: %v", err)
	}
	s := openStore(t, testutil.TestKV(t), WithBuiltin(builtin))
	create(t, s, "a")
	create(t, s, "b")
	create(t, s, "c")

	if diff := cmp.Diff([]string{"Preset", "a", "b", "c"}, names(s.GetAll())); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if s.Count() != 3 {
		t.Errorf("Count = %d, want 3", s.Count())
	}
}

func TestSelectUnknownIsNoop(t *testing.T) {
	s := openStore(t, testutil.TestKV(t))
	a := create(t, s, "a")

	ok, err := s.Select(context.Background(), "missing")
	if err != nil || ok {
		t.Fatalf("Select(missing) = %v, %v", ok, err)
	}
	if sel, _ := s.Get(); sel.ID != a.ID {
		t.Errorf("selection changed to %q", sel.ID)
	}
}

func TestUpdateMaskAppliesToClone(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, testutil.TestKV(t))
	a := create(t, s, "a")

	var seen *models.Mask
	got, ok, err := s.UpdateMask(ctx, a.ID, MutatorFunc(func(m *models.Mask) {
		seen = m
		m.Name = "renamed"
		m.ID = "hijack"
		m.Builtin = true
	}))
	if err != nil || !ok {
		t.Fatalf("UpdateMask = %v, %v", ok, err)
	}
	if got.ID != a.ID || got.Builtin || got.Name != "renamed" {
		t.Errorf("unexpected result %+v", got)
	}
	seen.Name = "after commit"
	stored, _ := s.Lookup(a.ID)
	if stored.Name != "renamed" {
		t.Errorf("stored mask aliased mutator copy: %q", stored.Name)
	}
}

func TestUpdateUnknownIsNoop(t *testing.T) {
	s := openStore(t, testutil.TestKV(t))
	called := false
	_, ok, err := s.UpdateMask(context.Background(), "missing", MutatorFunc(func(*models.Mask) { called = true }))
	if err != nil || ok || called {
		t.Errorf("UpdateMask(missing) = ok %v, err %v, called %v", ok, err, called)
	}
}

func TestUpdateBuiltinIsNoop(t *testing.T) {
	builtin, _ := ParseBuiltin([]byte("masks:\n  - id: p\n    name: Preset\n"))
	s := openStore(t, testutil.TestKV(t), WithBuiltin(builtin))
	_, ok, err := s.UpdateMask(context.Background(), "p", MutatorFunc(func(m *models.Mask) { m.Name = "x" }))
	if err != nil || ok {
		t.Fatalf("UpdateMask(builtin) = %v, %v", ok, err)
	}
	if m, _ := s.Lookup("p"); m.Name != "Preset" {
		t.Errorf("builtin mutated: %q", m.Name)
	}
	if ok, _ := s.Delete(context.Background(), "p"); ok {
		t.Error("builtin deleted")
	}
}

func TestUpdateIfMatch(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, testutil.TestKV(t))
	a := create(t, s, "a")
	rev := Revision(a)

	if _, _, err := s.UpdateMaskIfMatch(ctx, a.ID, rev, MutatorFunc(func(m *models.Mask) { m.Name = "b" })); err != nil {
		t.Fatalf("first update: %v", err)
	}
	_, _, err := s.UpdateMaskIfMatch(ctx, a.ID, rev, MutatorFunc(func(m *models.Mask) { m.Name = "c" }))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale revision err = %v, want ErrConflict", err)
	}
	if m, _ := s.Lookup(a.ID); m.Name != "b" {
		t.Errorf("name = %q, want b", m.Name)
	}
}

func TestDeleteSelectedReassigns(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, testutil.TestKV(t))
	a := create(t, s, "a")
	create(t, s, "b")
	c := create(t, s, "c")

	if ok, err := s.Delete(ctx, c.ID); !ok || err != nil {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	sel, ok := s.Get()
	if !ok || sel.ID != a.ID {
		t.Errorf("selection = %q, want first remaining %q", sel.ID, a.ID)
	}
}

func TestDeleteOtherKeepsSelection(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, testutil.TestKV(t))
	a := create(t, s, "a")
	b := create(t, s, "b")

	if _, err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if sel, _ := s.Get(); sel.ID != b.ID {
		t.Errorf("selection = %q, want %q", sel.ID, b.ID)
	}
}

func TestDeleteLastClearsSelection(t *testing.T) {
	s := openStore(t, testutil.TestKV(t))
	a := create(t, s, "a")
	if _, err := s.Delete(context.Background(), a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get(); ok {
		t.Error("expected no selection")
	}
}

func TestReorderKeepsBuiltinPinned(t *testing.T) {
	ctx := context.Background()
	builtin, _ := ParseBuiltin([]byte("masks:\n  - name: Preset\n"))
	s := openStore(t, testutil.TestKV(t), WithBuiltin(builtin))
	create(t, s, "a")
	create(t, s, "b")
	c := create(t, s, "c")

	// Drag c above everything, including the preset.
	ok, err := s.Reorder(ctx, dnd.Result{
		ItemID:      c.ID,
		Source:      dnd.Location{ListID: ListID, Index: 3},
		Destination: &dnd.Location{ListID: ListID, Index: 0},
	})
	if err != nil || !ok {
		t.Fatalf("Reorder = %v, %v", ok, err)
	}
	if diff := cmp.Diff([]string{"Preset", "c", "a", "b"}, names(s.GetAll())); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	ok, _ = s.Reorder(ctx, dnd.Result{
		Source:      dnd.Location{ListID: ListID, Index: 0},
		Destination: &dnd.Location{ListID: ListID, Index: 2},
	})
	if ok {
		t.Error("builtin preset moved")
	}
}

func TestImportAssignsFreshID(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, testutil.TestKV(t))
	a := create(t, s, "a")

	in := models.Mask{ID: a.ID, Name: "copy", Builtin: true, Context: []models.ChatMessage{
		{Role: models.RoleUser, Content: models.Text("hi")},
	}}
	got, err := s.Import(ctx, in)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got.ID == a.ID || got.Builtin {
		t.Errorf("import kept id or builtin flag: %+v", got)
	}
	if got.Context[0].ID == "" {
		t.Error("context entry without id")
	}
	if sel, _ := s.Get(); sel.ID != a.ID {
		t.Error("import changed selection")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	kv := testutil.TestKV(t)
	s := openStore(t, kv)
	create(t, s, "a")
	b := create(t, s, "b")
	if _, err := s.Select(ctx, b.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}

	reopened := openStore(t, kv)
	if diff := cmp.Diff([]string{"a", "b"}, names(reopened.GetAll())); diff != "" {
		t.Errorf("masks mismatch (-want +got):\n%s", diff)
	}
	if sel, _ := reopened.Get(); sel.ID != b.ID {
		t.Errorf("selection = %q, want %q", sel.ID, b.ID)
	}
}

func TestListenerReceivesEvents(t *testing.T) {
	ctx := context.Background()
	var got []EventKind
	s := openStore(t, testutil.TestKV(t), WithListener(func(ev Event) { got = append(got, ev.Kind) }))
	a := create(t, s, "a")
	s.UpdateMask(ctx, a.ID, MutatorFunc(func(m *models.Mask) { m.HideContext = true }))
	s.Delete(ctx, a.ID)

	want := []EventKind{EventCreated, EventSelected, EventUpdated, EventDeleted, EventSelected}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBuiltin(t *testing.T) {
	masks, err := ParseBuiltin([]byte(`
masks:
  - name: Shell
    context:
      - role: system
        content: be a shell
    model_config:
      model: m
      temperature: 1
`))
	if err != nil {
		t.Fatalf("ParseBuiltin: %v", err)
	}
	m := masks[0]
	if m.ID != "builtin-1" || !m.Builtin || m.Avatar != models.DefaultMaskAvatar {
		t.Errorf("unexpected preset %+v", m)
	}
	if m.ModelConfig.Model != "m" || m.ModelConfig.Temperature != 1 {
		t.Errorf("model config = %+v", m.ModelConfig)
	}
	if m.Context[0].Role != models.RoleSystem || m.Context[0].Content.TextContent() != "be a shell" {
		t.Errorf("context = %+v", m.Context)
	}

	if _, err := ParseBuiltin([]byte("masks:\n  - name: x\n    context:\n      - role: robot\n")); err == nil {
		t.Error("expected error for invalid role")
	}
}

func TestHideBuiltin(t *testing.T) {
	builtin := []models.Mask{{ID: "preset", Name: "Preset"}}
	s := openStore(t, testutil.TestKV(t), WithBuiltin(builtin), WithHideBuiltin(true))
	a := create(t, s, "a")
	b := create(t, s, "b")

	if diff := cmp.Diff([]string{"a", "b"}, names(s.GetAll())); diff != "" {
		t.Errorf("GetAll mismatch (-want +got):\n%s", diff)
	}
	if _, ok := s.Lookup("preset"); !ok {
		t.Error("hidden builtin should still resolve by id")
	}

	// Indices are relative to the visible list.
	moved, err := s.Reorder(context.Background(), dnd.Result{
		Source:      dnd.Location{ListID: ListID, Index: 1},
		Destination: &dnd.Location{ListID: ListID, Index: 0},
	})
	if err != nil || !moved {
		t.Fatalf("Reorder = %v, %v", moved, err)
	}
	if got := s.GetAll(); got[0].ID != b.ID || got[1].ID != a.ID {
		t.Errorf("order = %v", names(got))
	}
}

func TestCreateAssignsContextIDs(t *testing.T) {
	s := openStore(t, testutil.TestKV(t))
	m, err := s.Create(context.Background(), models.Mask{
		Context: []models.ChatMessage{{Role: models.RoleSystem, Content: models.Text("hi")}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.Context[0].ID == "" {
		t.Error("context entry has no id")
	}
}

func TestImportReplacesDuplicateContextIDs(t *testing.T) {
	s := openStore(t, testutil.TestKV(t))
	m, err := s.Import(context.Background(), models.Mask{
		Name: "dups",
		Context: []models.ChatMessage{
			{ID: "x", Role: models.RoleUser, Content: models.Text("1")},
			{ID: "x", Role: models.RoleUser, Content: models.Text("2")},
			{ID: "x", Role: models.RoleUser, Content: models.Text("3")},
		},
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	seen := map[string]bool{}
	for _, c := range m.Context {
		if seen[c.ID] {
			t.Errorf("duplicate context id %q", c.ID)
		}
		seen[c.ID] = true
	}
	if m.Context[0].ID != "x" {
		t.Errorf("first id = %q, want x kept", m.Context[0].ID)
	}
}
