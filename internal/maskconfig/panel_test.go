package maskconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/masque/internal/apperr"
	"github.com/starford/masque/internal/collab"
	"github.com/starford/masque/internal/maskstore"
	"github.com/starford/masque/internal/models"
	"github.com/starford/masque/internal/promptlist"
	"github.com/starford/masque/internal/sidebar"
	"github.com/starford/masque/internal/testutil"
)

func globalX() models.ModelConfig {
	return models.ModelConfig{Model: "X", Temperature: 0.5}
}

func setup(t *testing.T) (*maskstore.Store, models.Mask) {
	t.Helper()
	s, err := maskstore.Open(context.Background(), testutil.TestKV(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	own := models.DefaultModelConfig()
	own.Model = "own"
	m, err := s.Create(context.Background(), models.Mask{Name: "m", ModelConfig: own})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return s, m
}

func TestEnableSyncCopiesGlobal(t *testing.T) {
	s, m := setup(t)
	p := New(s, m.ID,
		WithSyncSupported(true),
		WithGlobalConfig(globalX),
		WithConfirmer(&collab.StaticConfirmer{Answer: true}))

	got, err := p.SetSync(context.Background(), true)
	if err != nil {
		t.Fatalf("SetSync: %v", err)
	}
	if !got.SyncGlobalConfig {
		t.Error("sync flag not set")
	}
	if diff := cmp.Diff(globalX(), got.ModelConfig); diff != "" {
		t.Errorf("model config mismatch (-want +got):\n%s", diff)
	}
}

func TestDeclinedSyncChangesNothing(t *testing.T) {
	s, m := setup(t)
	confirm := &collab.StaticConfirmer{Answer: false}
	p := New(s, m.ID, WithSyncSupported(true), WithGlobalConfig(globalX), WithConfirmer(confirm))

	got, err := p.SetSync(context.Background(), true)
	if err != nil {
		t.Fatalf("SetSync: %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("mask changed (-want +got):\n%s", diff)
	}
	if len(confirm.Asked()) != 1 {
		t.Errorf("confirmer asked %d times, want 1", len(confirm.Asked()))
	}
}

func TestDisableSyncKeepsConfig(t *testing.T) {
	s, _ := setup(t)
	m, _ := s.Create(context.Background(), models.Mask{Name: "synced"})
	p := New(s, m.ID, WithSyncSupported(true))

	got, err := p.SetSync(context.Background(), false)
	if err != nil {
		t.Fatalf("SetSync: %v", err)
	}
	if got.SyncGlobalConfig || got.ModelConfig != m.ModelConfig {
		t.Errorf("unexpected mask %+v", got)
	}
}

func TestSetSyncUnsupported(t *testing.T) {
	s, m := setup(t)
	if _, err := New(s, m.ID).SetSync(context.Background(), true); !errors.Is(err, apperr.ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestModelConfigEditClearsSync(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)
	m, _ := s.Create(ctx, models.Mask{Name: "synced"})
	p := New(s, m.ID)

	got, err := p.UpdateModelConfig(ctx, func(c *models.ModelConfig) { c.Temperature = 1.2 })
	if err != nil {
		t.Fatalf("UpdateModelConfig: %v", err)
	}
	if got.SyncGlobalConfig {
		t.Error("model config edit should clear sync")
	}
	if got.ModelConfig.Temperature != 1.2 {
		t.Errorf("temperature = %v", got.ModelConfig.Temperature)
	}
}

func TestModelConfigEditRejectsInvalid(t *testing.T) {
	s, m := setup(t)
	_, err := New(s, m.ID).UpdateModelConfig(context.Background(), func(c *models.ModelConfig) { c.TopP = 3 })
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestHideContextKeepsSync(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)
	m, _ := s.Create(ctx, models.Mask{Name: "synced"})

	got, err := New(s, m.ID).SetHideContext(ctx, true)
	if err != nil {
		t.Fatalf("SetHideContext: %v", err)
	}
	if !got.HideContext || !got.SyncGlobalConfig {
		t.Errorf("hideContext=%v sync=%v, want both true", got.HideContext, got.SyncGlobalConfig)
	}
}

func TestFieldEdits(t *testing.T) {
	ctx := context.Background()
	s, m := setup(t)
	p := New(s, m.ID)

	if _, err := p.SetAvatar(ctx, "1f600"); err != nil {
		t.Fatalf("SetAvatar: %v", err)
	}
	got, err := p.SetName(ctx, "Poet")
	if err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if got.Avatar != "1f600" || got.Name != "Poet" {
		t.Errorf("unexpected mask %+v", got)
	}
}

func TestContextEditorCommits(t *testing.T) {
	ctx := context.Background()
	s, m := setup(t)
	p := New(s, m.ID)

	if err := p.Context().AddBlank(ctx); err != nil {
		t.Fatalf("AddBlank: %v", err)
	}
	if err := p.Context().InsertAfter(ctx, 0); err != nil {
		t.Fatalf("InsertAfter: %v", err)
	}
	got, _ := p.Mask()
	if len(got.Context) != 2 || got.Context[0].Date != "" || got.Context[1].Date == "" {
		t.Errorf("context = %+v", got.Context)
	}

	bad := promptlist.InsertCommand{Entry: models.ChatMessage{Role: "robot"}}
	if _, err := p.EditContext(ctx, bad); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestReadonlyIgnoresEdits(t *testing.T) {
	ctx := context.Background()
	s, m := setup(t)
	p := New(s, m.ID, WithReadonly(true), WithSyncSupported(true),
		WithConfirmer(&collab.StaticConfirmer{Answer: true}))

	p.SetName(ctx, "x")
	p.SetHideContext(ctx, true)
	p.UpdateModelConfig(ctx, func(c *models.ModelConfig) { c.Model = "y" })
	p.SetSync(ctx, true)
	p.Context().AddBlank(ctx)

	got, _ := p.Mask()
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("read-only mask changed (-want +got):\n%s", diff)
	}
	if !p.Readonly() {
		t.Error("Readonly() = false")
	}
}

func TestShare(t *testing.T) {
	s, m := setup(t)
	clip := &collab.MemoryClipboard{}
	p := New(s, m.ID, WithShareBase("https://chat.example.com/"), WithClipboard(clip))

	link, err := p.Share(context.Background())
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	want := "https://chat.example.com/#/new-chat?mask=" + m.ID
	if link != want || clip.Text() != want {
		t.Errorf("link = %q, clipboard = %q, want %q", link, clip.Text(), want)
	}

	synced := New(s, m.ID, WithSyncSupported(true))
	if _, err := synced.Share(context.Background()); !errors.Is(err, apperr.ErrSyncMode) {
		t.Errorf("err = %v, want ErrSyncMode", err)
	}
}

func TestExport(t *testing.T) {
	s, m := setup(t)
	_, dir := testutil.TestDir(t, "exports")
	p := New(s, m.ID, WithExporter(collab.NewFileExporter(dir)))

	name, err := p.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if name != "m.json" {
		t.Errorf("name = %q", name)
	}
	if _, err := dir.Read(name); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}

func TestExportFilename(t *testing.T) {
	cases := map[string]string{
		"Translator": "Translator.json",
		"a/b":        "a_b.json",
		"  ":         "mask.json",
		"..":         "mask.json",
	}
	for in, want := range cases {
		if got := ExportFilename(models.Mask{Name: in}); got != want {
			t.Errorf("ExportFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStartChat(t *testing.T) {
	ctx := context.Background()
	s, m := setup(t)
	kv := testutil.TestKV(t)
	side, err := sidebar.Open(ctx, kv)
	if err != nil {
		t.Fatalf("sidebar.Open: %v", err)
	}
	if err := side.SetActiveTab(ctx, models.TabMask); err != nil {
		t.Fatalf("SetActiveTab: %v", err)
	}
	nav := collab.NewHistory(collab.RouteMasks)
	p := New(s, m.ID, WithSidebar(side), WithNavigator(nav))

	if err := p.StartChat(ctx); err != nil {
		t.Fatalf("StartChat: %v", err)
	}
	if side.Get().ActiveTab != models.TabChat {
		t.Errorf("active tab = %q", side.Get().ActiveTab)
	}
	if nav.Current() != collab.RouteChat {
		t.Errorf("route = %q", nav.Current())
	}
	p.Close()
	if nav.Current() != collab.RouteMasks {
		t.Errorf("route after close = %q", nav.Current())
	}
}

func TestIfMatchChainsRevisions(t *testing.T) {
	ctx := context.Background()
	s, m := setup(t)
	p := New(s, m.ID, WithIfMatch(maskstore.Revision(m)))

	if _, err := p.SetName(ctx, "a"); err != nil {
		t.Fatalf("first edit: %v", err)
	}
	if _, err := p.SetName(ctx, "b"); err != nil {
		t.Fatalf("second edit: %v", err)
	}

	stale := New(s, m.ID, WithIfMatch(maskstore.Revision(m)))
	if _, err := stale.SetName(ctx, "c"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestUnknownMask(t *testing.T) {
	s, _ := setup(t)
	if _, err := New(s, "missing").SetName(context.Background(), "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestApplyBatchIsSingleEdit(t *testing.T) {
	ctx := context.Background()
	s, m := setup(t)
	p := New(s, m.ID, WithIfMatch(maskstore.Revision(m)))

	got, err := p.Apply(ctx,
		SetName{Name: "batched"},
		nil,
		EditContext{Cmd: promptlist.AddBlankCommand{}},
		SetHideContext{Hide: true},
	)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Name != "batched" || len(got.Context) != 1 || !got.HideContext {
		t.Errorf("unexpected mask %+v", got)
	}
	if p.Revision() != maskstore.Revision(got) {
		t.Error("panel revision not advanced")
	}
}
