package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/masque/internal/collab"
	"github.com/starford/masque/internal/dnd"
	"github.com/starford/masque/internal/globalconfig"
	"github.com/starford/masque/internal/maskservice"
	"github.com/starford/masque/internal/maskstore"
	"github.com/starford/masque/internal/models"
	"github.com/starford/masque/internal/sidebar"
	"github.com/starford/masque/internal/storage"
	"github.com/starford/masque/internal/testutil"
)

const builtinYAML = `
masks:
  - id: preset
    name: Preset
    context:
      - role: system
        content: You are a preset.
`

// testEnv sets up stores, a service with a file exporter, and the router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string, opts ...maskservice.Option) (*maskservice.Service, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken, nil, opts...)
}

func testEnvWithSSE(t *testing.T, authToken string, sseHandler http.Handler, opts ...maskservice.Option) (*maskservice.Service, http.Handler) {
	t.Helper()
	ctx := context.Background()

	kv := testutil.TestKV(t)
	global, err := globalconfig.Open(ctx, kv, models.DefaultModelConfig())
	if err != nil {
		t.Fatalf("globalconfig.Open: %v", err)
	}
	builtin, err := maskstore.ParseBuiltin([]byte(builtinYAML))
	if err != nil {
		t.Fatalf("ParseBuiltin: %v", err)
	}
	masks, err := maskstore.Open(ctx, kv,
		maskstore.WithBuiltin(builtin),
		maskstore.WithGlobalConfig(global.ModelConfig))
	if err != nil {
		t.Fatalf("maskstore.Open: %v", err)
	}
	side, err := sidebar.Open(ctx, kv)
	if err != nil {
		t.Fatalf("sidebar.Open: %v", err)
	}
	exports, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	opts = append([]maskservice.Option{
		maskservice.WithExporter(collab.NewFileExporter(exports)),
		maskservice.WithShareBase("https://chat.example.com"),
	}, opts...)
	svc := maskservice.New(masks, side, global, opts...)
	return svc, NewRouter(svc, authToken != "", authToken, sseHandler)
}

func do(t *testing.T, router http.Handler, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createMask(t *testing.T, router http.Handler, name string) MaskDetail {
	t.Helper()
	w := do(t, router, http.MethodPost, "/masks", CreateMaskRequest{Name: name})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var m MaskDetail
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCreateAndGetMask(t *testing.T) {
	_, router := testEnv(t, "")

	created := createMask(t, router, "Poet")
	if !created.Selected || created.ModelConfig.Model != "gpt-4o-mini" || !created.SyncGlobalConfig {
		t.Errorf("unexpected created mask %+v", created)
	}

	w := do(t, router, http.MethodGet, "/masks/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if etag := w.Header().Get("ETag"); etag != `"`+created.Revision+`"` {
		t.Errorf("ETag = %q, want quoted %q", etag, created.Revision)
	}

	w = do(t, router, http.MethodGet, "/masks/selected", nil)
	var sel MaskDetail
	_ = json.Unmarshal(w.Body.Bytes(), &sel)
	if sel.ID != created.ID {
		t.Errorf("selected = %q, want %q", sel.ID, created.ID)
	}
}

func TestListMasks(t *testing.T) {
	_, router := testEnv(t, "")
	createMask(t, router, "a")

	w := do(t, router, http.MethodGet, "/masks", nil)
	var resp MaskListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || resp.Masks[0].ID != "preset" || !resp.Masks[0].Readonly {
		t.Errorf("unexpected list %+v", resp)
	}
}

func TestGetMask_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/masks/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreateMask_Invalid(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/masks", []byte("{"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPost, "/masks", CreateMaskRequest{
		ModelConfig: &models.ModelConfig{Model: "m", TopP: 3},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid config = %d, want 400", w.Code)
	}
}

func TestEditWithIfMatch(t *testing.T) {
	_, router := testEnv(t, "")
	m := createMask(t, router, "a")

	edit := EditRequest{Commands: []maskservice.Command{{Op: maskservice.OpSetName, Name: "b"}}}
	w := do(t, router, http.MethodPost, "/masks/"+m.ID+"/commands", edit, "If-Match", `"`+m.Revision+`"`)
	if w.Code != http.StatusOK {
		t.Fatalf("edit = %d, body = %s", w.Code, w.Body.String())
	}
	var got MaskDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Name != "b" || got.Revision == m.Revision {
		t.Errorf("unexpected edit result %+v", got)
	}

	// Stale revision.
	w = do(t, router, http.MethodPost, "/masks/"+m.ID+"/commands", edit, "If-Match", m.Revision)
	if w.Code != http.StatusConflict {
		t.Errorf("stale edit = %d, want 409", w.Code)
	}

	// Without If-Match the edit is unconditional.
	w = do(t, router, http.MethodPost, "/masks/"+m.ID+"/commands", edit)
	if w.Code != http.StatusOK {
		t.Errorf("unconditional edit = %d", w.Code)
	}
}

func TestEditWithWeakIfMatch(t *testing.T) {
	_, router := testEnv(t, "")
	m := createMask(t, router, "a")

	edit := EditRequest{Commands: []maskservice.Command{{Op: maskservice.OpSetName, Name: "b"}}}
	w := do(t, router, http.MethodPost, "/masks/"+m.ID+"/commands", edit, "If-Match", `W/"`+m.Revision+`"`)
	if w.Code != http.StatusOK {
		t.Fatalf("weak If-Match edit = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestEditUnknownOp(t *testing.T) {
	_, router := testEnv(t, "")
	m := createMask(t, router, "a")
	w := do(t, router, http.MethodPost, "/masks/"+m.ID+"/commands",
		EditRequest{Commands: []maskservice.Command{{Op: "explode"}}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestContextEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	m := createMask(t, router, "a")
	base := "/masks/" + m.ID + "/context"

	for _, text := range []string{"one", "two"} {
		w := do(t, router, http.MethodPost, base, ContextEntryRequest{
			Entry: models.ChatMessage{Role: models.RoleUser, Content: models.Text(text)},
			At:    99,
		})
		if w.Code != http.StatusOK {
			t.Fatalf("insert = %d, body = %s", w.Code, w.Body.String())
		}
	}

	w := do(t, router, http.MethodPost, base+"/reorder", ContextReorderRequest{From: 1, To: 0})
	var got MaskDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Context) != 2 || got.Context[0].Content.TextContent() != "two" {
		t.Fatalf("after reorder: %+v", got.Context)
	}

	first := got.Context[0]
	w = do(t, router, http.MethodPut, base+"/"+first.ID, ContextEntryRequest{
		Entry: models.ChatMessage{ID: first.ID, Role: models.RoleAssistant, Content: models.Text("2")},
	})
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Context[0].Role != models.RoleAssistant || got.Context[0].Content.TextContent() != "2" {
		t.Errorf("after update: %+v", got.Context[0])
	}

	w = do(t, router, http.MethodDelete, base+"/"+first.ID, nil)
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Context) != 1 || got.Context[0].Content.TextContent() != "one" {
		t.Errorf("after remove: %+v", got.Context)
	}
}

func TestSyncEndpoint(t *testing.T) {
	_, router := testEnv(t, "", maskservice.WithSyncSupported(true))
	w := do(t, router, http.MethodPost, "/masks", CreateMaskRequest{
		ModelConfig: &models.ModelConfig{Model: "own", TopP: 1},
	})
	var m MaskDetail
	_ = json.Unmarshal(w.Body.Bytes(), &m)

	w = do(t, router, http.MethodPut, "/masks/"+m.ID+"/sync", SyncRequest{Enabled: true})
	var got MaskDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.SyncGlobalConfig || got.ModelConfig.Model != "own" {
		t.Errorf("unconfirmed sync changed the mask: %+v", got.Mask)
	}

	w = do(t, router, http.MethodPut, "/masks/"+m.ID+"/sync", SyncRequest{Enabled: true, Confirm: true})
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if !got.SyncGlobalConfig || got.ModelConfig != models.DefaultModelConfig() {
		t.Errorf("confirmed sync = %+v", got.Mask)
	}

	w = do(t, router, http.MethodGet, "/masks/"+m.ID+"/share", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("share in sync mode = %d, want 409", w.Code)
	}
}

func TestSyncEndpoint_Unsupported(t *testing.T) {
	_, router := testEnv(t, "")
	m := createMask(t, router, "a")
	w := do(t, router, http.MethodPut, "/masks/"+m.ID+"/sync", SyncRequest{Enabled: false})
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

func TestShareExportDownload(t *testing.T) {
	_, router := testEnv(t, "")
	m := createMask(t, router, "Poet")

	w := do(t, router, http.MethodGet, "/masks/"+m.ID+"/share", nil)
	var share ShareResponse
	_ = json.Unmarshal(w.Body.Bytes(), &share)
	if share.Link != "https://chat.example.com/#/new-chat?mask="+m.ID {
		t.Errorf("link = %q", share.Link)
	}

	w = do(t, router, http.MethodPost, "/masks/"+m.ID+"/export", nil)
	var exp ExportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &exp)
	if w.Code != http.StatusOK || exp.Filename != "Poet.json" {
		t.Errorf("export = %d, %+v", w.Code, exp)
	}

	w = do(t, router, http.MethodGet, "/masks/"+m.ID+"/file", nil)
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="Poet.json"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	// Round trip through import yields a new mask with a fresh id.
	w = do(t, router, http.MethodPost, "/masks/import", w.Body.Bytes())
	if w.Code != http.StatusCreated {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	var imported MaskListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &imported)
	if imported.Total != 1 || imported.Masks[0].ID == m.ID || imported.Masks[0].Name != "Poet" {
		t.Errorf("imported = %+v", imported)
	}
}

func TestDeleteMask(t *testing.T) {
	_, router := testEnv(t, "")
	m := createMask(t, router, "a")

	w := do(t, router, http.MethodDelete, "/masks/preset", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("delete builtin = %d, want 403", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/masks/"+m.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/masks/"+m.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestStartChat(t *testing.T) {
	svc, router := testEnv(t, "")
	m := createMask(t, router, "a")

	w := do(t, router, http.MethodPost, "/masks/"+m.ID+"/chat", nil)
	var resp RouteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Route != collab.RouteChat {
		t.Errorf("route = %q", resp.Route)
	}
	if tab := svc.Sidebar(context.Background()).ActiveTab; tab != models.TabChat {
		t.Errorf("active tab = %q", tab)
	}
}

func TestMaskListEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	a := createMask(t, router, "a")
	b := createMask(t, router, "b")

	w := do(t, router, http.MethodGet, "/lists/masks?narrow=true", nil)
	var rows MaskRowsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &rows)
	if len(rows.Rows) != 3 || !rows.Rows[0].IconOnly || rows.Rows[0].Count != "" {
		t.Errorf("narrow rows = %+v", rows.Rows)
	}

	w = do(t, router, http.MethodPost, "/lists/masks/drag", dnd.Result{
		ItemID:      b.ID,
		BeforeID:    a.ID,
		Source:      dnd.Location{ListID: maskstore.ListID, Index: 2},
		Destination: &dnd.Location{ListID: maskstore.ListID, Index: 1},
	})
	var drag ListDragResponse
	_ = json.Unmarshal(w.Body.Bytes(), &drag)
	if !drag.Moved || drag.Rows[1].ID != b.ID || drag.Rows[2].ID != a.ID {
		t.Errorf("drag = %+v", drag)
	}

	w = do(t, router, http.MethodDelete, "/lists/masks/"+a.ID+"?mobile=true", nil)
	var del ListDeleteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &del)
	if del.Deleted {
		t.Error("unconfirmed mobile delete went through")
	}
	w = do(t, router, http.MethodDelete, "/lists/masks/"+a.ID+"?mobile=true&confirm=true", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &del)
	if !del.Deleted {
		t.Error("confirmed mobile delete did not go through")
	}

	w = do(t, router, http.MethodPost, "/lists/masks/"+b.ID+"/click", nil)
	var route RouteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &route)
	if route.Route != collab.RouteMasks {
		t.Errorf("click route = %q", route.Route)
	}
}

func TestConfigListEndpoints(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/configs", nil)
	var rows ConfigRowsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &rows)
	if len(rows.Rows) != 1 || rows.Rows[0].Title != "General" {
		t.Errorf("rows = %+v", rows.Rows)
	}
	w = do(t, router, http.MethodPost, "/configs/general/click", nil)
	if !strings.Contains(w.Body.String(), collab.RouteSettings) {
		t.Errorf("click body = %s", w.Body.String())
	}
}

func TestSidebarAndGlobalConfig(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/sidebar", models.SidebarConfig{ActiveTab: models.TabMask})
	if w.Code != http.StatusOK {
		t.Fatalf("sidebar = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/sidebar", nil)
	if !strings.Contains(w.Body.String(), `"activeTab":"mask"`) {
		t.Errorf("sidebar body = %s", w.Body.String())
	}
	w = do(t, router, http.MethodPut, "/sidebar", models.SidebarConfig{ActiveTab: "nope"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad tab = %d, want 400", w.Code)
	}

	cfg := models.DefaultModelConfig()
	cfg.Model = "other"
	w = do(t, router, http.MethodPut, "/config/global", cfg)
	if w.Code != http.StatusOK {
		t.Fatalf("global config = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/config/global", nil)
	var got models.ModelConfig
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got != cfg {
		t.Errorf("global config = %+v", got)
	}
}

// Auth middleware tests.

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/masks", nil, "Authorization", "Bearer secret")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/masks", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	w := do(t, router, http.MethodGet, "/masks", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// sseStub writes headers and blocks until the request context is done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, "tok", sseStub)
	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE without token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
