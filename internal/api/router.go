package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/masque/internal/maskservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *maskservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/masks", func(r chi.Router) {
		r.Get("/", h.ListMasks)
		r.Post("/", h.CreateMask)
		r.Get("/selected", h.SelectedMask)
		r.Post("/import", h.ImportMasks)
		r.Post("/reorder", h.ReorderMasks)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetMask)
			r.Delete("/", h.DeleteMask)
			r.Post("/select", h.SelectMask)
			r.Post("/commands", h.EditMask)
			r.Put("/sync", h.SetSync)
			r.Get("/share", h.ShareMask)
			r.Post("/export", h.ExportMask)
			r.Get("/file", h.DownloadMask)
			r.Post("/chat", h.StartChat)

			r.Post("/context", h.InsertContext)
			r.Post("/context/reorder", h.ReorderContext)
			r.Post("/context/drop", h.DropContext)
			r.Put("/context/{entryID}", h.UpdateContext)
			r.Delete("/context/{entryID}", h.RemoveContext)
		})
	})

	// Sidebar list view-models.
	r.Get("/lists/masks", h.MaskRows)
	r.Post("/lists/masks/drag", h.DragMaskRow)
	r.Post("/lists/masks/{id}/click", h.ClickMask)
	r.Delete("/lists/masks/{id}", h.DeleteMaskRow)
	r.Get("/configs", h.ConfigRows)
	r.Post("/configs/{id}/click", h.ClickConfig)

	r.Get("/sidebar", h.GetSidebar)
	r.Put("/sidebar", h.UpdateSidebar)
	r.Get("/config/global", h.GetGlobalConfig)
	r.Put("/config/global", h.UpdateGlobalConfig)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
