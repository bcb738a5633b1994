package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/masque/internal/maskservice"
)

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// layout reads the client layout from ?narrow=&mobile=&confirm=.
func layout(r *http.Request) maskservice.ListLayout {
	return maskservice.ListLayout{
		Narrow:  queryBool(r, "narrow"),
		Mobile:  queryBool(r, "mobile"),
		Confirm: queryBool(r, "confirm"),
	}
}

// MaskRows handles GET /api/lists/masks.
//
//	@Summary		Mask list view-model
//	@Tags			lists
//	@Produce		json
//	@Param			narrow	query		bool	false	"Icon-only sidebar"
//	@Success		200		{object}	MaskRowsResponse
//	@Security		BearerAuth
//	@Router			/lists/masks [get]
func (h *Handler) MaskRows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MaskRowsResponse{Rows: h.svc.MaskRows(r.Context(), layout(r))})
}

// ClickMask handles POST /api/lists/masks/{id}/click.
func (h *Handler) ClickMask(w http.ResponseWriter, r *http.Request) {
	route, err := h.svc.ClickMask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "click mask", err)
		return
	}
	writeJSON(w, http.StatusOK, RouteResponse{Route: route})
}

// DeleteMaskRow handles DELETE /api/lists/masks/{id}. Narrow and mobile
// layouts need confirm=true.
func (h *Handler) DeleteMaskRow(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteFromList(r.Context(), chi.URLParam(r, "id"), layout(r))
	if err != nil {
		writeError(w, "delete mask row", err)
		return
	}
	writeJSON(w, http.StatusOK, ListDeleteResponse{Deleted: deleted})
}

// DragMaskRow handles POST /api/lists/masks/drag.
func (h *Handler) DragMaskRow(w http.ResponseWriter, r *http.Request) {
	var req DragResult
	if !decodeJSON(w, r, &req) {
		return
	}
	moved, err := h.svc.DragEndMasks(r.Context(), req)
	if err != nil {
		writeError(w, "drag mask row", err)
		return
	}
	writeJSON(w, http.StatusOK, ListDragResponse{
		Moved: moved,
		Rows:  h.svc.MaskRows(r.Context(), layout(r)),
	})
}

// ConfigRows handles GET /api/configs.
func (h *Handler) ConfigRows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConfigRowsResponse{Rows: h.svc.ConfigRows(r.Context(), queryBool(r, "narrow"))})
}

// ClickConfig handles POST /api/configs/{id}/click.
func (h *Handler) ClickConfig(w http.ResponseWriter, r *http.Request) {
	route, err := h.svc.ClickConfig(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "click config", err)
		return
	}
	writeJSON(w, http.StatusOK, RouteResponse{Route: route})
}
