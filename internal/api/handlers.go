package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/masque/internal/maskservice"
	"github.com/starford/masque/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *maskservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *maskservice.Service) *Handler {
	return &Handler{svc: svc}
}

func maskID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func (h *Handler) writeMask(w http.ResponseWriter, status int, m *MaskDetail) {
	setETag(w, m.Revision)
	writeJSON(w, status, m)
}

// ListMasks handles GET /api/masks.
//
//	@Summary		List masks in display order
//	@Tags			masks
//	@Produce		json
//	@Success		200	{object}	MaskListResponse
//	@Security		BearerAuth
//	@Router			/masks [get]
func (h *Handler) ListMasks(w http.ResponseWriter, r *http.Request) {
	masks := h.svc.ListMasks(r.Context())
	writeJSON(w, http.StatusOK, MaskListResponse{Masks: masks, Total: len(masks)})
}

// GetMask handles GET /api/masks/{id}.
//
//	@Summary		Get a single mask
//	@Tags			masks
//	@Produce		json
//	@Param			id	path		string	true	"Mask id"
//	@Success		200	{object}	MaskDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/masks/{id} [get]
func (h *Handler) GetMask(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMask(r.Context(), maskID(r))
	if err != nil {
		writeError(w, "get mask", err)
		return
	}
	h.writeMask(w, http.StatusOK, m)
}

// SelectedMask handles GET /api/masks/selected.
func (h *Handler) SelectedMask(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.SelectedMask(r.Context())
	if err != nil {
		writeError(w, "selected mask", err)
		return
	}
	h.writeMask(w, http.StatusOK, m)
}

// CreateMask handles POST /api/masks.
//
//	@Summary		Create and select a new mask
//	@Tags			masks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateMaskRequest	true	"Mask seed"
//	@Success		201		{object}	MaskDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/masks [post]
func (h *Handler) CreateMask(w http.ResponseWriter, r *http.Request) {
	var req CreateMaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.CreateMask(r.Context(), req.seed())
	if err != nil {
		writeError(w, "create mask", err)
		return
	}
	h.writeMask(w, http.StatusCreated, m)
}

// SelectMask handles POST /api/masks/{id}/select.
func (h *Handler) SelectMask(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.SelectMask(r.Context(), maskID(r))
	if err != nil {
		writeError(w, "select mask", err)
		return
	}
	h.writeMask(w, http.StatusOK, m)
}

// DeleteMask handles DELETE /api/masks/{id}.
//
//	@Summary		Delete a user mask
//	@Tags			masks
//	@Param			id	path	string	true	"Mask id"
//	@Success		204	"Mask deleted"
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/masks/{id} [delete]
func (h *Handler) DeleteMask(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteMask(r.Context(), maskID(r)); err != nil {
		writeError(w, "delete mask", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditMask handles POST /api/masks/{id}/commands.
//
//	@Summary		Apply a batch of edit commands as one edit
//	@Tags			masks
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string		true	"Mask id"
//	@Param			If-Match	header		string		false	"Mask revision for optimistic concurrency"
//	@Param			body		body		EditRequest	true	"Commands"
//	@Success		200			{object}	MaskDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/masks/{id}/commands [post]
func (h *Handler) EditMask(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.edit(w, r, req)
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request, req EditRequest) {
	req.IfMatch = ifMatch(r)
	m, err := h.svc.Edit(r.Context(), maskID(r), req)
	if err != nil {
		writeError(w, "edit mask", err)
		return
	}
	h.writeMask(w, http.StatusOK, m)
}

// SetSync handles PUT /api/masks/{id}/sync. Enabling requires confirm=true;
// an unconfirmed enable leaves the mask unchanged.
func (h *Handler) SetSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.edit(w, r, EditRequest{
		Confirm:  req.Confirm,
		Commands: []maskservice.Command{{Op: maskservice.OpSetSync, Value: &req.Enabled}},
	})
}

// InsertContext handles POST /api/masks/{id}/context.
func (h *Handler) InsertContext(w http.ResponseWriter, r *http.Request) {
	var req ContextEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.edit(w, r, EditRequest{Commands: []maskservice.Command{
		{Op: maskservice.OpContextInsert, Entry: &req.Entry, At: req.At},
	}})
}

// UpdateContext handles PUT /api/masks/{id}/context/{entryID}.
func (h *Handler) UpdateContext(w http.ResponseWriter, r *http.Request) {
	var req ContextEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.edit(w, r, EditRequest{Commands: []maskservice.Command{
		{Op: maskservice.OpContextUpdate, ID: chi.URLParam(r, "entryID"), Entry: &req.Entry},
	}})
}

// RemoveContext handles DELETE /api/masks/{id}/context/{entryID}.
func (h *Handler) RemoveContext(w http.ResponseWriter, r *http.Request) {
	h.edit(w, r, EditRequest{Commands: []maskservice.Command{
		{Op: maskservice.OpContextRemove, ID: chi.URLParam(r, "entryID")},
	}})
}

// ReorderContext handles POST /api/masks/{id}/context/reorder.
func (h *Handler) ReorderContext(w http.ResponseWriter, r *http.Request) {
	var req ContextReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.ReorderContext(r.Context(), maskID(r), ifMatch(r), req.From, req.To)
	if err != nil {
		writeError(w, "reorder context", err)
		return
	}
	h.writeMask(w, http.StatusOK, m)
}

// DropContext handles POST /api/masks/{id}/context/drop.
func (h *Handler) DropContext(w http.ResponseWriter, r *http.Request) {
	var req DragResult
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.DropContext(r.Context(), maskID(r), ifMatch(r), req)
	if err != nil {
		writeError(w, "drop context", err)
		return
	}
	h.writeMask(w, http.StatusOK, m)
}

// ShareMask handles GET /api/masks/{id}/share.
//
//	@Summary		Get the deep link that opens a new chat with the mask
//	@Tags			masks
//	@Produce		json
//	@Param			id	path		string	true	"Mask id"
//	@Success		200	{object}	ShareResponse
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/masks/{id}/share [get]
func (h *Handler) ShareMask(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.ShareMask(r.Context(), maskID(r))
	if err != nil {
		writeError(w, "share mask", err)
		return
	}
	writeJSON(w, http.StatusOK, ShareResponse{Link: link})
}

// ExportMask handles POST /api/masks/{id}/export, writing the mask file into
// the export directory.
func (h *Handler) ExportMask(w http.ResponseWriter, r *http.Request) {
	name, err := h.svc.ExportMask(r.Context(), maskID(r))
	if err != nil {
		writeError(w, "export mask", err)
		return
	}
	writeJSON(w, http.StatusOK, ExportResponse{Filename: name})
}

// DownloadMask handles GET /api/masks/{id}/file.
func (h *Handler) DownloadMask(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.svc.MaskFile(r.Context(), maskID(r))
	if err != nil {
		writeError(w, "download mask", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ImportMasks handles POST /api/masks/import. The body is a mask file: one
// mask object or an array of masks.
//
//	@Summary		Import masks from a mask file
//	@Tags			masks
//	@Accept			json
//	@Produce		json
//	@Success		201	{object}	MaskListResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/masks/import [post]
func (h *Handler) ImportMasks(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	masks, err := h.svc.ImportMasks(r.Context(), body)
	if err != nil {
		writeError(w, "import masks", err)
		return
	}
	writeJSON(w, http.StatusCreated, MaskListResponse{Masks: masks, Total: len(masks)})
}

// ReorderMasks handles POST /api/masks/reorder.
func (h *Handler) ReorderMasks(w http.ResponseWriter, r *http.Request) {
	var req DragResult
	if !decodeJSON(w, r, &req) {
		return
	}
	masks, err := h.svc.ReorderMasks(r.Context(), req)
	if err != nil {
		writeError(w, "reorder masks", err)
		return
	}
	writeJSON(w, http.StatusOK, MaskListResponse{Masks: masks, Total: len(masks)})
}

// StartChat handles POST /api/masks/{id}/chat.
func (h *Handler) StartChat(w http.ResponseWriter, r *http.Request) {
	route, err := h.svc.StartChat(r.Context(), maskID(r))
	if err != nil {
		writeError(w, "start chat", err)
		return
	}
	writeJSON(w, http.StatusOK, RouteResponse{Route: route})
}

// GetSidebar handles GET /api/sidebar.
func (h *Handler) GetSidebar(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Sidebar(r.Context()))
}

// UpdateSidebar handles PUT /api/sidebar.
//
//	@Summary		Switch the active sidebar tab
//	@Tags			sidebar
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.SidebarConfig	true	"Sidebar preference"
//	@Success		200		{object}	models.SidebarConfig
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sidebar [put]
func (h *Handler) UpdateSidebar(w http.ResponseWriter, r *http.Request) {
	var req models.SidebarConfig
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.SetActiveTab(r.Context(), req.ActiveTab); err != nil {
		writeError(w, "update sidebar", err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Sidebar(r.Context()))
}

// GetGlobalConfig handles GET /api/config/global.
func (h *Handler) GetGlobalConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GlobalConfig(r.Context()))
}

// UpdateGlobalConfig handles PUT /api/config/global. Masks already synced
// keep the copy they took.
func (h *Handler) UpdateGlobalConfig(w http.ResponseWriter, r *http.Request) {
	var req models.ModelConfig
	if !decodeJSON(w, r, &req) {
		return
	}
	cfg, err := h.svc.UpdateGlobalConfig(r.Context(), req)
	if err != nil {
		writeError(w, "update global config", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
