package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/avolkv/canvora/models"
)

type canvasResponse struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	OwnerId string `json:"ownerId"`
	Created int64  `json:"created"`
	Updated int64  `json:"updated"`
}

func toCanvasResponse(canvas models.Canvas) canvasResponse {
	return canvasResponse{
		Id:      canvas.Id,
		Name:    canvas.Name,
		OwnerId: canvas.OwnerId,
		Created: canvas.Created,
		Updated: canvas.Updated,
	}
}

type createCanvasRequest struct {
	Name string `json:"name"`
}

func (h *Handler) HandleCreateCanvas(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req createCanvasRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	canvas, err := h.Service.CreateCanvas(r.Context(), user, req.Name)
	if err != nil {
		h.sendError(w, err, "failed to create canvas")
		return
	}

	w.WriteHeader(http.StatusCreated)
	h.sendResponse(w, toCanvasResponse(canvas))
}

func (h *Handler) HandleListCanvases(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	canvases, err := h.Service.ListCanvases(r.Context(), user)
	if err != nil {
		h.sendError(w, err, "failed to list canvases")
		return
	}

	resp := make([]canvasResponse, 0, len(canvases))
	for _, canvas := range canvases {
		resp = append(resp, toCanvasResponse(canvas))
	}
	h.sendResponse(w, resp)
}

func (h *Handler) HandleGetCanvas(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	canvas, role, err := h.Service.ResolveCanvas(r.Context(), r.PathValue("id"), user)
	if err != nil {
		h.sendError(w, err, "failed to load canvas")
		return
	}

	resp := struct {
		canvasResponse
		Role string `json:"role"`
	}{toCanvasResponse(canvas), role.String()}
	h.sendResponse(w, resp)
}

type renameCanvasRequest struct {
	Name string `json:"name"`
}

func (h *Handler) HandleRenameCanvas(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req renameCanvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	canvas, err := h.Service.RenameCanvas(r.Context(), user, r.PathValue("id"), req.Name)
	if err != nil {
		h.sendError(w, err, "failed to rename canvas")
		return
	}

	h.sendResponse(w, toCanvasResponse(canvas))
}

func (h *Handler) HandleDeleteCanvas(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteCanvas(r.Context(), user, r.PathValue("id")); err != nil {
		h.sendError(w, err, "failed to delete canvas")
		return
	}

	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) HandleGetCanvasData(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	content, err := h.Service.CanvasContent(r.Context(), user, r.PathValue("id"))
	if err != nil {
		h.sendError(w, err, "failed to load canvas data")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(content)
}

const maxCanvasDataBytes = 1024 * 1024 * 4

func (h *Handler) HandlePutCanvasData(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	content, err := io.ReadAll(io.LimitReader(r.Body, maxCanvasDataBytes+1))
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(content) > maxCanvasDataBytes {
		http.Error(w, "canvas data too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := h.Service.SaveCanvasContent(r.Context(), user, r.PathValue("id"), content); err != nil {
		h.sendError(w, err, "failed to save canvas data")
		return
	}

	h.sendResponse(w, successResponse{Success: true})
}
