package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/avolkv/canvora/models"
)

type invitationResponse struct {
	Id           string `json:"id"`
	CanvasId     string `json:"canvasId"`
	Token        string `json:"token"`
	InviteeEmail string `json:"inviteeEmail,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"`
	Status       string `json:"status"`
	JoinCount    int    `json:"joinCount"`
	Created      int64  `json:"created"`
}

func toInvitationResponse(inv models.Invitation, now time.Time) invitationResponse {
	return invitationResponse{
		Id:           inv.Id,
		CanvasId:     inv.CanvasId,
		Token:        inv.Token,
		InviteeEmail: inv.InviteeEmail,
		ExpiresAt:    inv.ExpiresAt,
		Status:       string(inv.Status(now)),
		JoinCount:    inv.JoinCount,
		Created:      inv.Created,
	}
}

type issueInvitationRequest struct {
	InviteeEmail    string `json:"invitee_email"`
	Validity        string `json:"validity"`
	CustomExpiresAt int64  `json:"custom_expires_at"`
}

func (h *Handler) HandleIssueInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req issueInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	inv, err := h.Service.IssueInvitation(r.Context(), user, r.PathValue("id"), req.InviteeEmail, req.Validity, req.CustomExpiresAt)
	if err != nil {
		h.sendError(w, err, "failed to create invite link")
		return
	}

	w.WriteHeader(http.StatusCreated)
	h.sendResponse(w, toInvitationResponse(inv, time.Now()))
}

func (h *Handler) HandleListInvitations(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	invitations, err := h.Service.ListInvitations(r.Context(), user, r.PathValue("id"))
	if err != nil {
		h.sendError(w, err, "failed to list invite links")
		return
	}

	now := time.Now()
	resp := make([]invitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		resp = append(resp, toInvitationResponse(inv, now))
	}
	h.sendResponse(w, resp)
}

func (h *Handler) HandleDisableInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	inv, err := h.Service.RevokeInvitation(r.Context(), user, r.PathValue("id"), r.PathValue("inviteId"))
	if err != nil {
		h.sendError(w, err, "failed to disable invite link")
		return
	}

	h.sendResponse(w, toInvitationResponse(inv, time.Now()))
}

func (h *Handler) HandleDeleteInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	if err := h.Service.RemoveInvitation(r.Context(), user, r.PathValue("id"), r.PathValue("inviteId")); err != nil {
		h.sendError(w, err, "failed to delete invite link")
		return
	}

	h.sendResponse(w, successResponse{Success: true})
}

type joinResponse struct {
	CanvasId string `json:"canvas_id"`
}

// HandleJoin accepts an invite link for the calling account and returns the
// canvas it opens. Invalid tokens 404 with no further detail.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	inv, err := h.Service.AcceptInvitation(r.Context(), user, r.PathValue("token"))
	if err != nil {
		h.sendError(w, err, "failed to join canvas")
		return
	}

	h.sendResponse(w, joinResponse{CanvasId: inv.CanvasId})
}
