package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/avolkv/canvora/models"
	"github.com/avolkv/canvora/service"
)

type Handler struct {
	Service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{Service: svc}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Id       string `json:"id"`
	Email    string `json:"email"`
	Provider string `json:"provider,omitempty"`
	Token    string `json:"token"`
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.Service.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		h.sendError(w, err, "signup failed")
		return
	}

	h.sendResponse(w, authResponse{Id: user.Id, Email: user.Email, Token: token})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.sendError(w, err, "login failed")
		return
	}

	h.sendResponse(w, authResponse{Id: user.Id, Email: user.Email, Token: token})
}

type oauthRequest struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
}

func (h *Handler) HandleOauth(w http.ResponseWriter, r *http.Request) {
	var req oauthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.Service.OauthLogin(r.Context(), req.Provider, req.Code)
	if err != nil {
		h.sendError(w, err, "login failed")
		return
	}

	h.sendResponse(w, authResponse{Id: user.Id, Email: user.Email, Provider: user.Provider, Token: token})
}

type userResponse struct {
	Id       string `json:"id"`
	Email    string `json:"email"`
	Provider string `json:"provider,omitempty"`
	Created  int64  `json:"created"`
}

func (h *Handler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	h.sendResponse(w, userResponse{Id: user.Id, Email: user.Email, Provider: user.Provider, Created: user.Created})
}

type successResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteAccount(r.Context(), user); err != nil {
		h.sendError(w, err, "failed to delete account")
		return
	}

	h.sendResponse(w, successResponse{Success: true})
}

type changeEmailRequest struct {
	CurrentPassword string `json:"current_password"`
	NewEmail        string `json:"new_email"`
}

func (h *Handler) HandleChangeEmail(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req changeEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.Service.ChangeEmail(r.Context(), user, req.CurrentPassword, req.NewEmail)
	if err != nil {
		h.sendError(w, err, "failed to change email")
		return
	}

	h.sendResponse(w, userResponse{Id: updated.Id, Email: updated.Email, Provider: updated.Provider, Created: updated.Created})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		h.sendError(w, err, "failed to change password")
		return
	}

	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	token := h.getTokenFromAuthHeader(r)
	user, err := h.Service.AuthenticateToken(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return models.User{}, false
	}
	return user, true
}

// sendError maps the service error taxonomy onto status codes. Anything
// outside the taxonomy is an internal error and the detail stays in the log.
func (h *Handler) sendError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrAuthentication):
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
	case errors.Is(err, service.ErrAuthorization):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, service.ErrInvalidToken):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, service.ErrConflict):
		http.Error(w, "conflict", http.StatusConflict)
	default:
		log.Printf("Error: %v", err)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func (h *Handler) sendResponse(w http.ResponseWriter, resp any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) getTokenFromAuthHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}
	return strings.TrimPrefix(authHeader, prefix)
}
