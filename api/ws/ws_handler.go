package ws

import (
	"context"
	"log"
	"net/http"

	"github.com/avolkv/canvora/service"
	"github.com/gorilla/websocket"
)

type Handler struct {
	Service  *service.Service
	Registry *Registry
}

func NewHandler(svc *service.Service, registry *Registry) *Handler {
	return &Handler{
		Service:  svc,
		Registry: registry,
	}
}

func (h *Handler) NewWsUpgrader(requiredOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == requiredOrigin
		},
		Subprotocols: []string{"canvora-v1"},
	}
}

// ServeWS handles websocket requests from the peer. The token travels in the
// query string because browsers cannot set headers on websocket dials.
func (h *Handler) ServeWS(wsUpgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request, shutdownCtx context.Context) {
	canvasId := r.PathValue("id")
	token := r.URL.Query().Get("token")

	user, authErr := h.Service.AuthenticateToken(r.Context(), token)
	if authErr == nil {
		// The close reason never distinguishes a missing canvas from a
		// forbidden one.
		_, _, authErr = h.Service.ResolveCanvas(r.Context(), canvasId, user)
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade ws connection: %v", err)
		return
	}

	// Must upgrade the connection in order to be able to send custom close message
	if authErr != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthorized"),
		)
		conn.Close()
		return
	}

	client := NewClient(h.Registry, conn, user, canvasId)
	h.Registry.Admit(canvasId, client)

	go client.ReadPump()
	go client.WritePump(shutdownCtx)
}
