package api

import (
	"context"
	"log"
	"net/http"

	"github.com/avolkv/canvora/api/rest"
	"github.com/avolkv/canvora/api/ws"
	"github.com/avolkv/canvora/cache"
	"github.com/avolkv/canvora/mq"
	"github.com/avolkv/canvora/service"
	"github.com/avolkv/canvora/store"
	"github.com/avolkv/canvora/worker"
	"golang.org/x/oauth2"
)

type CanvoraAPI struct {
	restHandler *rest.Handler
	wsHandler   *ws.Handler
	shutdownCtx context.Context
}

func NewCanvoraAPI(
	canvoraStore store.CanvoraStore,
	cleanupQueue mq.MessageQueue,
	canvoraCache cache.CanvoraCache,
	oauthConfigs map[string]*oauth2.Config,
	jwtSecret []byte,
	shutdownCtx context.Context,
) (*CanvoraAPI, error) {
	registry := ws.NewRegistry(canvoraCache)
	err := registry.InitSubscriptions(shutdownCtx)
	if err != nil {
		log.Printf("Failed to start WS registry subscriptions: %v", err)
		return &CanvoraAPI{}, err
	}

	cleanupConsumer := worker.NewCleanupConsumer(cleanupQueue, canvoraStore, canvoraCache)
	go cleanupConsumer.Run(shutdownCtx)

	svc, err := service.NewService(
		canvoraStore,
		canvoraCache,
		cleanupQueue,
		oauthConfigs,
		jwtSecret,
	)
	if err != nil {
		log.Printf("Failed to create service: %v", err)
		return &CanvoraAPI{}, err
	}

	return &CanvoraAPI{
		restHandler: rest.NewHandler(svc),
		wsHandler:   ws.NewHandler(svc, registry),
		shutdownCtx: shutdownCtx,
	}, nil
}

func (canvoraAPI *CanvoraAPI) RegisterRoutes(mux *http.ServeMux, requiredOrigin string) {
	// Health check endpoint (no auth required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /api/signup", canvoraAPI.restHandler.HandleSignup)
	mux.HandleFunc("POST /api/login", canvoraAPI.restHandler.HandleLogin)
	mux.HandleFunc("POST /api/oauth", canvoraAPI.restHandler.HandleOauth)

	mux.HandleFunc("GET /api/me", canvoraAPI.restHandler.HandleGetMe)
	mux.HandleFunc("DELETE /api/me", canvoraAPI.restHandler.HandleDeleteMe)
	mux.HandleFunc("POST /api/account/email", canvoraAPI.restHandler.HandleChangeEmail)
	mux.HandleFunc("POST /api/account/password", canvoraAPI.restHandler.HandleChangePassword)

	mux.HandleFunc("GET /api/canvases", canvoraAPI.restHandler.HandleListCanvases)
	mux.HandleFunc("POST /api/canvases", canvoraAPI.restHandler.HandleCreateCanvas)
	mux.HandleFunc("GET /api/canvases/{id}", canvoraAPI.restHandler.HandleGetCanvas)
	mux.HandleFunc("PATCH /api/canvases/{id}", canvoraAPI.restHandler.HandleRenameCanvas)
	mux.HandleFunc("DELETE /api/canvases/{id}", canvoraAPI.restHandler.HandleDeleteCanvas)
	mux.HandleFunc("GET /api/canvases/{id}/data", canvoraAPI.restHandler.HandleGetCanvasData)
	mux.HandleFunc("PUT /api/canvases/{id}/data", canvoraAPI.restHandler.HandlePutCanvasData)

	mux.HandleFunc("GET /api/canvases/{id}/invite-links", canvoraAPI.restHandler.HandleListInvitations)
	mux.HandleFunc("POST /api/canvases/{id}/invite-links", canvoraAPI.restHandler.HandleIssueInvitation)
	mux.HandleFunc("PATCH /api/canvases/{id}/invite-links/{inviteId}/disable", canvoraAPI.restHandler.HandleDisableInvitation)
	mux.HandleFunc("DELETE /api/canvases/{id}/invite-links/{inviteId}", canvoraAPI.restHandler.HandleDeleteInvitation)

	mux.HandleFunc("GET /api/join/{token}", canvoraAPI.restHandler.HandleJoin)

	wsUpgrader := canvoraAPI.wsHandler.NewWsUpgrader(requiredOrigin)
	mux.HandleFunc("GET /ws/canvas/{id}", func(w http.ResponseWriter, r *http.Request) {
		canvoraAPI.wsHandler.ServeWS(wsUpgrader, w, r, canvoraAPI.shutdownCtx)
	})
}
