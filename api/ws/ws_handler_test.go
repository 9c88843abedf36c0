package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/avolkv/canvora/api/ws"
	cachemocks "github.com/avolkv/canvora/cache/mocks"
	"github.com/avolkv/canvora/models"
	mqmocks "github.com/avolkv/canvora/mq/mocks"
	"github.com/avolkv/canvora/service"
	storemocks "github.com/avolkv/canvora/store/mocks"
)

func setupWsServer(t *testing.T) (*httptest.Server, *ws.Registry, *service.Service, *storemocks.MockStore) {
	mockStore := new(storemocks.MockStore)
	svc, err := service.NewService(mockStore, new(cachemocks.MockCache), new(mqmocks.MockMQ), nil, []byte("secret"))
	assert.NoError(t, err)

	registry := ws.NewRegistry(new(cachemocks.MockCache))
	handler := ws.NewHandler(svc, registry)
	upgrader := handler.NewWsUpgrader("")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/canvas/{id}", func(w http.ResponseWriter, r *http.Request) {
		handler.ServeWS(upgrader, w, r, context.Background())
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, registry, svc, mockStore
}

func dialCanvas(t *testing.T, server *httptest.Server, canvasId, token string) *websocket.Conn {
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/canvas/" + canvasId + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSession(t *testing.T, registry *ws.Registry, canvasId string, n int) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(registry.Snapshot(canvasId)) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session on %s never reached %d clients", canvasId, n)
}

func TestServeWS_RelayBetweenEditors(t *testing.T) {
	server, registry, svc, mockStore := setupWsServer(t)

	owner := models.User{Id: "owner", Email: "owner@example.com"}
	editor := models.User{Id: "editor", Email: "editor@example.com"}
	canvas := models.Canvas{Id: "c1", OwnerId: "owner"}

	mockStore.On("GetUserById", mock.Anything, "owner").Return(owner, nil)
	mockStore.On("GetUserById", mock.Anything, "editor").Return(editor, nil)
	mockStore.On("GetCanvas", mock.Anything, "c1").Return(canvas, nil)
	mockStore.On("ListCanvasInvitations", mock.Anything, "c1").Return([]models.Invitation{
		{CanvasId: "c1", InviteeEmail: "editor@example.com"},
	}, nil)

	ownerToken, _ := svc.CreateJWT("owner")
	editorToken, _ := svc.CreateJWT("editor")

	connA := dialCanvas(t, server, "c1", ownerToken)
	connB := dialCanvas(t, server, "c1", editorToken)
	waitForSession(t, registry, "c1", 2)

	err := connA.WriteMessage(websocket.TextMessage, []byte("edit-1"))
	assert.NoError(t, err)

	// Both the peer and the sender receive the payload
	connB.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err := connB.ReadMessage()
	assert.NoError(t, err)
	assert.Equal(t, []byte("edit-1"), got)

	connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err = connA.ReadMessage()
	assert.NoError(t, err)
	assert.Equal(t, []byte("edit-1"), got)
}

func TestServeWS_StrangerGetsPolicyViolationClose(t *testing.T) {
	server, _, svc, mockStore := setupWsServer(t)

	stranger := models.User{Id: "stranger", Email: "stranger@example.com"}
	mockStore.On("GetUserById", mock.Anything, "stranger").Return(stranger, nil)
	mockStore.On("GetCanvas", mock.Anything, "c1").Return(models.Canvas{Id: "c1", OwnerId: "owner"}, nil)
	mockStore.On("ListCanvasInvitations", mock.Anything, "c1").Return([]models.Invitation{}, nil)

	token, _ := svc.CreateJWT("stranger")
	conn := dialCanvas(t, server, "c1", token)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

func TestServeWS_ExpiredInvitationRejected(t *testing.T) {
	server, _, svc, mockStore := setupWsServer(t)

	editor := models.User{Id: "editor", Email: "editor@example.com"}
	mockStore.On("GetUserById", mock.Anything, "editor").Return(editor, nil)
	mockStore.On("GetCanvas", mock.Anything, "c1").Return(models.Canvas{Id: "c1", OwnerId: "owner"}, nil)
	mockStore.On("ListCanvasInvitations", mock.Anything, "c1").Return([]models.Invitation{
		{CanvasId: "c1", InviteeEmail: "editor@example.com", ExpiresAt: time.Now().Add(-time.Hour).Unix()},
	}, nil)

	token, _ := svc.CreateJWT("editor")
	conn := dialCanvas(t, server, "c1", token)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}

func TestServeWS_BadTokenRejected(t *testing.T) {
	server, _, _, _ := setupWsServer(t)

	conn := dialCanvas(t, server, "c1", "not-a-jwt")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}
