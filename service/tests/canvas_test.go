package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/avolkv/canvora/models"
	"github.com/avolkv/canvora/service"
)

func TestCreateCanvas_DefaultsNameAndContent(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}

	var got models.Canvas
	mockStore.On("CreateCanvas", ctx, mock.Anything).Run(func(args mock.Arguments) {
		got = args.Get(1).(models.Canvas)
	}).Return(models.Canvas{Id: "c1"}, nil)

	_, err := svc.CreateCanvas(ctx, owner, "")
	assert.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerId)
	assert.NotEmpty(t, got.Name)
	assert.JSONEq(t, "{}", string(got.Content))

	// Blank names fall back to a timestamp
	_, err = time.Parse(time.RFC3339, got.Name)
	assert.NoError(t, err)
}

func TestRenameCanvas_EmptyNameRejected(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{Id: "c1", OwnerId: "u1"}, nil)

	_, err := svc.RenameCanvas(ctx, owner, "c1", "")
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestDeleteCanvas_RemovesInvitationsAndNotifies(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{Id: "c1", OwnerId: "u1"}, nil)
	mockStore.On("DeleteCanvas", ctx, "c1").Return(nil)
	mockStore.On("DeleteCanvasInvitations", ctx, "c1").Return(nil)

	published := make(chan struct{})
	invalidated := make(chan struct{})
	mockCache.On("Publish", mock.Anything, "canvas-deleted", mock.Anything).Run(func(mock.Arguments) {
		close(published)
	}).Return(nil)
	mockCache.On("InvalidateCanvases", mock.Anything, []string{"c1"}).Run(func(mock.Arguments) {
		close(invalidated)
	}).Return(nil)

	err := svc.DeleteCanvas(ctx, owner, "c1")
	assert.NoError(t, err)
	mockStore.AssertCalled(t, "DeleteCanvasInvitations", ctx, "c1")

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("canvas-deleted was never published")
	}
	select {
	case <-invalidated:
	case <-time.After(time.Second):
		t.Fatal("cache was never invalidated")
	}
}

func TestDeleteCanvas_EditorForbidden(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	editor := models.User{Id: "u2", Email: "editor@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{Id: "c1", OwnerId: "u1"}, nil)
	mockStore.On("ListCanvasInvitations", ctx, "c1").Return([]models.Invitation{
		{CanvasId: "c1", InviteeEmail: "editor@example.com"},
	}, nil)

	err := svc.DeleteCanvas(ctx, editor, "c1")
	assert.ErrorIs(t, err, service.ErrAuthorization)
	mockStore.AssertNotCalled(t, "DeleteCanvas", ctx, "c1")
}

func TestCanvasContent_CacheHitSkipsStoreRead(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{Id: "c1", OwnerId: "u1"}, nil).Once()
	mockCache.On("GetCanvasContent", ctx, "c1").Return([]byte(`{"shapes":[]}`), nil)

	content, err := svc.CanvasContent(ctx, owner, "c1")
	assert.NoError(t, err)
	assert.JSONEq(t, `{"shapes":[]}`, string(content))
	mockStore.AssertNumberOfCalls(t, "GetCanvas", 1)
}

func TestCanvasContent_CacheMissFillsCache(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}
	doc := json.RawMessage(`{"shapes":[{"id":1}]}`)

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{Id: "c1", OwnerId: "u1", Content: doc}, nil)
	mockCache.On("GetCanvasContent", ctx, "c1").Return(nil, nil)
	mockCache.On("SetCanvasContent", ctx, "c1", mock.Anything).Return(nil)

	content, err := svc.CanvasContent(ctx, owner, "c1")
	assert.NoError(t, err)
	assert.JSONEq(t, string(doc), string(content))
	mockCache.AssertCalled(t, "SetCanvasContent", ctx, "c1", mock.Anything)
}

func TestSaveCanvasContent_OwnerOnly(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	editor := models.User{Id: "u2", Email: "editor@example.com"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{Id: "c1", OwnerId: "u1"}, nil)
	mockStore.On("ListCanvasInvitations", ctx, "c1").Return([]models.Invitation{
		{CanvasId: "c1", InviteeEmail: "editor@example.com"},
	}, nil)

	err := svc.SaveCanvasContent(ctx, editor, "c1", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, service.ErrAuthorization)
	mockStore.AssertNotCalled(t, "WriteCanvasContent", ctx, "c1", mock.Anything)
}

func TestSaveCanvasContent_WholeSnapshotWins(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}
	doc := json.RawMessage(`{"shapes":[{"id":2}]}`)

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{Id: "c1", OwnerId: "u1"}, nil)
	mockStore.On("WriteCanvasContent", ctx, "c1", mock.Anything).Return(models.Canvas{Id: "c1", Content: doc}, nil)
	mockCache.On("SetCanvasContent", ctx, "c1", mock.Anything).Return(nil)

	err := svc.SaveCanvasContent(ctx, owner, "c1", doc)
	assert.NoError(t, err)
	mockStore.AssertCalled(t, "WriteCanvasContent", ctx, "c1", mock.Anything)
	mockCache.AssertCalled(t, "SetCanvasContent", ctx, "c1", mock.Anything)
}

func TestSaveCanvasContent_RejectsMalformedJSON(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{Id: "c1", OwnerId: "u1"}, nil)

	err := svc.SaveCanvasContent(ctx, owner, "c1", json.RawMessage(`{"shapes":`))
	assert.ErrorIs(t, err, service.ErrConflict)
	mockStore.AssertNotCalled(t, "WriteCanvasContent", ctx, "c1", mock.Anything)
}
