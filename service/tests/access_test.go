package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avolkv/canvora/models"
	"github.com/avolkv/canvora/service"
	"github.com/avolkv/canvora/store"
)

func TestResolve_Owner(t *testing.T) {
	canvas := models.Canvas{Id: "c1", OwnerId: "u1"}
	owner := models.User{Id: "u1", Email: "owner@example.com"}

	role := service.Resolve(canvas, owner, nil, time.Now())
	assert.Equal(t, models.RoleOwner, role)
}

func TestResolve_EditorViaBoundInvitation(t *testing.T) {
	canvas := models.Canvas{Id: "c1", OwnerId: "u1"}
	editor := models.User{Id: "u2", Email: "editor@example.com"}
	invitations := []models.Invitation{
		{CanvasId: "c1", InviteeEmail: "editor@example.com"},
	}

	role := service.Resolve(canvas, editor, invitations, time.Now())
	assert.Equal(t, models.RoleEditor, role)
}

func TestResolve_EmailComparisonIsCaseInsensitive(t *testing.T) {
	canvas := models.Canvas{Id: "c1", OwnerId: "u1"}
	editor := models.User{Id: "u2", Email: "Editor@Example.com"}
	invitations := []models.Invitation{
		{CanvasId: "c1", InviteeEmail: "editor@example.com"},
	}

	role := service.Resolve(canvas, editor, invitations, time.Now())
	assert.Equal(t, models.RoleEditor, role)
}

func TestResolve_ExpiredInvitationGrantsNothing(t *testing.T) {
	now := time.Now()
	canvas := models.Canvas{Id: "c1", OwnerId: "u1"}
	editor := models.User{Id: "u2", Email: "editor@example.com"}
	invitations := []models.Invitation{
		{CanvasId: "c1", InviteeEmail: "editor@example.com", ExpiresAt: now.Add(-time.Minute).Unix(), JoinCount: 12},
	}

	role := service.Resolve(canvas, editor, invitations, now)
	assert.Equal(t, models.RoleNone, role)
}

func TestResolve_DisabledInvitationGrantsNothing(t *testing.T) {
	canvas := models.Canvas{Id: "c1", OwnerId: "u1"}
	editor := models.User{Id: "u2", Email: "editor@example.com"}
	invitations := []models.Invitation{
		{CanvasId: "c1", InviteeEmail: "editor@example.com", Disabled: true},
	}

	role := service.Resolve(canvas, editor, invitations, time.Now())
	assert.Equal(t, models.RoleNone, role)
}

func TestResolve_UnboundInvitationGrantsNothing(t *testing.T) {
	canvas := models.Canvas{Id: "c1", OwnerId: "u1"}
	stranger := models.User{Id: "u3", Email: "stranger@example.com"}
	invitations := []models.Invitation{
		{CanvasId: "c1", InviteeEmail: ""},
	}

	role := service.Resolve(canvas, stranger, invitations, time.Now())
	assert.Equal(t, models.RoleNone, role)
}

func TestResolve_AnyValidInvitationIsEnough(t *testing.T) {
	now := time.Now()
	canvas := models.Canvas{Id: "c1", OwnerId: "u1"}
	editor := models.User{Id: "u2", Email: "editor@example.com"}
	invitations := []models.Invitation{
		{CanvasId: "c1", InviteeEmail: "editor@example.com", Disabled: true},
		{CanvasId: "c1", InviteeEmail: "editor@example.com", ExpiresAt: now.Add(time.Hour).Unix()},
	}

	role := service.Resolve(canvas, editor, invitations, now)
	assert.Equal(t, models.RoleEditor, role)
}

func TestResolveCanvas_MissingCanvasLooksForbidden(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("GetCanvas", ctx, "missing").Return(models.Canvas{}, store.ErrItemNotFound)

	_, _, err := svc.ResolveCanvas(ctx, "missing", models.User{Id: "u1"})
	assert.ErrorIs(t, err, service.ErrAuthorization)
}

func TestResolveCanvas_StrangerForbidden(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{Id: "c1", OwnerId: "u1"}, nil)
	mockStore.On("ListCanvasInvitations", ctx, "c1").Return([]models.Invitation{}, nil)

	_, _, err := svc.ResolveCanvas(ctx, "c1", models.User{Id: "u3", Email: "stranger@example.com"})
	assert.ErrorIs(t, err, service.ErrAuthorization)
}

func TestResolveCanvas_OwnerSkipsInvitationLookup(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{Id: "c1", OwnerId: "u1"}, nil)

	canvas, role, err := svc.ResolveCanvas(ctx, "c1", models.User{Id: "u1"})
	assert.NoError(t, err)
	assert.Equal(t, models.RoleOwner, role)
	assert.Equal(t, "c1", canvas.Id)
	mockStore.AssertNotCalled(t, "ListCanvasInvitations", ctx, "c1")
}

func TestRequireOwner_EditorForbidden(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	editor := models.User{Id: "u2", Email: "editor@example.com"}
	mockStore.On("GetCanvas", ctx, "c1").Return(models.Canvas{Id: "c1", OwnerId: "u1"}, nil)
	mockStore.On("ListCanvasInvitations", ctx, "c1").Return([]models.Invitation{
		{CanvasId: "c1", InviteeEmail: "editor@example.com"},
	}, nil)

	_, err := svc.RequireOwner(ctx, "c1", editor)
	assert.ErrorIs(t, err, service.ErrAuthorization)
}
