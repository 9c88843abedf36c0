package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/avolkv/canvora/models"
	"github.com/avolkv/canvora/service"
	"github.com/avolkv/canvora/store"
)

func mockOwnerCanvas(mockStore *mock.Mock, ctx context.Context, canvasId, ownerId string) {
	mockStore.On("GetCanvas", ctx, canvasId).Return(models.Canvas{Id: canvasId, OwnerId: ownerId}, nil)
}

func TestIssueInvitation_Open(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1", Email: "owner@example.com"}

	mockOwnerCanvas(&mockStore.Mock, ctx, "c1", "u1")
	mockStore.On("CreateInvitation", ctx, mock.MatchedBy(func(inv models.Invitation) bool {
		return inv.CanvasId == "c1" && inv.InviteeEmail == "" && inv.Token != "" && inv.ExpiresAt == 0
	})).Return(models.Invitation{Id: "i1", CanvasId: "c1", Token: "tok"}, nil)

	inv, err := svc.IssueInvitation(ctx, owner, "c1", "", service.ValidityNever, 0)
	assert.NoError(t, err)
	assert.Equal(t, "i1", inv.Id)
}

func TestIssueInvitation_Validity(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}

	mockOwnerCanvas(&mockStore.Mock, ctx, "c1", "u1")

	var gotExpiry int64
	mockStore.On("CreateInvitation", ctx, mock.Anything).Run(func(args mock.Arguments) {
		gotExpiry = args.Get(1).(models.Invitation).ExpiresAt
	}).Return(models.Invitation{Id: "i1"}, nil)

	before := time.Now().Add(24 * time.Hour).Unix()
	_, err := svc.IssueInvitation(ctx, owner, "c1", "", service.ValidityDay, 0)
	after := time.Now().Add(24 * time.Hour).Unix()

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, gotExpiry, before)
	assert.LessOrEqual(t, gotExpiry, after)
}

func TestIssueInvitation_CustomExpiryInPast(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}

	mockOwnerCanvas(&mockStore.Mock, ctx, "c1", "u1")

	_, err := svc.IssueInvitation(ctx, owner, "c1", "", service.ValidityCustom, time.Now().Add(-time.Hour).Unix())
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestIssueInvitation_NotOwner(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	mockOwnerCanvas(&mockStore.Mock, ctx, "c1", "u1")
	mockStore.On("ListCanvasInvitations", ctx, "c1").Return([]models.Invitation{}, nil)

	_, err := svc.IssueInvitation(ctx, models.User{Id: "u2"}, "c1", "", service.ValidityNever, 0)
	assert.ErrorIs(t, err, service.ErrAuthorization)
}

func TestIssueInvitation_RetriesOnTokenCollision(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}

	mockOwnerCanvas(&mockStore.Mock, ctx, "c1", "u1")
	mockStore.On("CreateInvitation", ctx, mock.Anything).Return(models.Invitation{}, store.ErrDuplicateItem).Once()
	mockStore.On("CreateInvitation", ctx, mock.Anything).Return(models.Invitation{Id: "i1"}, nil).Once()

	inv, err := svc.IssueInvitation(ctx, owner, "c1", "", service.ValidityNever, 0)
	assert.NoError(t, err)
	assert.Equal(t, "i1", inv.Id)
	mockStore.AssertNumberOfCalls(t, "CreateInvitation", 2)
}

func TestValidateInvitation_AllFailuresLookAlike(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("GetInvitationByToken", ctx, "missing").Return(models.Invitation{}, store.ErrItemNotFound)
	mockStore.On("GetInvitationByToken", ctx, "disabled").Return(models.Invitation{Token: "disabled", Disabled: true}, nil)
	mockStore.On("GetInvitationByToken", ctx, "expired").Return(models.Invitation{Token: "expired", ExpiresAt: time.Now().Add(-time.Minute).Unix()}, nil)

	for _, token := range []string{"missing", "disabled", "expired"} {
		_, err := svc.ValidateInvitation(ctx, token)
		assert.ErrorIs(t, err, service.ErrInvalidToken)
		assert.EqualError(t, err, "invalid invitation token: invitation not found")
	}
}

func TestAcceptInvitation_BindsOpenLink(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	claimant := models.User{Id: "u2", Email: "editor@example.com"}

	open := models.Invitation{Id: "i1", CanvasId: "c1", Token: "tok", InviteeEmail: ""}
	bound := open
	bound.InviteeEmail = "editor@example.com"

	mockStore.On("GetInvitationByToken", ctx, "tok").Return(open, nil)
	mockStore.On("BindInvitee", ctx, "tok", "editor@example.com").Return(bound, nil)
	mockStore.On("IncrementJoinCount", ctx, "tok").Return(nil)

	inv, err := svc.AcceptInvitation(ctx, claimant, "tok")
	assert.NoError(t, err)
	assert.Equal(t, "c1", inv.CanvasId)
	assert.Equal(t, 1, inv.JoinCount)
}

func TestAcceptInvitation_ReturningInvitee(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	claimant := models.User{Id: "u2", Email: "editor@example.com"}

	bound := models.Invitation{Id: "i1", CanvasId: "c1", Token: "tok", InviteeEmail: "editor@example.com", JoinCount: 4}
	mockStore.On("GetInvitationByToken", ctx, "tok").Return(bound, nil)
	mockStore.On("IncrementJoinCount", ctx, "tok").Return(nil)

	inv, err := svc.AcceptInvitation(ctx, claimant, "tok")
	assert.NoError(t, err)
	assert.Equal(t, 5, inv.JoinCount)
	mockStore.AssertNotCalled(t, "BindInvitee", ctx, "tok", "editor@example.com")
}

func TestAcceptInvitation_LosingClaimRaceLooksLikeClaimedLink(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	loser := models.User{Id: "u3", Email: "late@example.com"}

	open := models.Invitation{Id: "i1", CanvasId: "c1", Token: "tok", InviteeEmail: ""}
	claimedByWinner := open
	claimedByWinner.InviteeEmail = "winner@example.com"

	mockStore.On("GetInvitationByToken", ctx, "tok").Return(open, nil).Once()
	mockStore.On("BindInvitee", ctx, "tok", "late@example.com").Return(models.Invitation{}, store.ErrConditionFailed)
	mockStore.On("GetInvitationByToken", ctx, "tok").Return(claimedByWinner, nil).Once()

	_, err := svc.AcceptInvitation(ctx, loser, "tok")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
	mockStore.AssertNotCalled(t, "IncrementJoinCount", ctx, "tok")
}

func TestAcceptInvitation_ClaimedByOtherAccount(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()

	bound := models.Invitation{Id: "i1", CanvasId: "c1", Token: "tok", InviteeEmail: "someone@example.com"}
	mockStore.On("GetInvitationByToken", ctx, "tok").Return(bound, nil)

	_, err := svc.AcceptInvitation(ctx, models.User{Id: "u4", Email: "other@example.com"}, "tok")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestRevokeInvitation_Idempotent(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}

	alreadyDisabled := models.Invitation{Id: "i1", CanvasId: "c1", Token: "tok", Disabled: true}
	mockOwnerCanvas(&mockStore.Mock, ctx, "c1", "u1")
	mockStore.On("ListCanvasInvitations", ctx, "c1").Return([]models.Invitation{alreadyDisabled}, nil)
	mockStore.On("DisableInvitation", ctx, "tok").Return(nil)

	inv, err := svc.RevokeInvitation(ctx, owner, "c1", "i1")
	assert.NoError(t, err)
	assert.True(t, inv.Disabled)
}

func TestRevokeInvitation_WrongCanvas(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}

	mockOwnerCanvas(&mockStore.Mock, ctx, "c1", "u1")
	mockStore.On("ListCanvasInvitations", ctx, "c1").Return([]models.Invitation{}, nil)

	_, err := svc.RevokeInvitation(ctx, owner, "c1", "belongs-elsewhere")
	assert.ErrorIs(t, err, service.ErrAuthorization)
	mockStore.AssertNotCalled(t, "DisableInvitation", ctx, mock.Anything)
}

func TestRemoveInvitation(t *testing.T) {
	svc, mockStore, _, _ := setupService(t)
	ctx := context.Background()
	owner := models.User{Id: "u1"}

	inv := models.Invitation{Id: "i1", CanvasId: "c1", Token: "tok"}
	mockOwnerCanvas(&mockStore.Mock, ctx, "c1", "u1")
	mockStore.On("ListCanvasInvitations", ctx, "c1").Return([]models.Invitation{inv}, nil)
	mockStore.On("DeleteInvitation", ctx, "tok").Return(nil)

	err := svc.RemoveInvitation(ctx, owner, "c1", "i1")
	assert.NoError(t, err)
	mockStore.AssertCalled(t, "DeleteInvitation", ctx, "tok")
}
