package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/avolkv/canvora/models"
	"github.com/avolkv/canvora/store"
)

const (
	inviteTokenBytes  = 32
	inviteCreateTries = 3

	ValidityDay    = "24h"
	ValidityWeek   = "7d"
	ValidityNever  = "none"
	ValidityCustom = "custom"
)

func newInviteToken() (string, error) {
	b := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func expiryFor(validity string, customExpiresAt int64, now time.Time) (int64, error) {
	switch validity {
	case ValidityDay:
		return now.Add(24 * time.Hour).Unix(), nil
	case ValidityWeek:
		return now.Add(7 * 24 * time.Hour).Unix(), nil
	case ValidityNever:
		return 0, nil
	case ValidityCustom:
		if customExpiresAt <= now.Unix() {
			return 0, fmt.Errorf("%w: custom expiry must be in the future", ErrConflict)
		}
		return customExpiresAt, nil
	default:
		return 0, fmt.Errorf("%w: unknown validity %q", ErrConflict, validity)
	}
}

// IssueInvitation mints an invite link for a canvas. Owner only. An empty
// inviteeEmail leaves the link open; the first account to accept it claims it
// permanently.
func (s *Service) IssueInvitation(ctx context.Context, user models.User, canvasId, inviteeEmail, validity string, customExpiresAt int64) (models.Invitation, error) {
	if _, err := s.RequireOwner(ctx, canvasId, user); err != nil {
		return models.Invitation{}, err
	}

	expiresAt, err := expiryFor(validity, customExpiresAt, time.Now())
	if err != nil {
		return models.Invitation{}, err
	}

	inv := models.Invitation{
		CanvasId:     canvasId,
		InviteeEmail: inviteeEmail,
		ExpiresAt:    expiresAt,
	}

	// Token collisions are vanishingly rare but the conditional put surfaces
	// them, so retry with a fresh token rather than failing the request.
	for i := 0; i < inviteCreateTries; i++ {
		inv.Token, err = newInviteToken()
		if err != nil {
			return models.Invitation{}, fmt.Errorf("generating invite token failed: %w", err)
		}

		created, err := s.Store.CreateInvitation(ctx, inv)
		if errors.Is(err, store.ErrDuplicateItem) {
			continue
		}
		if err != nil {
			return models.Invitation{}, fmt.Errorf("creating invitation failed: %w", err)
		}
		return created, nil
	}

	return models.Invitation{}, errors.New("creating invitation failed: token collisions")
}

// ValidateInvitation resolves a token to its canvas without consuming it.
// Missing, disabled and expired tokens all come back as the same
// ErrInvalidToken so the response never reveals which case applied.
func (s *Service) ValidateInvitation(ctx context.Context, token string) (models.Invitation, error) {
	inv, err := s.Store.GetInvitationByToken(ctx, token)
	if err != nil {
		return models.Invitation{}, fmt.Errorf("%w: invitation not found", ErrInvalidToken)
	}
	if !inv.Valid(time.Now()) {
		return models.Invitation{}, fmt.Errorf("%w: invitation not found", ErrInvalidToken)
	}
	return inv, nil
}

// AcceptInvitation validates the token for the calling account, binding an
// open link to it on first use. Losing a concurrent first-claim race behaves
// exactly like using a link claimed long ago.
func (s *Service) AcceptInvitation(ctx context.Context, user models.User, token string) (models.Invitation, error) {
	inv, err := s.ValidateInvitation(ctx, token)
	if err != nil {
		return models.Invitation{}, err
	}

	if inv.InviteeEmail == "" {
		bound, err := s.Store.BindInvitee(ctx, inv.Token, user.Email)
		if errors.Is(err, store.ErrConditionFailed) {
			// Someone else claimed it first. Re-read and judge against the
			// winner's binding.
			bound, err = s.Store.GetInvitationByToken(ctx, token)
		}
		if err != nil {
			return models.Invitation{}, fmt.Errorf("binding invitation failed: %w", err)
		}
		inv = bound
	}

	if !inv.Bound(user.Email) {
		return models.Invitation{}, fmt.Errorf("%w: invitation not found", ErrInvalidToken)
	}

	if err := s.Store.IncrementJoinCount(ctx, inv.Token); err != nil {
		return models.Invitation{}, fmt.Errorf("recording join failed: %w", err)
	}
	inv.JoinCount++

	return inv, nil
}

// RevokeInvitation disables a link. Idempotent: revoking a disabled link is
// a no-op success.
func (s *Service) RevokeInvitation(ctx context.Context, user models.User, canvasId, invitationId string) (models.Invitation, error) {
	inv, err := s.requireCanvasInvitation(ctx, user, canvasId, invitationId)
	if err != nil {
		return models.Invitation{}, err
	}

	if err := s.Store.DisableInvitation(ctx, inv.Token); err != nil {
		return models.Invitation{}, fmt.Errorf("disabling invitation failed: %w", err)
	}
	inv.Disabled = true
	return inv, nil
}

// requireCanvasInvitation checks that the invitation belongs to the canvas
// and the caller owns it. Invitations on other canvases look like they do
// not exist.
func (s *Service) requireCanvasInvitation(ctx context.Context, user models.User, canvasId, invitationId string) (models.Invitation, error) {
	if _, err := s.RequireOwner(ctx, canvasId, user); err != nil {
		return models.Invitation{}, err
	}

	invitations, err := s.Store.ListCanvasInvitations(ctx, canvasId)
	if err != nil {
		return models.Invitation{}, fmt.Errorf("listing invitations failed: %w", err)
	}
	for _, inv := range invitations {
		if inv.Id == invitationId {
			return inv, nil
		}
	}
	return models.Invitation{}, fmt.Errorf("%w: no access to invitation", ErrAuthorization)
}

// RemoveInvitation deletes a link outright.
func (s *Service) RemoveInvitation(ctx context.Context, user models.User, canvasId, invitationId string) error {
	inv, err := s.requireCanvasInvitation(ctx, user, canvasId, invitationId)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteInvitation(ctx, inv.Token); err != nil {
		return fmt.Errorf("deleting invitation failed: %w", err)
	}
	return nil
}

// ListInvitations returns every link for a canvas, live or not, with its
// current status. Owner only.
func (s *Service) ListInvitations(ctx context.Context, user models.User, canvasId string) ([]models.Invitation, error) {
	if _, err := s.RequireOwner(ctx, canvasId, user); err != nil {
		return nil, err
	}

	invitations, err := s.Store.ListCanvasInvitations(ctx, canvasId)
	if err != nil {
		return nil, fmt.Errorf("listing invitations failed: %w", err)
	}
	return invitations, nil
}
