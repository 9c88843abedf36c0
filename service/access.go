package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avolkv/canvora/models"
	"github.com/avolkv/canvora/store"
)

// Resolve computes the caller's role on a canvas. Ownership wins outright;
// otherwise the user is an editor if any currently valid invitation is bound
// to their email. Expired and disabled invitations never grant access, no
// matter how many times they were accepted while live.
func Resolve(canvas models.Canvas, user models.User, invitations []models.Invitation, now time.Time) models.Role {
	if canvas.OwnerId == user.Id {
		return models.RoleOwner
	}

	for _, inv := range invitations {
		if inv.Valid(now) && inv.Bound(user.Email) {
			return models.RoleEditor
		}
	}

	return models.RoleNone
}

// ResolveCanvas loads a canvas and resolves the caller's role on it.
// A missing canvas and a canvas the caller has no role on both come back as
// ErrAuthorization, so callers cannot probe which canvas ids exist.
func (s *Service) ResolveCanvas(ctx context.Context, canvasId string, user models.User) (models.Canvas, models.Role, error) {
	canvas, err := s.Store.GetCanvas(ctx, canvasId)
	if err != nil {
		return models.Canvas{}, models.RoleNone, fmt.Errorf("%w: no access to canvas", ErrAuthorization)
	}

	if canvas.OwnerId == user.Id {
		return canvas, models.RoleOwner, nil
	}

	invitations, err := s.Store.ListCanvasInvitations(ctx, canvasId)
	if err != nil && err != store.ErrItemNotFound {
		return models.Canvas{}, models.RoleNone, fmt.Errorf("listing invitations failed: %w", err)
	}

	role := Resolve(canvas, user, invitations, time.Now())
	if role == models.RoleNone {
		return models.Canvas{}, models.RoleNone, fmt.Errorf("%w: no access to canvas", ErrAuthorization)
	}

	return canvas, role, nil
}

// RequireOwner is ResolveCanvas restricted to the owner. Editors get the same
// ErrAuthorization as strangers.
func (s *Service) RequireOwner(ctx context.Context, canvasId string, user models.User) (models.Canvas, error) {
	canvas, role, err := s.ResolveCanvas(ctx, canvasId, user)
	if err != nil {
		return models.Canvas{}, err
	}
	if role != models.RoleOwner {
		return models.Canvas{}, fmt.Errorf("%w: no access to canvas", ErrAuthorization)
	}
	return canvas, nil
}
