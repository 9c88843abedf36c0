package store

import (
	"context"
	"errors"

	"github.com/avolkv/canvora/models"
)

type CanvoraStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserById(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateUserEmail(ctx context.Context, user models.User, newEmail string) (models.User, error)
	UpdateUserPassword(ctx context.Context, user models.User, passwordHash string) error
	DeleteUser(ctx context.Context, user models.User) error

	CreateCanvas(ctx context.Context, canvas models.Canvas) (models.Canvas, error)
	GetCanvas(ctx context.Context, canvasId string) (models.Canvas, error)
	ListOwnerCanvases(ctx context.Context, ownerId string) ([]models.Canvas, error)
	RenameCanvas(ctx context.Context, canvasId string, name string) (models.Canvas, error)
	// WriteCanvasContent is a blind overwrite: no version token, no merge,
	// the last writer wins. The single-item update is atomic, a reader never
	// observes a torn document.
	WriteCanvasContent(ctx context.Context, canvasId string, content []byte) (models.Canvas, error)
	DeleteCanvas(ctx context.Context, canvasId string) error
	DeleteOwnerCanvases(ctx context.Context, ownerId string) error

	CreateInvitation(ctx context.Context, inv models.Invitation) (models.Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (models.Invitation, error)
	ListCanvasInvitations(ctx context.Context, canvasId string) ([]models.Invitation, error)
	// BindInvitee claims an open invitation for the given email. Returns
	// ErrConditionFailed when the invitation is already bound.
	BindInvitee(ctx context.Context, token string, email string) (models.Invitation, error)
	IncrementJoinCount(ctx context.Context, token string) error
	DisableInvitation(ctx context.Context, token string) error
	DeleteInvitation(ctx context.Context, token string) error
	DeleteCanvasInvitations(ctx context.Context, canvasId string) error
}

// Custom error types for clarity
var (
	ErrItemNotFound    = errors.New("item does not exist")
	ErrConditionFailed = errors.New("condition not met")
	ErrDuplicateItem   = errors.New("item already exists")
)
