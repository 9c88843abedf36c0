package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/avolkv/canvora/models"
	"github.com/avolkv/canvora/worker"
)

func (s *Service) CreateCanvas(ctx context.Context, user models.User, name string) (models.Canvas, error) {
	if name == "" {
		name = time.Now().UTC().Format(time.RFC3339)
	}

	canvas := models.Canvas{
		Name:    name,
		OwnerId: user.Id,
		Content: models.EmptyContent,
	}

	created, err := s.Store.CreateCanvas(ctx, canvas)
	if err != nil {
		return models.Canvas{}, fmt.Errorf("creating canvas failed: %w", err)
	}

	return created, nil
}

func (s *Service) ListCanvases(ctx context.Context, user models.User) ([]models.Canvas, error) {
	canvases, err := s.Store.ListOwnerCanvases(ctx, user.Id)
	if err != nil {
		return nil, fmt.Errorf("listing canvases failed: %w", err)
	}
	return canvases, nil
}

func (s *Service) RenameCanvas(ctx context.Context, user models.User, canvasId, name string) (models.Canvas, error) {
	if _, err := s.RequireOwner(ctx, canvasId, user); err != nil {
		return models.Canvas{}, err
	}
	if name == "" {
		return models.Canvas{}, fmt.Errorf("%w: canvas name cannot be empty", ErrConflict)
	}

	renamed, err := s.Store.RenameCanvas(ctx, canvasId, name)
	if err != nil {
		return models.Canvas{}, fmt.Errorf("renaming canvas failed: %w", err)
	}
	return renamed, nil
}

// DeleteCanvas removes the canvas and its invitations, then notifies live
// sessions asynchronously. The canvas row goes first so no new connection can
// be admitted while teardown is in flight.
func (s *Service) DeleteCanvas(ctx context.Context, user models.User, canvasId string) error {
	if _, err := s.RequireOwner(ctx, canvasId, user); err != nil {
		return err
	}

	if err := s.Store.DeleteCanvas(ctx, canvasId); err != nil {
		return fmt.Errorf("deleting canvas failed: %w", err)
	}
	if err := s.Store.DeleteCanvasInvitations(ctx, canvasId); err != nil {
		return fmt.Errorf("deleting canvas invitations failed: %w", err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		msg, err := json.Marshal(worker.CanvasDeletedMessage{CanvasId: canvasId})
		if err != nil {
			log.Println("Error:", err)
			return
		}
		if err := s.Cache.Publish(ctx, "canvas-deleted", msg); err != nil {
			log.Println("Error:", err)
		}
		if err := s.Cache.InvalidateCanvases(ctx, []string{canvasId}); err != nil {
			log.Println("Error:", err)
		}
	}()

	return nil
}

// CanvasContent returns the persisted snapshot, preferring the cache.
func (s *Service) CanvasContent(ctx context.Context, user models.User, canvasId string) (json.RawMessage, error) {
	if _, _, err := s.ResolveCanvas(ctx, canvasId, user); err != nil {
		return nil, err
	}

	cached, err := s.Cache.GetCanvasContent(ctx, canvasId)
	if err != nil {
		log.Println("Error:", err)
	}
	if cached != nil {
		return cached, nil
	}

	canvas, err := s.Store.GetCanvas(ctx, canvasId)
	if err != nil {
		return nil, fmt.Errorf("loading canvas failed: %w", err)
	}

	if err := s.Cache.SetCanvasContent(ctx, canvasId, canvas.Content); err != nil {
		log.Println("Error:", err)
	}

	return canvas.Content, nil
}

// SaveCanvasContent overwrites the snapshot with the caller's copy. Owner
// only. Concurrent saves resolve last-writer-wins at the storage layer; the
// result is always one writer's complete snapshot, never a merge.
func (s *Service) SaveCanvasContent(ctx context.Context, user models.User, canvasId string, content json.RawMessage) error {
	if _, err := s.RequireOwner(ctx, canvasId, user); err != nil {
		return err
	}
	if !json.Valid(content) {
		return fmt.Errorf("%w: content is not valid JSON", ErrConflict)
	}

	if _, err := s.Store.WriteCanvasContent(ctx, canvasId, content); err != nil {
		return fmt.Errorf("saving canvas content failed: %w", err)
	}

	if err := s.Cache.SetCanvasContent(ctx, canvasId, content); err != nil {
		log.Println("Error:", err)
	}

	return nil
}
