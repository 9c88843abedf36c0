package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/avolkv/canvora/cache"
	"github.com/avolkv/canvora/mq"
	"github.com/avolkv/canvora/store"
)

// CleanupOwnerMessage asks the consumer to remove everything a deleted
// account owned.
type CleanupOwnerMessage struct {
	OwnerId string `json:"ownerId"`
}

// CanvasDeletedMessage is published on the "canvas-deleted" cache channel so
// every node tears down live sessions for the canvas.
type CanvasDeletedMessage struct {
	CanvasId string `json:"canvasId"`
}

type CleanupConsumer struct {
	cleanupQueue mq.MessageQueue
	canvoraStore store.CanvoraStore
	canvoraCache cache.CanvoraCache
}

func NewCleanupConsumer(cleanupQueue mq.MessageQueue, canvoraStore store.CanvoraStore, canvoraCache cache.CanvoraCache) *CleanupConsumer {
	return &CleanupConsumer{
		cleanupQueue: cleanupQueue,
		canvoraStore: canvoraStore,
		canvoraCache: canvoraCache,
	}
}

// Allow up to 5 minutes for the throttled batch deletion of all the owner's canvases
const visibilityTimeout = 300

func (c CleanupConsumer) Run(shutdownCtx context.Context) {
	for {
		msg, err := c.cleanupQueue.Receive(shutdownCtx, visibilityTimeout)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("cleanupConsumer receive error: %v", err)
			continue
		}

		if msg == nil {
			continue
		}

		var cleanupMsg CleanupOwnerMessage
		if err := json.Unmarshal([]byte(msg.Body), &cleanupMsg); err != nil {
			continue
		}

		// timeout should be a little less than queue visibility timeout
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(visibilityTimeout-1)*time.Second)

		if err := c.cleanupOwner(ctx, cleanupMsg.OwnerId); err != nil {
			log.Printf("cleanupConsumer cleanup error: %v", err)
			cancel()
			continue
		}
		cancel()

		err = c.cleanupQueue.Delete(context.Background(), msg)
		if err != nil {
			log.Printf("cleanupConsumer delete error: %v", err)
			continue
		}
	}
}

func (c *CleanupConsumer) cleanupOwner(ctx context.Context, ownerId string) error {
	canvases, err := c.canvoraStore.ListOwnerCanvases(ctx, ownerId)
	if err != nil {
		return err
	}

	canvasIds := make([]string, 0, len(canvases))
	for _, canvas := range canvases {
		canvasIds = append(canvasIds, canvas.Id)

		if err := c.canvoraStore.DeleteCanvasInvitations(ctx, canvas.Id); err != nil {
			log.Printf("Failed to delete invitations for canvas %s: %v", canvas.Id, err)
		}

		// Live sessions on this canvas end on every node.
		raw, err := json.Marshal(CanvasDeletedMessage{CanvasId: canvas.Id})
		if err != nil {
			continue
		}
		if err := c.canvoraCache.Publish(ctx, "canvas-deleted", raw); err != nil {
			log.Printf("Failed to publish canvas deletion for %s: %v", canvas.Id, err)
		}
	}

	if err := c.canvoraStore.DeleteOwnerCanvases(ctx, ownerId); err != nil {
		return err
	}

	if len(canvasIds) > 0 {
		if err := c.canvoraCache.InvalidateCanvases(ctx, canvasIds); err != nil {
			log.Printf("Failed to invalidate canvases: %v", err)
		}
	}

	return nil
}
