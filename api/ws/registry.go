package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/avolkv/canvora/cache"
	"github.com/avolkv/canvora/service"
	"github.com/avolkv/canvora/worker"
)

// session holds the live connections for one canvas, in admission order.
// dead marks a session that has been removed from the registry map; once
// set it never accepts another client.
type session struct {
	mu      sync.Mutex
	dead    bool
	clients []*Client
}

// Registry maps canvases to their live sessions. The outer lock only guards
// the map; each session has its own lock, so traffic on one canvas never
// blocks another.
type Registry struct {
	canvoraCache cache.CanvoraCache

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewRegistry(canvoraCache cache.CanvoraCache) *Registry {
	return &Registry{
		canvoraCache: canvoraCache,
		sessions:     make(map[string]*session),
	}
}

func (r *Registry) Admit(canvasId string, client *Client) {
	for {
		r.mu.Lock()
		s, ok := r.sessions[canvasId]
		if !ok {
			s = &session{}
			r.sessions[canvasId] = s
		}
		r.mu.Unlock()

		s.mu.Lock()
		if s.dead {
			// A concurrent Remove emptied and deleted this session between
			// the two locks. Start over against the current map entry.
			s.mu.Unlock()
			continue
		}
		s.clients = append(s.clients, client)
		s.mu.Unlock()
		return
	}
}

// Remove detaches a client from its canvas session. Safe to call twice: the
// second call finds nothing to remove. The session disappears with its last
// client.
func (r *Registry) Remove(canvasId string, client *Client) {
	r.mu.RLock()
	s, ok := r.sessions[canvasId]
	r.mu.RUnlock()
	if !ok {
		return
	}

	s.mu.Lock()
	for i, c := range s.clients {
		if c == client {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			break
		}
	}
	empty := len(s.clients) == 0
	s.mu.Unlock()

	if empty {
		r.mu.Lock()
		if s2, ok := r.sessions[canvasId]; ok && s2 == s {
			s.mu.Lock()
			if len(s.clients) == 0 {
				s.dead = true
				delete(r.sessions, canvasId)
			}
			s.mu.Unlock()
		}
		r.mu.Unlock()
	}
}

// Snapshot returns the session membership in admission order.
func (r *Registry) Snapshot(canvasId string) []*Client {
	r.mu.RLock()
	s, ok := r.sessions[canvasId]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	clients := make([]*Client, len(s.clients))
	copy(clients, s.clients)
	s.mu.Unlock()

	return clients
}

// Broadcast relays a payload to every member of the canvas session, sender
// included. Sends never block: a client whose buffer is full is dropped from
// the session so one slow reader cannot stall the rest.
func (r *Registry) Broadcast(canvasId string, payload []byte) {
	for _, client := range r.Snapshot(canvasId) {
		if !client.trySend(payload) {
			log.Printf("Dropping slow client for user %s on canvas %s", client.user.Id, canvasId)
			r.Remove(canvasId, client)
			client.Close()
		}
	}
}

// DisconnectUser ends every connection the user holds, on every canvas.
func (r *Registry) DisconnectUser(userId string) {
	r.mu.RLock()
	canvasIds := make([]string, 0, len(r.sessions))
	for canvasId := range r.sessions {
		canvasIds = append(canvasIds, canvasId)
	}
	r.mu.RUnlock()

	for _, canvasId := range canvasIds {
		for _, client := range r.Snapshot(canvasId) {
			if client.user.Id == userId {
				r.Remove(canvasId, client)
				client.Close()
			}
		}
	}
}

// CloseCanvas ends the whole session for a deleted canvas.
func (r *Registry) CloseCanvas(canvasId string) {
	for _, client := range r.Snapshot(canvasId) {
		r.Remove(canvasId, client)
		client.Close()
	}
}

// InitSubscriptions wires the registry to the teardown channels so deletions
// on any node end the affected sessions here too.
func (r *Registry) InitSubscriptions(shutdownCtx context.Context) error {
	err := r.canvoraCache.Subscribe(shutdownCtx, "user-deleted", func(message []byte) {
		var userDeletedMsg service.UserDeletedMessage
		if err := json.Unmarshal(message, &userDeletedMsg); err == nil {
			r.DisconnectUser(userDeletedMsg.UserId)
		}
	})
	if err != nil {
		log.Printf("WS registry failed to subscribe to user-deleted: %v", err)
		return err
	}

	err = r.canvoraCache.Subscribe(shutdownCtx, "canvas-deleted", func(message []byte) {
		var canvasDeletedMsg worker.CanvasDeletedMessage
		if err := json.Unmarshal(message, &canvasDeletedMsg); err == nil {
			r.CloseCanvas(canvasDeletedMsg.CanvasId)
		}
	})
	if err != nil {
		log.Printf("WS registry failed to subscribe to canvas-deleted: %v", err)
		return err
	}

	return nil
}
