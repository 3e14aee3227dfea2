// Package broadcast fans contest events out to connected websocket clients.
// Delivery is best effort; a slow client is dropped rather than allowed to
// stall the contest.
package broadcast

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"codearena/pkg/logger"
)

// Event is one wire frame pushed to clients.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub tracks connected clients and routes events to all of them or to the
// connections of one team.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byTeam  map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byTeam:  make(map[string]map[*Client]struct{}),
	}
}

// EmitAll delivers an event to every connected client.
func (h *Hub) EmitAll(event string, data interface{}) {
	frame := Event{Event: event, Data: data}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.enqueue(frame)
	}
}

// EmitTo delivers an event only to the connections of one team.
func (h *Hub) EmitTo(teamID, event string, data interface{}) {
	frame := Event{Event: event, Data: data}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.byTeam[teamID]))
	for client := range h.byTeam[teamID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.enqueue(frame)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	if client.teamID != "" {
		team := h.byTeam[client.teamID]
		if team == nil {
			team = make(map[*Client]struct{})
			h.byTeam[client.teamID] = team
		}
		team[client] = struct{}{}
	}
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if client.teamID != "" {
		team := h.byTeam[client.teamID]
		delete(team, client)
		if len(team) == 0 {
			delete(h.byTeam, client.teamID)
		}
	}
	// The clients-map check above makes this close happen exactly once.
	close(client.done)
	logger.Debug(context.Background(), "websocket client unregistered", zap.String("team_id", client.teamID))
}
