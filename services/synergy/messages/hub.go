// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package messages

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WireFrame is the envelope broadcast to websocket subscribers.
type WireFrame struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

// subscriber is one websocket connection in a project room. Writes go
// through the send channel so a single goroutine owns the connection.
type subscriber struct {
	ws   *websocket.Conn
	send chan []byte
}

// Hub fans project message frames out to websocket subscribers.
//
// Thread Safety: all methods are safe for concurrent use. A subscriber
// whose send buffer fills is dropped rather than blocking the
// broadcaster.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*subscriber]bool
	logger *slog.Logger
}

// NewHub builds an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[string]map[*subscriber]bool),
		logger: logger,
	}
}

// Broadcast sends a frame to every subscriber of a project room.
func (h *Hub) Broadcast(projectID string, frame WireFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Warn("hub: encode frame", "project_id", projectID, "error", err)
		return
	}

	h.mu.RLock()
	room := h.rooms[projectID]
	slow := make([]*subscriber, 0)
	for sub := range room {
		select {
		case sub.send <- payload:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn("hub: dropping slow subscriber", "project_id", projectID)
		h.remove(projectID, sub)
	}
}

// Subscribers returns the current size of a project room.
func (h *Hub) Subscribers(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[projectID])
}

func (h *Hub) add(projectID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[projectID]
	if room == nil {
		room = make(map[*subscriber]bool)
		h.rooms[projectID] = room
	}
	room[sub] = true
}

func (h *Hub) remove(projectID string, sub *subscriber) {
	h.mu.Lock()
	room := h.rooms[projectID]
	if room != nil && room[sub] {
		delete(room, sub)
		if len(room) == 0 {
			delete(h.rooms, projectID)
		}
		close(sub.send)
	}
	h.mu.Unlock()
}

// ServeWS returns a gin handler that upgrades the request and joins
// the project room named by the :id route parameter.
//
// The connection stays open until the client disconnects. Inbound
// frames are discarded; posting goes through the HTTP API so that
// validation and persistence happen exactly once.
func (h *Hub) ServeWS() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Error("hub: websocket upgrade failed", "project_id", projectID, "error", err)
			return
		}

		sub := &subscriber{ws: ws, send: make(chan []byte, 32)}
		h.add(projectID, sub)
		h.logger.Info("hub: subscriber joined", "project_id", projectID)

		go func() {
			for payload := range sub.send {
				if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
					h.logger.Warn("hub: write failed", "project_id", projectID, "error", err)
					break
				}
			}
			_ = ws.Close()
		}()

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
		h.remove(projectID, sub)
		h.logger.Info("hub: subscriber left", "project_id", projectID)
	}
}
