// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package messages

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func dialRoom(t *testing.T, server *httptest.Server, projectID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/projects/" + projectID + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func waitForSubscribers(t *testing.T, hub *Hub, projectID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers(projectID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("room %s has %d subscribers, want %d", projectID, hub.Subscribers(projectID), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, ws *websocket.Conn) WireFrame {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame WireFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return frame
}

func TestHubBroadcast(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	router := gin.New()
	router.GET("/projects/:id/ws", hub.ServeWS())
	server := httptest.NewServer(router)
	defer server.Close()

	sub1 := dialRoom(t, server, "p1")
	sub2 := dialRoom(t, server, "p1")
	other := dialRoom(t, server, "p2")
	waitForSubscribers(t, hub, "p1", 2)
	waitForSubscribers(t, hub, "p2", 1)

	hub.Broadcast("p1", WireFrame{Type: "message.posted", Message: &Message{ID: "m1", ProjectID: "p1", Body: "hello"}})

	for _, ws := range []*websocket.Conn{sub1, sub2} {
		frame := readFrame(t, ws)
		if frame.Type != "message.posted" || frame.Message.ID != "m1" {
			t.Fatalf("frame = %+v", frame)
		}
	}

	// The other room does not see p1 traffic.
	_ = other.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatal("p2 subscriber received p1 frame")
	}
}

func TestHubDisconnectLeavesRoom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	router := gin.New()
	router.GET("/projects/:id/ws", hub.ServeWS())
	server := httptest.NewServer(router)
	defer server.Close()

	ws := dialRoom(t, server, "p1")
	waitForSubscribers(t, hub, "p1", 1)

	_ = ws.Close()
	waitForSubscribers(t, hub, "p1", 0)

	// Broadcasting into an empty room is a no-op.
	hub.Broadcast("p1", WireFrame{Type: "message.posted", Message: &Message{ID: "m2"}})
}

func TestServicePostBroadcasts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	router := gin.New()
	router.GET("/projects/:id/ws", hub.ServeWS())
	server := httptest.NewServer(router)
	defer server.Close()

	service, _ := newTestService(t, WithHub(hub))
	ws := dialRoom(t, server, "p1")
	waitForSubscribers(t, hub, "p1", 1)

	posted, err := service.Post(context.Background(), PostRequest{
		ProjectID: "p1", AuthorID: "alice", Body: "standup in 5",
	})
	if err != nil {
		t.Fatal(err)
	}

	frame := readFrame(t, ws)
	if frame.Type != "message.posted" || frame.Message.ID != posted.ID || frame.Message.Body != "standup in 5" {
		t.Fatalf("frame = %+v", frame)
	}
}
