package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type streamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Stream pushes every store snapshot to the browser over a websocket.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	feed, cancelFeed := h.feed.Subscribe()
	defer cancelFeed()
	comments, cancelComments := h.comments.Subscribe()
	defer cancelComments()
	session, cancelSession := h.session.Subscribe()
	defer cancelSession()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	send := func(kind string, data interface{}) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(streamMessage{Type: kind, Data: data}); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return false
		}
		return true
	}

	for {
		var ok bool
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case state, open := <-feed:
			ok = open && send("feed", state)
		case state, open := <-comments:
			ok = open && send("comments", state)
		case state, open := <-session:
			ok = open && send("session", state)
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			ok = conn.WriteMessage(websocket.PingMessage, nil) == nil
		}
		if !ok {
			return
		}
	}
}
