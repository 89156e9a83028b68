package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 5 * time.Second
	streamPongWait   = 60 * time.Second // client must answer a ping within this
	defaultStreamGap = time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream pushes the view to a websocket client at StreamInterval
// until the client goes away. The server pings so that a client which only
// listens keeps its read deadline alive through its automatic pongs.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.acquireStream() {
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.releaseStream()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	pongWait := s.pongWait
	if pongWait <= 0 {
		pongWait = streamPongWait
	}

	// Reader: discards client frames and notices the close.
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

	gap := s.StreamInterval
	if gap <= 0 {
		gap = defaultStreamGap
	}
	ticker := time.NewTicker(gap)
	defer ticker.Stop()
	pinger := time.NewTicker(pongWait * 9 / 10)
	defer pinger.Stop()

	push := true
	for {
		if push {
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(s.Session.View()); err != nil {
				slog.Debug("stream closed", "error", err)
				return
			}
		}
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			push = true
		case <-pinger.C:
			push = false
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				slog.Debug("stream ping failed", "error", err)
				return
			}
		}
	}
}
