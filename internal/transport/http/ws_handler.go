package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"quiz-submission-service/internal/domain"
)

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

const feedPingInterval = 30 * time.Second

// serveFeed streams committed attempts to an admin dashboard until the client goes away.
func (a *API) serveFeed(w http.ResponseWriter, r *http.Request) {
	log := loggerFrom(r).With(slog.Int64("admin_id", adminFrom(r)))

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()
	// Server read/write timeouts survive the hijack; the feed is long-lived.
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	updates, cancel := a.feed.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[domain.AttemptSummary], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		ping := time.NewTicker(feedPingInterval)
		defer ping.Stop()
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					log.Warn("ws write error", slog.Any("err", err))
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[domain.AttemptSummary]{Type: "attempt", Payload: update}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	log.Info("admin feed connected")

	// The feed is push-only; reads just detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	log.Info("admin feed disconnected")
}
