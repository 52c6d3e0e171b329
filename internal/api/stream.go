package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/JakeFAU/experience-hoarder/internal/code"
	"github.com/JakeFAU/experience-hoarder/internal/crawler"
	"github.com/JakeFAU/experience-hoarder/internal/progress"
	"github.com/JakeFAU/experience-hoarder/internal/progress/sinks"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
	streamBuffer    = 64
)

// EventSource hands out live progress subscriptions.
type EventSource interface {
	Subscribe(buffer int) (<-chan progress.Event, func())
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Read-only status feed; any origin may watch.
	CheckOrigin: func(*http.Request) bool { return true },
}

// streamMessage is one websocket frame. Type is "snapshot" for the state at
// connect time and "event" for each progress event after it.
type streamMessage struct {
	Type     string          `json:"type"`
	Snapshot *sinks.Snapshot `json:"snapshot,omitempty"`
	Event    *streamEvent    `json:"event,omitempty"`
}

type streamEvent struct {
	SweepID     string          `json:"sweep_id"`
	TS          time.Time       `json:"ts"`
	Stage       progress.Stage  `json:"stage"`
	Code        code.Code       `json:"code"`
	Status      crawler.Status  `json:"status,omitempty"`
	WindowIndex int             `json:"window_index"`
	Window      []crawler.Entry `json:"window,omitempty"`
	DurationMS  int64           `json:"duration_ms"`
	Note        string          `json:"note,omitempty"`
}

func toStreamEvent(evt progress.Event) *streamEvent {
	return &streamEvent{
		SweepID:     evt.SweepID,
		TS:          evt.TS,
		Stage:       evt.Stage,
		Code:        evt.Code,
		Status:      evt.Status,
		WindowIndex: evt.WindowIndex,
		Window:      evt.Window,
		DurationMS:  evt.Dur.Milliseconds(),
		Note:        evt.Note,
	}
}

func (s *Server) streamSweep(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the handshake so nothing emitted after it is missed.
	events, unsubscribe := s.events.Subscribe(streamBuffer)
	defer unsubscribe()

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	// Inbound frames are ignored; reading drives pong and close handling.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg streamMessage) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
			return false
		}
		return conn.WriteJSON(msg) == nil
	}

	if s.snapshots != nil {
		if snap := s.snapshots.Latest(); snap.SweepID != "" {
			if !write(streamMessage{Type: "snapshot", Snapshot: &snap}) {
				return
			}
		}
	}

	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "sweep finished"),
					time.Now().Add(streamWriteWait))
				return
			}
			if !write(streamMessage{Type: "event", Event: toStreamEvent(evt)}) {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
