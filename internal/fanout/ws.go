// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fanout

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/scene"
)

const (
	defaultSnapshotLines = 100
	maxSnapshotLines     = 500
)

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The dashboard is reached via LAN addresses and reverse
		// proxies whose origins are not known up front.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	s.serveConn(r.Context(), conn)
}

// serveConn runs one subscriber's read loop. It blocks until the client
// disconnects or the request context ends.
func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn) {
	sub := newSubscriber(conn)

	initial, err := json.Marshal(s.initialState(ctx))
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal initial state")
		_ = conn.Close(websocket.StatusInternalError, "")
		return
	}

	s.hub.register(sub, initial)
	defer s.hub.drop(sub)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg clientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn().
				Str(log.FieldSubscriberID, sub.id).
				Err(err).
				Msg("malformed client message")
			continue
		}
		s.handleClientMessage(ctx, sub, msg)
	}
}

func (s *Server) handleClientMessage(ctx context.Context, sub *subscriber, msg clientMsg) {
	switch msg.Type {
	case msgSubscribeLogs:
		if msg.Container == "" {
			s.logger.Warn().
				Str(log.FieldSubscriberID, sub.id).
				Msg("subscribe_logs without container")
			return
		}

		lines := msg.Lines
		if lines <= 0 {
			lines = defaultSnapshotLines
		}
		if lines > maxSnapshotLines {
			lines = maxSnapshotLines
		}

		logs, err := s.controller.Logs(ctx, msg.Container, lines)
		if err != nil {
			s.logger.Warn().
				Str(log.FieldSubscriberID, sub.id).
				Str(log.FieldContainer, msg.Container).
				Err(err).
				Msg("log subscription failed")
			return
		}

		s.hub.sendTo(sub, msgLogSnapshot, logsMsg{
			Type:      msgLogSnapshot,
			Timestamp: wsTimestamp(s.now()),
			Container: msg.Container,
			Logs:      logs,
		})
		// The snapshot counts as a broadcast: without a seeded anchor
		// the streamer would replay the whole window next tick.
		if len(logs) > 0 {
			s.streamer.SeedAnchor(msg.Container, logs[len(logs)-1])
		}
		s.hub.subscribeLogs(sub, msg.Container)

	case msgUnsubscribeLogs:
		s.hub.unsubscribeLogs(sub, msg.Container)

	default:
		s.logger.Warn().
			Str(log.FieldSubscriberID, sub.id).
			Str("type", msg.Type).
			Msg("unknown client message type")
	}
}

// initialState snapshots everything a fresh subscriber needs.
func (s *Server) initialState(ctx context.Context) initialStateMsg {
	statuses, _ := s.controller.List(ctx)
	entries := make([]containerEntry, 0, len(statuses))
	for _, st := range statuses {
		entries = append(entries, entryFromStatus(st))
	}

	sc, ts, privacy := s.state.Snapshot()
	return initialStateMsg{
		Type:           msgInitialState,
		Timestamp:      wsTimestamp(s.now()),
		Containers:     entries,
		Scene:          sc.String(),
		SceneTimestamp: ts.UTC().Format(time.RFC3339),
		PrivacyEnabled: privacy,
	}
}

// OnSceneEvent bridges scene state transitions onto the hub. It is
// registered as a scene.State observer and runs after the state mutex
// is released.
func (s *Server) OnSceneEvent(ev scene.Event) {
	switch ev.Kind {
	case scene.EventScene:
		s.hub.Broadcast(msgSceneChange, sceneChangeMsg{
			Type:           msgSceneChange,
			Timestamp:      wsTimestamp(s.now()),
			Scene:          ev.Scene.String(),
			PreviousScene:  ev.PreviousScene.String(),
			SceneTimestamp: ev.ChangedAt.UTC().Format(time.RFC3339),
		})
	case scene.EventPrivacy:
		s.hub.Broadcast(msgPrivacyChange, privacyChangeMsg{
			Type:           msgPrivacyChange,
			Timestamp:      wsTimestamp(s.now()),
			PrivacyEnabled: ev.PrivacyEnabled,
		})
	}
}
