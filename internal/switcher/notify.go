// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package switcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/streamgate/internal/log"
	"github.com/ManuGH/streamgate/internal/metrics"
	"github.com/ManuGH/streamgate/internal/scene"
)

const notifyTimeout = 5 * time.Second

// PeerNotifier posts scene transitions to the dashboard controller so
// subscribers see switches made by this process. Strictly best-effort: a
// failed notification is logged and forgotten.
type PeerNotifier struct {
	base   string
	http   *http.Client
	logger zerolog.Logger
}

// NewPeerNotifier returns a notifier for the peer at baseURL, or nil when
// baseURL is empty (notification disabled).
func NewPeerNotifier(baseURL string) *PeerNotifier {
	if baseURL == "" {
		return nil
	}
	return &PeerNotifier{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: notifyTimeout},
		logger: log.WithComponent("switcher"),
	}
}

// Notify posts the transition. Safe on a nil receiver.
func (n *PeerNotifier) Notify(ctx context.Context, target scene.Scene) {
	if n == nil {
		return
	}

	u := fmt.Sprintf("%s/scene/%s", n.base, target)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		n.warn(err, target)
		return
	}

	res, err := n.http.Do(req)
	if err != nil {
		n.warn(err, target)
		return
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		n.warn(fmt.Errorf("HTTP %d", res.StatusCode), target)
		return
	}

	metrics.IncPeerNotify("ok")
	n.logger.Debug().
		Str(log.FieldScene, target.String()).
		Str("event", "switcher.peer_notified").
		Msg("peer notified of scene change")
}

func (n *PeerNotifier) warn(err error, target scene.Scene) {
	metrics.IncPeerNotify("error")
	n.logger.Warn().Err(err).
		Str(log.FieldScene, target.String()).
		Str("event", "switcher.peer_notify_failed").
		Msg("peer scene notification failed")
}
