// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package switcher applies scene decisions to the media pipeline.
//
// Two shapes are provided behind one interface: Selector flips the active
// input of a long-lived pipeline over its control API (zero gap), Runner
// owns a publisher child process and restarts it per scene (scene-atomic).
// Either can be decorated with best-effort peer notification so the
// dashboard learns about transitions.
package switcher

import (
	"context"

	"github.com/ManuGH/streamgate/internal/scene"
)

// Switcher applies scene commands and reports the switcher's view of the
// program state.
type Switcher interface {
	// SetScene makes the pipeline publish the given scene.
	SetScene(ctx context.Context, target scene.Scene) error
	// Scene returns the last scene successfully applied.
	Scene() scene.Scene
	// Status returns "ok" when the switcher considers the pipeline
	// nominal, otherwise a short state name.
	Status(ctx context.Context) string
}

// WithPeerNotify decorates a switcher so that every successful scene
// application is followed by a best-effort notification to the peer.
// A nil notifier returns the switcher unchanged.
func WithPeerNotify(s Switcher, n *PeerNotifier) Switcher {
	if n == nil {
		return s
	}
	return &notifyingSwitcher{Switcher: s, notifier: n}
}

type notifyingSwitcher struct {
	Switcher
	notifier *PeerNotifier
}

func (w *notifyingSwitcher) SetScene(ctx context.Context, target scene.Scene) error {
	if err := w.Switcher.SetScene(ctx, target); err != nil {
		return err
	}
	w.notifier.Notify(ctx, target)
	return nil
}
