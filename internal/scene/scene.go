// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scene holds the program scene model and the shared scene/privacy
// state cell.
package scene

import (
	"errors"
	"fmt"
	"strings"
)

// Scene is the selected program source at a given moment.
type Scene string

// The two program scenes. The program is always in exactly one of them.
const (
	Live     Scene = "live"
	Fallback Scene = "fallback"
)

// ErrUnknownScene reports a scene name outside the two-valued domain.
var ErrUnknownScene = errors.New("unknown scene")

// Parse maps a wire name onto a Scene.
func Parse(name string) (Scene, error) {
	switch strings.ToLower(name) {
	case string(Live):
		return Live, nil
	case string(Fallback):
		return Fallback, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScene, name)
	}
}

// Other returns the opposite scene.
func (s Scene) Other() Scene {
	if s == Live {
		return Fallback
	}
	return Live
}

func (s Scene) String() string {
	return string(s)
}

// Names returns the wire names of both scenes.
func Names() []string {
	return []string{string(Live), string(Fallback)}
}
