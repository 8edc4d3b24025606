// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/ManuGH/streamgate/internal/log"
)

// EventKind distinguishes state cell mutations.
type EventKind int

// Mutation kinds delivered to observers.
const (
	EventScene EventKind = iota
	EventPrivacy
)

// Event describes one non-idempotent mutation of the state cell.
type Event struct {
	Kind           EventKind
	Scene          Scene
	PreviousScene  Scene
	ChangedAt      time.Time
	PrivacyEnabled bool
}

// Observer receives state cell events. Observers run after the state mutex
// is released and must do their own synchronisation.
type Observer func(Event)

// State is the process-wide scene and privacy cell. All mutation is
// serialised by an internal mutex; the privacy flag is persisted to disk as
// part of the mutation.
type State struct {
	mu        sync.Mutex
	scene     Scene
	changedAt time.Time
	privacy   bool
	observers []Observer

	path   string
	logger zerolog.Logger
	now    func() time.Time
}

type privacyFile struct {
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState returns a cell in the fallback scene with privacy disabled.
// path names the privacy persistence file.
func NewState(path string) *State {
	s := &State{
		scene:  Fallback,
		path:   path,
		logger: log.WithComponent("scene"),
		now:    time.Now,
	}
	s.changedAt = s.now().UTC()
	return s
}

// Load reads the persisted privacy flag. A missing file means privacy is
// disabled; a corrupt file is reported but treated the same way.
func (s *State) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read privacy file: %w", err)
	}

	var pf privacyFile
	if err := json.Unmarshal(data, &pf); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldPath, s.path).
			Str("event", "privacy.file_corrupt").
			Msg("privacy file unreadable, starting disabled")
		return nil
	}

	s.mu.Lock()
	s.privacy = pf.Enabled
	s.mu.Unlock()

	s.logger.Info().Bool("enabled", pf.Enabled).Str(log.FieldPath, s.path).
		Str("event", "privacy.loaded").
		Msg("privacy state restored")
	return nil
}

// Subscribe registers an observer for future mutations.
func (s *State) Subscribe(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Scene returns the current scene and the instant of the last transition.
func (s *State) Scene() (Scene, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene, s.changedAt
}

// PrivacyEnabled returns the current privacy flag.
func (s *State) PrivacyEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.privacy
}

// Snapshot returns scene, transition instant and privacy flag atomically.
func (s *State) Snapshot() (Scene, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene, s.changedAt, s.privacy
}

// SetScene records an external scene transition. Setting the scene it is
// already in is a no-op and notifies nobody. Returns whether a transition
// happened.
func (s *State) SetScene(target Scene) bool {
	s.mu.Lock()
	if s.scene == target {
		s.mu.Unlock()
		return false
	}
	prev := s.scene
	s.scene = target
	s.changedAt = s.now().UTC()
	ev := Event{
		Kind:           EventScene,
		Scene:          target,
		PreviousScene:  prev,
		ChangedAt:      s.changedAt,
		PrivacyEnabled: s.privacy,
	}
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	s.logger.Info().
		Str(log.FieldScene, string(target)).
		Str(log.FieldPrevScene, string(prev)).
		Str("event", "scene.changed").
		Msg("scene transition recorded")

	for _, fn := range observers {
		fn(ev)
	}
	return true
}

// SetPrivacy toggles the privacy flag and persists it. Setting the current
// value is a no-op. The in-memory flag flips even when persistence fails;
// the error is returned so callers can report it.
func (s *State) SetPrivacy(enabled bool) (bool, error) {
	s.mu.Lock()
	if s.privacy == enabled {
		s.mu.Unlock()
		return false, nil
	}
	s.privacy = enabled
	persistErr := s.persistLocked(enabled)
	ev := Event{
		Kind:           EventPrivacy,
		Scene:          s.scene,
		ChangedAt:      s.changedAt,
		PrivacyEnabled: enabled,
	}
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	s.logger.Info().Bool("enabled", enabled).
		Str("event", "privacy.changed").
		Msg("privacy mode toggled")

	for _, fn := range observers {
		fn(ev)
	}
	return true, persistErr
}

// persistLocked writes the privacy file atomically. Callers hold the mutex.
func (s *State) persistLocked(enabled bool) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create privacy dir: %w", err)
	}

	data, err := json.Marshal(privacyFile{Enabled: enabled, UpdatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal privacy state: %w", err)
	}

	// renameio handles: temp file creation, fsync, atomic rename, cleanup on error
	pendingFile, err := renameio.NewPendingFile(s.path)
	if err != nil {
		return fmt.Errorf("create pending privacy file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			s.logger.Debug().Err(err).Msg("cleanup pending privacy file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write privacy state: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace privacy file: %w", err)
	}
	return nil
}
