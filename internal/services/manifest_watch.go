// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the manifest whenever its file changes on disk, until ctx
// is cancelled. The parent directory is watched because editors and
// deploy tools typically replace the file rather than write in place.
func (s *ManifestStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("manifest watcher: %w", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("close manifest watcher")
		}
	}()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.Load(); err != nil {
				s.logger.Warn().Err(err).
					Str("event", "manifest.reload_failed").
					Msg("manifest reload failed, keeping previous snapshot")
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(werr).
				Str("event", "manifest.watch_error").
				Msg("manifest watcher error")
		}
	}
}
