// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package services owns the managed container fleet: the declarative
// manifest, the runtime client, compose-level batch operations and the
// lifecycle controller that ties them together.
package services

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/streamgate/internal/log"
)

// ServiceDescriptor is the declarative record for one managed service.
type ServiceDescriptor struct {
	// ShortName is the identifier used by the API.
	ShortName string
	// RuntimeName is the container name used by the runtime.
	RuntimeName string
	// IsManual marks services that are materialised without their
	// declared dependencies.
	IsManual bool
}

// Manifest is one parsed snapshot of the service manifest.
type Manifest struct {
	Path     string
	Project  string
	Services []ServiceDescriptor

	byShort map[string]ServiceDescriptor
}

// Lookup resolves a short name to its descriptor.
func (m *Manifest) Lookup(short string) (ServiceDescriptor, bool) {
	d, ok := m.byShort[short]
	return d, ok
}

// compose file wire model; only the fields the controller needs.
type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	ContainerName string   `yaml:"container_name"`
	Profiles      []string `yaml:"profiles"`
}

// parseManifest reads a compose file and derives the descriptor set.
// Container names fall back to "<project>-<service-key>" when the entry
// declares none; ${VAR} and ${VAR:-default} references resolve from the
// environment.
func parseManifest(path, project string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var cf composeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(cf.Services) == 0 {
		return nil, fmt.Errorf("manifest %s declares no services", path)
	}

	m := &Manifest{
		Path:    path,
		Project: project,
		byShort: make(map[string]ServiceDescriptor, len(cf.Services)),
	}
	for key, svc := range cf.Services {
		runtimeName := expandEnv(svc.ContainerName)
		if runtimeName == "" {
			runtimeName = project + "-" + key
		}

		short := key
		if trimmed := strings.TrimPrefix(runtimeName, project+"-"); trimmed != runtimeName && trimmed != "" {
			short = trimmed
		}

		m.Services = append(m.Services, ServiceDescriptor{
			ShortName:   short,
			RuntimeName: runtimeName,
			IsManual:    hasProfile(svc.Profiles, "manual"),
		})
	}

	sort.Slice(m.Services, func(i, j int) bool {
		return m.Services[i].ShortName < m.Services[j].ShortName
	})
	for _, d := range m.Services {
		m.byShort[d.ShortName] = d
	}
	return m, nil
}

func hasProfile(profiles []string, want string) bool {
	for _, p := range profiles {
		if p == want {
			return true
		}
	}
	return false
}

// expandEnv resolves ${VAR}, ${VAR:-default} and $VAR references. "$$"
// escapes a literal dollar sign, as in compose files.
func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		if name == "$" {
			return "$"
		}
		if key, def, ok := strings.Cut(name, ":-"); ok {
			if v := os.Getenv(key); v != "" {
				return v
			}
			return def
		}
		return os.Getenv(name)
	})
}

// ManifestStore holds the current manifest snapshot and supports
// reloading. A failed reload keeps the previous snapshot.
type ManifestStore struct {
	path    string
	project string
	logger  zerolog.Logger

	mu sync.RWMutex
	m  *Manifest
}

// NewManifestStore returns an empty store; call Load before first use.
func NewManifestStore(path, project string) *ManifestStore {
	return &ManifestStore{
		path:    path,
		project: project,
		logger:  log.WithComponent("manifest"),
	}
}

// Load parses the manifest file and swaps it in on success.
func (s *ManifestStore) Load() error {
	m, err := parseManifest(s.path, s.project)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.m = m
	s.mu.Unlock()

	s.logger.Info().
		Int("services", len(m.Services)).
		Str(log.FieldPath, s.path).
		Str("event", "manifest.loaded").
		Msg("service manifest loaded")
	return nil
}

// Current returns the active snapshot, or nil before the first Load.
func (s *ManifestStore) Current() *Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m
}

// Services returns the declared descriptors in short-name order.
func (s *ManifestStore) Services() []ServiceDescriptor {
	m := s.Current()
	if m == nil {
		return nil
	}
	return m.Services
}

// Lookup resolves a short name against the active snapshot.
func (s *ManifestStore) Lookup(short string) (ServiceDescriptor, bool) {
	m := s.Current()
	if m == nil {
		return ServiceDescriptor{}, false
	}
	return m.Lookup(short)
}
