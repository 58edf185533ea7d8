// Package presets caches and persists named filter configurations per filter
// type through the backend.
package presets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/scheme-engine/internal/filter"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

// Type scopes presets to a table.
type Type string

const (
	Product     Type = "product"
	Distributor Type = "distributor"
)

// ParseType validates a preset type name.
func ParseType(name string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(name))); t {
	case Product, Distributor:
		return t, nil
	default:
		return "", fmt.Errorf("unknown preset type %q, expected %s or %s", name, Product, Distributor)
	}
}

// ErrPending is returned while another request of the same store is in
// flight.
var ErrPending = errors.New("a preset request is already pending")

// ErrNotFound is returned when no cached preset matches.
var ErrNotFound = errors.New("preset not found")

// Preset is a named filter state.
type Preset struct {
	ID        string       `json:"_id,omitempty"`
	Name      string       `json:"name"`
	Type      Type         `json:"type"`
	Filters   filter.State `json:"filters"`
	CreatedAt *time.Time   `json:"createdAt,omitempty"`
}

// Backend is the remote preset API.
type Backend interface {
	ListPresets(ctx context.Context, t Type) ([]Preset, error)
	CreatePreset(ctx context.Context, p Preset) (Preset, error)
	UpdatePreset(ctx context.Context, id string, p Preset) (Preset, error)
	DeletePreset(ctx context.Context, id string) error
}

// Store holds the last fetched preset list of one type. Only one request
// runs at a time; a failed request leaves the cached list as it was.
type Store struct {
	backend Backend
	kind    Type
	logger  *zap.Logger

	mu      sync.Mutex
	presets []Preset
	loaded  bool
	pending bool
}

// NewStore returns an empty store for kind.
func NewStore(backend Backend, kind Type, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, kind: kind, logger: logger}
}

// Type returns the preset type of the store.
func (s *Store) Type() Type {
	return s.kind
}

// Pending reports whether a request is in flight.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// List returns the cached presets.
func (s *Store) List() []Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Preset(nil), s.presets...)
}

// Find returns the cached preset named name.
func (s *Store) Find(name string) (Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(name)
}

// Filters returns a copy of the filter state of the named preset.
func (s *Store) Filters(name string) (filter.State, error) {
	p, ok := s.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p.Filters.Clone(), nil
}

func (s *Store) findLocked(name string) (Preset, bool) {
	for _, p := range s.presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// merge replaces the cached preset of the same name or appends p.
func (s *Store) merge(p Preset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.presets {
		if s.presets[i].Name == p.Name {
			s.presets[i] = p
			return
		}
	}
	s.presets = append(s.presets, p)
}

func (s *Store) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return ErrPending
	}
	s.pending = true
	return nil
}

func (s *Store) end() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
}

// Refresh replaces the cache with the backend list.
func (s *Store) Refresh(ctx context.Context) ([]Preset, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()
	return s.refresh(ctx)
}

func (s *Store) refresh(ctx context.Context) ([]Preset, error) {
	list, err := s.backend.ListPresets(ctx, s.kind)
	if err != nil {
		s.logger.Warn("failed to load filter presets",
			zap.String("op", "presets.Refresh"),
			zap.String("type", string(s.kind)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to load %s presets: %w", s.kind, err)
	}

	s.mu.Lock()
	s.presets = append([]Preset(nil), list...)
	s.loaded = true
	s.mu.Unlock()
	return list, nil
}

// Save upserts a preset by name: an existing preset of the same name is
// updated, otherwise a new one is created. A store that has never been
// loaded lists first so the name lookup sees the backend. The list is
// re-fetched afterwards; when that fails the saved preset is merged into the
// cache instead. Empty names and filter states without an active constraint
// are rejected before any request is sent.
func (s *Store) Save(ctx context.Context, name string, filters filter.State) (Preset, error) {
	name = strings.TrimSpace(name)
	problems := &validation.Error{}
	if name == "" {
		problems.Add("name", "preset name is required")
	}
	if !filters.Active() {
		problems.Add("filters", "no active filters to save")
	}
	if err := problems.OrNil(); err != nil {
		return Preset{}, err
	}

	if err := s.begin(); err != nil {
		return Preset{}, err
	}
	defer s.end()

	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		if _, err := s.refresh(ctx); err != nil {
			return Preset{}, err
		}
	}

	p := Preset{Name: name, Type: s.kind, Filters: filters.Compact()}
	s.mu.Lock()
	existing, found := s.findLocked(name)
	s.mu.Unlock()

	var (
		saved Preset
		err   error
		op    = "presets.Create"
	)
	if found {
		op = "presets.Update"
		saved, err = s.backend.UpdatePreset(ctx, existing.ID, p)
	} else {
		saved, err = s.backend.CreatePreset(ctx, p)
	}
	if err != nil {
		s.logger.Warn("failed to save filter preset",
			zap.String("op", op),
			zap.String("name", name),
			zap.Error(err),
		)
		return Preset{}, fmt.Errorf("failed to save preset %q: %w", name, err)
	}

	s.logger.Info("saved filter preset",
		zap.String("op", op),
		zap.String("name", name),
		zap.String("type", string(s.kind)),
		zap.Int("filters", len(p.Filters)),
	)

	if _, err := s.refresh(ctx); err != nil {
		s.logger.Warn("keeping saved preset without relist",
			zap.String("op", op),
			zap.String("name", name),
			zap.Error(err),
		)
		if saved.Name == "" {
			saved.Name = name
		}
		if saved.Type == "" {
			saved.Type = s.kind
		}
		if saved.Filters == nil {
			saved.Filters = p.Filters
		}
		s.merge(saved)
		return saved, nil
	}
	if fresh, ok := s.Find(name); ok {
		return fresh, nil
	}
	return saved, nil
}

// Delete removes the preset with id and re-fetches the list.
func (s *Store) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return validation.NewError("id", "preset id is required")
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	if err := s.backend.DeletePreset(ctx, id); err != nil {
		s.logger.Warn("failed to delete filter preset",
			zap.String("op", "presets.Delete"),
			zap.String("id", id),
			zap.Error(err),
		)
		return fmt.Errorf("failed to delete preset %s: %w", id, err)
	}
	_, err := s.refresh(ctx)
	return err
}
