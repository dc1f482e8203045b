// Package memory implements funnel.Store in process memory. It is used by
// tests and by the server when no database is configured.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/meikuraledutech/funnel"
)

type entry struct {
	funnel   funnel.Funnel
	sessions []funnel.SessionTrace
}

// Store is a mutex-guarded map of funnels. Values are copied on the way in
// and out so callers never share state with the store.
type Store struct {
	mu      sync.RWMutex
	order   []string
	funnels map[string]*entry
}

// New creates an empty Store.
func New() *Store {
	return &Store{funnels: make(map[string]*entry)}
}

// CreateSchema is a no-op.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema removes everything.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.funnels = make(map[string]*entry)
	return nil
}

// SaveFunnel stores a copy of f, replacing any funnel with the same ID.
func (s *Store) SaveFunnel(ctx context.Context, f *funnel.Funnel) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	cp := funnel.Funnel{ID: f.ID, Name: f.Name, Stages: funnel.CloneStages(f.Stages)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.funnels[f.ID]; ok {
		e.funnel = cp
		return nil
	}
	s.funnels[f.ID] = &entry{funnel: cp}
	s.order = append(s.order, f.ID)
	return nil
}

// GetFunnel returns a copy of the funnel, or nil, nil if absent.
func (s *Store) GetFunnel(ctx context.Context, funnelID string) (*funnel.Funnel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.funnels[funnelID]
	if !ok {
		return nil, nil
	}
	return &funnel.Funnel{ID: e.funnel.ID, Name: e.funnel.Name, Stages: funnel.CloneStages(e.funnel.Stages)}, nil
}

// DeleteFunnel removes a funnel and its sessions. No error if absent.
func (s *Store) DeleteFunnel(ctx context.Context, funnelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.funnels[funnelID]; !ok {
		return nil
	}
	delete(s.funnels, funnelID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == funnelID })
	return nil
}

// ListFunnels returns funnels in creation order.
func (s *Store) ListFunnels(ctx context.Context) ([]funnel.FunnelSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]funnel.FunnelSummary, 0, len(s.order))
	for _, id := range s.order {
		f := s.funnels[id].funnel
		out = append(out, funnel.FunnelSummary{ID: f.ID, Name: f.Name, StageCount: len(f.Stages)})
	}
	return out, nil
}

// RecordSession appends a trace, replacing one with the same session ID.
func (s *Store) RecordSession(ctx context.Context, funnelID string, trace *funnel.SessionTrace) (string, error) {
	if trace.SessionID == "" {
		trace.SessionID = uuid.NewString()
	}
	cp := *trace
	cp.VisitedStageIDs = slices.Clone(trace.VisitedStageIDs)

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.funnels[funnelID]
	if !ok {
		return "", funnel.ErrFunnelNotFound
	}
	i := slices.IndexFunc(e.sessions, func(t funnel.SessionTrace) bool { return t.SessionID == cp.SessionID })
	if i >= 0 {
		e.sessions[i] = cp
	} else {
		e.sessions = append(e.sessions, cp)
	}
	return cp.SessionID, nil
}

// ListSessions returns copies of a funnel's traces in recording order.
func (s *Store) ListSessions(ctx context.Context, funnelID string) ([]funnel.SessionTrace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []funnel.SessionTrace{}
	e, ok := s.funnels[funnelID]
	if !ok {
		return out, nil
	}
	for _, t := range e.sessions {
		t.VisitedStageIDs = slices.Clone(t.VisitedStageIDs)
		out = append(out, t)
	}
	return out, nil
}
