package funnel

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// StageStore is the editor-side, single-writer model of a funnel's stages.
// Slice order is the traversal order used to resolve "next".
type StageStore struct {
	stages []Stage
	newID  func() string
}

// StageStoreOption configures a StageStore.
type StageStoreOption func(*StageStore)

// WithIDGenerator overrides uuid-based stage id allocation.
func WithIDGenerator(gen func() string) StageStoreOption {
	return func(s *StageStore) { s.newID = gen }
}

// NewStageStore creates a store seeded with a copy of stages.
func NewStageStore(stages []Stage, opts ...StageStoreOption) *StageStore {
	s := &StageStore{
		stages: CloneStages(stages),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create appends a new empty stage and returns a copy of it. Never fails.
func (s *StageStore) Create(name string) Stage {
	id := s.newID()
	for s.index(id) >= 0 {
		id = s.newID()
	}
	st := Stage{ID: id, Name: name, Components: []Component{}}
	s.stages = append(s.stages, st)
	return st.clone()
}

// Get returns a copy of the stage with the given id.
func (s *StageStore) Get(id string) (Stage, error) {
	i := s.index(id)
	if i < 0 {
		return Stage{}, fmt.Errorf("%w: %s", ErrStageNotFound, id)
	}
	return s.stages[i].clone(), nil
}

// Rename changes a stage's display name.
func (s *StageStore) Rename(id, name string) error {
	return s.update(id, func(st *Stage) { st.Name = name })
}

// SetComponents replaces a stage's components.
func (s *StageStore) SetComponents(id string, components []Component) error {
	tmp := Stage{Components: components}.clone()
	return s.update(id, func(st *Stage) { st.Components = tmp.Components })
}

// SetPosition moves a stage on the canvas. A nil position clears it.
func (s *StageStore) SetPosition(id string, pos *Position) error {
	return s.update(id, func(st *Stage) {
		if pos == nil {
			st.Position = nil
			return
		}
		p := *pos
		st.Position = &p
	})
}

// Connect records a canvas edge from stage id. An identical edge is not duplicated.
func (s *StageStore) Connect(id string, conn Connection) error {
	return s.update(id, func(st *Stage) {
		if !slices.Contains(st.Connections, conn) {
			st.Connections = append(st.Connections, conn)
		}
	})
}

// Disconnect removes a canvas edge from stage id. Absent edges are ignored.
func (s *StageStore) Disconnect(id string, conn Connection) error {
	return s.update(id, func(st *Stage) {
		st.Connections = slices.DeleteFunc(st.Connections, func(c Connection) bool { return c == conn })
	})
}

// Remove deletes a stage. References to it from other stages are left in
// place so the validator reports them as dangling.
func (s *StageStore) Remove(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrStageNotFound, id)
	}
	s.stages = slices.Delete(s.stages, i, i+1)
	return nil
}

// Reorder sets the traversal order. ids must hold every current stage id
// exactly as often as it occurs, so a store seeded with repeated ids can
// still be reordered. Stages sharing an id keep their relative order.
func (s *StageStore) Reorder(ids []string) error {
	if len(ids) != len(s.stages) {
		return fmt.Errorf("%w: got %d ids, have %d stages", ErrInvalidReorder, len(ids), len(s.stages))
	}
	byID := make(map[string][]int, len(s.stages))
	for i, st := range s.stages {
		byID[st.ID] = append(byID[st.ID], i)
	}
	next := make([]Stage, 0, len(ids))
	for _, id := range ids {
		pending, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: unknown stage %q", ErrInvalidReorder, id)
		}
		if len(pending) == 0 {
			return fmt.Errorf("%w: duplicate stage %q", ErrInvalidReorder, id)
		}
		next = append(next, s.stages[pending[0]])
		byID[id] = pending[1:]
	}
	s.stages = next
	return nil
}

// Move relocates one stage to index, keeping the relative order of the rest.
// index is clamped to the valid range.
func (s *StageStore) Move(id string, index int) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrStageNotFound, id)
	}
	ids := s.IDs()
	ids = slices.Delete(ids, i, i+1)
	index = max(0, min(index, len(ids)))
	ids = slices.Insert(ids, index, id)
	return s.Reorder(ids)
}

// IDs returns stage ids in traversal order.
func (s *StageStore) IDs() []string {
	ids := make([]string, len(s.stages))
	for i, st := range s.stages {
		ids[i] = st.ID
	}
	return ids
}

// Len returns the number of stages.
func (s *StageStore) Len() int { return len(s.stages) }

// Snapshot returns a deep copy of the stages in traversal order.
func (s *StageStore) Snapshot() []Stage {
	return CloneStages(s.stages)
}

func (s *StageStore) update(id string, fn func(*Stage)) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrStageNotFound, id)
	}
	fn(&s.stages[i])
	return nil
}

func (s *StageStore) index(id string) int {
	return slices.IndexFunc(s.stages, func(st Stage) bool { return st.ID == id })
}
