package funnel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// EdgeCount is the number of sessions attributed to one edge. Counts are
// fractional when a transition is explained by several branch points.
type EdgeCount struct {
	Edge
	Count float64 `json:"count"`
}

// FunnelReport is the analytics view of a funnel over a set of sessions.
// DropOff is nil for stages no session entered.
type FunnelReport struct {
	Sessions               int                 `json:"sessions"`
	CompletedSessions      int                 `json:"completed_sessions"`
	StageVisits            map[string]int      `json:"per_stage_visits"`
	EdgeCounts             []EdgeCount         `json:"per_edge_counts"`
	DropOff                map[string]*float64 `json:"drop_off_by_stage"`
	UnexplainedTransitions int                 `json:"unexplained_transitions"`
	UnknownStageVisits     int                 `json:"unknown_stage_visits"`
}

// EdgeCount returns the count attributed to a (stage, branch point) edge.
func (r *FunnelReport) EdgeCount(stageID, branchID string) float64 {
	for _, ec := range r.EdgeCounts {
		if ec.From == stageID && ec.BranchID == branchID {
			return ec.Count
		}
	}
	return 0
}

// Tally accumulates per-session statistics. Tallies over disjoint session
// sets combine with Merge.
type Tally struct {
	sessions      int
	completed     int
	visits        map[string]int
	entered       map[string]int
	continued     map[string]int
	edges         map[BranchRef]float64
	unexplained   int
	unknownVisits int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{
		visits:    make(map[string]int),
		entered:   make(map[string]int),
		continued: make(map[string]int),
		edges:     make(map[BranchRef]float64),
	}
}

// Add folds one session trace into the tally.
//
// A transition no edge of g explains is counted as unexplained and its
// source visit is left out of drop-off. A completed session counts as
// continuing past its last stage through that stage's terminal edges.
// A stage id unknown to g counts in UnknownStageVisits; in the middle of a
// trace it adds two unexplained transitions, the one into it and the one
// out of it.
func (t *Tally) Add(g *Graph, trace SessionTrace) {
	t.sessions++
	if trace.Completed {
		t.completed++
	}
	v := trace.VisitedStageIDs
	for i, id := range v {
		if !g.Has(id) {
			t.unknownVisits++
			if i < len(v)-1 || trace.Completed {
				t.unexplained++
			}
			continue
		}
		t.visits[id]++

		var matches []Edge
		switch {
		case i < len(v)-1:
			matches = edgesTo(g, id, v[i+1])
		case trace.Completed:
			matches = terminalEdges(g, id)
		default:
			// Abandoned here.
			t.entered[id]++
			continue
		}

		if len(matches) == 0 {
			t.unexplained++
			continue
		}
		t.entered[id]++
		t.continued[id]++
		w := 1 / float64(len(matches))
		for _, e := range matches {
			t.edges[BranchRef{StageID: e.From, BranchID: e.BranchID}] += w
		}
	}
}

// Merge adds o's counts into t.
func (t *Tally) Merge(o *Tally) {
	t.sessions += o.sessions
	t.completed += o.completed
	t.unexplained += o.unexplained
	t.unknownVisits += o.unknownVisits
	for k, n := range o.visits {
		t.visits[k] += n
	}
	for k, n := range o.entered {
		t.entered[k] += n
	}
	for k, n := range o.continued {
		t.continued[k] += n
	}
	for k, n := range o.edges {
		t.edges[k] += n
	}
}

// Report renders the tally against g. Every stage and edge of g appears,
// with zero counts when nothing was recorded.
func (t *Tally) Report(g *Graph) *FunnelReport {
	r := &FunnelReport{
		Sessions:               t.sessions,
		CompletedSessions:      t.completed,
		StageVisits:            make(map[string]int, len(g.order)),
		EdgeCounts:             make([]EdgeCount, 0, len(g.edges)),
		DropOff:                make(map[string]*float64, len(g.order)),
		UnexplainedTransitions: t.unexplained,
		UnknownStageVisits:     t.unknownVisits,
	}
	for _, id := range g.order {
		r.StageVisits[id] = t.visits[id]
		r.DropOff[id] = nil
		if in := t.entered[id]; in > 0 {
			d := 1 - float64(t.continued[id])/float64(in)
			r.DropOff[id] = &d
		}
	}
	for _, e := range g.edges {
		r.EdgeCounts = append(r.EdgeCounts, EdgeCount{
			Edge:  e,
			Count: t.edges[BranchRef{StageID: e.From, BranchID: e.BranchID}],
		})
	}
	return r
}

// Aggregate computes the funnel report of traces over g.
func Aggregate(g *Graph, traces []SessionTrace) *FunnelReport {
	t := NewTally()
	for _, tr := range traces {
		t.Add(g, tr)
	}
	return t.Report(g)
}

// AggregateParallel is Aggregate split over up to workers partitions.
// It only fails when ctx is cancelled.
func AggregateParallel(ctx context.Context, g *Graph, traces []SessionTrace, workers int) (*FunnelReport, error) {
	if workers <= 1 || len(traces) < 2*workers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Aggregate(g, traces), nil
	}

	size := (len(traces) + workers - 1) / workers
	parts := make([]*Tally, 0, workers)
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for start := 0; start < len(traces); start += size {
		chunk := traces[start:min(start+size, len(traces))]
		t := NewTally()
		parts = append(parts, t)
		eg.Go(func() error {
			for i, tr := range chunk {
				if i%256 == 0 {
					if err := egctx.Err(); err != nil {
						return err
					}
				}
				t.Add(g, tr)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	total := NewTally()
	for _, p := range parts {
		total.Merge(p)
	}
	return total.Report(g), nil
}

func edgesTo(g *Graph, from, to string) []Edge {
	if !g.Has(to) {
		return nil
	}
	var out []Edge
	for _, j := range g.outgoing[from] {
		if e := g.edges[j]; !e.Terminal && e.To == to {
			out = append(out, e)
		}
	}
	return out
}

func terminalEdges(g *Graph, from string) []Edge {
	var out []Edge
	for _, j := range g.outgoing[from] {
		if e := g.edges[j]; e.Terminal {
			out = append(out, e)
		}
	}
	return out
}
