package funnel

import "encoding/json"

// EdgeOrigin tells how an edge's destination was decided.
type EdgeOrigin string

const (
	// OriginExplicit is a GoToStage action.
	OriginExplicit EdgeOrigin = "explicit"
	// OriginPositional is a Next action landing on the following stage.
	OriginPositional EdgeOrigin = "positional"
	// OriginSubmit is an explicit terminal action.
	OriginSubmit EdgeOrigin = "submit"
	// OriginEnd is a Next action on the last stage.
	OriginEnd EdgeOrigin = "end"
	// OriginExit is a button that leaves the funnel for an external URL.
	OriginExit EdgeOrigin = "exit"
)

// Edge is one resolved (stage, branch point) -> next stage mapping.
// Terminal edges have an empty To.
type Edge struct {
	From     string     `json:"from"`
	BranchID string     `json:"branch_id"`
	To       string     `json:"to,omitempty"`
	Terminal bool       `json:"terminal"`
	Origin   EdgeOrigin `json:"origin"`
	Action   Action     `json:"action"`
}

// Implicit reports whether the destination came from stage order rather
// than being stated by the author.
func (e Edge) Implicit() bool {
	return e.Origin == OriginPositional || e.Origin == OriginEnd
}

// BranchRef identifies a branch point by stage and branch id.
type BranchRef struct {
	StageID  string `json:"stage_id"`
	BranchID string `json:"branch_id"`
}

// Graph is the resolved flow of a funnel. It is derived from stages on
// every call to Resolve and never mutated afterwards.
type Graph struct {
	order    []string
	index    map[string]int
	edges    []Edge
	byRef    map[BranchRef]int
	outgoing map[string][]int
	inbound  map[string][]BranchRef
}

// Resolve builds the graph for stages in traversal order. If a stage id
// occurs more than once only the first occurrence takes part.
func Resolve(stages []Stage) *Graph {
	g := &Graph{
		index:    make(map[string]int, len(stages)),
		byRef:    make(map[BranchRef]int),
		outgoing: make(map[string][]int, len(stages)),
		inbound:  make(map[string][]BranchRef),
	}

	kept := make([]Stage, 0, len(stages))
	for _, s := range stages {
		if _, dup := g.index[s.ID]; dup {
			continue
		}
		g.index[s.ID] = len(g.order)
		g.order = append(g.order, s.ID)
		kept = append(kept, s)
	}

	for pos, s := range kept {
		for _, bp := range effectiveBranchPoints(s) {
			ref := BranchRef{StageID: s.ID, BranchID: bp.BranchID}
			// Repeated branch ids keep the first edge; Validate reports them.
			if _, dup := g.byRef[ref]; dup {
				continue
			}
			e := Edge{From: s.ID, BranchID: bp.BranchID, Action: bp.Action}
			switch bp.Action.Kind {
			case ActionGoTo:
				e.To, e.Origin = bp.Action.Target, OriginExplicit
			case ActionSubmit:
				e.Terminal, e.Origin = true, OriginSubmit
			case ActionExit:
				e.Terminal, e.Origin = true, OriginExit
			default:
				if pos+1 < len(kept) {
					e.To, e.Origin = kept[pos+1].ID, OriginPositional
				} else {
					e.Terminal, e.Origin = true, OriginEnd
				}
			}
			g.byRef[ref] = len(g.edges)
			g.outgoing[s.ID] = append(g.outgoing[s.ID], len(g.edges))
			g.edges = append(g.edges, e)
			if !e.Terminal {
				g.inbound[e.To] = append(g.inbound[e.To], ref)
			}
		}
	}
	return g
}

// Entry returns the entry stage id, or "" for an empty funnel.
func (g *Graph) Entry() string {
	if len(g.order) == 0 {
		return ""
	}
	return g.order[0]
}

// Stages returns stage ids in traversal order.
func (g *Graph) Stages() []string {
	return append([]string(nil), g.order...)
}

// Has reports whether id is a stage of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Position returns the traversal index of a stage, or -1.
func (g *Graph) Position(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	return -1
}

// Edges returns all edges ordered by stage, then branch point.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Lookup returns the edge for a (stage, branch point) pair.
func (g *Graph) Lookup(stageID, branchID string) (Edge, bool) {
	i, ok := g.byRef[BranchRef{StageID: stageID, BranchID: branchID}]
	if !ok {
		return Edge{}, false
	}
	return g.edges[i], true
}

// Outgoing returns the edges leaving a stage in branch order.
func (g *Graph) Outgoing(stageID string) []Edge {
	idx := g.outgoing[stageID]
	out := make([]Edge, len(idx))
	for i, j := range idx {
		out[i] = g.edges[j]
	}
	return out
}

// Inbound returns the branch points that resolve to stageID.
func (g *Graph) Inbound(stageID string) []BranchRef {
	return append([]BranchRef(nil), g.inbound[stageID]...)
}

type graphJSON struct {
	Stages  []string               `json:"stages"`
	Edges   []Edge                 `json:"edges"`
	Inbound map[string][]BranchRef `json:"inbound"`
}

// MarshalJSON renders the graph for the flow canvas.
func (g *Graph) MarshalJSON() ([]byte, error) {
	inbound := make(map[string][]BranchRef, len(g.order))
	for _, id := range g.order {
		inbound[id] = g.Inbound(id)
	}
	return json.Marshal(graphJSON{
		Stages:  append([]string{}, g.order...),
		Edges:   append([]Edge{}, g.edges...),
		Inbound: inbound,
	})
}
