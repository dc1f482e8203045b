package funnel

import "fmt"

// FindingKind classifies a validation finding.
type FindingKind string

const (
	FindingDanglingReference    FindingKind = "dangling_reference"
	FindingDuplicateStage       FindingKind = "duplicate_stage"
	FindingDuplicateBranch      FindingKind = "duplicate_branch"
	FindingUnreachableStage     FindingKind = "unreachable_stage"
	FindingPrematureTermination FindingKind = "premature_termination"
	FindingConnectionMismatch   FindingKind = "connection_mismatch"
	FindingEmptyFunnel          FindingKind = "empty_funnel"
)

// Finding is one problem found in a funnel's graph.
type Finding struct {
	Kind     FindingKind `json:"kind"`
	StageID  string      `json:"stage_id,omitempty"`
	BranchID string      `json:"branch_id,omitempty"`
	Target   string      `json:"target,omitempty"`
	Message  string      `json:"message"`
}

// ValidationReport holds every finding of a Validate run. Errors mean the
// funnel should not be published; warnings are for the author to review.
type ValidationReport struct {
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
}

// OK reports whether the report has no errors.
func (r ValidationReport) OK() bool { return len(r.Errors) == 0 }

// Count returns how many findings of kind the report holds.
func (r ValidationReport) Count(kind FindingKind) int {
	n := 0
	for _, list := range [][]Finding{r.Errors, r.Warnings} {
		for _, f := range list {
			if f.Kind == kind {
				n++
			}
		}
	}
	return n
}

// Validate checks stages and their resolved graph. All checks run; the
// result is always a report. A nil graph is resolved from stages.
func Validate(stages []Stage, g *Graph) ValidationReport {
	if g == nil {
		g = Resolve(stages)
	}
	r := ValidationReport{Errors: []Finding{}, Warnings: []Finding{}}

	if len(stages) == 0 {
		r.Warnings = append(r.Warnings, Finding{
			Kind:    FindingEmptyFunnel,
			Message: "funnel has no stages",
		})
		return r
	}

	checkDuplicates(stages, &r)
	checkBranches(stages, g, &r)
	checkReachability(g, &r)
	checkTermination(g, &r)
	checkConnections(stages, g, &r)
	return r
}

func checkDuplicates(stages []Stage, r *ValidationReport) {
	count := make(map[string]int, len(stages))
	for _, s := range stages {
		count[s.ID]++
		if count[s.ID] == 2 {
			r.Errors = append(r.Errors, Finding{
				Kind:    FindingDuplicateStage,
				StageID: s.ID,
				Message: fmt.Sprintf("stage id %q is used by more than one stage", s.ID),
			})
		}
	}
}

// checkBranches looks at the extracted branch points rather than the
// resolved edges. A branch id that repeats within a stage keeps only its
// first edge in the graph, so the rest would otherwise go unseen.
func checkBranches(stages []Stage, g *Graph, r *ValidationReport) {
	done := make(map[string]bool, len(stages))
	for _, s := range stages {
		if done[s.ID] {
			continue
		}
		done[s.ID] = true
		seen := make(map[string]int)
		for _, bp := range ExtractBranchPoints(s) {
			seen[bp.BranchID]++
			if seen[bp.BranchID] == 2 {
				r.Errors = append(r.Errors, Finding{
					Kind:     FindingDuplicateBranch,
					StageID:  s.ID,
					BranchID: bp.BranchID,
					Message:  fmt.Sprintf("branch id %q is derived more than once in stage %q", bp.BranchID, s.ID),
				})
			}
			if bp.Action.Kind != ActionGoTo || g.Has(bp.Action.Target) {
				continue
			}
			r.Errors = append(r.Errors, Finding{
				Kind:     FindingDanglingReference,
				StageID:  s.ID,
				BranchID: bp.BranchID,
				Target:   bp.Action.Target,
				Message:  fmt.Sprintf("branch %q of stage %q points to unknown stage %q", bp.BranchID, s.ID, bp.Action.Target),
			})
		}
	}
}

// checkReachability walks from the entry stage. Loops are fine; a stage is
// only reported when no path from the entry reaches it.
func checkReachability(g *Graph, r *ValidationReport) {
	entry := g.Entry()
	seen := map[string]bool{entry: true}
	queue := []string{entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, j := range g.outgoing[id] {
			e := g.edges[j]
			if e.Terminal || seen[e.To] || !g.Has(e.To) {
				continue
			}
			seen[e.To] = true
			queue = append(queue, e.To)
		}
	}
	for _, id := range g.order {
		if seen[id] {
			continue
		}
		r.Warnings = append(r.Warnings, Finding{
			Kind:    FindingUnreachableStage,
			StageID: id,
			Message: fmt.Sprintf("stage %q cannot be reached from the entry stage", id),
		})
	}
}

// checkTermination flags interior stages where every branch ends the funnel
// and at least one of them does so without an explicit Submit. A stage that
// only submits was meant to end there. The last stage is never flagged.
func checkTermination(g *Graph, r *ValidationReport) {
	for pos, id := range g.order {
		if pos == len(g.order)-1 {
			break
		}
		out := g.outgoing[id]
		if len(out) == 0 {
			continue
		}
		terminal, stated := true, true
		for _, j := range out {
			e := g.edges[j]
			if !e.Terminal {
				terminal = false
				break
			}
			if e.Origin != OriginSubmit {
				stated = false
			}
		}
		if terminal && !stated {
			r.Warnings = append(r.Warnings, Finding{
				Kind:    FindingPrematureTermination,
				StageID: id,
				Message: fmt.Sprintf("stage %q ends the funnel although later stages follow it", id),
			})
		}
	}
}

func checkConnections(stages []Stage, g *Graph, r *ValidationReport) {
	done := make(map[string]bool, len(stages))
	for _, s := range stages {
		if done[s.ID] {
			continue
		}
		done[s.ID] = true
		for _, c := range s.Connections {
			if connectionAgrees(g, s.ID, c) {
				continue
			}
			r.Warnings = append(r.Warnings, Finding{
				Kind:     FindingConnectionMismatch,
				StageID:  s.ID,
				BranchID: c.SourceBranchID,
				Target:   c.ToStageID,
				Message:  fmt.Sprintf("canvas connection from stage %q to %q disagrees with the branch actions", s.ID, c.ToStageID),
			})
		}
	}
}

func connectionAgrees(g *Graph, stageID string, c Connection) bool {
	if c.SourceBranchID != "" {
		e, ok := g.Lookup(stageID, c.SourceBranchID)
		return ok && !e.Terminal && e.To == c.ToStageID
	}
	for _, j := range g.outgoing[stageID] {
		if e := g.edges[j]; !e.Terminal && e.To == c.ToStageID {
			return true
		}
	}
	return false
}
