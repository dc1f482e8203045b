package funnel

import "encoding/json"

// Funnel is the serializable snapshot of one funnel: its stages in traversal order.
type Funnel struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Stages []Stage `json:"stages"`
}

// FunnelSummary is the listing view of a stored funnel.
type FunnelSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	StageCount int    `json:"stage_count"`
}

// Stage is one screen of the funnel and a node in the flow graph.
// ID is immutable once created; Position is display-only.
type Stage struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Components  []Component  `json:"components"`
	Position    *Position    `json:"position,omitempty"`
	Connections []Connection `json:"connections,omitempty"`
}

// Position is the stage's location on the flow canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ComponentKind names a widget type.
type ComponentKind string

const (
	KindChoice      ComponentKind = "choice"
	KindImageChoice ComponentKind = "image_choice"
	KindDropdown    ComponentKind = "dropdown"
	KindButton      ComponentKind = "button"
	KindText        ComponentKind = "text"
	KindImage       ComponentKind = "image"
	KindVideo       ComponentKind = "video"
	KindTimer       ComponentKind = "timer"
	KindAlert       ComponentKind = "alert"
	KindSpacer      ComponentKind = "spacer"
	KindInput       ComponentKind = "input"
)

// Component is a widget inside a stage. Only options and button fields
// matter to the graph; Data carries everything else untouched.
type Component struct {
	ID           string          `json:"id"`
	Kind         ComponentKind   `json:"type"`
	Options      []Option        `json:"options,omitempty"`
	ButtonAction ButtonAction    `json:"buttonAction,omitempty"`
	ButtonTarget string          `json:"buttonTarget,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// Destination is where a choice option sends the respondent.
type Destination string

const (
	DestinationNext     Destination = "next"
	DestinationSubmit   Destination = "submit"
	DestinationSpecific Destination = "specific"
)

// Option is one answer of a choice-style component.
type Option struct {
	ID                 string      `json:"id"`
	Label              string      `json:"label,omitempty"`
	Destination        Destination `json:"destination,omitempty"`
	DestinationStageID string      `json:"destinationStageId,omitempty"`
}

// ButtonAction is what a button does when pressed.
type ButtonAction string

const (
	ButtonNext   ButtonAction = "next"
	ButtonSubmit ButtonAction = "submit"
	ButtonStage  ButtonAction = "stage"
	// ButtonURL opens an external link, which leaves the funnel.
	ButtonURL ButtonAction = "url"
)

// Connection is an edge drawn on the flow canvas from the stage that owns it.
// It is a layout hint; the branch point's own action stays authoritative.
type Connection struct {
	SourceBranchID string `json:"sourceBranchId,omitempty"`
	ToStageID      string `json:"toStageId"`
}

// SessionTrace is the ordered list of stages one respondent visited.
type SessionTrace struct {
	SessionID       string   `json:"session_id"`
	VisitedStageIDs []string `json:"visited_stage_ids"`
	Completed       bool     `json:"completed"`
}

// StageIDs returns the ids of f's stages in order.
func (f *Funnel) StageIDs() []string {
	ids := make([]string, len(f.Stages))
	for i, s := range f.Stages {
		ids[i] = s.ID
	}
	return ids
}

// clone deep-copies a stage so snapshots never share slices with the store.
func (s Stage) clone() Stage {
	out := s
	out.Components = make([]Component, len(s.Components))
	for i, c := range s.Components {
		cc := c
		if c.Options != nil {
			cc.Options = append([]Option(nil), c.Options...)
		}
		if c.Data != nil {
			cc.Data = append(json.RawMessage(nil), c.Data...)
		}
		out.Components[i] = cc
	}
	if s.Position != nil {
		p := *s.Position
		out.Position = &p
	}
	if s.Connections != nil {
		out.Connections = append([]Connection(nil), s.Connections...)
	}
	return out
}

// CloneStages returns a deep copy of stages.
func CloneStages(stages []Stage) []Stage {
	out := make([]Stage, len(stages))
	for i, s := range stages {
		out[i] = s.clone()
	}
	return out
}
