package funnel

// AutoBranchID is the implicit branch of a stage that has no branch points.
const AutoBranchID = "__auto__"

// ActionKind is the navigation effect of a branch point.
type ActionKind string

const (
	ActionNext   ActionKind = "next"
	ActionSubmit ActionKind = "submit"
	ActionGoTo   ActionKind = "goto"
	ActionExit   ActionKind = "exit"
)

// Action is where a branch point sends the respondent. Target is set only
// for ActionGoTo.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Target string     `json:"target,omitempty"`
}

// Next advances to the following stage in traversal order.
func Next() Action { return Action{Kind: ActionNext} }

// Submit ends the funnel.
func Submit() Action { return Action{Kind: ActionSubmit} }

// Exit leaves the funnel through an external link.
func Exit() Action { return Action{Kind: ActionExit} }

// GoTo jumps to an explicit stage.
func GoTo(stageID string) Action { return Action{Kind: ActionGoTo, Target: stageID} }

// BranchPoint is an option or button able to redirect the respondent.
type BranchPoint struct {
	StageID     string `json:"stage_id"`
	ComponentID string `json:"component_id,omitempty"`
	BranchID    string `json:"branch_id"`
	Action      Action `json:"action"`
}

// BranchID builds the stable id of a branch point from its component and
// option ids. Buttons use the option id "button".
func BranchID(componentID, optionID string) string {
	return componentID + ":" + optionID
}

// ExtractBranchPoints returns the branch points of stage in component and
// option order. The result depends only on the stage's own components.
func ExtractBranchPoints(stage Stage) []BranchPoint {
	var out []BranchPoint
	for _, c := range stage.Components {
		switch c.Kind {
		case KindChoice, KindImageChoice, KindDropdown:
			for _, o := range c.Options {
				out = append(out, BranchPoint{
					StageID:     stage.ID,
					ComponentID: c.ID,
					BranchID:    BranchID(c.ID, o.ID),
					Action:      optionAction(o),
				})
			}
		case KindButton:
			out = append(out, BranchPoint{
				StageID:     stage.ID,
				ComponentID: c.ID,
				BranchID:    BranchID(c.ID, "button"),
				Action:      buttonAction(c),
			})
		}
	}
	return out
}

// effectiveBranchPoints is ExtractBranchPoints plus the implicit auto branch
// for content-only stages.
func effectiveBranchPoints(stage Stage) []BranchPoint {
	bps := ExtractBranchPoints(stage)
	if len(bps) == 0 {
		bps = []BranchPoint{{StageID: stage.ID, BranchID: AutoBranchID, Action: Next()}}
	}
	return bps
}

func optionAction(o Option) Action {
	switch o.Destination {
	case DestinationSubmit:
		return Submit()
	case DestinationSpecific:
		return GoTo(o.DestinationStageID)
	default:
		return Next()
	}
}

func buttonAction(c Component) Action {
	switch c.ButtonAction {
	case ButtonSubmit:
		return Submit()
	case ButtonURL:
		return Exit()
	case ButtonStage:
		return GoTo(c.ButtonTarget)
	default:
		return Next()
	}
}
