package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBranchPoints(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		want  []BranchPoint
	}{
		{
			name:  "content only",
			stage: contentStage("s"),
			want:  nil,
		},
		{
			name: "choice options",
			stage: choiceStage("s",
				opt("o1", DestinationNext, ""),
				opt("o2", DestinationSubmit, ""),
				opt("o3", DestinationSpecific, "t"),
				opt("o4", "", ""),
			),
			want: []BranchPoint{
				{StageID: "s", ComponentID: "s-q", BranchID: "s-q:o1", Action: Next()},
				{StageID: "s", ComponentID: "s-q", BranchID: "s-q:o2", Action: Submit()},
				{StageID: "s", ComponentID: "s-q", BranchID: "s-q:o3", Action: GoTo("t")},
				{StageID: "s", ComponentID: "s-q", BranchID: "s-q:o4", Action: Next()},
			},
		},
		{
			name:  "button to stage",
			stage: buttonStage("s", ButtonStage, "t"),
			want:  []BranchPoint{{StageID: "s", ComponentID: "s-btn", BranchID: "s-btn:button", Action: GoTo("t")}},
		},
		{
			name:  "button submit",
			stage: buttonStage("s", ButtonSubmit, ""),
			want:  []BranchPoint{{StageID: "s", ComponentID: "s-btn", BranchID: "s-btn:button", Action: Submit()}},
		},
		{
			name:  "button url leaves the funnel",
			stage: buttonStage("s", ButtonURL, "https://example.com"),
			want:  []BranchPoint{{StageID: "s", ComponentID: "s-btn", BranchID: "s-btn:button", Action: Exit()}},
		},
		{
			name:  "button default",
			stage: buttonStage("s", "", ""),
			want:  []BranchPoint{{StageID: "s", ComponentID: "s-btn", BranchID: "s-btn:button", Action: Next()}},
		},
		{
			name: "mixed components keep order",
			stage: Stage{ID: "s", Components: []Component{
				{ID: "img", Kind: KindImage},
				{ID: "dd", Kind: KindDropdown, Options: []Option{opt("x", DestinationNext, "")}},
				{ID: "timer", Kind: KindTimer},
				{ID: "ic", Kind: KindImageChoice, Options: []Option{opt("y", DestinationSubmit, "")}},
				{ID: "b", Kind: KindButton, ButtonAction: ButtonNext},
			}},
			want: []BranchPoint{
				{StageID: "s", ComponentID: "dd", BranchID: "dd:x", Action: Next()},
				{StageID: "s", ComponentID: "ic", BranchID: "ic:y", Action: Submit()},
				{StageID: "s", ComponentID: "b", BranchID: "b:button", Action: Next()},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractBranchPoints(tt.stage))
		})
	}
}

func TestExtractBranchPoints_Deterministic(t *testing.T) {
	st := choiceStage("s", opt("o1", DestinationNext, ""), opt("o2", DestinationSpecific, "t"))
	assert.Equal(t, ExtractBranchPoints(st), ExtractBranchPoints(st))
}

func TestExtractBranchPoints_StableAcrossReorder(t *testing.T) {
	s := NewStageStore([]Stage{
		contentStage("a"),
		choiceStage("b", opt("o1", DestinationNext, ""), opt("o2", DestinationSpecific, "a")),
		contentStage("c"),
	})
	before, err := s.Get("b")
	assert.NoError(t, err)

	assert.NoError(t, s.Reorder([]string{"c", "a", "b"}))
	after, err := s.Get("b")
	assert.NoError(t, err)

	assert.Equal(t, ExtractBranchPoints(before), ExtractBranchPoints(after))
}
