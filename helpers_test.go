package funnel

// Helpers shared by the package tests.

func contentStage(id string) Stage {
	return Stage{ID: id, Name: id, Components: []Component{{ID: id + "-text", Kind: KindText}}}
}

func choiceStage(id string, opts ...Option) Stage {
	return Stage{ID: id, Name: id, Components: []Component{{ID: id + "-q", Kind: KindChoice, Options: opts}}}
}

func buttonStage(id string, action ButtonAction, target string) Stage {
	return Stage{ID: id, Name: id, Components: []Component{{
		ID:           id + "-btn",
		Kind:         KindButton,
		ButtonAction: action,
		ButtonTarget: target,
	}}}
}

func opt(id string, dest Destination, target string) Option {
	return Option{ID: id, Label: id, Destination: dest, DestinationStageID: target}
}

func sequentialIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}
