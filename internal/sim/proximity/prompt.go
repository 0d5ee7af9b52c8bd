package proximity

type Labels struct {
	Door   string
	Key    string
	Puzzle string
}

type PromptState struct {
	FreeRoam bool
	Ended    bool
	// Enterable reports whether a puzzle POI is the next one to solve.
	Enterable func(id string) bool
}

type Prompt struct {
	Visible bool
	Label   string
}

// ProjectPrompt derives the "press E" prompt from the nearest POI, the one E acts on. The door
// always prompts, the case prompts while it is near (its POI is only active while the key can be
// taken) and a puzzle prompts only when it is enterable.
func ProjectPrompt(v View, st PromptState, l Labels) Prompt {
	if !st.FreeRoam || st.Ended {
		return Prompt{}
	}
	switch v.Current {
	case "":
		return Prompt{}
	case Door:
		return Prompt{Visible: true, Label: l.Door}
	case Case:
		return Prompt{Visible: true, Label: l.Key}
	}
	ready := st.Enterable != nil && st.Enterable(v.Current)
	return Prompt{Visible: ready, Label: l.Puzzle}
}
