package study

// Action is what a key press asks the controller to do. The input adapter
// resolves keys through a declarative table instead of branching inline.
type Action int

const (
	ActionNone Action = iota
	// ActionSubmit grades the typed answer.
	ActionSubmit
	// ActionNext advances to the next card after a result is shown.
	ActionNext
	// ActionHint reveals the next hint level.
	ActionHint
	// ActionOverride regrades the last review with a manually chosen
	// quality; the adapter reads the quality off the pressed digit.
	ActionOverride
	// ActionQuit stops the session.
	ActionQuit
)

// Keymap maps key names to actions per controller state.
type Keymap map[State]map[string]Action

// DefaultKeymap is the standard binding table.
func DefaultKeymap() Keymap {
	return Keymap{
		StateActive: {
			"enter":  ActionSubmit,
			"tab":    ActionHint,
			"esc":    ActionQuit,
			"ctrl+c": ActionQuit,
		},
		StateResultShown: {
			"enter":  ActionNext,
			"0":      ActionOverride,
			"1":      ActionOverride,
			"2":      ActionOverride,
			"3":      ActionOverride,
			"4":      ActionOverride,
			"5":      ActionOverride,
			"esc":    ActionQuit,
			"ctrl+c": ActionQuit,
		},
		StateComplete: {
			"enter":  ActionQuit,
			"esc":    ActionQuit,
			"ctrl+c": ActionQuit,
		},
	}
}

// Resolve looks up the action bound to a key in the given state.
func (k Keymap) Resolve(state State, key string) Action {
	bindings, ok := k[state]
	if !ok {
		return ActionNone
	}
	return bindings[key]
}
