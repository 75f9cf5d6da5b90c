package adwatch

// State is the loosely-typed application state embedded in a search page.
type State map[string]any

// StateExtractor locates the embedded state payload in page markup.
type StateExtractor interface {
	// Extract never fails. Markup without a parseable payload, such as a
	// bot-challenge shell, yields an empty State.
	Extract(markup string) State
}
