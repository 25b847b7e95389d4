package lifecycle

// Sink receives presentation events from the controller. The controller
// never touches a terminal or DOM directly; renderers implement Sink and
// decide how status text and history refreshes are displayed. This keeps
// the state machine unit-testable without any UI.
type Sink interface {
	// Status reports a user-facing status line ("Creating scan...",
	// "Scan failed: ...", "Scan timed out").
	Status(text string)

	// HistoryChanged signals that the cached scan history changed and any
	// rendered history view should refresh.
	HistoryChanged()
}

// NopSink is a Sink that discards all events.
type NopSink struct{}

// Status implements Sink.
func (NopSink) Status(string) {}

// HistoryChanged implements Sink.
func (NopSink) HistoryChanged() {}
