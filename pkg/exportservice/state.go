package exportservice

import "fmt"

// State is a pipeline run state. A run walks the states in order; any
// failure routes directly to cleanup, which is reachable from every state.
type State string

const (
	StateStart                 State = "start"
	StateCredentialProvisioned State = "credential_provisioned"
	StateDocumentsFetched      State = "documents_fetched"
	StateDatasetsBuilt         State = "datasets_built"
	StateMetadataCommitted     State = "metadata_committed"
	StateUploaded              State = "uploaded"
	StateVerified              State = "verified"
	StateCredentialCleaned     State = "credential_cleaned"
)

// Terminal reports whether the state ends the run.
func (s State) Terminal() bool {
	return s == StateCredentialCleaned
}

// allowedTransition validates a state change. The commit step may be
// bypassed (StateDatasetsBuilt straight to StateUploaded) because commit
// and upload are independent legs: a failed commit does not block the
// upload leg.
func allowedTransition(from, to State) bool {
	if to == StateCredentialCleaned {
		return !from.Terminal()
	}
	switch from {
	case StateStart:
		return to == StateCredentialProvisioned
	case StateCredentialProvisioned:
		return to == StateDocumentsFetched
	case StateDocumentsFetched:
		return to == StateDatasetsBuilt
	case StateDatasetsBuilt:
		return to == StateMetadataCommitted || to == StateUploaded
	case StateMetadataCommitted:
		return to == StateUploaded
	case StateUploaded:
		return to == StateVerified
	default:
		return false
	}
}

// machine tracks the current run state and rejects invalid transitions.
type machine struct {
	current State
}

func newMachine() *machine {
	return &machine{current: StateStart}
}

func (m *machine) state() State {
	return m.current
}

func (m *machine) advance(to State) error {
	if !allowedTransition(m.current, to) {
		return fmt.Errorf("disallowed transition: %s -> %s", m.current, to)
	}
	m.current = to
	return nil
}
