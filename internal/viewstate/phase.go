// Package viewstate holds the screen controllers. Each controller folds the live
// streams of the service layer into one state value and applies user intents.
package viewstate

// Phase is the loading state of a screen's primary feed.
type Phase string

// Screen phases.
const (
	PhaseIdle            Phase = "idle"
	PhaseLoading         Phase = "loading"
	PhaseLoaded          Phase = "loaded"
	PhaseLoadedWithError Phase = "loaded_with_error"
	PhaseError           Phase = "error"
)

// Event drives phase transitions.
type Event int

// Phase events.
const (
	EventMount Event = iota
	EventRefresh
	EventData
	EventFailure
)

// Next returns the phase that follows current on ev. hasData reports whether
// the screen already shows data from a primary feed.
//
//	idle --mount--> loading --data--> loaded <--data/failure--> loaded_with_error
//	loading --failure--> error (kept until refresh)
//	any --refresh--> loading
func Next(current Phase, ev Event, hasData bool) Phase {
	switch ev {
	case EventMount:
		if current == PhaseIdle {
			return PhaseLoading
		}
	case EventRefresh:
		return PhaseLoading
	case EventData:
		if current == PhaseError {
			return PhaseError
		}
		return PhaseLoaded
	case EventFailure:
		if hasData {
			return PhaseLoadedWithError
		}
		return PhaseError
	}
	return current
}

// Status is embedded in every screen state.
type Status struct {
	Phase   Phase  `json:"phase"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`

	hasData bool
}

func (s *Status) apply(ev Event, errMsg string) {
	s.Phase = Next(s.Phase, ev, s.hasData)
	switch s.Phase {
	case PhaseLoaded, PhaseLoading:
		s.Error = ""
	case PhaseError, PhaseLoadedWithError:
		if errMsg != "" {
			s.Error = errMsg
		}
	}
}
