package models

// TripStatus is the lifecycle state of a trip. A trip is persisted already
// in progress; every other state is terminal.
type TripStatus string

const (
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripEmergency  TripStatus = "emergency"
	TripCancelled  TripStatus = "cancelled"
)

// TripStatuses lists every trip status.
var TripStatuses = []TripStatus{TripInProgress, TripCompleted, TripEmergency, TripCancelled}

// TripEvent is something that can happen to a trip.
type TripEvent int

const (
	TripEventLocation TripEvent = iota
	TripEventComplete
	TripEventEmergency
	TripEventCancel
)

func (e TripEvent) String() string {
	switch e {
	case TripEventLocation:
		return "report location for"
	case TripEventComplete:
		return "complete"
	case TripEventEmergency:
		return "flag emergency on"
	case TripEventCancel:
		return "cancel"
	default:
		return "unknown event"
	}
}

// Next returns the status reached by applying ev to s, and false if the
// transition is not allowed.
func (s TripStatus) Next(ev TripEvent) (TripStatus, bool) {
	switch s {
	case TripInProgress:
		switch ev {
		case TripEventLocation:
			return TripInProgress, true
		case TripEventComplete:
			return TripCompleted, true
		case TripEventEmergency:
			return TripEmergency, true
		case TripEventCancel:
			return TripCancelled, true
		}
	case TripEmergency:
		// a second alert during the same incident is a no-op
		if ev == TripEventEmergency {
			return TripEmergency, true
		}
	}
	return s, false
}

// Sources lists the statuses from which ev is accepted.
func (e TripEvent) Sources() []TripStatus {
	var out []TripStatus
	for _, s := range TripStatuses {
		if _, ok := s.Next(e); ok {
			out = append(out, s)
		}
	}
	return out
}

// IsTerminal reports whether no further progress can be made on the trip.
func (s TripStatus) IsTerminal() bool {
	return s != TripInProgress
}

// ParseTripStatus converts a query value into a TripStatus.
func ParseTripStatus(v string) (TripStatus, bool) {
	for _, s := range TripStatuses {
		if string(s) == v {
			return s, true
		}
	}
	return "", false
}

// SafetyCheckStatus is the decision state of a pre-trip checklist.
type SafetyCheckStatus string

const (
	SafetyCheckPending SafetyCheckStatus = "pending"
	SafetyCheckPassed  SafetyCheckStatus = "passed"
	SafetyCheckFailed  SafetyCheckStatus = "failed"
)

var SafetyCheckStatuses = []SafetyCheckStatus{SafetyCheckPending, SafetyCheckPassed, SafetyCheckFailed}

type SafetyCheckEvent int

const (
	SafetyCheckEventEditItems SafetyCheckEvent = iota
	SafetyCheckEventApprove
	SafetyCheckEventReject
)

func (e SafetyCheckEvent) String() string {
	switch e {
	case SafetyCheckEventEditItems:
		return "edit items of"
	case SafetyCheckEventApprove:
		return "approve"
	case SafetyCheckEventReject:
		return "reject"
	default:
		return "unknown event"
	}
}

// Next returns the status reached by applying ev to s. Only a pending check
// accepts events; items are frozen once a decision is made.
func (s SafetyCheckStatus) Next(ev SafetyCheckEvent) (SafetyCheckStatus, bool) {
	if s != SafetyCheckPending {
		return s, false
	}
	switch ev {
	case SafetyCheckEventEditItems:
		return SafetyCheckPending, true
	case SafetyCheckEventApprove:
		return SafetyCheckPassed, true
	case SafetyCheckEventReject:
		return SafetyCheckFailed, true
	}
	return s, false
}

func (e SafetyCheckEvent) Sources() []SafetyCheckStatus {
	var out []SafetyCheckStatus
	for _, s := range SafetyCheckStatuses {
		if _, ok := s.Next(e); ok {
			out = append(out, s)
		}
	}
	return out
}

// EmergencyStatus is the state of an emergency alert. Pending is reserved and
// never produced.
type EmergencyStatus string

const (
	EmergencyActive   EmergencyStatus = "active"
	EmergencyResolved EmergencyStatus = "resolved"
	EmergencyPending  EmergencyStatus = "pending"
)

var EmergencyStatuses = []EmergencyStatus{EmergencyActive, EmergencyResolved, EmergencyPending}

type EmergencyEvent int

const (
	EmergencyEventResolve EmergencyEvent = iota
)

func (e EmergencyEvent) String() string {
	if e == EmergencyEventResolve {
		return "resolve"
	}
	return "unknown event"
}

func (s EmergencyStatus) Next(ev EmergencyEvent) (EmergencyStatus, bool) {
	if s == EmergencyActive && ev == EmergencyEventResolve {
		return EmergencyResolved, true
	}
	return s, false
}

func (e EmergencyEvent) Sources() []EmergencyStatus {
	var out []EmergencyStatus
	for _, s := range EmergencyStatuses {
		if _, ok := s.Next(e); ok {
			out = append(out, s)
		}
	}
	return out
}

// ParseEmergencyStatus converts a query value into an EmergencyStatus.
func ParseEmergencyStatus(v string) (EmergencyStatus, bool) {
	for _, s := range EmergencyStatuses {
		if string(s) == v {
			return s, true
		}
	}
	return "", false
}
