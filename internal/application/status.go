// Package application defines the membership application status machine.
package application

// Status represents the lifecycle stage of a membership application.
type Status string

const (
	// StatusNone indicates that the user has never applied.
	StatusNone Status = ""
	// StatusPending indicates that the application awaits an admin decision.
	StatusPending Status = "pending"
	// StatusApproved indicates that an admin accepted the application.
	StatusApproved Status = "approved"
	// StatusDenied indicates that an admin rejected the application.
	StatusDenied Status = "denied"
	// StatusWithdrawn indicates that the applicant cancelled the application.
	StatusWithdrawn Status = "withdrawn"
)

// Statuses lists every non-empty status, useful for metrics and reporting.
var Statuses = []Status{StatusPending, StatusApproved, StatusDenied, StatusWithdrawn}

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe status transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// RecordTransition notifies the registered recorder about a status change.
func RecordTransition(from, to Status) {
	transitionRecorder(string(from), string(to))
}

// validTransitions contains the permitted status transitions. Approved is
// terminal: an approved member cannot reapply until the approval is revoked.
var validTransitions = map[Status][]Status{
	StatusNone: {
		StatusPending,
	},
	StatusPending: {
		StatusApproved,
		StatusDenied,
		StatusWithdrawn,
	},
	StatusDenied: {
		StatusPending,
	},
	StatusWithdrawn: {
		StatusPending,
	},
}

// IsTransitionAllowed reports whether moving from one status to another is valid.
func IsTransitionAllowed(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == to {
			return true
		}
	}

	return false
}

// IsTerminal reports whether a status permits no further applicant action.
func IsTerminal(s Status) bool {
	return s == StatusApproved
}
