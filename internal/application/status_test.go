package application

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     Status
		to       Status
		expected bool
	}{
		{name: "first submission", from: StatusNone, to: StatusPending, expected: true},
		{name: "pending to approved", from: StatusPending, to: StatusApproved, expected: true},
		{name: "pending to denied", from: StatusPending, to: StatusDenied, expected: true},
		{name: "pending to withdrawn", from: StatusPending, to: StatusWithdrawn, expected: true},
		{name: "resubmit after denial", from: StatusDenied, to: StatusPending, expected: true},
		{name: "resubmit after withdrawal", from: StatusWithdrawn, to: StatusPending, expected: true},
		{name: "resubmit while approved invalid", from: StatusApproved, to: StatusPending, expected: false},
		{name: "none straight to approved invalid", from: StatusNone, to: StatusApproved, expected: false},
		{name: "denied to approved invalid", from: StatusDenied, to: StatusApproved, expected: false},
		{name: "unknown status invalid", from: Status("limbo"), to: StatusPending, expected: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StatusApproved) {
		t.Error("approved must be terminal")
	}

	for _, s := range []Status{StatusNone, StatusPending, StatusDenied, StatusWithdrawn} {
		if IsTerminal(s) {
			t.Errorf("status %q must not be terminal", s)
		}
	}
}

func TestRegisterTransitionRecorder(t *testing.T) {
	var recorded [][2]string
	RegisterTransitionRecorder(func(from, to string) {
		recorded = append(recorded, [2]string{from, to})
	})
	t.Cleanup(func() { RegisterTransitionRecorder(nil) })

	RecordTransition(StatusNone, StatusPending)
	RecordTransition(StatusPending, StatusApproved)

	if len(recorded) != 2 {
		t.Fatalf("expected 2 recorded transitions, got %d", len(recorded))
	}

	if recorded[1] != [2]string{"pending", "approved"} {
		t.Errorf("unexpected transition recorded: %v", recorded[1])
	}
}
