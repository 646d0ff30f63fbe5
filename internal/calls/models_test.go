package calls

import "testing"

func TestStatusAdvances(t *testing.T) {
	if !advances(CallStatusInitiated, CallStatusRinging) {
		t.Fatalf("initiated -> ringing should advance")
	}
	if !advances(CallStatusRinging, CallStatusInProgress) {
		t.Fatalf("ringing -> in-progress should advance")
	}
	if !advances(CallStatusInitiated, CallStatusCompleted) {
		t.Fatalf("skipping intermediate states should advance")
	}
	if advances(CallStatusInProgress, CallStatusRinging) {
		t.Fatalf("backwards transition should not advance")
	}
	if advances(CallStatusRinging, CallStatusRinging) {
		t.Fatalf("duplicate status should not advance")
	}
	// Terminal states share a rank; none replaces another.
	if advances(CallStatusCompleted, CallStatusFailed) {
		t.Fatalf("terminal -> terminal should not advance")
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []CallStatus{CallStatusCompleted, CallStatusFailed, CallStatusBusy, CallStatusNoAnswer} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []CallStatus{CallStatusInitiated, CallStatusRinging, CallStatusInProgress} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	if CallStatus("ended").Valid() {
		t.Fatalf("unknown status should not be valid")
	}
}

func TestValidE164(t *testing.T) {
	valid := []string{"+14155550123", "+442071838750", "+12"}
	for _, n := range valid {
		if !ValidE164(n) {
			t.Fatalf("expected %q to be valid", n)
		}
	}
	invalid := []string{"", "+1", "14155550123", "+04155550123", "+1415555012a", "+1234567890123456"}
	for _, n := range invalid {
		if ValidE164(n) {
			t.Fatalf("expected %q to be invalid", n)
		}
	}
}
