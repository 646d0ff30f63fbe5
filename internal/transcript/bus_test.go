package transcript

import "testing"

func TestPublishDeliversInOrder(t *testing.T) {
	b := NewBus(nil)

	var got []any
	sub := b.Subscribe("call-1", func(p any) { got = append(got, p) }, nil)
	defer sub.Cancel()

	b.Publish("call-1", "one")
	b.Publish("call-1", "two")
	b.Publish("call-1", "three")
	b.Publish("call-2", "other")

	if len(got) != 3 || got[0] != "one" || got[1] != "two" || got[2] != "three" {
		t.Fatalf("unexpected delivery: %+v", got)
	}
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	b := NewBus(nil)
	b.Publish("call-1", "early")

	var got []any
	sub := b.Subscribe("call-1", func(p any) { got = append(got, p) }, nil)
	defer sub.Cancel()

	if len(got) != 0 {
		t.Fatalf("late subscriber must not see earlier events: %+v", got)
	}
	b.Publish("call-1", "later")
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("expected only the later event: %+v", got)
	}
}

func TestCompleteFiresDoneExactlyOnce(t *testing.T) {
	b := NewBus(nil)

	done := 0
	b.Subscribe("call-1", nil, func() { done++ })

	b.Complete("call-1")
	b.Complete("call-1")
	if done != 1 {
		t.Fatalf("expected done once, got %d", done)
	}

	// After completion the topic is cleared; publishes deliver nothing
	// until someone subscribes again.
	var got []any
	b.Publish("call-1", "late")
	sub := b.Subscribe("call-1", func(p any) { got = append(got, p) }, nil)
	defer sub.Cancel()
	b.Publish("call-1", "fresh")
	if len(got) != 1 || got[0] != "fresh" {
		t.Fatalf("expected fresh subscription to work: %+v", got)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := NewBus(nil)

	var got []any
	done := 0
	sub := b.Subscribe("call-1", func(p any) { got = append(got, p) }, func() { done++ })

	b.Publish("call-1", "before")
	sub.Cancel()
	sub.Cancel() // second cancel is a no-op
	b.Publish("call-1", "after")
	b.Complete("call-1")

	if len(got) != 1 || got[0] != "before" {
		t.Fatalf("unexpected delivery after cancel: %+v", got)
	}
	if done != 0 {
		t.Fatalf("canceled subscription must not receive done")
	}
}

func TestCancelAfterCompleteIsNoop(t *testing.T) {
	b := NewBus(nil)
	done := 0
	sub := b.Subscribe("call-1", nil, func() { done++ })
	b.Complete("call-1")
	sub.Cancel()
	if done != 1 {
		t.Fatalf("expected done once, got %d", done)
	}
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	b := NewBus(nil)

	b.Subscribe("call-1", func(any) { panic("broken dashboard") }, nil)
	var got []any
	b.Subscribe("call-1", func(p any) { got = append(got, p) }, nil)

	b.Publish("call-1", "event")
	if len(got) != 1 {
		t.Fatalf("healthy subscriber must still receive: %+v", got)
	}

	// Panic in the done callback must not break Complete either.
	b.Subscribe("call-2", nil, func() { panic("boom") })
	b.Complete("call-2")
}

func TestIndependentCalls(t *testing.T) {
	b := NewBus(nil)

	done1, done2 := 0, 0
	b.Subscribe("call-1", nil, func() { done1++ })
	b.Subscribe("call-2", nil, func() { done2++ })

	b.Complete("call-1")
	if done1 != 1 || done2 != 0 {
		t.Fatalf("completion leaked across calls: %d %d", done1, done2)
	}
}
