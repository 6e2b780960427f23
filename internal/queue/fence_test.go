package queue

import "testing"

func TestSetEventOnCompletionFiresImmediatelyWhenAlreadyReached(t *testing.T) {
	f := NewFence(5)
	event := make(chan struct{})
	f.SetEventOnCompletion(3, event)
	select {
	case <-event:
	default:
		t.Fatalf("event should have fired immediately for an already-reached value")
	}
}

func TestSetEventOnCompletionFiresExactlyOnceOnSignal(t *testing.T) {
	f := NewFence(0)
	event := make(chan struct{})
	f.SetEventOnCompletion(1, event)

	select {
	case <-event:
		t.Fatalf("event fired before Signal reached the target value")
	default:
	}

	f.Signal(1)

	select {
	case <-event:
	default:
		t.Fatalf("event did not fire after Signal reached the target value")
	}
}

func TestSignalNeverRegressesCompletedValue(t *testing.T) {
	f := NewFence(10)
	f.Signal(4)
	if got := f.GetCompletedValue(); got != 10 {
		t.Fatalf("GetCompletedValue() = %d, want 10 (Signal must not regress)", got)
	}
}

func TestMultipleWaitersAtDifferentValuesFireInOrder(t *testing.T) {
	f := NewFence(0)
	low := make(chan struct{})
	high := make(chan struct{})
	f.SetEventOnCompletion(1, low)
	f.SetEventOnCompletion(2, high)

	f.Signal(1)
	select {
	case <-low:
	default:
		t.Fatalf("low-value waiter should have fired after Signal(1)")
	}
	select {
	case <-high:
		t.Fatalf("high-value waiter should not have fired yet")
	default:
	}

	f.Signal(2)
	select {
	case <-high:
	default:
		t.Fatalf("high-value waiter should have fired after Signal(2)")
	}
}

func TestGetCompletedValueReflectsInitial(t *testing.T) {
	f := NewFence(7)
	if got := f.GetCompletedValue(); got != 7 {
		t.Fatalf("GetCompletedValue() = %d, want 7", got)
	}
}
