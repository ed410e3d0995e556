package transport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestInFlightRegistryRegisterAndCancel(t *testing.T) {
	r := NewInFlightRegistry()

	cancelled := false
	r.Register("req-1", func() { cancelled = true })

	if !r.Cancel("req-1") {
		t.Error("Cancel should return true for registered ID")
	}
	if !cancelled {
		t.Error("cancel function should have been called")
	}

	if r.Cancel("req-1") {
		t.Error("Cancel should return false after already cancelled")
	}
}

func TestInFlightRegistryCancelUnknown(t *testing.T) {
	r := NewInFlightRegistry()

	if r.Cancel("req-missing") {
		t.Error("Cancel should return false for unknown ID")
	}
}

func TestInFlightRegistryRemove(t *testing.T) {
	r := NewInFlightRegistry()

	cancelled := false
	r.Register("req-1", func() { cancelled = true })

	r.Remove("req-1")

	if r.Cancel("req-1") {
		t.Error("Cancel should return false after Remove")
	}
	if cancelled {
		t.Error("cancel function should not have been called by Remove")
	}

	// Removing an unknown ID is a no-op.
	r.Remove("req-missing")
}

func TestInFlightRegistryCancelAll(t *testing.T) {
	r := NewInFlightRegistry()

	var count atomic.Int64
	r.Register("req-b", func() { count.Add(1) })
	r.Register("req-a", func() { count.Add(1) })

	if ids := r.IDs(); len(ids) != 2 || ids[0] != "req-a" {
		t.Errorf("IDs() = %v, want sorted IDs", ids)
	}

	if n := r.CancelAll(); n != 2 {
		t.Errorf("CancelAll() = %d, want 2", n)
	}
	if count.Load() != 2 {
		t.Errorf("cancel count = %d, want 2", count.Load())
	}
	if len(r.IDs()) != 0 {
		t.Error("registry should be empty after CancelAll")
	}
}

func TestInFlightRegistryConcurrentAccess(t *testing.T) {
	r := NewInFlightRegistry()
	var cancelCount atomic.Int64
	const numEntries = 100

	var wg sync.WaitGroup
	for i := 0; i < numEntries; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r.Register(id, func() { cancelCount.Add(1) })
		}(fmt.Sprintf("req-%d", i))
	}
	wg.Wait()

	for i := 0; i < numEntries/2; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r.Cancel(id)
		}(fmt.Sprintf("req-%d", i))
	}
	wg.Wait()

	if cancelCount.Load() != numEntries/2 {
		t.Errorf("expected %d cancellations, got %d", numEntries/2, cancelCount.Load())
	}

	for i := numEntries / 2; i < numEntries; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r.Remove(id)
		}(fmt.Sprintf("req-%d", i))
	}
	wg.Wait()

	if len(r.IDs()) != 0 {
		t.Errorf("registry should be empty, has %v", r.IDs())
	}
}

func TestInFlightRegistryDuplicateIDs(t *testing.T) {
	r := NewInFlightRegistry()

	var firstCancelled, secondCancelled bool
	first, releaseFirst := r.Register("same", func() { firstCancelled = true })
	second, releaseSecond := r.Register("same", func() { secondCancelled = true })

	if first != "same" || second != "same-2" {
		t.Fatalf("registered IDs = %q, %q, want %q, %q", first, second, "same", "same-2")
	}

	releaseFirst()
	if ids := r.IDs(); len(ids) != 1 || ids[0] != "same-2" {
		t.Fatalf("IDs() after first release = %v, want [same-2]", ids)
	}

	if n := r.CancelAll(); n != 1 {
		t.Errorf("CancelAll() = %d, want 1", n)
	}
	if firstCancelled || !secondCancelled {
		t.Errorf("cancelled first=%v second=%v, want only second", firstCancelled, secondCancelled)
	}
	releaseSecond()
}

func TestInFlightRegistryReleaseAfterReuse(t *testing.T) {
	r := NewInFlightRegistry()

	_, releaseOld := r.Register("req-1", func() {})
	r.Cancel("req-1")

	id, _ := r.Register("req-1", func() {})
	if id != "req-1" {
		t.Fatalf("registered ID = %q, want reuse of the cancelled ID", id)
	}

	releaseOld()
	if ids := r.IDs(); len(ids) != 1 || ids[0] != "req-1" {
		t.Errorf("IDs() = %v, stale release removed the newer registration", ids)
	}
}
