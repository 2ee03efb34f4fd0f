package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestOneShotTask(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	fired := make(chan struct{})
	m.Add(50*time.Millisecond, 0, func(int64) { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot task never fired")
	}
}

func TestRepeatingTask(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var count int32
	id := m.Add(50*time.Millisecond, 100*time.Millisecond, func(int64) {
		atomic.AddInt32(&count, 1)
	})

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&count) < 3 {
		select {
		case <-deadline:
			t.Fatalf("repeating task fired %d times, want at least 3", atomic.LoadInt32(&count))
		case <-time.After(20 * time.Millisecond):
		}
	}

	m.Remove(id)
	settled := atomic.LoadInt32(&count)
	time.Sleep(300 * time.Millisecond)
	// One more fire may already have been in flight at removal.
	if after := atomic.LoadInt32(&count); after > settled+1 {
		t.Fatalf("removed task kept firing: %d -> %d", settled, after)
	}
}

func TestRemoveBeforeFire(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var fired int32
	id := m.Add(500*time.Millisecond, 0, func(int64) { atomic.AddInt32(&fired, 1) })
	m.Remove(id)

	time.Sleep(800 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("removed task still fired")
	}
}

func TestStopHaltsProcessing(t *testing.T) {
	m := NewManager()

	var fired int32
	m.Add(300*time.Millisecond, 0, func(int64) { atomic.AddInt32(&fired, 1) })
	m.Stop()
	m.Stop() // idempotent

	time.Sleep(600 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("stopped manager still ran tasks")
	}
}

func TestCallbackReceivesOwnID(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	got := make(chan int64, 1)
	var count int32
	returned := m.Add(50*time.Millisecond, 50*time.Millisecond, func(taskID int64) {
		if atomic.AddInt32(&count, 1) == 1 {
			got <- taskID
		}
		// A repeating task must be able to cancel itself with the ID
		// handed to it, with no shared variable involved.
		m.Remove(taskID)
	})

	select {
	case id := <-got:
		if id != returned {
			t.Fatalf("callback saw task ID %d, Add returned %d", id, returned)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task never fired")
	}

	settled := atomic.LoadInt32(&count)
	time.Sleep(300 * time.Millisecond)
	if after := atomic.LoadInt32(&count); after > settled {
		t.Fatalf("self-removed task kept firing: %d -> %d", settled, after)
	}
}

func TestTaskOrdering(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	order := make(chan int, 2)
	m.Add(400*time.Millisecond, 0, func(int64) { order <- 2 })
	m.Add(100*time.Millisecond, 0, func(int64) { order <- 1 })

	first := <-order
	second := <-order
	if first != 1 || second != 2 {
		t.Fatalf("tasks fired out of order: %d then %d", first, second)
	}
}
