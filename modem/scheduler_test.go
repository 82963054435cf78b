package modem_test

import (
	"testing"

	"github.com/i4energy/exi-modem/modem"
)

func TestCycleSchedulerFiresOnlyOnceDelayElapses(t *testing.T) {
	s := modem.NewCycleScheduler()
	var fired []uint64
	id := s.RegisterEvent("test", func(userdata uint64) {
		fired = append(fired, userdata)
	})

	s.Schedule(id, 100, 1)
	s.Pump(50)
	if len(fired) != 0 {
		t.Fatalf("callback fired early: %v", fired)
	}
	s.Pump(50)
	if len(fired) != 1 || fired[0] != 1 {
		t.Fatalf("fired = %v, want exactly [1]", fired)
	}
}

func TestCycleSchedulerRemoveAllCancelsPendingOccurrences(t *testing.T) {
	s := modem.NewCycleScheduler()
	var fired bool
	id := s.RegisterEvent("test", func(uint64) { fired = true })

	s.Schedule(id, 10, 0)
	s.RemoveAll(id)
	s.Pump(1000)

	if fired {
		t.Fatal("callback fired after RemoveAll cancelled it")
	}
}

func TestCycleSchedulerRemoveAllOnlyAffectsMatchingEvent(t *testing.T) {
	s := modem.NewCycleScheduler()
	var aFired, bFired bool
	idA := s.RegisterEvent("a", func(uint64) { aFired = true })
	idB := s.RegisterEvent("b", func(uint64) { bFired = true })

	s.Schedule(idA, 5, 0)
	s.Schedule(idB, 5, 0)
	s.RemoveAll(idA)
	s.Pump(100)

	if aFired {
		t.Fatal("event A fired despite being removed")
	}
	if !bFired {
		t.Fatal("event B should still have fired")
	}
}

func TestCycleSchedulerScheduleIsSafeFromAnotherGoroutine(t *testing.T) {
	s := modem.NewCycleScheduler()
	done := make(chan struct{})
	id := s.RegisterEvent("async", func(uint64) { close(done) })

	scheduled := make(chan struct{})
	go func() {
		s.Schedule(id, 0, 0)
		close(scheduled)
	}()
	<-scheduled

	s.Pump(0)
	<-done
}
