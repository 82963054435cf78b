package modem

import (
	"sync"

	"github.com/i4energy/exi-modem/bus"
)

// CycleScheduler is the default bus.Scheduler: a host-clock pump with no
// internal goroutine of its own. Schedule may be called from any
// goroutine (a background connect task posts its result this way); Pump
// must only ever be called from the single "emulator thread" goroutine,
// and it is the only place callbacks actually run. This keeps the
// single-threaded register-access contract in §5 intact even though the
// connect itself happens off-thread.
type CycleScheduler struct {
	mu      sync.Mutex
	events  map[bus.EventID]bus.EventCallback
	names   map[bus.EventID]string
	nextID  bus.EventID
	pending []pendingEvent
}

type pendingEvent struct {
	id        bus.EventID
	remaining int64
	userdata  uint64
}

// NewCycleScheduler returns an empty scheduler ready to have events
// registered on it.
func NewCycleScheduler() *CycleScheduler {
	return &CycleScheduler{
		events: make(map[bus.EventID]bus.EventCallback),
		names:  make(map[bus.EventID]string),
	}
}

func (s *CycleScheduler) RegisterEvent(name string, cb bus.EventCallback) bus.EventID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.events[id] = cb
	s.names[id] = name
	return id
}

func (s *CycleScheduler) Schedule(id bus.EventID, delay int64, userdata uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, pendingEvent{id: id, remaining: delay, userdata: userdata})
}

func (s *CycleScheduler) RemoveAll(id bus.EventID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.id != id {
			kept = append(kept, p)
		}
	}
	s.pending = kept
}

// Pump advances the scheduler's clock by elapsed cycles and synchronously
// runs every callback whose delay has expired. It must be called from
// the same goroutine that drives register accesses.
func (s *CycleScheduler) Pump(elapsed int64) {
	s.mu.Lock()
	due := s.pending[:0:0]
	remaining := s.pending[:0]
	for _, p := range s.pending {
		p.remaining -= elapsed
		if p.remaining <= 0 {
			due = append(due, p)
		} else {
			remaining = append(remaining, p)
		}
	}
	s.pending = remaining
	callbacks := make(map[bus.EventID]bus.EventCallback, len(due))
	for _, p := range due {
		if cb, ok := s.events[p.id]; ok {
			callbacks[p.id] = cb
		}
	}
	s.mu.Unlock()

	for _, p := range due {
		if cb, ok := callbacks[p.id]; ok {
			cb(p.userdata)
		}
	}
}
