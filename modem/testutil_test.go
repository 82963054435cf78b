package modem_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/i4energy/exi-modem/bus"
	"github.com/i4energy/exi-modem/modem"
)

// fakeTransport is a channel-backed stand-in for a live call, generalizing
// the idea of a pre-wired test double to this device's non-blocking-read
// contract: Read reports ErrWouldBlock instead of waiting when nothing has
// been pushed yet.
type fakeTransport struct {
	incoming chan []byte

	mu       sync.Mutex
	outgoing []byte
	closed   bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{incoming: make(chan []byte, 64)}
}

func (t *fakeTransport) pushIncoming(b []byte) {
	t.incoming <- append([]byte(nil), b...)
}

func (t *fakeTransport) Read(p []byte) (int, error) {
	select {
	case b := <-t.incoming:
		return copy(p, b), nil
	default:
		return 0, modem.ErrWouldBlock
	}
}

func (t *fakeTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outgoing = append(t.outgoing, p...)
	return len(p), nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) written() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.outgoing...)
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// fakeDialer hands back a fixed Transport/error pair and records every
// address it was asked to dial.
type fakeDialer struct {
	transport modem.Transport
	err       error

	mu     sync.Mutex
	dialed []string
}

func (d *fakeDialer) Dial(ctx context.Context, address string) (modem.Transport, error) {
	d.mu.Lock()
	d.dialed = append(d.dialed, address)
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.transport, nil
}

var errFakeDialFailed = errors.New("fake: dial refused")

// fakeScheduler is a deterministic bus.Scheduler: it ignores delay
// entirely and lets the test drive callbacks one at a time with fireNext,
// which blocks until something has actually been scheduled. That makes an
// asynchronous connect attempt (which posts its outcome back from a
// background goroutine) deterministic to test without sleeping.
type fakeScheduler struct {
	mu     sync.Mutex
	cond   *sync.Cond
	cbs    map[bus.EventID]bus.EventCallback
	nextID bus.EventID
	queue  []scheduledCall
}

type scheduledCall struct {
	id       bus.EventID
	userdata uint64
}

func newFakeScheduler() *fakeScheduler {
	s := &fakeScheduler{cbs: make(map[bus.EventID]bus.EventCallback)}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *fakeScheduler) RegisterEvent(name string, cb bus.EventCallback) bus.EventID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.cbs[s.nextID] = cb
	return s.nextID
}

func (s *fakeScheduler) Schedule(id bus.EventID, delay int64, userdata uint64) {
	s.mu.Lock()
	s.queue = append(s.queue, scheduledCall{id: id, userdata: userdata})
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *fakeScheduler) RemoveAll(id bus.EventID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.queue[:0]
	for _, c := range s.queue {
		if c.id != id {
			kept = append(kept, c)
		}
	}
	s.queue = kept
}

// fireNext blocks until at least one call is queued, then runs the oldest
// one synchronously on the calling goroutine.
func (s *fakeScheduler) fireNext() {
	s.mu.Lock()
	for len(s.queue) == 0 {
		s.cond.Wait()
	}
	call := s.queue[0]
	s.queue = s.queue[1:]
	cb := s.cbs[call.id]
	s.mu.Unlock()
	cb(call.userdata)
}

func (s *fakeScheduler) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// fakeInterruptLine counts how many times the device asked for a
// re-evaluation of the shared interrupt line.
type fakeInterruptLine struct {
	mu     sync.Mutex
	updates int
}

func (l *fakeInterruptLine) ScheduleInterruptUpdate() {
	l.mu.Lock()
	l.updates++
	l.mu.Unlock()
}

func (l *fakeInterruptLine) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates
}

// newTestDevice builds a Device wired to a fakeScheduler and fakeInterruptLine
// plus whatever Dialer the test supplies, bypassing real time and real
// networking entirely.
func newTestDevice(t testDeviceT, dialer modem.Dialer) (*modem.Device, *fakeScheduler, *fakeInterruptLine) {
	sched := newFakeScheduler()
	line := &fakeInterruptLine{}
	cfg, err := modem.NewConfigBuilder().
		WithDialer(dialer).
		WithScheduler(sched).
		WithInterruptLine(line).
		Build()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	dev, err := modem.New(cfg)
	if err != nil {
		t.Fatalf("new device: %v", err)
	}
	return dev, sched, line
}

// testDeviceT is the sliver of *testing.T newTestDevice needs, so it can be
// called from both top-level tests and subtests without importing "testing"
// into every helper signature by name.
type testDeviceT interface {
	Fatalf(format string, args ...any)
}

// --- register-level helpers exercising the public bus.Device contract ---

func selectRegister(d *modem.Device, reg bus.RegisterID) {
	word := uint32(reg) << 24
	d.ImmWrite(word, 1)
}

// rawRegisterValue reads the currently selected register at size 4, which
// carries no left-justification shift, so the returned word is the
// register's raw value.
func rawRegisterValue(d *modem.Device) uint32 {
	return d.ImmRead(4)
}

func pendingATResponse(d *modem.Device) int {
	selectRegister(d, bus.RegPendingATRes)
	return int(rawRegisterValue(d))
}

func pendingATCommand(d *modem.Device) int {
	selectRegister(d, bus.RegPendingATCmd)
	return int(rawRegisterValue(d))
}

// drainATResponse reads and returns every byte currently queued for AT_DATA
// reads, via PENDING_AT_RES followed by that many one-byte AT_DATA reads.
func drainATResponse(d *modem.Device) string {
	n := pendingATResponse(d)
	if n == 0 {
		return ""
	}
	selectRegister(d, bus.RegATData)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(byte(d.ImmRead(1) >> 24))
	}
	return sb.String()
}

// writeATData feeds s through the AT_DATA register exactly as a guest
// would: a write-with-length command byte, then the payload in up-to-4-byte
// immediate writes.
func writeATData(d *modem.Device, s string) {
	data := []byte(s)
	cb := uint8(bus.RegATData) | 0x60
	header := uint32(cb)<<24 | uint32(uint16(len(data)))<<8
	d.ImmWrite(header, 4)

	for i := 0; i < len(data); {
		n := len(data) - i
		if n > 4 {
			n = 4
		}
		var word uint32
		for j := 0; j < n; j++ {
			word |= uint32(data[i+j]) << uint32(24-8*j)
		}
		d.ImmWrite(word, n)
		i += n
	}
}

func softReset(d *modem.Device) {
	d.ImmWrite(0x80000000, 4)
}
