package modem

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/i4energy/exi-modem/at"
	"github.com/i4energy/exi-modem/bus"
)

// Device is the concrete EXI-style modem peripheral: the register
// front-end, the AT parser's handler, and the transport state machine,
// all in one. It owns every piece of state the data model assigns to
// the "Modem Core" — EXI-State, AT-State, Data-State and Modem-State —
// and is the sole implementation of bus.Device in this repository.
type Device struct {
	logger *slog.Logger

	dialer        Dialer
	resolver      Resolver
	scheduler     bus.Scheduler
	interruptLine bus.InterruptLine

	connectDelayCycles int64
	recvPollCycles     int64

	connectEventID bus.EventID
	recvEventID    bus.EventID

	parser *at.Parser

	at   atState
	data dataState

	// EXI-State
	interruptMask     uint8
	interrupt         uint8
	currentRegister   bus.RegisterID
	pendingWriteBytes uint16

	// Modem-State
	cancelConnect        bool
	pendingConnectNumber string
	prevCmdLine          string
	conn                 Transport

	dialMu      sync.Mutex
	dialSeq     uint64
	dialResults map[uint64]*dialOutcome

	// OnPacketReceived is invoked once per successful RecvEvent read,
	// a no-op by default; it exists purely as an extension point for a
	// higher-level framer layered on top of the raw byte stream.
	OnPacketReceived func(data []byte)

	closed bool
}

type dialOutcome struct {
	transport Transport
	err       error
	callID    string
}

// New constructs a Device from cfg, validating and defaulting it first.
func New(cfg Config) (*Device, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	d := &Device{
		logger:             cfg.Logger.With("component", "modem"),
		dialer:             cfg.Dialer,
		resolver:           cfg.Resolver,
		scheduler:          cfg.Scheduler,
		interruptLine:      cfg.InterruptLine,
		connectDelayCycles: cfg.ConnectDelayCycles,
		recvPollCycles:     cfg.RecvPollCycles,
		at:                 newATState(),
		dialResults:        make(map[uint64]*dialOutcome),
	}
	d.parser = at.NewParser(d)
	d.connectEventID = d.scheduler.RegisterEvent("ModemConnect", d.onConnectEvent)
	d.recvEventID = d.scheduler.RegisterEvent("ModemRecv", d.onRecvEvent)
	return d, nil
}

// Close tears down any live call. It does not touch the scheduler's
// registered event slots, which live for the Device's lifetime.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.hangup()
	return nil
}

// --- at.Handler ---

func (d *Device) HandleATCommand(cmd, arg string, errorStatus *string) {
	switch cmd {
	case "E":
		if arg == "" {
			d.at.echo = true
		} else {
			d.at.echo = arg[0] != '0'
		}
	case "H":
		if arg == "0" {
			d.hangup()
		}
	}
}

func (d *Device) HandleDial(dialString string, errorStatus *string) {
	number := dialString
	if len(number) > 0 && (number[0] == 'T' || number[0] == 'P') {
		number = number[1:]
	}
	d.pendingConnectNumber = number
	d.cancelConnect = false

	d.dialSeq++
	ticket := d.dialSeq
	d.scheduler.Schedule(d.connectEventID, d.connectDelayCycles, ticket)
}

func (d *Device) HandleExtendedCommand(cmd string, args []string, errorStatus *string) {}
func (d *Device) QueryExtendedCommand(cmd string, errorStatus *string)                 {}
func (d *Device) GetExtendedParameter(cmd string, errorStatus *string)                 {}
func (d *Device) SetSParameter(param, value int, errorStatus *string)                  {}
func (d *Device) GetSParameter(param int, errorStatus *string)                         {}
func (d *Device) ResetSParameter(param int, errorStatus *string)                       {}

// --- scheduled events ---

// onConnectEvent runs twice per dial attempt: once when the initial
// ~500,000-cycle delay elapses (no outcome recorded yet, so it kicks a
// background resolve+dial), and once more when that background task
// posts its outcome back through the scheduler with a zero delay. Both
// firings happen on the caller's own goroutine via Scheduler.Pump, so
// the device's state is never touched concurrently.
func (d *Device) onConnectEvent(userdata uint64) {
	ticket := userdata

	d.dialMu.Lock()
	outcome, ready := d.dialResults[ticket]
	if ready {
		delete(d.dialResults, ticket)
	}
	d.dialMu.Unlock()

	if !ready {
		if d.cancelConnect {
			return
		}
		number := d.pendingConnectNumber
		callID := uuid.NewString()
		d.logger.Debug("dialing", "number", number, "call_id", callID)

		go func() {
			address, err := d.resolver.Resolve(number)
			var transport Transport
			if err == nil {
				transport, err = d.dialer.Dial(context.Background(), address)
			}
			d.dialMu.Lock()
			d.dialResults[ticket] = &dialOutcome{transport: transport, err: err, callID: callID}
			d.dialMu.Unlock()
			d.scheduler.Schedule(d.connectEventID, 0, ticket)
		}()
		return
	}

	if d.cancelConnect {
		if outcome.transport != nil {
			outcome.transport.Close()
		}
		return
	}
	if outcome.err != nil {
		d.logger.Info("connect failed", "call_id", outcome.callID, "err", outcome.err)
		d.at.respond("\r\nNO CARRIER\r\n")
		d.setInterrupt(bus.InterruptLineState)
		return
	}

	d.logger.Info("connected", "call_id", outcome.callID)
	d.conn = outcome.transport
	d.at.respond("\r\nCARRIER 33600\r\nPROTOCOL: LAPM\r\nCOMPRESSION: NONE\r\nCONNECT 33600\r\n")
	d.setInterrupt(bus.InterruptLineState)
	d.scheduler.Schedule(d.recvEventID, d.recvPollCycles, 0)
}

func (d *Device) onRecvEvent(userdata uint64) {
	if d.conn == nil {
		return
	}
	if d.data.inEnd >= BUF {
		d.scheduler.Schedule(d.recvEventID, d.recvPollCycles, 0)
		return
	}

	room := BUF - int(d.data.inEnd)
	buf := make([]byte, room)
	n, err := d.conn.Read(buf)
	if err != nil && !errors.Is(err, ErrWouldBlock) {
		d.logger.Warn("recv failed, dropping connection", "err", err)
		d.conn.Close()
		d.conn = nil
		return
	}
	if n > 0 {
		d.data.appendIn(buf[:n])
		if d.data.inEnd > d.data.inPos {
			d.setInterrupt(bus.InterruptRecvThresh)
		}
		if d.OnPacketReceived != nil {
			d.OnPacketReceived(buf[:n])
		}
	}
	d.scheduler.Schedule(d.recvEventID, d.recvPollCycles, 0)
}

// --- transmit / interrupts / reset ---

// transmit sends out_buf's pending bytes in one shot, per §4.4: a short
// or failed send simply loses the remainder rather than retrying it.
func (d *Device) transmit() {
	pending := d.data.outPos
	defer func() { d.data.outPos = 0 }()

	if d.conn == nil {
		d.logger.Debug("transmit with no active call, dropping bytes", "n", pending, "err", ErrNotConnected)
		return
	}
	n, err := d.conn.Write(d.data.outBuf[:pending])
	if err != nil {
		d.logger.Warn("transmit failed, dropping connection", "err", err)
		d.conn.Close()
		d.conn = nil
		return
	}
	if n < int(pending) {
		d.logger.Debug("short send, remaining bytes dropped", "sent", n, "total", pending)
	}
}

func (d *Device) setInterrupt(bit uint8) {
	d.interrupt |= bit
	d.interruptLine.ScheduleInterruptUpdate()
}

// hangup implements §4.5: close the socket, zero the data buffers,
// drop pending RecvEvents, and latch cancel_connect so any in-flight
// ConnectEvent aborts instead of completing. interrupt/interrupt_mask
// are deliberately left untouched (they are cleared only via their own
// registers).
func (d *Device) hangup() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	d.data.reset()
	d.scheduler.RemoveAll(d.recvEventID)
	d.cancelConnect = true
}
