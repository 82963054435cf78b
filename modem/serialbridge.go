package modem

import (
	"context"

	"go.bug.st/serial"
)

// SerialBridgeDialer satisfies a dial by opening a real serial port
// instead of a TCP socket, bridging the guest's AT session onto a
// physical modem (or another emulator instance) attached to the host.
// The dialed address is ignored; the port is fixed at construction.
type SerialBridgeDialer struct {
	PortName string
	Mode     *serial.Mode
}

// NewSerialBridgeDialer returns a dialer bound to a serial port at the
// given baud rate, 8N1 framing, matching the defaults go.bug.st/serial
// itself assumes when Mode is left nil by the caller.
func NewSerialBridgeDialer(portName string, baudRate int) *SerialBridgeDialer {
	return &SerialBridgeDialer{
		PortName: portName,
		Mode:     &serial.Mode{BaudRate: baudRate},
	}
}

func (d *SerialBridgeDialer) Dial(ctx context.Context, address string) (Transport, error) {
	port, err := serial.Open(d.PortName, d.Mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(0); err != nil {
		port.Close()
		return nil, err
	}
	return &serialTransport{port: port}, nil
}

// serialTransport adapts go.bug.st/serial's Port to Transport's
// non-blocking-read contract.
type serialTransport struct {
	port serial.Port
}

func (t *serialTransport) Read(p []byte) (int, error) {
	// A zero read-timeout port returns immediately with whatever is
	// available (possibly nothing), which is exactly the semantics
	// ErrWouldBlock exists to express; go.bug.st/serial returns (0, nil)
	// rather than a timeout error in that case, so translate here.
	n, err := t.port.Read(p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, ErrWouldBlock
	}
	return n, nil
}

func (t *serialTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}
