package modem

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// Transport is the byte pipe a connected call runs over: a socket for
// the default TCP dialer, a serial port for SerialBridgeDialer, or a
// test fake. Reads must be non-blocking: if no data is ready, Read
// returns (0, ErrWouldBlock) rather than waiting, so RecvEvent never
// stalls the caller.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer places a call and returns the Transport it should run over.
// The device's background connect task calls it with
// context.Background(), so no deadline or cancellation reaches the
// Dialer through ctx from there.
type Dialer interface {
	Dial(ctx context.Context, address string) (Transport, error)
}

// Resolver turns a dialed phone number into a dial address. The default
// resolver (DefaultResolver) always returns a fixed address, matching
// the "no real telephone network" nature of this device; a richer
// strategy may parse the guest-supplied digits into a routable address.
type Resolver interface {
	Resolve(number string) (address string, err error)
}

// FixedResolver resolves every number to the same address, the simplest
// conforming Resolver and this repo's default.
type FixedResolver struct {
	Address string
}

// DefaultResolver is the canonical default: the fixed loopback-ish peer
// address used by the reference scenarios in spec-derived tests.
var DefaultResolver = FixedResolver{Address: "10.0.1.1:2468"}

func (r FixedResolver) Resolve(number string) (string, error) {
	if r.Address == "" {
		return "", errors.New("modem: FixedResolver has no address configured")
	}
	return r.Address, nil
}

// TCPDialer dials a real TCP socket and wraps it as a non-blocking
// Transport. It is the production Dialer; SerialBridgeDialer is the
// hardware-in-the-loop alternative.
type TCPDialer struct {
	// DialTimeout bounds the connect itself; zero means no timeout
	// beyond ctx's own deadline.
	DialTimeout time.Duration
}

func (d TCPDialer) Dial(ctx context.Context, address string) (Transport, error) {
	dialer := net.Dialer{Timeout: d.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return &tcpTransport{conn: conn}, nil
}

// tcpTransport adapts a net.Conn to Transport's non-blocking-read
// contract using the standard immediate-deadline polling idiom.
type tcpTransport struct {
	conn net.Conn
}

func (t *tcpTransport) Read(p []byte) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now()); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(p)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return n, ErrWouldBlock
		}
		return n, err
	}
	return n, nil
}

func (t *tcpTransport) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}
