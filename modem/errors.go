package modem

import "errors"

var (
	// ErrNoDialer is returned by ConfigBuilder.Build when no Dialer was
	// configured; a device cannot place calls without one.
	ErrNoDialer = errors.New("modem: no dialer configured")

	// ErrDeviceClosed is returned by SaveState and LoadState once Close
	// has been called: a closed Device's state is no longer meaningful
	// to persist or restore.
	ErrDeviceClosed = errors.New("modem: device closed")

	// ErrNotConnected marks transmit's log line when out_buf's pending
	// bytes are dropped because no call is up, matching the
	// "short/blocked sends are lost" policy in §9.
	ErrNotConnected = errors.New("modem: not connected")

	// ErrWouldBlock is returned by a Transport's Read when a
	// non-blocking read found no data ready, the Go equivalent of the
	// "NotReady" status in the RecvEvent contract.
	ErrWouldBlock = errors.New("modem: read would block")
)
