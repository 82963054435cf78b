package modem

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/i4energy/exi-modem/bus"
)

// stateMagic guards against loading a save state produced by an
// incompatible build; stateVersion is bumped whenever the layout below
// changes shape.
const (
	stateMagic   uint32 = 0x45584d31 // "EXM1"
	stateVersion uint16 = 1
)

// SaveState writes every piece of state §6.1 requires: EXI-State,
// AT-State, Data-State, Modem-State and prev_cmd_line. It completes what
// the original device left as an acknowledged TODO.
func (d *Device) SaveState(w io.Writer) error {
	if d.closed {
		return ErrDeviceClosed
	}
	if err := writeUint32(w, stateMagic); err != nil {
		return err
	}
	if err := writeUint16(w, stateVersion); err != nil {
		return err
	}

	// EXI-State
	if err := writeUint8(w, d.interruptMask); err != nil {
		return err
	}
	if err := writeUint8(w, d.interrupt); err != nil {
		return err
	}
	if err := writeUint8(w, uint8(d.currentRegister)); err != nil {
		return err
	}
	if err := writeUint16(w, d.pendingWriteBytes); err != nil {
		return err
	}

	// AT-State
	if _, err := w.Write(d.at.cmdBuf[:]); err != nil {
		return err
	}
	if err := writeUint16(w, d.at.cmdPos); err != nil {
		return err
	}
	if err := writeBool(w, d.at.cmdOverflow); err != nil {
		return err
	}
	if _, err := w.Write(d.at.resBuf[:]); err != nil {
		return err
	}
	if err := writeUint16(w, d.at.resPos); err != nil {
		return err
	}
	if err := writeUint16(w, d.at.resEnd); err != nil {
		return err
	}
	if err := writeBool(w, d.at.echo); err != nil {
		return err
	}
	if err := writeBool(w, d.at.receivedA); err != nil {
		return err
	}
	if err := writeBool(w, d.at.inATCommand); err != nil {
		return err
	}

	// Data-State
	if _, err := w.Write(d.data.outBuf[:]); err != nil {
		return err
	}
	if err := writeUint16(w, d.data.outPos); err != nil {
		return err
	}
	if _, err := w.Write(d.data.inBuf[:]); err != nil {
		return err
	}
	if err := writeUint16(w, d.data.inPos); err != nil {
		return err
	}
	if err := writeUint16(w, d.data.inEnd); err != nil {
		return err
	}

	// Modem-State (the live socket, if any, is not serialized: a
	// restored device comes back up on-hook, matching a cold restart
	// of the transport layer)
	if err := writeBool(w, d.cancelConnect); err != nil {
		return err
	}
	if err := writeString(w, d.pendingConnectNumber); err != nil {
		return err
	}
	if err := writeString(w, d.prevCmdLine); err != nil {
		return err
	}
	return nil
}

// LoadState restores everything SaveState wrote. Any live call is
// dropped first: the restored state never claims a socket it cannot
// actually own.
func (d *Device) LoadState(r io.Reader) error {
	if d.closed {
		return ErrDeviceClosed
	}
	magic, err := readUint32(r)
	if err != nil {
		return err
	}
	if magic != stateMagic {
		return fmt.Errorf("modem: bad save state magic %#x", magic)
	}
	version, err := readUint16(r)
	if err != nil {
		return err
	}
	if version != stateVersion {
		return fmt.Errorf("modem: unsupported save state version %d", version)
	}

	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}

	if d.interruptMask, err = readUint8(r); err != nil {
		return err
	}
	if d.interrupt, err = readUint8(r); err != nil {
		return err
	}
	reg, err := readUint8(r)
	if err != nil {
		return err
	}
	d.currentRegister = bus.RegisterID(reg)
	if d.pendingWriteBytes, err = readUint16(r); err != nil {
		return err
	}

	if _, err = io.ReadFull(r, d.at.cmdBuf[:]); err != nil {
		return err
	}
	if d.at.cmdPos, err = readUint16(r); err != nil {
		return err
	}
	if d.at.cmdOverflow, err = readBool(r); err != nil {
		return err
	}
	if _, err = io.ReadFull(r, d.at.resBuf[:]); err != nil {
		return err
	}
	if d.at.resPos, err = readUint16(r); err != nil {
		return err
	}
	if d.at.resEnd, err = readUint16(r); err != nil {
		return err
	}
	if d.at.echo, err = readBool(r); err != nil {
		return err
	}
	if d.at.receivedA, err = readBool(r); err != nil {
		return err
	}
	if d.at.inATCommand, err = readBool(r); err != nil {
		return err
	}

	if _, err = io.ReadFull(r, d.data.outBuf[:]); err != nil {
		return err
	}
	if d.data.outPos, err = readUint16(r); err != nil {
		return err
	}
	if _, err = io.ReadFull(r, d.data.inBuf[:]); err != nil {
		return err
	}
	if d.data.inPos, err = readUint16(r); err != nil {
		return err
	}
	if d.data.inEnd, err = readUint16(r); err != nil {
		return err
	}

	if d.cancelConnect, err = readBool(r); err != nil {
		return err
	}
	if d.pendingConnectNumber, err = readString(r); err != nil {
		return err
	}
	if d.prevCmdLine, err = readString(r); err != nil {
		return err
	}
	return nil
}

func writeUint8(w io.Writer, v uint8) error  { return binary.Write(w, binary.BigEndian, v) }
func writeUint16(w io.Writer, v uint16) error { return binary.Write(w, binary.BigEndian, v) }
func writeUint32(w io.Writer, v uint32) error { return binary.Write(w, binary.BigEndian, v) }

func writeBool(w io.Writer, v bool) error {
	var b uint8
	if v {
		b = 1
	}
	return writeUint8(w, b)
}

func writeString(w io.Writer, s string) error {
	if err := writeUint16(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readUint8(r io.Reader) (uint8, error) {
	var v uint8
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

func readUint16(r io.Reader) (uint16, error) {
	var v uint16
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

func readBool(r io.Reader) (bool, error) {
	v, err := readUint8(r)
	return v != 0, err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint16(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
