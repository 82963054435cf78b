package modem

import (
	"github.com/i4energy/exi-modem/bus"
)

// SetCS is informational only; chip-select carries no state here.
func (d *Device) SetCS(select_ bool) {}

// IsPresent always reports true: this device always enumerates.
func (d *Device) IsPresent() bool { return true }

// IsInterruptAsserted implements P4.
func (d *Device) IsInterruptAsserted() bool {
	return d.interrupt&d.interruptMask != 0
}

// ImmWrite implements the command/payload wire protocol from §4.1.
func (d *Device) ImmWrite(word uint32, size int) {
	if d.pendingWriteBytes == 0 {
		cb := byte(word >> 24)
		if cb&0x80 != 0 {
			d.hangup()
			return
		}

		reg := bus.RegisterID(cb & 0x1F)
		d.currentRegister = reg

		switch {
		case cb&0x60 == 0x60:
			d.pendingWriteBytes = uint16((word >> 8) & 0xFFFF)
		case cb&0x40 != 0:
			d.pendingWriteBytes = 1
		}
		return
	}

	k := int(d.pendingWriteBytes)
	if k > size {
		k = size
	}
	data := topBytes(word, k)
	d.pendingWriteBytes -= uint16(k)

	switch d.currentRegister {
	case bus.RegData:
		d.data.appendOut(data)
		if d.pendingWriteBytes == 0 {
			d.transmit()
		}
	case bus.RegATData:
		d.writeATData(data)
	default:
		if k != 1 {
			d.logger.Warn("dropping multi-byte write to single-byte register",
				"register", d.currentRegister, "bytes", k)
			return
		}
		d.writeSingleByteRegister(d.currentRegister, data[0])
	}
}

// writeSingleByteRegister dispatches the one-byte store a non-DATA,
// non-AT_DATA register write performs, per the §6.2 register map.
func (d *Device) writeSingleByteRegister(reg bus.RegisterID, b byte) {
	switch reg {
	case bus.RegInterruptMask:
		d.interruptMask = b
		d.interrupt = 0
	case bus.RegInterruptCause:
		d.interrupt = b
	case bus.RegFWT:
		d.interrupt = 0
	case bus.RegExiID:
		d.logger.Warn("write to read-only EXI_ID register", "value", b)
	default:
		// PENDING_AT_CMD/RES, UNKNOWN1/2, SEND/RECV pending and
		// threshold registers, RAW_STATUS: accepted, ignored.
	}
}

// ImmRead implements the §4.1/§6.2 read side: the current register's
// value, left-justified to fill the returned word.
func (d *Device) ImmRead(size int) uint32 {
	var result uint32

	switch d.currentRegister {
	case bus.RegExiID:
		result = 0x02020000
	case bus.RegInterruptMask:
		result = uint32(d.interruptMask)
	case bus.RegInterruptCause:
		result = uint32(d.interrupt)
		d.interrupt = 0
	case bus.RegATData:
		for i := 0; i < size; i++ {
			result = (result << 8) | uint32(d.at.readResByte())
		}
	case bus.RegPendingATCmd:
		result = uint32(d.at.cmdPos)
	case bus.RegPendingATRes:
		result = uint32(d.at.pendingRes())
	case bus.RegData:
		for i := 0; i < size; i++ {
			result = (result << 8) | uint32(d.data.readDataByte())
		}
	case bus.RegRecvPendingHigh:
		result = uint32(byte(d.data.pendingRecv() >> 8))
	case bus.RegRecvPendingLow:
		result = uint32(byte(d.data.pendingRecv() & 0xFF))
	}

	return result << uint32(8*(4-size))
}

// DMAWrite copies length bytes from guest memory into out_buf, per
// §4.1; like the imm DATA path, a transmit is attempted once the
// pending write completes.
func (d *Device) DMAWrite(mem bus.GuestMemory, addr uint32, length uint32) {
	buf := make([]byte, length)
	mem.CopyFromGuest(buf, addr)
	d.data.appendOut(buf)

	if uint32(d.pendingWriteBytes) <= length {
		d.pendingWriteBytes = 0
	} else {
		d.pendingWriteBytes -= uint16(length)
	}
	if d.pendingWriteBytes == 0 {
		d.transmit()
	}
}

// DMARead copies length bytes from in_buf into guest memory.
func (d *Device) DMARead(mem bus.GuestMemory, addr uint32, length uint32) {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = d.data.readDataByte()
	}
	mem.CopyToGuest(addr, buf)
}

// topBytes returns the top k bytes of word, most significant first.
func topBytes(word uint32, k int) []byte {
	out := make([]byte, k)
	for i := 0; i < k; i++ {
		out[i] = byte(word >> (24 - 8*i))
	}
	return out
}
