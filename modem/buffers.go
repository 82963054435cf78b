package modem

// BUF is the fixed capacity of every ring buffer the device owns: the
// AT command and response buffers, and the online-data input/output
// buffers.
const BUF = 512

// atState holds the AT-side buffers and flags: the command line being
// assembled from AT_DATA writes, and the response line(s) queued for
// AT_DATA reads.
type atState struct {
	cmdBuf      [BUF]byte
	cmdPos      uint16
	cmdOverflow bool

	resBuf [BUF]byte
	resPos uint16
	resEnd uint16

	echo        bool
	receivedA   bool
	inATCommand bool
}

func newATState() atState {
	return atState{echo: true}
}

// pendingRes is the PENDING_AT_RES register value.
func (s *atState) pendingRes() uint16 {
	return s.resEnd - s.resPos
}

// readResByte services one AT_DATA read byte, draining the response
// buffer and resetting it to empty once fully drained (P1).
func (s *atState) readResByte() byte {
	if s.resPos >= s.resEnd {
		return 0
	}
	b := s.resBuf[s.resPos]
	s.resPos++
	if s.resPos >= s.resEnd {
		s.resPos, s.resEnd = 0, 0
	}
	return b
}

// respond appends msg to the response buffer. If msg would not fit,
// nothing is appended and it returns false; no caller checks the result
// or logs the dropped message.
func (s *atState) respond(msg string) bool {
	if int(s.resEnd)+len(msg) > BUF {
		return false
	}
	copy(s.resBuf[s.resEnd:], msg)
	s.resEnd += uint16(len(msg))
	return true
}

// respondByte appends a single byte to the response buffer.
func (s *atState) respondByte(b byte) bool {
	if int(s.resEnd)+1 > BUF {
		return false
	}
	s.resBuf[s.resEnd] = b
	s.resEnd++
	return true
}

// resetBuffers clears both AT buffers back to empty, used by reset().
func (s *atState) resetBuffers() {
	s.cmdPos, s.cmdOverflow = 0, false
	s.resPos, s.resEnd = 0, 0
	s.receivedA, s.inATCommand = false, false
}

// dataState holds the online-data path: out_buf queued for the socket,
// in_buf staged for guest reads.
type dataState struct {
	outBuf [BUF]byte
	outPos uint16

	inBuf  [BUF]byte
	inPos  uint16
	inEnd  uint16
}

// pendingRecv is the RECV_PENDING_H/L register pair's source value.
func (d *dataState) pendingRecv() uint16 {
	return d.inEnd - d.inPos
}

// appendOut appends as much of b as fits into out_buf, returning the
// number of bytes actually appended.
func (d *dataState) appendOut(b []byte) int {
	room := BUF - int(d.outPos)
	n := len(b)
	if n > room {
		n = room
	}
	copy(d.outBuf[d.outPos:], b[:n])
	d.outPos += uint16(n)
	return n
}

// appendIn appends as much of b as fits into in_buf, returning the
// number of bytes actually appended.
func (d *dataState) appendIn(b []byte) int {
	room := BUF - int(d.inEnd)
	n := len(b)
	if n > room {
		n = room
	}
	copy(d.inBuf[d.inEnd:], b[:n])
	d.inEnd += uint16(n)
	return n
}

// readDataByte services one DATA read byte, draining in_buf and
// resetting it to empty once fully drained (P2).
func (d *dataState) readDataByte() byte {
	if d.inPos >= d.inEnd {
		return 0
	}
	b := d.inBuf[d.inPos]
	d.inPos++
	if d.inPos >= d.inEnd {
		d.inPos, d.inEnd = 0, 0
	}
	return b
}

// reset zeros out_pos, in_pos and in_end, per soft reset/hangup (§4.5).
func (d *dataState) reset() {
	d.outPos = 0
	d.inPos, d.inEnd = 0, 0
}
