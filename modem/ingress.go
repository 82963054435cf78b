package modem

// writeATData feeds bytes arriving via the AT_DATA register through the
// idle/command front-end described in §4.2's "Input staging": outside a
// command line it watches for the "AT" prefix (or the "A/" repeat-last-
// line shortcut), and once inside a command line it accumulates bytes
// into cmd_buf until a CR hands the line to the parser.
func (d *Device) writeATData(data []byte) {
	for _, c := range data {
		if d.at.inATCommand {
			d.feedCommandByte(c)
			continue
		}
		if !d.at.receivedA {
			if c == 'a' || c == 'A' {
				d.at.receivedA = true
			}
			continue
		}
		d.at.receivedA = false
		switch c {
		case 't', 'T':
			d.at.inATCommand = true
			d.at.cmdPos = 0
			d.at.cmdOverflow = false
		case '/':
			d.runLine(d.prevCmdLine)
		}
	}
}

// feedCommandByte appends one byte to cmd_buf (or latches overflow),
// echoing it first if echo is on, and dispatches the accumulated line
// to the parser on CR.
func (d *Device) feedCommandByte(c byte) {
	if d.at.echo {
		d.at.respondByte(c)
	}
	if c == '\r' {
		d.finishCommandLine()
		return
	}
	if d.at.cmdOverflow {
		return
	}
	if int(d.at.cmdPos) >= BUF {
		d.at.cmdOverflow = true
		return
	}
	d.at.cmdBuf[d.at.cmdPos] = c
	d.at.cmdPos++
}

// finishCommandLine is called on the CR that ends a command line: an
// overflowed line is reported as "ERROR" and discarded, otherwise the
// accumulated bytes become a line for the parser.
func (d *Device) finishCommandLine() {
	if d.at.cmdOverflow {
		d.at.cmdOverflow = false
		d.at.cmdPos = 0
		d.at.inATCommand = false
		d.at.respond("ERROR")
		return
	}
	line := string(d.at.cmdBuf[:d.at.cmdPos])
	d.at.cmdPos = 0
	d.at.inATCommand = false
	d.runLine(line)
}

// runLine hands line to the parser, stores it as prev_cmd_line for a
// later "A/" repeat regardless of outcome, and queues a non-empty reply.
func (d *Device) runLine(line string) {
	d.prevCmdLine = line
	reply := d.parser.HandleLine(line)
	if reply != "" {
		d.at.respond(reply)
	}
}
