package at

import "strings"

// Parser turns a single preprocessed command line into a reply string by
// dispatching pieces of the V.250 grammar onto a Handler. A Parser holds
// no buffer state of its own — AT-State's cmd_buf/res_buf framing lives
// one layer up, in the code that feeds it complete lines.
type Parser struct {
	Handler Handler
}

// NewParser returns a Parser that dispatches onto h.
func NewParser(h Handler) *Parser {
	return &Parser{Handler: h}
}

// HandleLine parses a line as a sequence of commands executed left to
// right (e.g. "E0Q0" is two basic commands, "+CMGF?E0" is an extended
// query followed by a basic command), returning the text that should be
// queued as the response: "OK", "ERROR", whatever the last dispatched
// handler set as its error status, or "" for a line that dials.
func (p *Parser) HandleLine(line string) string {
	line = PreprocessString(line)
	if len(line) == 0 {
		return "OK"
	}

	result := "OK"
	errorStatus := ""
	pos := 0

	for pos < len(line) {
		var newPos int
		var err error

		switch line[pos] {
		case '+':
			newPos, err = p.parseExtendedCommand(line, pos+1, &errorStatus)
		case 'S':
			newPos, err = p.parseSParameter(line, pos+1, &errorStatus)
		case 'D':
			result = ""
			newPos, err = p.parseDial(line, pos+1, &errorStatus)
		default:
			newPos, err = p.parseCommand(line, pos, &errorStatus)
		}

		if err != nil {
			return "ERROR"
		}
		if errorStatus != "" {
			return errorStatus
		}
		pos = newPos
	}

	return result
}

// parseCommand handles a basic command: an optional '\' or '&' prefix, a
// mandatory command letter, and a numeric argument with V.250 5.3.1
// leading-zero skipping. It returns the position just past the command.
func (p *Parser) parseCommand(line string, pos int, errorStatus *string) (int, error) {
	var cmd strings.Builder

	if pos < len(line) && (line[pos] == '\\' || line[pos] == '&') {
		cmd.WriteByte(line[pos])
		pos++
	}
	if pos >= len(line) || !IsAlpha(line[pos]) {
		return pos, parseErrorf(pos, "Expected alphabetical character for command")
	}
	cmd.WriteByte(line[pos])
	pos++

	skippedZero := false
	var arg strings.Builder
	for pos < len(line) && IsNumeric(line[pos]) {
		if arg.Len() == 0 && line[pos] == '0' {
			skippedZero = true
			pos++
			continue
		}
		arg.WriteByte(line[pos])
		pos++
	}
	argStr := arg.String()
	if argStr == "" && skippedZero {
		argStr = "0"
	}

	p.Handler.HandleATCommand(cmd.String(), argStr, errorStatus)
	return pos, nil
}

// parseExtendedCommand handles "+CMD", "+CMD?", "+CMD=..." and "+CMD=?",
// returning the position just past the command so HandleLine can continue
// with whatever follows on the same line.
func (p *Parser) parseExtendedCommand(line string, pos int, errorStatus *string) (int, error) {
	pos = SkipSpaces(line, pos)
	if pos >= len(line) || !IsAlpha(line[pos]) {
		return pos, parseErrorf(pos, "Expected alphabetical character for command")
	}

	var cmd strings.Builder
	cmd.WriteByte(line[pos])
	pos++
	pos = SkipSpaces(line, pos)

	for {
		if pos >= len(line) {
			p.Handler.HandleExtendedCommand(cmd.String(), nil, errorStatus)
			return pos, nil
		}
		switch c := line[pos]; {
		case c == '?':
			p.Handler.GetExtendedParameter(cmd.String(), errorStatus)
			pos++
			if pos < len(line) && line[pos] == ';' {
				pos++
			}
			return pos, nil
		case c == '=':
			return p.parseExtendedArgs(line, pos+1, cmd.String(), errorStatus)
		case IsExtChar(c):
			cmd.WriteByte(c)
			pos++
		default:
			return pos, parseErrorf(pos, "Expected character valid for extended syntax command")
		}
	}
}

// parseExtendedArgs handles everything after the '=' in an extended
// command: the "=?" test form, a bare trailing '=', or a comma-separated
// argument list possibly containing quoted string constants. It returns
// the position just past the consumed arguments.
func (p *Parser) parseExtendedArgs(line string, pos int, cmd string, errorStatus *string) (int, error) {
	if pos >= len(line) {
		p.Handler.HandleExtendedCommand(cmd, []string{""}, errorStatus)
		return pos, nil
	}

	if line[pos] == '?' {
		pos++
		p.Handler.QueryExtendedCommand(cmd, errorStatus)
		if pos < len(line) && line[pos] == ';' {
			pos++
		}
		return pos, nil
	}

	var args []string
	for {
		if pos < len(line) && line[pos] == '"' {
			s, newPos, err := parseStringConstant(line, pos+1)
			if err != nil {
				return pos, err
			}
			pos = newPos
			args = append(args, s)

			switch {
			case pos >= len(line):
			case line[pos] == ';':
				pos++
			case line[pos] == ',':
				pos++
				continue
			default:
				return pos, parseErrorf(pos, "Expected end of argument after end of string constant")
			}
			break
		}

		var arg strings.Builder
		for pos < len(line) && line[pos] != ',' && line[pos] != ';' {
			if line[pos] != ' ' {
				arg.WriteByte(line[pos])
			}
			pos++
		}
		args = append(args, arg.String())

		if pos >= len(line) {
			break
		}
		if line[pos] == ';' {
			pos++
			break
		}
		pos++ // comma
	}

	p.Handler.HandleExtendedCommand(cmd, args, errorStatus)
	return pos, nil
}

// parseStringConstant reads a quoted string starting just after the
// opening '"'. It returns the decoded content and the index following
// the closing quote.
func parseStringConstant(line string, pos int) (string, int, error) {
	var out []byte
	for {
		if pos >= len(line) {
			return "", pos, parseErrorf(pos, "Unterminated string constant")
		}
		c := line[pos]
		if c == '"' {
			return string(out), pos + 1, nil
		}
		if c == '\\' {
			if pos+2 >= len(line) {
				return "", pos, parseErrorf(pos, "Invalid character in escape sequence")
			}
			h1, h2 := HexCharToInt(line[pos+1]), HexCharToInt(line[pos+2])
			if h1 < 0 || h2 < 0 {
				return "", pos, parseErrorf(pos, "Invalid character in escape sequence")
			}
			out = append(out, byte(h1*16+h2))
			pos += 3
			continue
		}
		out = append(out, c)
		pos++
	}
}

// parseSParameter handles "Sn?", "Sn=v" and "Sn=", returning the position
// just past the consumed parameter.
func (p *Parser) parseSParameter(line string, pos int, errorStatus *string) (int, error) {
	param := 0
	for pos < len(line) && IsNumeric(line[pos]) {
		param = param*10 + DecCharToInt(line[pos])
		pos++
		if param > 99 {
			return pos, parseErrorf(pos, "Too high S-parameter")
		}
	}
	if pos >= len(line) {
		return pos, parseErrorf(pos, "Unexpected end of line in S-parameter")
	}

	switch line[pos] {
	case '?':
		p.Handler.GetSParameter(param, errorStatus)
		return pos + 1, nil
	case '=':
		pos++
		if pos >= len(line) {
			p.Handler.ResetSParameter(param, errorStatus)
			return pos, nil
		}
		value := 0
		for pos < len(line) && IsNumeric(line[pos]) {
			value = value*10 + DecCharToInt(line[pos])
			pos++
			if value > 999 {
				return pos, parseErrorf(pos, "Too high S-parameter value")
			}
		}
		p.Handler.SetSParameter(param, value, errorStatus)
		return pos, nil
	default:
		return pos, parseErrorf(pos, "Unexpected character in S-parameter")
	}
}

// parseDial handles "D..." by consuming the rest of the line verbatim as
// a dial string. A semicolon anywhere in it is rejected outright: this
// parser does not support the voice-call-after-dial extension. A dial
// always consumes the remainder of the line, so no command can follow it.
func (p *Parser) parseDial(line string, pos int, errorStatus *string) (int, error) {
	rest := line[pos:]
	if strings.Contains(rest, ";") {
		return pos, parseErrorf(pos, "Semicolon after dial string not supported")
	}
	p.Handler.HandleDial(rest, errorStatus)
	return len(line), nil
}
