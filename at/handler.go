package at

// Handler is the capability a command-line grammar dispatches onto. It
// mirrors the original parser's IATHandler: the grammar decides how to
// tokenize a line, the Handler decides what each token means.
//
// Every method that takes an errorStatus pointer may set *errorStatus to
// a non-empty string to short-circuit the rest of the line with that
// string as the reply (the original's error_status out-param); leaving
// it empty keeps the line's default "OK" result.
type Handler interface {
	// HandleATCommand services a basic (non-extended) command such as
	// "E0" or "&K0": cmd is the letter (and any leading '\' or '&'),
	// arg is the accumulated numeric argument, "" if none was given.
	HandleATCommand(cmd, arg string, errorStatus *string)

	// HandleDial services a "D..." line. dialString is everything after
	// the 'D', verbatim.
	HandleDial(dialString string, errorStatus *string)

	// HandleExtendedCommand services "+CMD=arg,arg,..." (args is nil for
	// a bare "+CMD" and a single empty string for "+CMD=").
	HandleExtendedCommand(cmd string, args []string, errorStatus *string)

	// QueryExtendedCommand services "+CMD=?" (the test/range form).
	QueryExtendedCommand(cmd string, errorStatus *string)

	// GetExtendedParameter services "+CMD?".
	GetExtendedParameter(cmd string, errorStatus *string)

	// SetSParameter services "Sn=v".
	SetSParameter(param, value int, errorStatus *string)

	// GetSParameter services "Sn?".
	GetSParameter(param int, errorStatus *string)

	// ResetSParameter services "Sn=" with no value, an implementation
	// choice documented alongside the parser rather than strict V.250.
	ResetSParameter(param int, errorStatus *string)
}
