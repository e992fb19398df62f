package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultSlaveAddress is the I2C slave the bench DUT answers on
	DefaultSlaveAddress byte = 0x7c

	// DefaultValueMarker follows a register write that was inserted by the
	// normalization tooling. Other tools key on this exact string.
	DefaultValueMarker = "//default value"

	registerWriteKeyword = "write_register"
)

// RegisterCommand is a parsed write_register(slave, addr, value) line.
// SlaveParsed is false when the slave token was not a hex byte and Slave
// holds DefaultSlaveAddress instead.
type RegisterCommand struct {
	Slave       byte
	SlaveParsed bool
	Address     byte
	Value       byte
	RawText     string
}

// String renders the canonical form used when config files are rewritten.
// The slave is kept as parsed; rewrites only ever target DefaultSlaveAddress.
func (c RegisterCommand) String() string {
	return fmt.Sprintf("write_register(0x%02x, 0x%02X, 0x%02X)", c.Slave, c.Address, c.Value)
}

// WithValue returns a copy of the command targeting the same register with a new value
func (c RegisterCommand) WithValue(value byte) RegisterCommand {
	next := RegisterCommand{Slave: c.Slave, SlaveParsed: c.SlaveParsed, Address: c.Address, Value: value}
	next.RawText = next.String()
	return next
}

// IsComment reports whether a dut_commands line is blank or a // or # comment
func IsComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#")
}

// ParseRegisterCommand parses a write_register line. The boolean is false for
// comments and for anything that is not a well formed register write.
func ParseRegisterCommand(text string) (RegisterCommand, bool) {
	if IsComment(text) || !strings.Contains(text, registerWriteKeyword) {
		return RegisterCommand{}, false
	}

	args, ok := registerArgs(text)
	if !ok || len(args) != 3 {
		return RegisterCommand{}, false
	}

	addr, err := ParseHexByte(args[1])
	if err != nil {
		return RegisterCommand{}, false
	}
	val, err := ParseHexByte(args[2])
	if err != nil {
		return RegisterCommand{}, false
	}

	// the slave token is accepted as-is; fall back to the bench default
	slave, err := ParseHexByte(args[0])
	parsed := err == nil
	if !parsed {
		slave = DefaultSlaveAddress
	}

	return RegisterCommand{
		Slave:       slave,
		SlaveParsed: parsed,
		Address:     addr,
		Value:       val,
		RawText:     text,
	}, true
}

func registerArgs(text string) ([]string, bool) {
	open := strings.Index(text, "(")
	if open < 0 {
		return nil, false
	}
	closing := strings.Index(text[open+1:], ")")
	if closing < 0 {
		return nil, false
	}

	parts := strings.Split(text[open+1:open+1+closing], ",")
	args := make([]string, 0, len(parts))
	for _, p := range parts {
		args = append(args, strings.TrimSpace(p))
	}
	return args, true
}

// ParseHexByte parses a hex token with an optional 0x prefix into a byte
func ParseHexByte(token string) (byte, error) {
	t := strings.TrimSpace(token)
	if len(t) > 1 && (t[:2] == "0x" || t[:2] == "0X") {
		t = t[2:]
	}
	if t == "" {
		return 0, fmt.Errorf("invalid hex value %q", token)
	}
	v, err := strconv.ParseUint(t, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q", token)
	}
	return byte(v), nil
}
