package domain

import "strings"

// DutCommand is one classified entry of a run's dut_commands list.
// It is one of CommentLine, RegisterWrite, RawCommand or MalformedCommand.
type DutCommand interface {
	Line() string
	isDutCommand()
}

// CommentLine is a blank, // or # line. Never sent to the DUT.
type CommentLine struct {
	Text string
}

// RegisterWrite is a write_register(...) shorthand
type RegisterWrite struct {
	Command RegisterCommand
}

// RawCommand is forwarded verbatim over the control protocol (e.g. "eq 3")
type RawCommand struct {
	Text string
}

// MalformedCommand mentions write_register but could not be parsed
type MalformedCommand struct {
	Text   string
	Reason string
}

func (c CommentLine) Line() string      { return c.Text }
func (c RegisterWrite) Line() string    { return c.Command.RawText }
func (c RawCommand) Line() string       { return c.Text }
func (c MalformedCommand) Line() string { return c.Text }

func (CommentLine) isDutCommand()      {}
func (RegisterWrite) isDutCommand()    {}
func (RawCommand) isDutCommand()       {}
func (MalformedCommand) isDutCommand() {}

// ClassifyDutCommand turns a raw config line into a DutCommand
func ClassifyDutCommand(line string) DutCommand {
	if IsComment(line) {
		return CommentLine{Text: line}
	}

	if strings.Contains(line, registerWriteKeyword) {
		if cmd, ok := ParseRegisterCommand(line); ok {
			return RegisterWrite{Command: cmd}
		}
		return MalformedCommand{Text: line, Reason: "expected write_register(<slave>, <addr>, <value>) with hex arguments"}
	}

	return RawCommand{Text: strings.TrimSpace(line)}
}
