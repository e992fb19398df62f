// Package codec implements the ASCII control protocol wire grammar.
//
//	write <slave> <reg> <val>  ->  OK | Fail | Error: <reason>
//	read <slave> <reg>         ->  0x<val> | Error: <reason>
//
// All hex fields are two lower-case digits on the wire. The codec never
// touches sockets.
package codec

import (
	"fmt"
	"strings"

	"gitlab.com/dutbench.net/internal/domain"
	"gitlab.com/dutbench.net/internal/tcp/defs"
)

// EncodeRequest renders a request as a single protocol line
func EncodeRequest(req *defs.Request) []byte {
	switch req.Op {
	case defs.OpWrite:
		return []byte(fmt.Sprintf("%s %02x %02x %02x", defs.OpWrite, req.Slave, req.Reg, req.Value))
	case defs.OpRead:
		return []byte(fmt.Sprintf("%s %02x %02x", defs.OpRead, req.Slave, req.Reg))
	default:
		return []byte(req.Op)
	}
}

// DecodeRequest parses one protocol line. Malformed input returns a *defs.ProtocolError.
func DecodeRequest(data []byte) (*defs.Request, error) {
	parts := strings.Fields(string(data))
	if len(parts) == 0 {
		return nil, &defs.ProtocolError{Reason: "Empty command"}
	}

	op := strings.ToLower(parts[0])
	switch op {
	case defs.OpWrite:
		if len(parts) != 4 {
			return nil, &defs.ProtocolError{Reason: "Usage 'write <addr> <reg> <val>'"}
		}
		vals, err := parseHexFields(parts[1:])
		if err != nil {
			return nil, err
		}
		return &defs.Request{Op: op, Slave: vals[0], Reg: vals[1], Value: vals[2]}, nil

	case defs.OpRead:
		if len(parts) != 3 {
			return nil, &defs.ProtocolError{Reason: "Usage 'read <addr> <reg>'"}
		}
		vals, err := parseHexFields(parts[1:])
		if err != nil {
			return nil, err
		}
		return &defs.Request{Op: op, Slave: vals[0], Reg: vals[1]}, nil

	default:
		return nil, &defs.ProtocolError{Reason: fmt.Sprintf("Unknown command '%s'", op), UnknownOp: op}
	}
}

func parseHexFields(fields []string) ([]byte, error) {
	out := make([]byte, len(fields))
	for i, f := range fields {
		v, err := domain.ParseHexByte(f)
		if err != nil {
			return nil, &defs.ProtocolError{Reason: fmt.Sprintf("Invalid number format (%v)", err)}
		}
		out[i] = v
	}
	return out, nil
}

// EncodeResponse renders a reply
func EncodeResponse(resp defs.Response) []byte {
	switch resp.Kind {
	case defs.ResponseOK:
		return []byte(defs.ReplyOK)
	case defs.ResponseFail:
		return []byte(defs.ReplyFail)
	case defs.ResponseValue:
		return []byte(fmt.Sprintf("0x%02x", resp.Value))
	case defs.ResponseError:
		return []byte(defs.ErrorPrefix + resp.Reason)
	default:
		return []byte(resp.Raw)
	}
}

// DecodeResponse classifies a reply. Anything that is not a known reply form
// is kept as ResponseRaw, which is how non-register commands answer.
func DecodeResponse(data []byte) defs.Response {
	text := strings.TrimSpace(string(data))

	switch {
	case text == defs.ReplyOK:
		return defs.OK()
	case text == defs.ReplyFail:
		return defs.Fail()
	case strings.HasPrefix(text, defs.ErrorPrefix):
		return defs.ErrorReply(strings.TrimPrefix(text, defs.ErrorPrefix))
	case len(text) == 4 && strings.HasPrefix(text, "0x"):
		if v, err := domain.ParseHexByte(text); err == nil {
			return defs.Value(v)
		}
	}

	return defs.Response{Kind: defs.ResponseRaw, Raw: text}
}

// ErrorResponse turns a decode error into the reply the server sends
func ErrorResponse(err error) defs.Response {
	return defs.ErrorReply(err.Error())
}
