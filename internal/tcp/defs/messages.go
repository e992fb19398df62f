package defs

// Protocol data structures
type (
	// Request is a decoded control request
	Request struct {
		Op    string
		Slave byte
		Reg   byte
		Value byte
	}

	// Response is a control reply, exactly one per request
	Response struct {
		Kind   ResponseKind
		Value  byte
		Reason string
		Raw    string
	}
)

// ResponseKind tells which reply form a Response carries
type ResponseKind int

const (
	ResponseOK ResponseKind = iota + 1
	ResponseFail
	ResponseValue
	ResponseError
	ResponseRaw
)

// ProtocolError is a malformed request. It is answered with "Error: <reason>".
// UnknownOp is set when the command word itself is not recognised.
type ProtocolError struct {
	Reason    string
	UnknownOp string
}

func (e *ProtocolError) Error() string {
	return e.Reason
}

// OK is the write success reply
func OK() Response { return Response{Kind: ResponseOK} }

// Fail is the write failure reply
func Fail() Response { return Response{Kind: ResponseFail} }

// Value is the read reply
func Value(v byte) Response { return Response{Kind: ResponseValue, Value: v} }

// ErrorReply builds an error reply
func ErrorReply(reason string) Response { return Response{Kind: ResponseError, Reason: reason} }

// IsFailure reports whether the reply signals a failed command
func (r Response) IsFailure() bool {
	return r.Kind == ResponseFail || r.Kind == ResponseError
}

func (k ResponseKind) String() string {
	switch k {
	case ResponseOK:
		return "ok"
	case ResponseFail:
		return "fail"
	case ResponseValue:
		return "value"
	case ResponseError:
		return "error"
	case ResponseRaw:
		return "raw"
	default:
		return "unknown"
	}
}
