package defs

import "time"

// Protocol constants
const (
	DefaultPort = 13000

	// MaxMessageSize is the single-read budget for one request or response.
	// Messages are not length framed; one read is one message.
	MaxMessageSize = 1024

	// Ops
	OpWrite = "write"
	OpRead  = "read"

	// Fixed replies
	ReplyOK   = "OK"
	ReplyFail = "Fail"

	ErrorPrefix = "Error: "

	// Configuration constants
	DefaultClientTimeout = 5 * time.Second
	ConnectionRetryDelay = 100 * time.Millisecond
)
