package primary

// ControlMetrics records control server activity
type ControlMetrics interface {
	CommandHandled(op, result string)
	SessionOpened()
	SessionClosed()
}
