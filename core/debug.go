package core

// TraceWriter is a function type for writing protocol trace messages.
// It fills the role a platform debug writer does elsewhere: the core
// never decides where trace output goes, the platform does.
type TraceWriter func(string)

// SetTraceWriter installs a trace hook invoked from interrupt context
// with one line per handled status code. Tracing is off until a writer
// is set; pass nil to turn it back off. The writer must not call back
// into the controller.
func (c *Twi) SetTraceWriter(w TraceWriter) {
	c.trace = w
}

// traceStatus formats one interrupt. Caller holds c.mu.
func (c *Twi) traceStatus(status uint8) {
	c.trace("twi: irq status 0x" + htoa(status) + " state " + utoa(uint32(c.state)))
}
