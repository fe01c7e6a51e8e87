package logging

// ChannelSink forwards events to a buffered channel for in-process
// subscribers (the UI status line, a test harness). Writes never block: a
// full channel drops the event rather than stall the transport.
type ChannelSink struct {
	ch chan *Event
}

// NewChannelSink creates a sink with the given buffer depth.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan *Event, buffer)}
}

// Events returns the read side of the channel.
func (s *ChannelSink) Events() <-chan *Event {
	return s.ch
}

// Write implements Sink. It never returns an error; a full buffer silently
// drops the event, matching the house rule that logging must never block or
// fail a transport operation.
func (s *ChannelSink) Write(event *Event) error {
	select {
	case s.ch <- event:
	default:
	}
	return nil
}

// Close closes the underlying channel.
func (s *ChannelSink) Close() error {
	close(s.ch)
	return nil
}
