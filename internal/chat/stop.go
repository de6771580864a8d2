package chat

import "sync/atomic"

// StopSignal lets another goroutine (the SIGINT handler) abandon the response
// currently being streamed. The loop checks it between steps.
type StopSignal struct {
	requested atomic.Bool
	streaming atomic.Bool
}

// Request asks the loop to stop the current response at the next step.
func (s *StopSignal) Request() { s.requested.Store(true) }

// Streaming reports whether a response is being streamed right now.
func (s *StopSignal) Streaming() bool { return s.streaming.Load() }

// take reports and clears a pending request.
func (s *StopSignal) take() bool { return s.requested.Swap(false) }

// begin marks a stream as started. A request left over from an idle period
// is dropped.
func (s *StopSignal) begin() {
	s.requested.Store(false)
	s.streaming.Store(true)
}

func (s *StopSignal) end() { s.streaming.Store(false) }
