package session

// State is the lifecycle state of a Session.
type State string

const (
	StateUnconnected State = "unconnected"
	StateConnected   State = "connected"
	StateShellReady  State = "shell_ready"
	StateClosed      State = "closed"
	StateFailed      State = "failed"
)

// String returns the string representation of a State.
func (s State) String() string {
	return string(s)
}

// Terminal reports whether no further operations are accepted.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// StateCallback is called after every state change.
type StateCallback func(from, to State)

// setState records the new state and fires callbacks. Callers hold s.mu.
func (s *Session) setState(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	for _, cb := range s.callbacks {
		cb(from, to)
	}
}

// OnStateChange registers a callback fired on every state change. Callbacks
// run while the session is locked and must not call back into it.
func (s *Session) OnStateChange(cb StateCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
