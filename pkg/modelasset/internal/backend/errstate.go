package backend

import (
	"fmt"
	"sync"
)

// ErrorState is a sticky error flag plus message. Reads never clear it; only
// Clear and Take do. It is the Go-side twin of the native error state and is
// used by the transports that record failures outside native code.
type ErrorState struct {
	mu       sync.Mutex
	occurred bool
	message  string
}

// Set records a failure, replacing any previous message.
func (s *ErrorState) Set(msg string) {
	s.mu.Lock()
	s.occurred = true
	s.message = msg
	s.mu.Unlock()
}

// Setf is Set with fmt formatting.
func (s *ErrorState) Setf(format string, args ...any) {
	s.Set(fmt.Sprintf(format, args...))
}

func (s *ErrorState) Occurred() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occurred
}

func (s *ErrorState) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *ErrorState) Clear() {
	s.mu.Lock()
	s.occurred = false
	s.message = ""
	s.mu.Unlock()
}

// Take returns the message and whether a failure was recorded, then clears
// the state.
func (s *ErrorState) Take() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.message, s.occurred
	s.occurred = false
	s.message = ""
	return msg, ok
}
