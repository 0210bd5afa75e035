package modelasset

import "github.com/srcres/modelasset-go/pkg/modelasset/internal/backend"

// ErrorChannel is the process-wide failure state of a loaded native module.
// A failed native call sets it; it stays set until Clear or Take.
type ErrorChannel struct {
	abi backend.ABI
}

// Occurred reports whether a failure is pending.
func (c *ErrorChannel) Occurred() bool { return c.abi.ErrorOccurred() }

// Message returns the pending failure text, or "" when none is pending.
// Reading does not clear the state.
func (c *ErrorChannel) Message() string { return c.abi.ErrorMessage() }

// Clear resets the state. Clearing an empty channel is a no-op.
func (c *ErrorChannel) Clear() { c.abi.ClearError() }

// Take returns the pending message and clears it in one step. The boolean is
// false when nothing was pending.
func (c *ErrorChannel) Take() (string, bool) { return c.abi.TakeError() }
