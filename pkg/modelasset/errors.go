package modelasset

import (
	"errors"

	"github.com/srcres/modelasset-go/pkg/modelasset/internal/backend"
)

// Startup errors. They are fatal: there is no retry path.
var (
	ErrUnsupportedPlatform = errors.New("modelasset: unsupported platform")
	ErrResourceNotFound    = errors.New("modelasset: native library resource not found")
	ErrLibraryLoad         = errors.New("modelasset: failed to load the native library")
	ErrNativeInit          = errors.New("modelasset: failed to initialise the native library")
)

// Runtime errors.
var (
	// ErrNativeConstruction reports that the native module refused to build a
	// document or image.
	ErrNativeConstruction = errors.New("native construction failed")
	// ErrNativeQuery reports that a query on a live object failed.
	ErrNativeQuery = errors.New("native query failed")
	// ErrClosed reports use of a wrapper after Close.
	ErrClosed = errors.New("modelasset: object is closed")
	// ErrLibraryClosed reports use of a Library after Close.
	ErrLibraryClosed = errors.New("modelasset: library is closed")
)

// NativeError carries the message read from the error channel for a failed
// native call. Kind is ErrNativeConstruction or ErrNativeQuery. Cause, when
// set, is a Go error that made the native call fail, such as a resolver
// error returned from a callback.
type NativeError struct {
	Op      string
	Kind    error
	Message string
	Cause   error
}

func (e *NativeError) Error() string {
	return e.Op + ": " + e.Kind.Error() + ": " + e.Message
}

func (e *NativeError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

const noNativeMessage = "no native error message"

// RemapError converts transport errors to public API errors.
// This is exported for use by the wrapper subpackages.
func RemapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, backend.ErrNotBuilt) {
		return errors.Join(ErrUnsupportedPlatform, err)
	}
	return err
}
