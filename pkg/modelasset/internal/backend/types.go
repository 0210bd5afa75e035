package backend

import (
	"errors"
	"fmt"
)

// ErrNotBuilt reports that the requested transport is not available on the
// current platform.
var ErrNotBuilt = errors.New("modelasset/internal/backend: transport not built for this platform")

// Token is an opaque reference to a native object. Zero is never valid.
type Token int64

// Kind tells which native destructor owns a token.
type Kind uint8

const (
	KindDocument Kind = iota + 1
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindImage:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Handle pairs a token with the kind of object it references. A Handle is
// owned by exactly one wrapper.
type Handle struct {
	Token Token
	Kind  Kind
}

// Valid reports whether the handle still references a live native object.
func (h Handle) Valid() bool { return h.Token != 0 }

// Callbacks is the capability native code calls back into while it parses a
// document. Calls happen synchronously on the goroutine that invoked
// NewDocument, one at a time, in document declaration order.
type Callbacks interface {
	FetchBuffer(uri string) ([]byte, error)
	FetchImage(uri, mimeType string) ([]byte, error)
	NotifyImageURI(uri string)
}

// ABI is the set of entry points exported by the native module. Failures are
// reported through sentinels (zero token, negative count, false) and the
// reason is left in the error state read by ErrorMessage/TakeError.
type ABI interface {
	// Init runs the one-time native initialization.
	Init() bool

	NewDocument(data []byte, cb Callbacks) Token
	FreeDocument(Token)
	MeshCount(Token) int32
	// ImageDataByURI returns a copy of the image bytes the document resolved
	// for uri during construction.
	ImageDataByURI(t Token, uri string) ([]byte, bool)

	NewImage(data []byte) Token
	NewImageWithFormat(data []byte, format int32) Token
	FreeImage(Token)
	Width(Token) int32
	Height(Token) int32
	// RGBA always returns a buffer; callers must check ErrorOccurred to tell
	// an empty image from a failure.
	RGBA(Token) []byte

	ErrorOccurred() bool
	ErrorMessage() string
	ClearError()
	// TakeError reads and clears the error state in one critical section.
	TakeError() (string, bool)

	// Close unloads the module. No other method may be called afterwards.
	Close() error
}
