package modelasset

import (
	"fmt"
	"io/fs"
	"runtime"
	"strings"

	"github.com/srcres/modelasset-go/pkg/modelasset/logging"
)

// Backend selects how the native module is reached.
type Backend string

const (
	// BackendNative loads the platform shared library.
	BackendNative Backend = "native"
	// BackendWasm runs the portable wasm build of the module.
	BackendWasm Backend = "wasm"
	// BackendInProcess uses the Go reference implementation and needs no
	// resources.
	BackendInProcess Backend = "inprocess"
)

// ParseBackend parses a backend name case-insensitively. The empty string
// selects BackendNative.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendNative, nil
	case BackendNative, BackendWasm, BackendInProcess:
		return b, nil
	default:
		return "", fmt.Errorf("modelasset: unknown backend %q", s)
	}
}

// Config expresses the knobs required to load the native module.
type Config struct {
	// Name is the base name of the module. Defaults to DefaultName.
	Name string

	// Backend selects the transport. Defaults to BackendNative.
	Backend Backend

	// Resources provides lib/<file> for the native and wasm backends.
	Resources fs.FS

	// TempDir is where the native binary is materialized before loading.
	// Leaving it empty uses os.TempDir.
	TempDir string

	// Logger receives loader events. Nil binds to slog.Default().
	Logger logging.Logger

	// GOOS overrides runtime.GOOS when picking the native file name.
	GOOS string
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Backend == "" {
		c.Backend = BackendNative
	}
	if c.Logger == nil {
		c.Logger = logging.New(nil)
	}
	if c.GOOS == "" {
		c.GOOS = runtime.GOOS
	}
	return c
}
