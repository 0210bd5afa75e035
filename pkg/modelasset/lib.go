package modelasset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/srcres/modelasset-go/pkg/modelasset/internal/backend"
	"github.com/srcres/modelasset-go/pkg/modelasset/logging"
)

// Library represents a loaded native module. Every document and image is
// created against a Library and must be closed before it.
type Library struct {
	cfg         Config
	abi         backend.ABI
	errs        *ErrorChannel
	path        string
	initialized bool
	closed      bool
}

// LoadNative locates the module for the configured backend, materializes it
// and loads it. No partially loaded runtime survives a failure.
func LoadNative(ctx context.Context, cfg Config) (*Library, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger.With("backend", string(cfg.Backend))

	var (
		abi  backend.ABI
		path string
		err  error
	)
	switch cfg.Backend {
	case BackendInProcess:
		abi = backend.NewInProcess()
	case BackendWasm:
		abi, err = loadWasm(ctx, cfg, log)
	case BackendNative:
		abi, path, err = loadDynamic(ctx, cfg, log)
	default:
		err = fmt.Errorf("modelasset: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		log.Error(ctx, "native library load failed", "error", err)
		return nil, err
	}
	log.Info(ctx, "successfully loaded native library", "name", cfg.Name)

	lib := &Library{cfg: cfg, abi: abi, path: path}
	lib.errs = &ErrorChannel{abi: abi}
	return lib, nil
}

func readResource(cfg Config, file string) ([]byte, error) {
	if cfg.Resources == nil {
		return nil, fmt.Errorf("%w: no resource provider for %s", ErrResourceNotFound, file)
	}
	data, err := fs.ReadFile(cfg.Resources, ResourcePath(file))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, ResourcePath(file))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrLibraryLoad, ResourcePath(file), err)
	}
	return data, nil
}

func loadWasm(ctx context.Context, cfg Config, log logging.Logger) (backend.ABI, error) {
	file := WasmName(cfg.Name)
	log.Debug(ctx, "resolved native module", "file", file)
	data, err := readResource(cfg, file)
	if err != nil {
		return nil, err
	}
	w, err := backend.OpenWasm(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLibraryLoad, err)
	}
	return w, nil
}

func loadDynamic(ctx context.Context, cfg Config, log logging.Logger) (backend.ABI, string, error) {
	file, err := NativeName(cfg.GOOS, cfg.Name)
	if err != nil {
		return nil, "", err
	}
	log.Debug(ctx, "resolved native module", "file", file)
	data, err := readResource(cfg, file)
	if err != nil {
		return nil, "", err
	}

	path, err := materialize(cfg.TempDir, file, data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrLibraryLoad, err)
	}
	log.Debug(ctx, "native library was saved for loading", "path", path)

	d, err := backend.OpenDynamic(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, "", fmt.Errorf("%w: %v", ErrLibraryLoad, RemapError(err))
	}
	return d, path, nil
}

// materialize writes data to a fresh "<random>-<file>" in dir.
func materialize(dir, file string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "*-"+file)
	if err != nil {
		return "", err
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// InitNative runs the module's one-time initialization. Calls after a
// successful initialization return nil without reaching native code.
// Concurrent calls are not guarded.
func (l *Library) InitNative() error {
	if l == nil || l.closed {
		return ErrLibraryClosed
	}
	if l.initialized {
		return nil
	}
	if !l.abi.Init() {
		msg, _ := l.abi.TakeError()
		if msg == "" {
			return ErrNativeInit
		}
		return fmt.Errorf("%w: %s", ErrNativeInit, msg)
	}
	l.initialized = true
	l.cfg.Logger.Debug(context.Background(), "native library initialised")
	return nil
}

// Open loads and initializes the module, closing it again if
// initialization fails.
func Open(ctx context.Context, cfg Config) (*Library, error) {
	lib, err := LoadNative(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := lib.InitNative(); err != nil {
		_ = lib.Close()
		return nil, err
	}
	return lib, nil
}

// Close unloads the module and deletes the materialized binary. The method
// returns ErrLibraryClosed when called twice.
func (l *Library) Close() error {
	if l == nil {
		return nil
	}
	if l.closed {
		return ErrLibraryClosed
	}
	l.closed = true

	err := l.abi.Close()
	if l.path != "" {
		if rmErr := os.Remove(l.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			l.cfg.Logger.Warn(context.Background(), "failed to delete native library", "path", l.path, "error", rmErr)
		}
		l.path = ""
	}
	return err
}

// Errors returns the library's error channel.
func (l *Library) Errors() *ErrorChannel { return l.errs }

// Logger returns the logger the library was configured with.
func (l *Library) Logger() logging.Logger { return l.cfg.Logger }

// Path returns where the native binary was materialized, or "" when the
// backend needs no file.
func (l *Library) Path() string { return l.path }

// Native returns the ABI for use by the wrapper subpackages. It returns
// ErrLibraryClosed after Close.
func (l *Library) Native() (backend.ABI, error) {
	if l == nil || l.closed {
		return nil, ErrLibraryClosed
	}
	return l.abi, nil
}

// Failure consumes the error channel and wraps the message for op. An
// empty channel still yields an error.
func (l *Library) Failure(op string, kind error) error {
	msg, ok := l.errs.Take()
	if !ok || msg == "" {
		msg = noNativeMessage
	}
	return &NativeError{Op: op, Kind: kind, Message: msg}
}
