package modelasset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcres/modelasset-go/pkg/modelasset/logging"
)

func TestNativeName(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"linux", "libmodelassetlib_native.so"},
		{"windows", "modelassetlib_native.dll"},
		{"darwin", "libmodelassetlib_native.dylib"},
	}
	seen := map[string]bool{}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			got, err := NativeName(tt.goos, "")
			if err != nil {
				t.Fatalf("NativeName(%q) error = %v", tt.goos, err)
			}
			if got != tt.want {
				t.Errorf("NativeName(%q) = %q, want %q", tt.goos, got, tt.want)
			}
			if seen[got] {
				t.Errorf("NativeName(%q) = %q is not unique", tt.goos, got)
			}
			seen[got] = true
		})
	}

	if _, err := NativeName("plan9", ""); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("NativeName(plan9) error = %v, want ErrUnsupportedPlatform", err)
	}
	if got, _ := NativeName("linux", "other"); got != "libother_native.so" {
		t.Errorf("NativeName with name = %q", got)
	}
	if got := WasmName(""); got != "modelassetlib_native.wasm" {
		t.Errorf("WasmName = %q", got)
	}
}

func quietConfig(cfg Config) Config {
	cfg.Logger = logging.Discard()
	return cfg
}

func TestLoadNativeMissingResource(t *testing.T) {
	ctx := context.Background()
	for _, b := range []Backend{BackendNative, BackendWasm} {
		t.Run(string(b), func(t *testing.T) {
			_, err := LoadNative(ctx, quietConfig(Config{Backend: b, Resources: fstest.MapFS{}, GOOS: "linux"}))
			assert.ErrorIs(t, err, ErrResourceNotFound)

			_, err = LoadNative(ctx, quietConfig(Config{Backend: b, GOOS: "linux"}))
			assert.ErrorIs(t, err, ErrResourceNotFound)
		})
	}
}

func TestLoadNativeUnsupportedPlatform(t *testing.T) {
	_, err := LoadNative(context.Background(), quietConfig(Config{Resources: fstest.MapFS{}, GOOS: "plan9"}))
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestLoadNativeCorruptBinaryLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	res := fstest.MapFS{
		"lib/libmodelassetlib_native.so": {Data: []byte("not an ELF file")},
	}
	_, err := LoadNative(context.Background(), quietConfig(Config{Resources: res, TempDir: dir, GOOS: "linux"}))
	require.ErrorIs(t, err, ErrLibraryLoad)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file must be removed after a failed load")
}

func TestLoadWasmCorruptBinary(t *testing.T) {
	res := fstest.MapFS{
		"lib/modelassetlib_native.wasm": {Data: []byte("not wasm")},
	}
	_, err := LoadNative(context.Background(), quietConfig(Config{Backend: BackendWasm, Resources: res}))
	assert.ErrorIs(t, err, ErrLibraryLoad)
}

func TestMaterialize(t *testing.T) {
	dir := t.TempDir()
	path, err := materialize(dir, "libx_native.so", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, `^\d+-libx_native\.so$`, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, err = materialize(filepath.Join(dir, "missing"), "libx_native.so", nil)
	assert.Error(t, err)
}

func TestLibraryLifecycle(t *testing.T) {
	lib, err := Open(context.Background(), quietConfig(Config{Backend: BackendInProcess}))
	require.NoError(t, err)
	assert.Empty(t, lib.Path())
	require.NoError(t, lib.InitNative(), "second init must short-circuit")

	abi, err := lib.Native()
	require.NoError(t, err)
	require.NotNil(t, abi)
	assert.False(t, lib.Errors().Occurred())

	require.NoError(t, lib.Close())
	assert.ErrorIs(t, lib.Close(), ErrLibraryClosed)
	assert.ErrorIs(t, lib.InitNative(), ErrLibraryClosed)
	_, err = lib.Native()
	assert.ErrorIs(t, err, ErrLibraryClosed)

	var nilLib *Library
	assert.NoError(t, nilLib.Close())
}

func TestFailureWithoutMessage(t *testing.T) {
	lib, err := Open(context.Background(), quietConfig(Config{Backend: BackendInProcess}))
	require.NoError(t, err)
	defer lib.Close()

	err = lib.Failure("op", ErrNativeQuery)
	assert.ErrorIs(t, err, ErrNativeQuery)
	assert.Equal(t, "op: native query failed: no native error message", err.Error())
}

func TestErrorChannelBelongsToLoadedRuntime(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, quietConfig(Config{Backend: BackendInProcess}))
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(ctx, quietConfig(Config{Backend: BackendInProcess}))
	require.NoError(t, err)
	defer b.Close()

	abi, err := a.Native()
	require.NoError(t, err)
	require.Zero(t, abi.NewImage([]byte("not an image")))

	assert.True(t, a.Errors().Occurred())
	assert.False(t, b.Errors().Occurred())
	msg, ok := a.Errors().Take()
	assert.True(t, ok)
	assert.Contains(t, msg, "Failed to create the image")
}

func TestRemapError(t *testing.T) {
	assert.NoError(t, RemapError(nil))
	plain := errors.New("x")
	assert.Same(t, plain, RemapError(plain))
}

func TestNativeErrorUnwrap(t *testing.T) {
	cause := errors.New("404")
	err := &NativeError{Op: "gltf.Open", Kind: ErrNativeConstruction, Message: "geo.bin: 404", Cause: cause}
	assert.ErrorIs(t, err, ErrNativeConstruction)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNativeQuery)
}

func TestParseBackend(t *testing.T) {
	for in, want := range map[string]Backend{"": BackendNative, "WASM": BackendWasm, " inprocess ": BackendInProcess} {
		got, err := ParseBackend(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseBackend("jni")
	assert.Error(t, err)
}
