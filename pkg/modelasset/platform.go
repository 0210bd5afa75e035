package modelasset

import (
	"fmt"
	"path"
)

// DefaultName is the base name of the native module.
const DefaultName = "modelassetlib"

// resourceDir is where native binaries live inside the resource FS.
const resourceDir = "lib"

// NativeName returns the platform file name of the native module called name
// for the operating system goos (a runtime.GOOS value).
func NativeName(goos, name string) (string, error) {
	if name == "" {
		name = DefaultName
	}
	switch goos {
	case "linux":
		return "lib" + name + "_native.so", nil
	case "windows":
		return name + "_native.dll", nil
	case "darwin":
		return "lib" + name + "_native.dylib", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

// WasmName returns the file name of the portable build of the native module.
func WasmName(name string) string {
	if name == "" {
		name = DefaultName
	}
	return name + "_native.wasm"
}

// ResourcePath returns the path of file inside the resource FS.
func ResourcePath(file string) string {
	return path.Join(resourceDir, file)
}
