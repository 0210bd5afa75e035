//go:build !darwin && !linux && !windows

package backend

// Dynamic is unavailable on this platform.
type Dynamic struct{ ABI }

// OpenDynamic always fails with ErrNotBuilt on this platform.
func OpenDynamic(path string) (*Dynamic, error) {
	return nil, ErrNotBuilt
}
