package modelasset

var (
	Version = "v0.0.0-in-progress"
	// ABIVersion names the native entry point set this wrapper resolves.
	ABIVersion = "mal/1"
)

// WrapperVersion returns the semantic version populated at build time via
// ldflags. In development it defaults to v0.0.0-in-progress.
func WrapperVersion() string {
	return Version
}
