// Package logging provides the logging facade of the modelasset wrapper.
//
// Logger wraps a subset of log/slog so applications can plug in their own
// implementation. Two implementations ship with the package:
//
//	// slog, defaulting to slog.Default()
//	logger := logging.New(nil)
//
//	// zap, for hosts that already run a *zap.Logger
//	logger := logging.NewZap(zapLogger)
//
// # Resource URIs
//
// glTF images and buffers may be inlined as data: URIs of several megabytes.
// Log URIs with URI, which keeps only the media type and payload size of
// inline data:
//
//	logger.Debug(ctx, "image resolved", logging.URI("uri", uri))
//	// Logs: uri="data:image/png;base64,<1024 bytes>"
package logging
