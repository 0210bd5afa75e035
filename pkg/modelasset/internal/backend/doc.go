// Package backend hosts the thin layer that links the Go API to the
// modelassetlib native module. The native module is reached through the ABI
// interface, which has three transports:
//
//   - Dynamic: a shared library (.so, .dll, .dylib) opened with purego. No
//     cgo is involved, so the library can be materialized at runtime.
//   - Wasm: the same ABI compiled to a wasm32-wasip1 reactor and executed
//     with wazero.
//   - InProcess: a pure Go reference implementation of the ABI, used where
//     no native binary is shipped and by the tests of the wrapper packages.
//
// # Handles
//
// Native objects are referenced by opaque int64 tokens. Zero is never a
// valid token; constructors return zero on failure and record the reason in
// the process-wide error state of the runtime.
//
// # Callbacks
//
// Go values are never handed to native code. A document's Callbacks are
// registered in a package-level registry and native code only receives the
// registry key, which it passes back to the Go trampolines. The
// registration is released as soon as the constructor returns.
//
// # Threading
//
// Callers must not use one handle from several goroutines at once. The
// error state is the only structure guarded for concurrent access.
package backend
