// Package internalcheck holds static policy tests for the modelasset module.
//
// The tests load the module's packages with golang.org/x/tools/go/packages
// and fail on code that crosses the native boundary outside
// internal/backend, or that consumes the error channel in two steps where
// one is required. It is not intended for external use.
package internalcheck
