// Package modelasset loads the modelassetlib native module and exposes the
// pieces every wrapper shares: the Library handle, the sticky error channel
// and the error vocabulary.
//
// A typical program opens the library once at startup and closes it on
// shutdown:
//
//	lib, err := modelasset.Open(ctx, modelasset.Config{Resources: assets})
//	if err != nil {
//		return err
//	}
//	defer lib.Close()
//
// Documents and images live in the gltf and image subpackages. Every object
// they return owns a native handle and must be closed explicitly; nothing is
// released by the garbage collector.
package modelasset
