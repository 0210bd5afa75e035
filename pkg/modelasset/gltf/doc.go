// Package gltf opens glTF documents through the native module.
//
// The native parser does not read files itself. Every external buffer or
// image a document references is requested from a Resolver while Open runs:
//
//	res := gltf.NewFSResolver(os.DirFS("assets"), "models")
//	doc, err := gltf.Open(lib, data, res)
//	if err != nil {
//		return err
//	}
//	defer doc.Close()
//
// A resolver error aborts construction; the returned error names the URI
// and unwraps to both modelasset.ErrNativeConstruction and the resolver's
// own error.
package gltf
