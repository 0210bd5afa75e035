package gltf

import (
	"context"
	"strings"

	"github.com/srcres/modelasset-go/pkg/modelasset"
	"github.com/srcres/modelasset-go/pkg/modelasset/image"
	"github.com/srcres/modelasset-go/pkg/modelasset/internal/backend"
	"github.com/srcres/modelasset-go/pkg/modelasset/logging"
)

// Document is a glTF document parsed by the native module, with every
// external buffer and image already resolved.
//
// Memory management: call Close when done. There is no finalizer.
type Document struct {
	lib       *modelasset.Library
	handle    backend.Handle
	log       logging.Logger
	imageURIs []string
	mimeTypes map[string]string
}

// Open parses data (glTF JSON or GLB). While Open runs, the native module
// calls resolver for every buffer with an external URI, then for every image
// with an external URI, then notifies each image URI, all in declaration
// order. data: URIs are decoded natively without a callback. A nil resolver
// fails every external reference.
func Open(lib *modelasset.Library, data []byte, resolver Resolver) (*Document, error) {
	abi, err := lib.Native()
	if err != nil {
		return nil, err
	}
	if resolver == nil {
		resolver = ResolverFuncs{}
	}
	log := lib.Logger().With("component", "gltf")
	doc := &Document{
		lib:       lib,
		log:       log,
		mimeTypes: make(map[string]string),
	}
	b := &bridge{doc: doc, resolver: resolver, log: log}

	t := abi.NewDocument(data, b)
	if t == 0 {
		err := lib.Failure("gltf.Open", modelasset.ErrNativeConstruction)
		if nerr, ok := err.(*modelasset.NativeError); ok {
			nerr.Cause = b.err
		}
		log.Debug(context.Background(), "document rejected", "error", err)
		return nil, err
	}
	doc.handle = backend.Handle{Token: t, Kind: backend.KindDocument}
	log.Debug(context.Background(), "document opened", "images", len(doc.imageURIs))
	return doc, nil
}

func (d *Document) native() (backend.ABI, error) {
	if d == nil || !d.handle.Valid() {
		return nil, modelasset.ErrClosed
	}
	return d.lib.Native()
}

// MeshCount returns the number of meshes in the document.
func (d *Document) MeshCount() (int, error) {
	abi, err := d.native()
	if err != nil {
		return 0, err
	}
	n := abi.MeshCount(d.handle.Token)
	if n < 0 {
		return 0, d.lib.Failure("gltf.MeshCount", modelasset.ErrNativeQuery)
	}
	return int(n), nil
}

// ImageDataByURI returns a copy of the bytes resolved for the image at uri.
// Each call returns an independent slice.
func (d *Document) ImageDataByURI(uri string) ([]byte, error) {
	abi, err := d.native()
	if err != nil {
		return nil, err
	}
	data, ok := abi.ImageDataByURI(d.handle.Token, uri)
	if !ok {
		return nil, d.lib.Failure("gltf.ImageDataByURI", modelasset.ErrNativeQuery)
	}
	return data, nil
}

// ImageURIs returns the image URIs the native module reported, in document
// order.
func (d *Document) ImageURIs() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.imageURIs...)
}

// DecodeImage decodes the image at uri. The format comes from the document's
// mimeType, then the URI extension, and is otherwise detected natively.
func (d *Document) DecodeImage(uri string) (*image.Image, error) {
	data, err := d.ImageDataByURI(uri)
	if err != nil {
		return nil, err
	}
	mimeType := d.mimeTypes[uri]
	if mimeType == "" {
		mimeType = dataURIMediaType(uri)
	}
	name := uri
	if strings.HasPrefix(uri, "data:") {
		name = ""
	}
	return image.Decode(d.lib, data, name, mimeType)
}

// dataURIMediaType returns the media type of a data: URI.
func dataURIMediaType(uri string) string {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return ""
	}
	meta, _, _ := strings.Cut(rest, ",")
	mediaType, _, _ := strings.Cut(meta, ";")
	return mediaType
}

// Close frees the native document. Further calls are no-ops; queries after
// Close return modelasset.ErrClosed.
func (d *Document) Close() error {
	if d == nil || !d.handle.Valid() {
		return nil
	}
	t := d.handle.Token
	d.handle.Token = 0
	abi, err := d.lib.Native()
	if err != nil {
		return err
	}
	abi.FreeDocument(t)
	d.log.Debug(context.Background(), "document closed")
	return nil
}
