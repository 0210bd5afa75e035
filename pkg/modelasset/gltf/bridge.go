package gltf

import (
	"context"

	"github.com/srcres/modelasset-go/pkg/modelasset/logging"
)

// bridge is the per-document callback target handed to the native module.
// It records what the document needs to remember and forwards the rest to
// the resolver.
type bridge struct {
	doc      *Document
	resolver Resolver
	log      logging.Logger

	// first resolver error, kept as the cause of a construction failure
	err error
}

func (b *bridge) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *bridge) FetchBuffer(uri string) ([]byte, error) {
	b.log.Debug(context.Background(), "fetching buffer", logging.URI("uri", uri))
	data, err := b.resolver.FetchBuffer(uri)
	if err != nil {
		b.fail(err)
		return nil, err
	}
	return data, nil
}

func (b *bridge) FetchImage(uri, mimeType string) ([]byte, error) {
	b.log.Debug(context.Background(), "fetching image", logging.URI("uri", uri), "mime", mimeType)
	data, err := b.resolver.FetchImage(uri, mimeType)
	if err != nil {
		b.fail(err)
		return nil, err
	}
	if mimeType != "" {
		b.doc.mimeTypes[uri] = mimeType
	}
	return data, nil
}

func (b *bridge) NotifyImageURI(uri string) {
	b.doc.imageURIs = append(b.doc.imageURIs, uri)
	b.resolver.NotifyImageURI(uri)
}
