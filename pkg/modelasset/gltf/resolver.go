package gltf

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"
)

// Resolver supplies the external resources a document references. The
// native module calls it synchronously while the document is constructed,
// one call at a time, on the goroutine that called Open.
type Resolver interface {
	// FetchBuffer returns the bytes of the buffer at uri.
	FetchBuffer(uri string) ([]byte, error)
	// FetchImage returns the bytes of the image at uri. mimeType is the
	// document's hint, or "" when it has none.
	FetchImage(uri, mimeType string) ([]byte, error)
	// NotifyImageURI is called once per image after every resource has been
	// fetched.
	NotifyImageURI(uri string)
}

// ErrNoResolver is returned by ResolverFuncs for a missing function.
var ErrNoResolver = errors.New("gltf: no resolver for external resource")

// ResolverFuncs adapts plain functions to Resolver. A nil fetch function
// fails with ErrNoResolver; a nil ImageURI is a no-op.
type ResolverFuncs struct {
	Buffer   func(uri string) ([]byte, error)
	Image    func(uri, mimeType string) ([]byte, error)
	ImageURI func(uri string)
}

func (f ResolverFuncs) FetchBuffer(uri string) ([]byte, error) {
	if f.Buffer == nil {
		return nil, fmt.Errorf("%w: buffer %s", ErrNoResolver, uri)
	}
	return f.Buffer(uri)
}

func (f ResolverFuncs) FetchImage(uri, mimeType string) ([]byte, error) {
	if f.Image == nil {
		return nil, fmt.Errorf("%w: image %s", ErrNoResolver, uri)
	}
	return f.Image(uri, mimeType)
}

func (f ResolverFuncs) NotifyImageURI(uri string) {
	if f.ImageURI != nil {
		f.ImageURI(uri)
	}
}

// FSResolver resolves relative URIs against Dir inside FS. URIs are
// percent-decoded. Absolute paths, URIs with a scheme and paths that leave
// the root of FS are rejected.
type FSResolver struct {
	FS  fs.FS
	Dir string
}

// NewFSResolver returns a resolver for documents stored in dir of fsys.
func NewFSResolver(fsys fs.FS, dir string) *FSResolver {
	if dir == "" {
		dir = "."
	}
	return &FSResolver{FS: fsys, Dir: dir}
}

func (r *FSResolver) resolve(uri string) (string, error) {
	if strings.Contains(uri, "://") {
		return "", fmt.Errorf("gltf: unsupported URI scheme: %s", uri)
	}
	p, err := url.PathUnescape(uri)
	if err != nil {
		return "", fmt.Errorf("gltf: bad URI %s: %w", uri, err)
	}
	if path.IsAbs(p) || strings.HasPrefix(p, `\`) {
		return "", fmt.Errorf("gltf: absolute URI not allowed: %s", uri)
	}
	full := path.Join(r.Dir, p)
	if !fs.ValidPath(full) {
		return "", fmt.Errorf("gltf: URI escapes the resource root: %s", uri)
	}
	return full, nil
}

func (r *FSResolver) read(uri string) ([]byte, error) {
	p, err := r.resolve(uri)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(r.FS, p)
}

func (r *FSResolver) FetchBuffer(uri string) ([]byte, error) { return r.read(uri) }

func (r *FSResolver) FetchImage(uri, _ string) ([]byte, error) { return r.read(uri) }

func (r *FSResolver) NotifyImageURI(string) {}
