//go:build darwin || linux || windows

package backend

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Dynamic is the ABI of a shared library loaded at runtime.
type Dynamic struct {
	lib uintptr

	init        func() bool
	gltfNew     func(data unsafe.Pointer, n uintptr, ctx uintptr, fetchBuffer, fetchImage, notifyImageURI uintptr) int64
	gltfFree    func(h int64)
	meshCount   func(h int64) int32
	imageData   func(h int64, uri string, out *uintptr, outLen *uintptr) int32
	imageNew    func(data unsafe.Pointer, n uintptr) int64
	imageNewFmt func(data unsafe.Pointer, n uintptr, format int32) int64
	imageFree   func(h int64)
	width       func(h int64) int32
	height      func(h int64) int32
	rgba        func(h int64, out *uintptr, outLen *uintptr)
	bufferFree  func(p uintptr, n uintptr)
	sinkWrite   func(sink uintptr, p unsafe.Pointer, n uintptr)
	errOccurred func() bool
	errMessage  func(out *uintptr, outLen *uintptr)
	errClear    func()
	errTake     func(out *uintptr, outLen *uintptr) bool
}

var _ ABI = (*Dynamic)(nil)

var (
	callbacksOnce     sync.Once
	fetchBufferPtr    uintptr
	fetchImagePtr     uintptr
	notifyImageURIPtr uintptr
)

// purego callbacks are a finite process-wide resource, so the trampolines
// are created once and shared by every loaded library.
func initCallbacks() {
	callbacksOnce.Do(func() {
		fetchBufferPtr = purego.NewCallback(fetchBufferTrampoline)
		fetchImagePtr = purego.NewCallback(fetchImageTrampoline)
		notifyImageURIPtr = purego.NewCallback(notifyImageURITrampoline)
	})
}

func fetchBufferTrampoline(ctx, uri, uriLen, sink uintptr) uintptr {
	return uintptr(dispatchFetchBuffer(handle(ctx), cString(uri, uriLen), sink))
}

func fetchImageTrampoline(ctx, uri, uriLen, mime, mimeLen, sink uintptr) uintptr {
	return uintptr(dispatchFetchImage(handle(ctx), cString(uri, uriLen), cString(mime, mimeLen), sink))
}

func notifyImageURITrampoline(ctx, uri, uriLen uintptr) uintptr {
	dispatchNotifyImageURI(handle(ctx), cString(uri, uriLen))
	return 0
}

// cString copies n bytes of native memory into a Go string.
func cString(p, n uintptr) string {
	if p == 0 || n == 0 {
		return ""
	}
	return strings.Clone(unsafe.String((*byte)(unsafe.Pointer(p)), n))
}

// OpenDynamic loads the shared library at path and resolves every entry
// point. Symbols are looked up before registration so a missing export is an
// error rather than a panic.
func OpenDynamic(path string) (*Dynamic, error) {
	lib, err := openLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	d := &Dynamic{lib: lib}
	syms := []struct {
		name string
		fn   any
	}{
		{"mal_init", &d.init},
		{"mal_gltf_new", &d.gltfNew},
		{"mal_gltf_free", &d.gltfFree},
		{"mal_gltf_mesh_count", &d.meshCount},
		{"mal_gltf_image_data", &d.imageData},
		{"mal_image_new", &d.imageNew},
		{"mal_image_new_with_format", &d.imageNewFmt},
		{"mal_image_free", &d.imageFree},
		{"mal_image_width", &d.width},
		{"mal_image_height", &d.height},
		{"mal_image_rgba", &d.rgba},
		{"mal_buffer_free", &d.bufferFree},
		{"mal_sink_write", &d.sinkWrite},
		{"mal_error_occurred", &d.errOccurred},
		{"mal_error_message", &d.errMessage},
		{"mal_error_clear", &d.errClear},
		{"mal_error_take", &d.errTake},
	}
	for _, s := range syms {
		addr, err := lookupSymbol(lib, s.name)
		if err != nil || addr == 0 {
			_ = closeLibrary(lib)
			return nil, fmt.Errorf("resolve %s: %w", s.name, symbolError(err))
		}
		purego.RegisterFunc(s.fn, addr)
	}
	initCallbacks()
	return d, nil
}

func symbolError(err error) error {
	if err != nil {
		return err
	}
	return errors.New("symbol not exported")
}

// takeBuffer copies a native buffer into Go memory and releases it.
func (d *Dynamic) takeBuffer(p, n uintptr) []byte {
	if p == 0 {
		return nil
	}
	out := bytes.Clone(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
	d.bufferFree(p, n)
	return out
}

func (d *Dynamic) writeSink(sink uintptr, p []byte) error {
	d.sinkWrite(sink, unsafe.Pointer(unsafe.SliceData(p)), uintptr(len(p)))
	return nil
}

func (d *Dynamic) Init() bool { return d.init() }

func (d *Dynamic) NewDocument(data []byte, cb Callbacks) Token {
	h := put(&registration{cb: cb, sink: d.writeSink})
	defer del(h)
	return Token(d.gltfNew(unsafe.Pointer(unsafe.SliceData(data)), uintptr(len(data)),
		uintptr(h), fetchBufferPtr, fetchImagePtr, notifyImageURIPtr))
}

func (d *Dynamic) FreeDocument(t Token) { d.gltfFree(int64(t)) }

func (d *Dynamic) MeshCount(t Token) int32 { return d.meshCount(int64(t)) }

func (d *Dynamic) ImageDataByURI(t Token, uri string) ([]byte, bool) {
	var p, n uintptr
	if d.imageData(int64(t), uri, &p, &n) != 0 {
		return nil, false
	}
	out := d.takeBuffer(p, n)
	if out == nil {
		out = []byte{}
	}
	return out, true
}

func (d *Dynamic) NewImage(data []byte) Token {
	return Token(d.imageNew(unsafe.Pointer(unsafe.SliceData(data)), uintptr(len(data))))
}

func (d *Dynamic) NewImageWithFormat(data []byte, format int32) Token {
	return Token(d.imageNewFmt(unsafe.Pointer(unsafe.SliceData(data)), uintptr(len(data)), format))
}

func (d *Dynamic) FreeImage(t Token)    { d.imageFree(int64(t)) }
func (d *Dynamic) Width(t Token) int32  { return d.width(int64(t)) }
func (d *Dynamic) Height(t Token) int32 { return d.height(int64(t)) }
func (d *Dynamic) ErrorOccurred() bool  { return d.errOccurred() }
func (d *Dynamic) ClearError()          { d.errClear() }

func (d *Dynamic) RGBA(t Token) []byte {
	var p, n uintptr
	d.rgba(int64(t), &p, &n)
	return d.takeBuffer(p, n)
}

func (d *Dynamic) ErrorMessage() string {
	var p, n uintptr
	d.errMessage(&p, &n)
	return string(d.takeBuffer(p, n))
}

func (d *Dynamic) TakeError() (string, bool) {
	var p, n uintptr
	ok := d.errTake(&p, &n)
	return string(d.takeBuffer(p, n)), ok
}

func (d *Dynamic) Close() error {
	if d.lib == 0 {
		return nil
	}
	err := closeLibrary(d.lib)
	d.lib = 0
	return err
}
