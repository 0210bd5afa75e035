package backend

import (
	"bytes"
	"fmt"
	"sync"
)

// InProcess implements ABI in Go. It follows the native contract exactly:
// sentinel returns, a sticky error state, callbacks dispatched through the
// registry and sinks, and copies for every buffer handed out.
type InProcess struct {
	mu     sync.Mutex
	next   Token
	docs   map[Token]*inDocument
	images map[Token]*inImage
	closed bool

	errs ErrorState

	sinkMu   sync.Mutex
	nextSink uintptr
	sinks    map[uintptr]*bytes.Buffer
}

var _ ABI = (*InProcess)(nil)

// NewInProcess returns a ready reference runtime.
func NewInProcess() *InProcess {
	return &InProcess{
		next:   1,
		docs:   make(map[Token]*inDocument),
		images: make(map[Token]*inImage),
		sinks:  make(map[uintptr]*bytes.Buffer),
	}
}

func (p *InProcess) Init() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.errs.Set("the runtime is closed")
		return false
	}
	return true
}

func (p *InProcess) alloc() Token {
	t := p.next
	p.next++
	return t
}

func (p *InProcess) NewDocument(data []byte, cb Callbacks) Token {
	if cb == nil {
		p.errs.Set("Failed to create the glTF object: no callbacks")
		return 0
	}
	h := put(&registration{cb: cb, sink: p.writeSink})
	defer del(h)

	doc, err := p.loadDocument(data, h)
	if err != nil {
		p.errs.Set(err.Error())
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.alloc()
	p.docs[t] = doc
	return t
}

func (p *InProcess) FreeDocument(t Token) {
	p.mu.Lock()
	delete(p.docs, t)
	p.mu.Unlock()
}

func (p *InProcess) document(t Token) (*inDocument, bool) {
	p.mu.Lock()
	d, ok := p.docs[t]
	p.mu.Unlock()
	if !ok {
		p.errs.Setf("glTF handle %d is not live", t)
	}
	return d, ok
}

func (p *InProcess) MeshCount(t Token) int32 {
	d, ok := p.document(t)
	if !ok {
		return -1
	}
	return int32(d.meshes)
}

func (p *InProcess) ImageDataByURI(t Token, uri string) ([]byte, bool) {
	d, ok := p.document(t)
	if !ok {
		return nil, false
	}
	data, ok := d.images[uri]
	if !ok {
		p.errs.Setf("no image data for URI %q", uri)
		return nil, false
	}
	return bytes.Clone(data), true
}

func (p *InProcess) NewImage(data []byte) Token {
	img, err := decodeSniffed(data)
	if err != nil {
		p.errs.Setf("Failed to create the image: %v", err)
		return 0
	}
	return p.storeImage(img)
}

func (p *InProcess) NewImageWithFormat(data []byte, format int32) Token {
	img, err := decodeWithFormat(data, format)
	if err != nil {
		p.errs.Setf("Failed to create the image: %v", err)
		return 0
	}
	return p.storeImage(img)
}

func (p *InProcess) storeImage(img *inImage) Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.alloc()
	p.images[t] = img
	return t
}

func (p *InProcess) FreeImage(t Token) {
	p.mu.Lock()
	delete(p.images, t)
	p.mu.Unlock()
}

func (p *InProcess) image(t Token) (*inImage, bool) {
	p.mu.Lock()
	img, ok := p.images[t]
	p.mu.Unlock()
	if !ok {
		p.errs.Setf("image handle %d is not live", t)
	}
	return img, ok
}

func (p *InProcess) Width(t Token) int32 {
	img, ok := p.image(t)
	if !ok {
		return -1
	}
	return int32(img.width)
}

func (p *InProcess) Height(t Token) int32 {
	img, ok := p.image(t)
	if !ok {
		return -1
	}
	return int32(img.height)
}

func (p *InProcess) RGBA(t Token) []byte {
	img, ok := p.image(t)
	if !ok {
		return nil
	}
	return bytes.Clone(img.pix)
}

func (p *InProcess) ErrorOccurred() bool       { return p.errs.Occurred() }
func (p *InProcess) ErrorMessage() string      { return p.errs.Message() }
func (p *InProcess) ClearError()               { p.errs.Clear() }
func (p *InProcess) TakeError() (string, bool) { return p.errs.Take() }

func (p *InProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	clear(p.docs)
	clear(p.images)
	return nil
}

// Live reports how many documents and images are still allocated.
func (p *InProcess) Live() (docs, images int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.docs), len(p.images)
}

func (p *InProcess) openSink() uintptr {
	p.sinkMu.Lock()
	defer p.sinkMu.Unlock()
	p.nextSink++
	p.sinks[p.nextSink] = new(bytes.Buffer)
	return p.nextSink
}

func (p *InProcess) writeSink(sink uintptr, b []byte) error {
	p.sinkMu.Lock()
	defer p.sinkMu.Unlock()
	buf, ok := p.sinks[sink]
	if !ok {
		return fmt.Errorf("sink %d is not open", sink)
	}
	buf.Write(b)
	return nil
}

func (p *InProcess) closeSink(sink uintptr) []byte {
	p.sinkMu.Lock()
	defer p.sinkMu.Unlock()
	buf := p.sinks[sink]
	delete(p.sinks, sink)
	if buf == nil {
		return nil
	}
	return buf.Bytes()
}

// fetch runs one callback with a fresh sink and returns its contents.
func (p *InProcess) fetch(call func(sink uintptr) uint32) ([]byte, error) {
	sink := p.openSink()
	status := call(sink)
	out := p.closeSink(sink)
	if status != 0 {
		if len(out) == 0 {
			return nil, fmt.Errorf("%s", errUnregistered)
		}
		return nil, fmt.Errorf("%s", out)
	}
	return out, nil
}
