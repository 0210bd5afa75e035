package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// HostModule is the import module the guest resolves its callbacks from.
const HostModule = "mal_host"

var wasmExports = []string{
	"mal_alloc",
	"mal_init",
	"mal_gltf_new",
	"mal_gltf_free",
	"mal_gltf_mesh_count",
	"mal_gltf_image_data",
	"mal_image_new",
	"mal_image_new_with_format",
	"mal_image_free",
	"mal_image_width",
	"mal_image_height",
	"mal_image_rgba",
	"mal_buffer_free",
	"mal_sink_write",
	"mal_error_occurred",
	"mal_error_message",
	"mal_error_clear",
	"mal_error_take",
}

// Wasm is the ABI of the native module compiled to a wasm32-wasip1 reactor.
// Calls into the instance are serialized; host callbacks run while the lock
// is held and therefore only use the unlocked guest helpers.
type Wasm struct {
	mu  sync.Mutex
	rt  wazero.Runtime
	mod api.Module
	fns map[string]api.Function

	// traps and marshalling failures, merged with the guest error state
	errs ErrorState
}

var _ ABI = (*Wasm)(nil)

// OpenWasm compiles and instantiates binary with the host callbacks wired.
func OpenWasm(ctx context.Context, binary []byte) (*Wasm, error) {
	rt := wazero.NewRuntime(ctx)
	w := &Wasm{rt: rt, fns: make(map[string]api.Function, len(wasmExports))}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate wasi: %w", err)
	}
	_, err := rt.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().WithFunc(w.hostFetchBuffer).Export("fetch_buffer").
		NewFunctionBuilder().WithFunc(w.hostFetchImage).Export("fetch_image").
		NewFunctionBuilder().WithFunc(w.hostNotifyImageURI).Export("notify_image_uri").
		Instantiate(ctx)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate %s: %w", HostModule, err)
	}

	compiled, err := rt.CompileModule(ctx, binary)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("compile module: %w", err)
	}
	cfg := wazero.NewModuleConfig().
		WithName("modelassetlib").
		WithStartFunctions("_initialize")
	mod, err := rt.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate module: %w", err)
	}
	if mod.Memory() == nil {
		_ = rt.Close(ctx)
		return nil, errors.New("module exports no memory")
	}
	for _, name := range wasmExports {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("resolve %s: not exported", name)
		}
		w.fns[name] = fn
	}
	w.mod = mod
	return w, nil
}

func (w *Wasm) hostFetchBuffer(_ context.Context, m api.Module, key uint64, uri, uriLen, sink uint32) uint32 {
	return dispatchFetchBuffer(handle(key), readGuestString(m, uri, uriLen), uintptr(sink))
}

func (w *Wasm) hostFetchImage(_ context.Context, m api.Module, key uint64, uri, uriLen, mime, mimeLen, sink uint32) uint32 {
	return dispatchFetchImage(handle(key), readGuestString(m, uri, uriLen), readGuestString(m, mime, mimeLen), uintptr(sink))
}

func (w *Wasm) hostNotifyImageURI(_ context.Context, m api.Module, key uint64, uri, uriLen uint32) {
	dispatchNotifyImageURI(handle(key), readGuestString(m, uri, uriLen))
}

func readGuestString(m api.Module, p, n uint32) string {
	if p == 0 || n == 0 {
		return ""
	}
	b, ok := m.Memory().Read(p, n)
	if !ok {
		return ""
	}
	return strings.Clone(string(b))
}

// guestCall invokes an export through a fresh api.Function. It is used from
// inside host callbacks, where the cached functions are already on the stack.
func (w *Wasm) guestCall(name string, params ...uint64) (uint64, error) {
	fn := w.mod.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("%s: not exported", name)
	}
	res, err := fn.Call(context.Background(), params...)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, nil
	}
	return res[0], nil
}

// call invokes a cached export. A trap is recorded in the host error state
// and reported as a zero result.
func (w *Wasm) call(name string, params ...uint64) (uint64, bool) {
	res, err := w.fns[name].Call(context.Background(), params...)
	if err != nil {
		w.errs.Setf("wasm: %s: %v", name, err)
		return 0, false
	}
	if len(res) == 0 {
		return 0, true
	}
	return res[0], true
}

// copyIn copies data into guest memory. The returned pointer is zero for empty
// input and must be released with release.
func (w *Wasm) copyIn(data []byte, call func(string, ...uint64) (uint64, error)) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}
	p, err := call("mal_alloc", uint64(len(data)))
	if err != nil {
		return 0, err
	}
	if p == 0 {
		return 0, fmt.Errorf("mal_alloc(%d) returned null", len(data))
	}
	if !w.mod.Memory().Write(uint32(p), data) {
		return 0, fmt.Errorf("write %d bytes at %#x out of range", len(data), p)
	}
	return uint32(p), nil
}

func (w *Wasm) release(p uint32, n int) {
	if p == 0 {
		return
	}
	w.call("mal_buffer_free", uint64(p), uint64(n))
}

func (w *Wasm) cachedCall(name string, params ...uint64) (uint64, error) {
	res, ok := w.call(name, params...)
	if !ok {
		return 0, errors.New("trap")
	}
	return res, nil
}

// writeSink copies data into guest memory and hands it to mal_sink_write.
// Failures are kept in the host error state so the failed fetch is explained.
func (w *Wasm) writeSink(sink uintptr, data []byte) error {
	p, err := w.copyIn(data, w.guestCall)
	if err != nil {
		w.errs.Setf("wasm: sink write: %v", err)
		return err
	}
	if p != 0 {
		defer func() { _, _ = w.guestCall("mal_buffer_free", uint64(p), uint64(len(data))) }()
	}
	if _, err := w.guestCall("mal_sink_write", uint64(sink), uint64(p), uint64(len(data))); err != nil {
		w.errs.Setf("wasm: mal_sink_write: %v", err)
		return err
	}
	return nil
}

// takeOut reads a (ptr, len) pair written into two 4-byte cells at cells,
// copies the buffer and releases both.
func (w *Wasm) takeOut(cells uint32) []byte {
	mem := w.mod.Memory()
	p, ok1 := mem.ReadUint32Le(cells)
	n, ok2 := mem.ReadUint32Le(cells + 4)
	w.release(cells, 8)
	if !ok1 || !ok2 || p == 0 {
		return nil
	}
	b, ok := mem.Read(p, n)
	var out []byte
	if ok {
		out = append([]byte(nil), b...)
	} else {
		w.errs.Setf("wasm: buffer %#x+%d out of range", p, n)
	}
	w.release(p, int(n))
	return out
}

func (w *Wasm) outCells() (uint32, bool) {
	p, err := w.copyIn(make([]byte, 8), w.cachedCall)
	if err != nil {
		w.errs.Setf("wasm: out cells: %v", err)
		return 0, false
	}
	return p, true
}

func (w *Wasm) Init() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.call("mal_init")
	return ok && r != 0
}

func (w *Wasm) NewDocument(data []byte, cb Callbacks) Token {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.copyIn(data, w.cachedCall)
	if err != nil {
		w.errs.Setf("wasm: document input: %v", err)
		return 0
	}
	defer w.release(p, len(data))

	h := put(&registration{cb: cb, sink: w.writeSink})
	defer del(h)
	r, _ := w.call("mal_gltf_new", uint64(p), uint64(len(data)), uint64(h))
	return Token(int64(r))
}

func (w *Wasm) FreeDocument(t Token) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.call("mal_gltf_free", uint64(t))
}

func (w *Wasm) MeshCount(t Token) int32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.call("mal_gltf_mesh_count", uint64(t))
	if !ok {
		return -1
	}
	return int32(uint32(r))
}

func (w *Wasm) ImageDataByURI(t Token, uri string) ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cstr := append([]byte(uri), 0)
	p, err := w.copyIn(cstr, w.cachedCall)
	if err != nil {
		w.errs.Setf("wasm: uri: %v", err)
		return nil, false
	}
	defer w.release(p, len(cstr))
	cells, ok := w.outCells()
	if !ok {
		return nil, false
	}
	r, ok := w.call("mal_gltf_image_data", uint64(t), uint64(p), uint64(cells), uint64(cells+4))
	out := w.takeOut(cells)
	if !ok || int32(uint32(r)) != 0 {
		return nil, false
	}
	if out == nil {
		out = []byte{}
	}
	return out, true
}

func (w *Wasm) NewImage(data []byte) Token {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.copyIn(data, w.cachedCall)
	if err != nil {
		w.errs.Setf("wasm: image input: %v", err)
		return 0
	}
	defer w.release(p, len(data))
	r, _ := w.call("mal_image_new", uint64(p), uint64(len(data)))
	return Token(int64(r))
}

func (w *Wasm) NewImageWithFormat(data []byte, format int32) Token {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.copyIn(data, w.cachedCall)
	if err != nil {
		w.errs.Setf("wasm: image input: %v", err)
		return 0
	}
	defer w.release(p, len(data))
	r, _ := w.call("mal_image_new_with_format", uint64(p), uint64(len(data)), api.EncodeI32(format))
	return Token(int64(r))
}

func (w *Wasm) FreeImage(t Token) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.call("mal_image_free", uint64(t))
}

func (w *Wasm) dimension(name string, t Token) int32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.call(name, uint64(t))
	if !ok {
		return -1
	}
	return int32(uint32(r))
}

func (w *Wasm) Width(t Token) int32  { return w.dimension("mal_image_width", t) }
func (w *Wasm) Height(t Token) int32 { return w.dimension("mal_image_height", t) }

func (w *Wasm) RGBA(t Token) []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	cells, ok := w.outCells()
	if !ok {
		return nil
	}
	w.call("mal_image_rgba", uint64(t), uint64(cells), uint64(cells+4))
	return w.takeOut(cells)
}

func (w *Wasm) ErrorOccurred() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.errs.Occurred() {
		return true
	}
	r, ok := w.call("mal_error_occurred")
	return !ok || r != 0
}

func (w *Wasm) ErrorMessage() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	host := w.errs.Message()
	var guest string
	if cells, ok := w.outCells(); ok {
		w.call("mal_error_message", uint64(cells), uint64(cells+4))
		guest = string(w.takeOut(cells))
	}
	return joinMessages(host, guest)
}

func (w *Wasm) ClearError() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.call("mal_error_clear")
	w.errs.Clear()
}

func (w *Wasm) TakeError() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var guest string
	var guestOK bool
	if cells, ok := w.outCells(); ok {
		r, _ := w.call("mal_error_take", uint64(cells), uint64(cells+4))
		guest, guestOK = string(w.takeOut(cells)), r != 0
	}
	host, hostOK := w.errs.Take()
	return joinMessages(host, guest), hostOK || guestOK
}

func joinMessages(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}

func (w *Wasm) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rt == nil {
		return nil
	}
	err := w.rt.Close(context.Background())
	w.rt = nil
	return err
}
