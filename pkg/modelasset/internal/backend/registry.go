package backend

import "sync"

// handle is the registry key handed to native code in place of a Go pointer.
type handle uintptr

var (
	mu   sync.Mutex
	next handle = 1
	reg         = map[handle]any{}
)

// put registers a Go value and returns the key native code will pass back to
// the trampolines. The key must be released with del.
func put(v any) handle {
	mu.Lock()
	defer mu.Unlock()
	h := next
	next++
	reg[h] = v
	return h
}

// get retrieves a registered value. Unknown and zero keys report false.
func get(h handle) (any, bool) {
	if h == 0 {
		return nil, false
	}
	mu.Lock()
	v, ok := reg[h]
	mu.Unlock()
	return v, ok
}

// del removes a registered value from the registry.
func del(h handle) {
	mu.Lock()
	delete(reg, h)
	mu.Unlock()
}

// registered returns the number of live registrations.
func registered() int {
	mu.Lock()
	defer mu.Unlock()
	return len(reg)
}

// registration is what the trampolines find behind a registry key: the
// document's callbacks plus the function that copies bytes into the native
// sink of the transport that issued the call.
type registration struct {
	cb   Callbacks
	sink func(sink uintptr, p []byte) error
}

func lookupRegistration(h handle) (*registration, bool) {
	v, ok := get(h)
	if !ok {
		return nil, false
	}
	r, ok := v.(*registration)
	return r, ok
}

const errUnregistered = "callback context is not registered"

// dispatchFetchBuffer runs a buffer fetch for the registration behind h and
// writes either the bytes or the failure text into sink. It returns the
// status code native code expects: 0 on success, 1 on failure.
func dispatchFetchBuffer(h handle, uri string, sink uintptr) uint32 {
	r, ok := lookupRegistration(h)
	if !ok {
		return 1
	}
	data, err := r.cb.FetchBuffer(uri)
	return r.deliver(sink, data, err)
}

func dispatchFetchImage(h handle, uri, mimeType string, sink uintptr) uint32 {
	r, ok := lookupRegistration(h)
	if !ok {
		return 1
	}
	data, err := r.cb.FetchImage(uri, mimeType)
	return r.deliver(sink, data, err)
}

// deliver reports a fetch result to native code. A sink that cannot take the
// bytes fails the fetch; nothing further is written to it.
func (r *registration) deliver(sink uintptr, data []byte, err error) uint32 {
	if err != nil {
		_ = r.sink(sink, []byte(err.Error()))
		return 1
	}
	if err := r.sink(sink, data); err != nil {
		return 1
	}
	return 0
}

func dispatchNotifyImageURI(h handle, uri string) {
	r, ok := lookupRegistration(h)
	if !ok {
		return
	}
	r.cb.NotifyImageURI(uri)
}
