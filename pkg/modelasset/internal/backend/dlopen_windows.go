//go:build windows

package backend

import "syscall"

func openLibrary(path string) (uintptr, error) {
	h, err := syscall.LoadLibrary(path)
	return uintptr(h), err
}

func lookupSymbol(lib uintptr, name string) (uintptr, error) {
	return syscall.GetProcAddress(syscall.Handle(lib), name)
}

func closeLibrary(lib uintptr) error {
	return syscall.FreeLibrary(syscall.Handle(lib))
}
