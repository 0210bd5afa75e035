package image

import (
	"fmt"
	goimage "image"

	"github.com/srcres/modelasset-go/pkg/modelasset"
	"github.com/srcres/modelasset-go/pkg/modelasset/internal/backend"
)

// Image is a decoded image owned by the native module.
//
// Memory management: call Close when done. There is no finalizer.
type Image struct {
	lib    *modelasset.Library
	handle backend.Handle
}

// DecodedImage is a Go-owned copy of an image's pixels as tightly packed
// 8-bit RGBA rows, len(RGBA) == 4*Width*Height.
type DecodedImage struct {
	Width  uint32
	Height uint32
	RGBA   []byte
}

// NRGBA wraps the pixels as a standard library image without copying.
func (d *DecodedImage) NRGBA() *goimage.NRGBA {
	return &goimage.NRGBA{
		Pix:    d.RGBA,
		Stride: 4 * int(d.Width),
		Rect:   goimage.Rect(0, 0, int(d.Width), int(d.Height)),
	}
}

// New decodes data, letting the native module detect the format.
func New(lib *modelasset.Library, data []byte) (*Image, error) {
	abi, err := lib.Native()
	if err != nil {
		return nil, err
	}
	t := abi.NewImage(data)
	if t == 0 {
		return nil, lib.Failure("image.New", modelasset.ErrNativeConstruction)
	}
	return &Image{lib: lib, handle: backend.Handle{Token: t, Kind: backend.KindImage}}, nil
}

// NewWithFormat decodes data as format f.
func NewWithFormat(lib *modelasset.Library, data []byte, f Format) (*Image, error) {
	if !f.Valid() {
		return nil, &modelasset.NativeError{
			Op:      "image.NewWithFormat",
			Kind:    modelasset.ErrNativeConstruction,
			Message: fmt.Sprintf("the image format id %d is wrong", int32(f)),
		}
	}
	abi, err := lib.Native()
	if err != nil {
		return nil, err
	}
	t := abi.NewImageWithFormat(data, int32(f))
	if t == 0 {
		return nil, lib.Failure("image.NewWithFormat", modelasset.ErrNativeConstruction)
	}
	return &Image{lib: lib, handle: backend.Handle{Token: t, Kind: backend.KindImage}}, nil
}

// Decode picks the format with the registry: an explicit hint wins, then the
// extension of name, then native detection.
func Decode(lib *modelasset.Library, data []byte, name, mimeType string) (*Image, error) {
	if f, ok := FormatFromMIME(mimeType); ok {
		return NewWithFormat(lib, data, f)
	}
	if f, ok := FormatFromPath(name); ok {
		return NewWithFormat(lib, data, f)
	}
	return New(lib, data)
}

func (img *Image) native() (backend.ABI, error) {
	if img == nil || !img.handle.Valid() {
		return nil, modelasset.ErrClosed
	}
	return img.lib.Native()
}

// Width returns the width in pixels.
func (img *Image) Width() (uint32, error) {
	abi, err := img.native()
	if err != nil {
		return 0, err
	}
	w := abi.Width(img.handle.Token)
	if w < 0 {
		return 0, img.lib.Failure("image.Width", modelasset.ErrNativeQuery)
	}
	return uint32(w), nil
}

// Height returns the height in pixels.
func (img *Image) Height() (uint32, error) {
	abi, err := img.native()
	if err != nil {
		return 0, err
	}
	h := abi.Height(img.handle.Token)
	if h < 0 {
		return 0, img.lib.Failure("image.Height", modelasset.ErrNativeQuery)
	}
	return uint32(h), nil
}

// RGBA returns a copy of the pixels. A short buffer alone does not signal
// failure, so the error channel is consulted after the call.
func (img *Image) RGBA() ([]byte, error) {
	abi, err := img.native()
	if err != nil {
		return nil, err
	}
	pix := abi.RGBA(img.handle.Token)
	if abi.ErrorOccurred() {
		return nil, img.lib.Failure("image.RGBA", modelasset.ErrNativeQuery)
	}
	if pix == nil {
		pix = []byte{}
	}
	return pix, nil
}

// Decode returns the dimensions and pixels together.
func (img *Image) Decode() (*DecodedImage, error) {
	w, err := img.Width()
	if err != nil {
		return nil, err
	}
	h, err := img.Height()
	if err != nil {
		return nil, err
	}
	pix, err := img.RGBA()
	if err != nil {
		return nil, err
	}
	if want := 4 * int(w) * int(h); len(pix) != want {
		return nil, &modelasset.NativeError{
			Op:      "image.Decode",
			Kind:    modelasset.ErrNativeQuery,
			Message: fmt.Sprintf("pixel buffer is %d bytes, want %d for %dx%d", len(pix), want, w, h),
		}
	}
	return &DecodedImage{Width: w, Height: h, RGBA: pix}, nil
}

// Close frees the native image. Further calls are no-ops; queries after
// Close return modelasset.ErrClosed.
func (img *Image) Close() error {
	if img == nil || !img.handle.Valid() {
		return nil
	}
	t := img.handle.Token
	img.handle.Token = 0
	abi, err := img.lib.Native()
	if err != nil {
		return err
	}
	abi.FreeImage(t)
	return nil
}
