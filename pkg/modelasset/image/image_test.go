package image_test

import (
	"bytes"
	"context"
	"errors"
	goimage "image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srcres/modelasset-go/pkg/modelasset"
	"github.com/srcres/modelasset-go/pkg/modelasset/image"
	"github.com/srcres/modelasset-go/pkg/modelasset/logging"
)

func openLibrary(t *testing.T) *modelasset.Library {
	t.Helper()
	lib, err := modelasset.Open(context.Background(), modelasset.Config{
		Backend: modelasset.BackendInProcess,
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := goimage.NewNRGBA(goimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var red = color.NRGBA{R: 0xFF, A: 0xFF}

func TestRedPNGRoundTrip(t *testing.T) {
	lib := openLibrary(t)
	img, err := image.New(lib, solidPNG(t, 2, 2, red))
	require.NoError(t, err)
	defer img.Close()

	w, err := img.Width()
	require.NoError(t, err)
	h, err := img.Height()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), w)
	assert.Equal(t, uint32(2), h)

	pix, err := img.RGBA()
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xFF, 0x00, 0x00, 0xFF}, 4), pix)
	assert.False(t, lib.Errors().Occurred())
}

func TestDecode(t *testing.T) {
	lib := openLibrary(t)
	img, err := image.NewWithFormat(lib, solidPNG(t, 3, 2, red), image.Png)
	require.NoError(t, err)
	defer img.Close()

	d, err := img.Decode()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), d.Width)
	assert.Equal(t, uint32(2), d.Height)
	assert.Len(t, d.RGBA, 4*3*2)
	assert.Equal(t, red, d.NRGBA().NRGBAAt(2, 1))
}

func TestMalformedInput(t *testing.T) {
	lib := openLibrary(t)
	_, err := image.New(lib, []byte{0xde, 0xad, 0xbe, 0xef})
	require.Error(t, err)
	assert.True(t, errors.Is(err, modelasset.ErrNativeConstruction))

	var nerr *modelasset.NativeError
	require.True(t, errors.As(err, &nerr))
	assert.NotEmpty(t, nerr.Message)
	assert.NotEqual(t, "no native error message", nerr.Message)
	assert.False(t, lib.Errors().Occurred(), "wrapper must consume the channel")
}

func TestChannelStickyUntilClear(t *testing.T) {
	lib := openLibrary(t)
	abi, err := lib.Native()
	require.NoError(t, err)

	// Drive a failure below the wrapper so the channel is left set.
	assert.Zero(t, abi.NewImage([]byte("garbage")))
	ch := lib.Errors()
	require.True(t, ch.Occurred())
	assert.NotEmpty(t, ch.Message())
	assert.NotEmpty(t, ch.Message())

	ch.Clear()
	assert.False(t, ch.Occurred())
	ch.Clear()
	assert.False(t, ch.Occurred())
}

func TestWrongFormatID(t *testing.T) {
	lib := openLibrary(t)
	_, err := image.NewWithFormat(lib, solidPNG(t, 1, 1, red), image.Format(42))
	require.Error(t, err)
	assert.ErrorIs(t, err, modelasset.ErrNativeConstruction)
	assert.Contains(t, err.Error(), "format id 42 is wrong")
}

func TestFormatMismatch(t *testing.T) {
	lib := openLibrary(t)
	_, err := image.NewWithFormat(lib, solidPNG(t, 1, 1, red), image.Gif)
	assert.ErrorIs(t, err, modelasset.ErrNativeConstruction)
}

func TestUseAfterClose(t *testing.T) {
	lib := openLibrary(t)
	img, err := image.New(lib, solidPNG(t, 1, 1, red))
	require.NoError(t, err)
	require.NoError(t, img.Close())
	require.NoError(t, img.Close())

	_, err = img.Width()
	assert.ErrorIs(t, err, modelasset.ErrClosed)
	_, err = img.Height()
	assert.ErrorIs(t, err, modelasset.ErrClosed)
	_, err = img.RGBA()
	assert.ErrorIs(t, err, modelasset.ErrClosed)
	_, err = img.Decode()
	assert.ErrorIs(t, err, modelasset.ErrClosed)
	assert.False(t, lib.Errors().Occurred(), "closed wrappers must not reach native code")
}

func TestLibraryClosed(t *testing.T) {
	lib := openLibrary(t)
	img, err := image.New(lib, solidPNG(t, 1, 1, red))
	require.NoError(t, err)
	require.NoError(t, lib.Close())

	_, err = img.Width()
	assert.ErrorIs(t, err, modelasset.ErrLibraryClosed)
	_, err = image.New(lib, nil)
	assert.ErrorIs(t, err, modelasset.ErrLibraryClosed)
}

func TestDecodeWithRegistry(t *testing.T) {
	lib := openLibrary(t)
	data := solidPNG(t, 1, 1, red)
	tests := []struct {
		name, file, mime string
		wantErr          bool
	}{
		{"mime wins", "tex.jpg", "image/png", false},
		{"extension", "tex.PNG", "", false},
		{"sniffed", "tex", "", false},
		{"wrong extension", "tex.gif", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := image.Decode(lib, data, tt.file, tt.mime)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			img.Close()
		})
	}
}
