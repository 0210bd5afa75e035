package backend

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// Codec ids shared with the native module.
const (
	FormatPng int32 = iota
	FormatJpeg
	FormatGif
	FormatWebP
	FormatPnm
	FormatTiff
	FormatTga
	FormatDds
	FormatBmp
	FormatIco
	FormatHdr
	FormatOpenExr
	FormatFarbfeld
	FormatAvif
	FormatQoi

	formatCount
)

const farbfeldMagic = "farbfeld"

func init() {
	image.RegisterFormat("farbfeld", farbfeldMagic, decodeFarbfeld, decodeFarbfeldConfig)
}

type inImage struct {
	width, height int
	pix           []byte
}

var decoders = map[int32]func(io.Reader) (image.Image, error){
	FormatPng:      png.Decode,
	FormatJpeg:     jpeg.Decode,
	FormatGif:      gif.Decode,
	FormatWebP:     webp.Decode,
	FormatTiff:     tiff.Decode,
	FormatBmp:      bmp.Decode,
	FormatFarbfeld: decodeFarbfeld,
}

func decodeSniffed(data []byte) (*inImage, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return toNRGBA(src), nil
}

func decodeWithFormat(data []byte, format int32) (*inImage, error) {
	if format < 0 || format >= formatCount {
		return nil, fmt.Errorf("the image format id %d is wrong", format)
	}
	dec, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("image format id %d is not supported by the in-process decoder", format)
	}
	src, err := dec(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return toNRGBA(src), nil
}

// toNRGBA converts src to tightly packed, non-premultiplied RGBA8.
func toNRGBA(src image.Image) *inImage {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return &inImage{width: b.Dx(), height: b.Dy(), pix: dst.Pix}
}

// Farbfeld: magic, big-endian uint32 width and height, then RGBA16BE pixels.

func decodeFarbfeldConfig(r io.Reader) (image.Config, error) {
	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return image.Config{}, err
	}
	if string(hdr[:8]) != farbfeldMagic {
		return image.Config{}, errors.New("farbfeld: bad magic")
	}
	return image.Config{
		ColorModel: color.NRGBA64Model,
		Width:      int(binary.BigEndian.Uint32(hdr[8:])),
		Height:     int(binary.BigEndian.Uint32(hdr[12:])),
	}, nil
}

func decodeFarbfeld(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	cfg, err := decodeFarbfeldConfig(br)
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > 1<<15 || cfg.Height > 1<<15 {
		return nil, fmt.Errorf("farbfeld: invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	img := image.NewNRGBA64(image.Rect(0, 0, cfg.Width, cfg.Height))
	if _, err := io.ReadFull(br, img.Pix); err != nil {
		return nil, fmt.Errorf("farbfeld: %w", err)
	}
	return img, nil
}
