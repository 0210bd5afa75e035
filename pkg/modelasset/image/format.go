package image

import (
	"fmt"
	"path"
	"strings"

	"github.com/srcres/modelasset-go/pkg/modelasset/internal/backend"
)

// Format identifies a codec of the native decoder. The numeric values are
// part of the native ABI.
type Format int32

const (
	Png      = Format(backend.FormatPng)
	Jpeg     = Format(backend.FormatJpeg)
	Gif      = Format(backend.FormatGif)
	WebP     = Format(backend.FormatWebP)
	Pnm      = Format(backend.FormatPnm)
	Tiff     = Format(backend.FormatTiff)
	Tga      = Format(backend.FormatTga)
	Dds      = Format(backend.FormatDds)
	Bmp      = Format(backend.FormatBmp)
	Ico      = Format(backend.FormatIco)
	Hdr      = Format(backend.FormatHdr)
	OpenExr  = Format(backend.FormatOpenExr)
	Farbfeld = Format(backend.FormatFarbfeld)
	Avif     = Format(backend.FormatAvif)
	Qoi      = Format(backend.FormatQoi)
)

var formatNames = [...]string{
	Png:      "png",
	Jpeg:     "jpeg",
	Gif:      "gif",
	WebP:     "webp",
	Pnm:      "pnm",
	Tiff:     "tiff",
	Tga:      "tga",
	Dds:      "dds",
	Bmp:      "bmp",
	Ico:      "ico",
	Hdr:      "hdr",
	OpenExr:  "openexr",
	Farbfeld: "farbfeld",
	Avif:     "avif",
	Qoi:      "qoi",
}

var extensions = map[string]Format{
	"avif": Avif,
	"jpg":  Jpeg,
	"jpeg": Jpeg,
	"png":  Png,
	"gif":  Gif,
	"webp": WebP,
	"tif":  Tiff,
	"tiff": Tiff,
	"tga":  Tga,
	"dds":  Dds,
	"bmp":  Bmp,
	"ico":  Ico,
	"hdr":  Hdr,
	"exr":  OpenExr,
	"pbm":  Pnm,
	"pam":  Pnm,
	"ppm":  Pnm,
	"pgm":  Pnm,
	"ff":   Farbfeld,
	"qoi":  Qoi,
}

var mimeTypes = map[string]Format{
	"image/png":                Png,
	"image/jpeg":               Jpeg,
	"image/gif":                Gif,
	"image/webp":               WebP,
	"image/tiff":               Tiff,
	"image/bmp":                Bmp,
	"image/x-icon":             Ico,
	"image/vnd.microsoft.icon": Ico,
	"image/vnd-ms.dds":         Dds,
	"image/x-tga":              Tga,
	"image/x-exr":              OpenExr,
	"image/avif":               Avif,
	"image/qoi":                Qoi,
	"image/x-portable-anymap":  Pnm,
	"image/x-portable-bitmap":  Pnm,
	"image/x-portable-graymap": Pnm,
	"image/x-portable-pixmap":  Pnm,
	"image/x-farbfeld":         Farbfeld,
	"image/vnd.radiance":       Hdr,
}

// String returns the lowercase codec name.
func (f Format) String() string {
	if f.Valid() {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", int32(f))
}

// Valid reports whether f is one of the defined formats.
func (f Format) Valid() bool {
	return f >= 0 && int(f) < len(formatNames)
}

// FormatFromID converts a numeric codec id.
func FormatFromID(id int32) (Format, error) {
	f := Format(id)
	if !f.Valid() {
		return 0, fmt.Errorf("the image format id %d is wrong", id)
	}
	return f, nil
}

// FormatFromExtension maps a file extension, with or without the leading
// dot, to a format. Matching ignores case.
func FormatFromExtension(ext string) (Format, bool) {
	f, ok := extensions[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return f, ok
}

// FormatFromPath maps the extension of a slash-separated path or URI.
func FormatFromPath(p string) (Format, bool) {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := path.Ext(p)
	if ext == "" {
		return 0, false
	}
	return FormatFromExtension(ext)
}

// FormatFromMIME maps a media type such as a glTF image mimeType.
// Parameters after ';' are ignored.
func FormatFromMIME(mimeType string) (Format, bool) {
	base, _, _ := strings.Cut(mimeType, ";")
	f, ok := mimeTypes[strings.ToLower(strings.TrimSpace(base))]
	return f, ok
}
