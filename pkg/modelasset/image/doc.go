// Package image decodes images through the native module.
//
// An Image owns a native handle. Queries read through to native code and
// translate failure sentinels into errors carrying the native message:
//
//	img, err := image.New(lib, data)
//	if err != nil {
//		return err
//	}
//	defer img.Close()
//	decoded, err := img.Decode()
//
// The Format registry maps file extensions and media types to the codec ids
// understood by NewWithFormat.
package image
