package backend

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A
	glbChunkBin  = 0x004E4942
)

type inDocument struct {
	meshes int
	images map[string][]byte
}

// gltfRoot holds the parts of a glTF document the runtime resolves.
type gltfRoot struct {
	Asset struct {
		Version string `json:"version"`
	} `json:"asset"`
	Buffers []struct {
		URI        string `json:"uri"`
		ByteLength int    `json:"byteLength"`
	} `json:"buffers"`
	Images []struct {
		URI        string `json:"uri"`
		MimeType   string `json:"mimeType"`
		BufferView *int   `json:"bufferView"`
	} `json:"images"`
	Meshes []json.RawMessage `json:"meshes"`
}

func (p *InProcess) loadDocument(data []byte, h handle) (*inDocument, error) {
	body, bin, err := splitGLB(data)
	if err != nil {
		return nil, fmt.Errorf("Failed to create the glTF object: %w", err)
	}
	var root gltfRoot
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("Failed to create the glTF object: %w", err)
	}
	if root.Asset.Version == "" {
		return nil, errors.New("Failed to create the glTF object: missing asset.version")
	}

	for i, b := range root.Buffers {
		var payload []byte
		switch {
		case b.URI == "" && i == 0 && bin != nil:
			payload = bin
		case b.URI == "":
			return nil, fmt.Errorf("Failed to load glTF buffer: buffer %d has no URI and no binary chunk", i)
		case strings.HasPrefix(b.URI, "data:"):
			payload, err = decodeDataURI(b.URI)
			if err != nil {
				return nil, fmt.Errorf("Failed to load glTF buffer: buffer %d: %w", i, err)
			}
		default:
			uri := b.URI
			payload, err = p.fetch(func(sink uintptr) uint32 {
				return dispatchFetchBuffer(h, uri, sink)
			})
			if err != nil {
				return nil, fmt.Errorf("Failed to load glTF buffer: %s: %w", uri, err)
			}
		}
		if len(payload) < b.ByteLength {
			return nil, fmt.Errorf("Failed to load glTF buffer: buffer %d is %d bytes, byteLength is %d", i, len(payload), b.ByteLength)
		}
	}

	doc := &inDocument{
		meshes: len(root.Meshes),
		images: make(map[string][]byte),
	}
	for _, img := range root.Images {
		if img.URI == "" {
			continue
		}
		var payload []byte
		if strings.HasPrefix(img.URI, "data:") {
			payload, err = decodeDataURI(img.URI)
			if err != nil {
				return nil, fmt.Errorf("Failed to load glTF image: %w", err)
			}
		} else {
			uri, mime := img.URI, img.MimeType
			payload, err = p.fetch(func(sink uintptr) uint32 {
				return dispatchFetchImage(h, uri, mime, sink)
			})
			if err != nil {
				return nil, fmt.Errorf("Failed to load glTF image: %s: %w", uri, err)
			}
		}
		doc.images[img.URI] = payload
	}
	for _, img := range root.Images {
		if img.URI != "" {
			dispatchNotifyImageURI(h, img.URI)
		}
	}
	return doc, nil
}

// splitGLB returns the JSON chunk and the optional binary chunk of a binary
// glTF container. Plain JSON input is returned unchanged.
func splitGLB(data []byte) (body, bin []byte, err error) {
	if len(data) < 4 || binary.LittleEndian.Uint32(data) != glbMagic {
		return data, nil, nil
	}
	if len(data) < 20 {
		return nil, nil, errors.New("truncated GLB header")
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != 2 {
		return nil, nil, fmt.Errorf("unsupported GLB version %d", v)
	}
	total := int(binary.LittleEndian.Uint32(data[8:]))
	if total < 12 || total > len(data) {
		return nil, nil, fmt.Errorf("GLB declares %d bytes, have %d", total, len(data))
	}
	rest := data[12:total]
	for len(rest) >= 8 {
		n := int(binary.LittleEndian.Uint32(rest))
		typ := binary.LittleEndian.Uint32(rest[4:])
		if n > len(rest)-8 {
			return nil, nil, errors.New("truncated GLB chunk")
		}
		chunk := rest[8 : 8+n]
		switch typ {
		case glbChunkJSON:
			if body == nil {
				body = chunk
			}
		case glbChunkBin:
			if bin == nil {
				bin = chunk
			}
		}
		rest = rest[8+n:]
	}
	if body == nil {
		return nil, nil, errors.New("GLB has no JSON chunk")
	}
	return body, bin, nil
}

// decodeDataURI decodes an RFC 2397 data URI.
func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		out, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data URI: %w", err)
		}
		return out, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URI: %w", err)
	}
	return []byte(s), nil
}
