package cache

import (
	"bytes"
	"compress/flate"
	"errors"
	"io"
)

// Payload framing for stored byte values. The first byte records the
// encoding so that reads stay compatible when the compression threshold
// changes between process restarts.
const (
	encodingRaw     byte = 0x00
	encodingDeflate byte = 0x01
)

// codec frames serialized payloads and optionally compresses them with
// deflate once they exceed minSize bytes. A zero minSize disables
// compression entirely and payloads are stored raw (still framed).
type codec struct {
	minSize int
}

// encode frames data, compressing it when compression is enabled and the
// payload is large enough to be worth it. Falls back to the raw frame if
// compression does not shrink the payload.
func (c codec) encode(data []byte) []byte {
	if c.minSize <= 0 || len(data) < c.minSize {
		return append([]byte{encodingRaw}, data...)
	}

	var buf bytes.Buffer
	buf.WriteByte(encodingDeflate)
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return append([]byte{encodingRaw}, data...)
	}
	if _, err := w.Write(data); err != nil {
		return append([]byte{encodingRaw}, data...)
	}
	if err := w.Close(); err != nil {
		return append([]byte{encodingRaw}, data...)
	}

	if buf.Len() >= len(data)+1 {
		return append([]byte{encodingRaw}, data...)
	}
	return buf.Bytes()
}

// decode reverses encode. Returns ErrUnmarshal for truncated or corrupt
// frames so callers can treat the entry as a miss.
func (c codec) decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.Join(ErrUnmarshal, errors.New("empty payload"))
	}

	switch data[0] {
	case encodingRaw:
		return data[1:], nil
	case encodingDeflate:
		r := flate.NewReader(bytes.NewReader(data[1:]))
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Join(ErrUnmarshal, err)
		}
		return out, nil
	default:
		return nil, errors.Join(ErrUnmarshal, errors.New("unknown payload encoding"))
	}
}
