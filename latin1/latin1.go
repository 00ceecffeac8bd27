// Package latin1 converts ISO-8859-1 (Latin-1) byte streams to UTF-8 as they
// are read. Tesseract's legacy UNLV output is emitted in Latin-1; wrapping the
// stream in a Reader lets the rest of the pipeline treat every output as
// UTF-8 text.
package latin1

import "io"

// Reader decodes Latin-1 input from an underlying reader into UTF-8. Every
// Latin-1 byte maps deterministically to one (ASCII) or two (0x80-0xFF) UTF-8
// bytes, so the decoder carries no state between calls and never emits a
// partial multi-byte sequence.
type Reader struct {
	src io.Reader
	raw []byte
}

// NewReader returns a Reader decoding from src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// Read fills p with UTF-8 bytes decoded from the source. At most len(p)/2
// source bytes are consumed per call, which guarantees the expansion always
// fits and no two-byte sequence is split across calls. Buffers shorter than
// two bytes cannot hold a full expansion; Read reports io.ErrShortBuffer for
// them instead of guessing.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) < 2 {
		return 0, io.ErrShortBuffer
	}
	want := len(p) / 2
	if cap(r.raw) < want {
		r.raw = make([]byte, want)
	}
	n, err := r.src.Read(r.raw[:want])
	j := 0
	for _, b := range r.raw[:n] {
		if b < 0x80 {
			p[j] = b
			j++
			continue
		}
		p[j] = 0xC0 | b>>6
		p[j+1] = 0x80 | b&0x3F
		j += 2
	}
	return j, err
}

// Close closes the underlying reader when it implements io.Closer and is a
// no-op otherwise.
func (r *Reader) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Decode converts a complete Latin-1 buffer to UTF-8. It is the one-shot
// form of Reader for already-materialized output such as the engine's UNLV
// text getter.
func Decode(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/2)
	for _, b := range src {
		if b < 0x80 {
			out = append(out, b)
			continue
		}
		out = append(out, 0xC0|b>>6, 0x80|b&0x3F)
	}
	return out
}
