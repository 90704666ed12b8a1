package core

// streaming.go provides the readers every input passes through before parsing:
//
//   - BOMSkippingReader: removes a leading UTF-8 BOM and remembers it was there
//   - UTF8Validator: fails with ErrEncoding on the first invalid sequence
//   - CountingReader: counts bytes and line feeds for blank-line restoration
//
// Use wrapInput to apply them in the correct order.

import (
	"io"
	"unicode/utf8"
)

const utf8BOM = "\xEF\xBB\xBF"

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	reader  io.Reader
	checked bool
	found   bool
	head    []byte // bytes read during detection that were not a BOM
	buf     [3]byte
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader. The first call checks for and drops the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		n, err := io.ReadFull(r.reader, r.buf[:])
		if n == len(utf8BOM) && string(r.buf[:]) == utf8BOM {
			r.found = true
		} else {
			r.head = r.buf[:n]
		}

		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			// Short input: hand back what we have, then EOF.
			if len(r.head) == 0 {
				return 0, io.EOF
			}
		default:
			return 0, err
		}
	}

	if len(r.head) > 0 {
		n := copy(p, r.head)
		r.head = r.head[n:]
		return n, nil
	}

	return r.reader.Read(p)
}

// Found reports whether a BOM was stripped. Valid after the first Read.
func (r *BOMSkippingReader) Found() bool {
	return r.found
}

// UTF8Validator passes bytes through unchanged and fails with ErrEncoding as
// soon as the stream contains an invalid UTF-8 sequence. A multi-byte
// sequence split across reads is held back until it is complete.
type UTF8Validator struct {
	reader  io.Reader
	buf     []byte
	ready   []byte // validated bytes not yet returned
	pending []byte // incomplete trailing sequence from the last fill
	err     error
}

// NewUTF8Validator creates a new validating reader.
func NewUTF8Validator(r io.Reader) *UTF8Validator {
	return &UTF8Validator{
		reader:  r,
		buf:     make([]byte, 32*1024),
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (v *UTF8Validator) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(v.ready) == 0 {
		if v.err != nil {
			return 0, v.err
		}
		v.fill()
	}
	n := copy(p, v.ready)
	v.ready = v.ready[n:]
	return n, nil
}

func (v *UTF8Validator) fill() {
	off := copy(v.buf, v.pending)
	v.pending = v.pending[:0]

	n, err := v.reader.Read(v.buf[off:])
	n += off
	data := v.buf[:n]

	keep := 0
	if err == nil {
		keep = incompleteTrailingBytes(data)
	}

	if !isAllASCII(data[:n-keep]) && !utf8.Valid(data[:n-keep]) {
		v.err = ErrEncoding
		return
	}

	v.pending = append(v.pending, data[n-keep:]...)
	v.ready = data[:n-keep]
	if err != nil {
		v.err = err
	}
}

// isAllASCII returns true if all bytes are ASCII (< 128).
func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// incompleteTrailingBytes returns the number of bytes at the end of data
// that could be the start of an incomplete multi-byte UTF-8 sequence.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
		// Anything but a continuation byte ends the search.
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// runeLen returns the expected length of a UTF-8 sequence starting with byte b.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0 // continuation byte
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// CountingReader wraps an io.Reader to track bytes and physical lines read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	newlines  int
	last      byte
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.BytesRead += int64(n)
		for _, b := range p[:n] {
			if b == '\n' {
				r.newlines++
			}
		}
		r.last = p[n-1]
	}
	return n, err
}

// Lines returns the number of physical lines seen so far. A final line
// without a terminator still counts.
func (r *CountingReader) Lines() int {
	if r.BytesRead > 0 && r.last != '\n' {
		return r.newlines + 1
	}
	return r.newlines
}

// wrapInput applies BOM stripping, UTF-8 validation and counting in that
// order. The BOM must go first so it is never counted or validated as data.
func wrapInput(r io.Reader) (*BOMSkippingReader, *CountingReader) {
	bom := NewBOMSkippingReader(r)
	return bom, NewCountingReader(NewUTF8Validator(bom))
}
