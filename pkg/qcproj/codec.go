package qcproj

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
)

// Strings are stored as a u16 count of UTF-16 code units followed by the
// units in little-endian order, without a terminator or byte order mark.
var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// encoder writes little-endian fields and remembers the first error.
type encoder struct {
	w   io.Writer
	n   int64
	err error
	buf [8]byte
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(p)
	e.n += int64(n)
	if err != nil {
		e.err = &FormatError{Op: "write", Offset: e.n, Err: err}
	}
}

func (e *encoder) fail(op string, err error) {
	if e.err == nil {
		e.err = &FormatError{Op: op, Offset: e.n, Err: err}
	}
}

func (e *encoder) u8(v uint8) {
	e.buf[0] = v
	e.write(e.buf[:1])
}

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *encoder) u16(v uint16) {
	binary.LittleEndian.PutUint16(e.buf[:2], v)
	e.write(e.buf[:2])
}

func (e *encoder) u32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *encoder) u64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

func (e *encoder) id(v uuid.UUID) {
	e.write(v[:])
}

func (e *encoder) str(op, s string) {
	if e.err != nil {
		return
	}
	if !utf8.ValidString(s) {
		e.fail(op, fmt.Errorf("%w: %q", ErrInvalidString, s))
		return
	}
	units, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		e.fail(op, err)
		return
	}
	count := len(units) / 2
	if count > math.MaxUint16 {
		e.fail(op, fmt.Errorf("%w: %d code units", ErrStringTooLong, count))
		return
	}
	e.u16(uint16(count))
	e.write(units)
}

func (e *encoder) metadata(m ContentMetadata) {
	if !m.Version.Supported() {
		e.fail("encode metadata", fmt.Errorf("%w: %s", ErrUnsupportedVersion, m.Version))
		return
	}
	e.id(m.id)
	e.str("encode metadata name", m.Name)
	e.bool(m.ObeyPhysics)
	e.bool(m.Visible)
	e.u16(m.LoaderID)
	e.u16(m.ResourceTypeID)
	e.u16(uint16(m.Version))
}

// decoder reads little-endian fields, tracking the offset for error reports.
// Any short read is reported as ErrMalformedFile.
type decoder struct {
	r   io.Reader
	off int64
	buf [16]byte
}

func (d *decoder) read(op string, p []byte) error {
	n, err := io.ReadFull(d.r, p)
	start := d.off
	d.off += int64(n)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &FormatError{Op: op, Offset: start, Err: fmt.Errorf("%w: %w", ErrMalformedFile, io.ErrUnexpectedEOF)}
	}
	return &FormatError{Op: op, Offset: start, Err: err}
}

func (d *decoder) malformed(op string, offset int64, format string, args ...any) error {
	return &FormatError{Op: op, Offset: offset, Err: fmt.Errorf("%w: "+format, append([]any{ErrMalformedFile}, args...)...)}
}

func (d *decoder) u8(op string) (uint8, error) {
	if err := d.read(op, d.buf[:1]); err != nil {
		return 0, err
	}
	return d.buf[0], nil
}

func (d *decoder) bool(op string) (bool, error) {
	at := d.off
	v, err := d.u8(op)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, d.malformed(op, at, "invalid boolean byte %#x", v)
	}
}

func (d *decoder) u16(op string) (uint16, error) {
	if err := d.read(op, d.buf[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(d.buf[:2]), nil
}

func (d *decoder) u32(op string) (uint32, error) {
	if err := d.read(op, d.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(d.buf[:4]), nil
}

func (d *decoder) u64(op string) (uint64, error) {
	if err := d.read(op, d.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(d.buf[:8]), nil
}

func (d *decoder) id(op string) (uuid.UUID, error) {
	var v uuid.UUID
	if err := d.read(op, v[:]); err != nil {
		return uuid.Nil, err
	}
	return v, nil
}

func (d *decoder) str(op string) (string, error) {
	count, err := d.u16(op)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "", nil
	}
	units := make([]byte, int(count)*2)
	at := d.off
	if err := d.read(op, units); err != nil {
		return "", err
	}
	if i, ok := unpairedSurrogate(units); ok {
		return "", d.malformed(op, at+int64(i)*2, "unpaired UTF-16 surrogate %#04x",
			binary.LittleEndian.Uint16(units[i*2:]))
	}
	s, err := utf16le.NewDecoder().Bytes(units)
	if err != nil {
		return "", d.malformed(op, at, "invalid UTF-16 text: %v", err)
	}
	return string(s), nil
}

// unpairedSurrogate returns the index of the first code unit that is a high
// surrogate not followed by a low one, or a low surrogate on its own.
func unpairedSurrogate(units []byte) (int, bool) {
	n := len(units) / 2
	for i := 0; i < n; i++ {
		u := rune(binary.LittleEndian.Uint16(units[i*2:]))
		if !utf16.IsSurrogate(u) {
			continue
		}
		if u >= 0xDC00 || i+1 == n {
			return i, true
		}
		next := rune(binary.LittleEndian.Uint16(units[(i+1)*2:]))
		if next < 0xDC00 || next > 0xDFFF {
			return i, true
		}
		i++
	}
	return 0, false
}

func (d *decoder) version(op string) (CompilerVersion, error) {
	at := d.off
	v, err := d.u16(op)
	if err != nil {
		return 0, err
	}
	ver := CompilerVersion(v)
	if !ver.Supported() {
		return 0, &FormatError{Op: op, Offset: at, Err: fmt.Errorf("%w: file has %s, reader supports up to %s",
			ErrUnsupportedVersion, ver, CompilerVersionLatest)}
	}
	return ver, nil
}

func (d *decoder) metadata(op string) (ContentMetadata, error) {
	var m ContentMetadata
	var err error
	if m.id, err = d.id(op + " id"); err != nil {
		return m, err
	}
	if m.Name, err = d.str(op + " name"); err != nil {
		return m, err
	}
	if m.ObeyPhysics, err = d.bool(op + " obey physics"); err != nil {
		return m, err
	}
	if m.Visible, err = d.bool(op + " visible"); err != nil {
		return m, err
	}
	if m.LoaderID, err = d.u16(op + " loader"); err != nil {
		return m, err
	}
	if m.ResourceTypeID, err = d.u16(op + " resource type"); err != nil {
		return m, err
	}
	if m.Version, err = d.version(op + " version"); err != nil {
		return m, err
	}
	return m, nil
}
