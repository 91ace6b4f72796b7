// Package ssb reads and writes sparse, versioned blocks of tagged items.
//
// A block is laid out as
//
//	uint8 len(id), id
//	uint32 version
//	adaptive item count
//	items: uint8 len(tag), tag, adaptive len(payload), payload
//
// with all integers little-endian. Items may appear in any order, and readers
// skip tags they do not ask for, so newer writers can add items without
// breaking older readers.
package ssb

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	// MaxItems and MaxItemSize bound what a reader will allocate for a block.
	MaxItems    = 4096
	MaxItemSize = 1 << 20

	maxAdaptive = 1<<62 - 1
)

var (
	ErrIDMismatch   = errors.New("ssb: block id mismatch")
	ErrVersion      = errors.New("ssb: block version too new")
	ErrCorrupt      = errors.New("ssb: corrupt block")
	ErrTooLarge     = errors.New("ssb: value too large")
	ErrDuplicateTag = errors.New("ssb: duplicate item tag")
)

// WriteAdaptive writes v using 1, 2, 4 or 8 bytes. The two lowest bits of the
// first byte hold the width code.
func WriteAdaptive(w io.Writer, v uint64) error {
	var b [8]byte
	var n int
	switch {
	case v < 1<<6:
		b[0], n = byte(v<<2), 1
	case v < 1<<14:
		binary.LittleEndian.PutUint16(b[:], uint16(v<<2|1))
		n = 2
	case v < 1<<30:
		binary.LittleEndian.PutUint32(b[:], uint32(v<<2|2))
		n = 4
	case v <= maxAdaptive:
		binary.LittleEndian.PutUint64(b[:], v<<2|3)
		n = 8
	default:
		return errors.Wrapf(ErrTooLarge, "adaptive integer %d", v)
	}
	_, err := w.Write(b[:n])
	return err
}

// ReadAdaptive reads an integer written by WriteAdaptive.
func ReadAdaptive(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:1]); err != nil {
		return 0, err
	}
	n := 1 << (b[0] & 3)
	if n > 1 {
		if _, err := io.ReadFull(r, b[1:n]); err != nil {
			return 0, unexpected(err)
		}
	}
	return binary.LittleEndian.Uint64(b[:]) >> 2, nil
}

// a clean EOF inside a value is still a truncated value
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
