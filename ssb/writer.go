package ssb

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

type item struct {
	tag  string
	data []byte
}

// Writer collects the items of one block and writes the block on Finish.
// Errors are sticky: after the first failure later calls do nothing and
// Finish returns that error.
type Writer struct {
	id      string
	version uint32
	items   []item
	tags    map[string]bool
	err     error
}

// NewWriter starts a block with the given id and version.
func NewWriter(id string, version uint32) *Writer {
	return &Writer{id: id, version: version, tags: make(map[string]bool)}
}

// WriteItem stores a fixed-size value or a slice of them (as accepted by
// binary.Write) under tag.
func (w *Writer) WriteItem(tag string, v any) {
	w.WriteItemFunc(tag, func(dst io.Writer) error {
		return binary.Write(dst, binary.LittleEndian, v)
	})
}

// WriteItemFunc stores whatever fn writes under tag.
func (w *Writer) WriteItemFunc(tag string, fn func(io.Writer) error) {
	if w.err != nil {
		return
	}
	if len(tag) == 0 || len(tag) > 0xff {
		w.err = errors.Errorf("ssb: invalid tag %q", tag)
		return
	}
	if w.tags[tag] {
		w.err = errors.Wrapf(ErrDuplicateTag, "tag %q", tag)
		return
	}
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		w.err = errors.Wrapf(err, "ssb: write item %q", tag)
		return
	}
	if buf.Len() > MaxItemSize {
		w.err = errors.Wrapf(ErrTooLarge, "item %q is %d bytes", tag, buf.Len())
		return
	}
	w.tags[tag] = true
	w.items = append(w.items, item{tag: tag, data: buf.Bytes()})
}

// Finish writes the complete block to dst.
func (w *Writer) Finish(dst io.Writer) error {
	if w.err != nil {
		return w.err
	}
	if len(w.id) > 0xff {
		return errors.Errorf("ssb: block id %q too long", w.id)
	}
	if len(w.items) > MaxItems {
		return errors.Wrapf(ErrTooLarge, "%d items", len(w.items))
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(len(w.id)))
	buf.WriteString(w.id)
	binary.Write(&buf, binary.LittleEndian, w.version)
	WriteAdaptive(&buf, uint64(len(w.items)))
	for _, it := range w.items {
		buf.WriteByte(byte(len(it.tag)))
		buf.WriteString(it.tag)
		WriteAdaptive(&buf, uint64(len(it.data)))
		buf.Write(it.data)
	}
	_, err := buf.WriteTo(dst)
	return err
}
