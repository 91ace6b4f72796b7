package ssb

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Reader holds the items of a block read by Read. Like Writer, it keeps the
// first error encountered by ReadItem or ReadItemFunc.
type Reader struct {
	Version uint32

	tags  []string
	items map[string][]byte
	err   error
}

// Read reads one complete block with the given id from r. Blocks with a
// version above maxVersion are rejected with ErrVersion.
func Read(r io.Reader, id string, maxVersion uint32) (*Reader, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	if int(n[0]) != len(id) {
		return nil, errors.Wrapf(ErrIDMismatch, "want %q", id)
	}
	got := make([]byte, len(id))
	if _, err := io.ReadFull(r, got); err != nil {
		return nil, errors.Wrap(ErrCorrupt, unexpected(err).Error())
	}
	if string(got) != id {
		return nil, errors.Wrapf(ErrIDMismatch, "want %q, got %q", id, got)
	}
	rd := &Reader{items: make(map[string][]byte)}
	if err := binary.Read(r, binary.LittleEndian, &rd.Version); err != nil {
		return nil, errors.Wrap(ErrCorrupt, unexpected(err).Error())
	}
	if rd.Version > maxVersion {
		return nil, errors.Wrapf(ErrVersion, "%q version %#x, accepted up to %#x", id, rd.Version, maxVersion)
	}
	count, err := ReadAdaptive(r)
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, unexpected(err).Error())
	}
	if count > MaxItems {
		return nil, errors.Wrapf(ErrTooLarge, "%d items", count)
	}
	for i := uint64(0); i < count; i++ {
		tag, data, err := readItem(r)
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}
		if _, ok := rd.items[tag]; ok {
			return nil, errors.Wrapf(ErrDuplicateTag, "tag %q", tag)
		}
		rd.tags = append(rd.tags, tag)
		rd.items[tag] = data
	}
	return rd, nil
}

func readItem(r io.Reader) (string, []byte, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", nil, errors.Wrap(ErrCorrupt, unexpected(err).Error())
	}
	tag := make([]byte, n[0])
	if _, err := io.ReadFull(r, tag); err != nil {
		return "", nil, errors.Wrap(ErrCorrupt, unexpected(err).Error())
	}
	size, err := ReadAdaptive(r)
	if err != nil {
		return "", nil, errors.Wrap(ErrCorrupt, unexpected(err).Error())
	}
	if size > MaxItemSize {
		return "", nil, errors.Wrapf(ErrTooLarge, "item %q is %d bytes", tag, size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", nil, errors.Wrap(ErrCorrupt, unexpected(err).Error())
	}
	return string(tag), data, nil
}

// Tags returns the item tags in the order they were stored.
func (r *Reader) Tags() []string {
	return append([]string(nil), r.tags...)
}

// Item returns the raw payload stored under tag.
func (r *Reader) Item(tag string) ([]byte, bool) {
	data, ok := r.items[tag]
	return data, ok
}

// ReadItem decodes the fixed-size value stored under tag into dst (a pointer
// as accepted by binary.Read). Missing tags leave dst untouched.
func (r *Reader) ReadItem(tag string, dst any) {
	r.ReadItemFunc(tag, func(src io.Reader) error {
		return binary.Read(src, binary.LittleEndian, dst)
	})
}

// ReadItemFunc calls fn with the payload of tag, if present.
func (r *Reader) ReadItemFunc(tag string, fn func(io.Reader) error) {
	if r.err != nil {
		return
	}
	data, ok := r.items[tag]
	if !ok {
		return
	}
	if err := fn(bytes.NewReader(data)); err != nil {
		r.err = errors.Wrapf(ErrCorrupt, "item %q: %v", tag, unexpected(err))
	}
}

// Err returns the first error from ReadItem or ReadItemFunc.
func (r *Reader) Err() error {
	return r.err
}
