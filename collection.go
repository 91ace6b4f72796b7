package tuning

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jangler/tuning/ssb"
	"github.com/pkg/errors"
)

const (
	// MaxCollectionSize is the most tunings a Collection holds.
	MaxCollectionSize = 255

	collectionID      = "TC"
	collectionVersion = 3
)

// Collection is a named list of shared tunings.
type Collection struct {
	Name    string
	handles []*Handle
}

// NewCollection returns an empty collection.
func NewCollection(name string) *Collection {
	return &Collection{Name: name}
}

// Len returns the number of tunings in c.
func (c *Collection) Len() int {
	return len(c.handles)
}

// Handles returns the tunings of c in order.
func (c *Collection) Handles() []*Handle {
	return append([]*Handle(nil), c.handles...)
}

// Add appends a handle to c, which takes over that reference.
func (c *Collection) Add(h *Handle) error {
	if len(c.handles) >= MaxCollectionSize {
		return errors.Wrapf(ErrCollectionFull, "collection %q", c.Name)
	}
	c.handles = append(c.handles, h)
	return nil
}

// Find returns the first tuning named name, or nil.
func (c *Collection) Find(name string) *Handle {
	for _, h := range c.handles {
		if h.Tuning().Name() == name {
			return h
		}
	}
	return nil
}

// Remove releases and removes the first tuning named name, returning false if
// there was none.
func (c *Collection) Remove(name string) bool {
	for i, h := range c.handles {
		if h.Tuning().Name() == name {
			c.handles = append(c.handles[:i], c.handles[i+1:]...)
			h.Release()
			return true
		}
	}
	return false
}

// Serialize writes c as a block holding each tuning as a nested block.
func (c *Collection) Serialize(w io.Writer) error {
	sw := ssb.NewWriter(collectionID, collectionVersion)
	sw.WriteItemFunc("0", func(dst io.Writer) error {
		return writeString(dst, c.Name)
	})
	sw.WriteItem("1", uint16(len(c.handles)))
	for i, h := range c.handles {
		t := h.Tuning()
		sw.WriteItemFunc(fmt.Sprintf("T%d", i), t.Serialize)
	}
	return errors.Wrapf(sw.Finish(w), "serialize collection %q", c.Name)
}

// ReadCollection reads a collection written by Serialize. Tunings that fail to
// decode are skipped and reported through warn.
func ReadCollection(r io.Reader, warn func(string)) (*Collection, error) {
	sr, err := ssb.Read(r, collectionID, collectionVersion)
	if err != nil {
		return nil, blockError(err)
	}
	if warn == nil {
		warn = func(string) {}
	}
	c := &Collection{}
	var count uint16
	sr.ReadItemFunc("0", func(src io.Reader) (err error) {
		c.Name, err = readString(src)
		return err
	})
	sr.ReadItem("1", &count)
	if err := sr.Err(); err != nil {
		return nil, blockError(err)
	}
	if count > MaxCollectionSize {
		warn(fmt.Sprintf("collection lists %d tunings, reading %d", count, MaxCollectionSize))
		count = MaxCollectionSize
	}
	for i := 0; i < int(count); i++ {
		tag := fmt.Sprintf("T%d", i)
		data, ok := sr.Item(tag)
		if !ok {
			warn(fmt.Sprintf("tuning %d missing", i))
			continue
		}
		t, err := Deserialize(bytes.NewReader(data))
		if err != nil {
			warn(fmt.Sprintf("tuning %d: %v", i, err))
			continue
		}
		c.handles = append(c.handles, NewHandle(t))
	}
	return c, nil
}
