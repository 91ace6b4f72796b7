package ssb

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveWidths(t *testing.T) {
	for _, c := range []struct {
		v     uint64
		width int
	}{
		{0, 1}, {63, 1}, {64, 2}, {1<<14 - 1, 2}, {1 << 14, 4}, {1<<30 - 1, 4}, {1 << 30, 8}, {maxAdaptive, 8},
	} {
		var buf bytes.Buffer
		require.NoError(t, WriteAdaptive(&buf, c.v))
		assert.Equal(t, c.width, buf.Len(), "width of %d", c.v)
		v, err := ReadAdaptive(&buf)
		require.NoError(t, err)
		assert.Equal(t, c.v, v)
	}
}

func TestAdaptiveTooLarge(t *testing.T) {
	assert.True(t, errors.Is(WriteAdaptive(io.Discard, 1<<62), ErrTooLarge))
}

func TestAdaptiveTruncated(t *testing.T) {
	_, err := ReadAdaptive(bytes.NewReader([]byte{0x02}))
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func writeBlock(t *testing.T, id string, version uint32, fn func(*Writer)) []byte {
	w := NewWriter(id, version)
	fn(w)
	var buf bytes.Buffer
	require.NoError(t, w.Finish(&buf))
	return buf.Bytes()
}

func TestReadWrite(t *testing.T) {
	data := writeBlock(t, "BLK", 7, func(w *Writer) {
		w.WriteItem("a", uint16(0xbeef))
		w.WriteItem("b", float32(1.5))
		w.WriteItem("c", []byte("hello"))
	})
	r, err := Read(bytes.NewReader(data), "BLK", 7)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), r.Version)
	assert.Equal(t, []string{"a", "b", "c"}, r.Tags())

	var a uint16
	var b float32
	var c []byte
	r.ReadItem("a", &a)
	r.ReadItem("b", &b)
	r.ReadItemFunc("c", func(src io.Reader) error {
		var err error
		c, err = io.ReadAll(src)
		return err
	})
	require.NoError(t, r.Err())
	assert.Equal(t, uint16(0xbeef), a)
	assert.Equal(t, float32(1.5), b)
	assert.Equal(t, []byte("hello"), c)
	raw, ok := r.Item("c")
	assert.True(t, ok)
	assert.Equal(t, []byte("hello"), raw)
}

func TestUnknownTagsSkipped(t *testing.T) {
	data := writeBlock(t, "BLK", 1, func(w *Writer) {
		w.WriteItem("future", bytes.Repeat([]byte{0xff}, 300))
		w.WriteItem("x", int16(-5))
	})
	// trailing data after the block must stay unread
	data = append(data, 'Z')
	src := bytes.NewReader(data)
	r, err := Read(src, "BLK", 1)
	require.NoError(t, err)
	var x int16
	r.ReadItem("x", &x)
	require.NoError(t, r.Err())
	assert.Equal(t, int16(-5), x)
	rest, _ := io.ReadAll(src)
	assert.Equal(t, []byte("Z"), rest)
}

func TestMissingTagKeepsValue(t *testing.T) {
	data := writeBlock(t, "BLK", 1, func(w *Writer) {})
	r, err := Read(bytes.NewReader(data), "BLK", 1)
	require.NoError(t, err)
	x := uint32(42)
	r.ReadItem("x", &x)
	assert.NoError(t, r.Err())
	assert.Equal(t, uint32(42), x)
	_, ok := r.Item("x")
	assert.False(t, ok)
}

func TestReadErrors(t *testing.T) {
	data := writeBlock(t, "BLK", 5, func(w *Writer) {
		w.WriteItem("a", uint32(1))
	})

	_, err := Read(bytes.NewReader(data), "BLX", 5)
	assert.True(t, errors.Is(err, ErrIDMismatch))
	_, err = Read(bytes.NewReader(data), "LONGER", 5)
	assert.True(t, errors.Is(err, ErrIDMismatch))
	_, err = Read(bytes.NewReader(data), "BLK", 4)
	assert.True(t, errors.Is(err, ErrVersion))
	_, err = Read(bytes.NewReader(data[:len(data)-1]), "BLK", 5)
	assert.True(t, errors.Is(err, ErrCorrupt))
	_, err = Read(bytes.NewReader(nil), "BLK", 5)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestShortPayload(t *testing.T) {
	data := writeBlock(t, "BLK", 1, func(w *Writer) {
		w.WriteItem("a", uint16(1))
	})
	r, err := Read(bytes.NewReader(data), "BLK", 1)
	require.NoError(t, err)
	var v uint32
	r.ReadItem("a", &v)
	assert.True(t, errors.Is(r.Err(), ErrCorrupt))
}

func TestWriterErrors(t *testing.T) {
	w := NewWriter("BLK", 1)
	w.WriteItem("a", uint8(1))
	w.WriteItem("a", uint8(2))
	assert.True(t, errors.Is(w.Finish(io.Discard), ErrDuplicateTag))

	w = NewWriter("BLK", 1)
	w.WriteItemFunc("big", func(dst io.Writer) error {
		_, err := dst.Write(make([]byte, MaxItemSize+1))
		return err
	})
	assert.True(t, errors.Is(w.Finish(io.Discard), ErrTooLarge))
}

func TestDuplicateTagRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(3)
	buf.WriteString("BLK")
	buf.Write([]byte{1, 0, 0, 0})
	WriteAdaptive(&buf, 2)
	for i := 0; i < 2; i++ {
		buf.WriteByte(1)
		buf.WriteString("a")
		WriteAdaptive(&buf, 1)
		buf.WriteByte(9)
	}
	_, err := Read(&buf, "BLK", 1)
	assert.True(t, errors.Is(err, ErrDuplicateTag))
}
