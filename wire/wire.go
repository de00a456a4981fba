// Package wire frames a finished segment list for transport using the
// standard stream layout:
//
//	uint32   segment count - 1
//	uint32   size of each segment, in words
//	[uint32] padding to a word boundary
//	...      segment bytes, in id order
//
// All integers are little-endian.
package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

const wordBytes = 8

// MaxSegments bounds the segment table accepted by Read.
const MaxSegments = 512

var (
	ErrNoSegments        = errors.New("wire: no segments")
	ErrSegmentNotAligned = errors.New("wire: segment length is not word aligned")
	ErrTooManySegments   = errors.New("wire: too many segments")
	ErrMessageTooLarge   = errors.New("wire: message exceeds size limit")
)

// DefaultMaxMessageBytes bounds the body size accepted by Read.
const DefaultMaxMessageBytes = 64 << 20

func headerBytes(n int) int {
	h := 4 * (n + 1)
	return (h + wordBytes - 1) &^ (wordBytes - 1)
}

func header(segs [][]byte) ([]byte, error) {
	if len(segs) == 0 {
		return nil, ErrNoSegments
	}
	if len(segs) > MaxSegments {
		return nil, errors.Wrapf(ErrTooManySegments, "%d segments", len(segs))
	}
	h := make([]byte, headerBytes(len(segs)))
	binary.LittleEndian.PutUint32(h, uint32(len(segs)-1))
	for i, s := range segs {
		if len(s)%wordBytes != 0 {
			return nil, errors.Wrapf(ErrSegmentNotAligned, "segment %d has %d bytes", i, len(s))
		}
		binary.LittleEndian.PutUint32(h[4*(i+1):], uint32(len(s)/wordBytes))
	}
	return h, nil
}

// Write frames segs onto w.
func Write(w io.Writer, segs [][]byte) (int64, error) {
	h, err := header(segs)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(h)
	total := int64(n)
	if err != nil {
		return total, errors.Wrap(err, "writing segment table")
	}
	for i, s := range segs {
		n, err = w.Write(s)
		total += int64(n)
		if err != nil {
			return total, errors.Wrapf(err, "writing segment %d", i)
		}
	}
	return total, nil
}

// Marshal frames segs into a single buffer.
func Marshal(segs [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := Write(&buf, segs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read parses one framed message from r. Segments larger in total than
// DefaultMaxMessageBytes are rejected before their bytes are read.
func Read(r io.Reader) ([][]byte, error) {
	return ReadLimit(r, DefaultMaxMessageBytes)
}

// ReadLimit is Read with an explicit body size limit.
func ReadLimit(r io.Reader, maxBytes int) ([][]byte, error) {
	var first [4]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return nil, errors.Wrap(err, "reading segment count")
	}
	n := int(binary.LittleEndian.Uint32(first[:])) + 1
	if n > MaxSegments {
		return nil, errors.Wrapf(ErrTooManySegments, "%d segments", n)
	}
	rest := make([]byte, headerBytes(n)-4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, errors.Wrap(err, "reading segment table")
	}
	sizes := make([]int, n)
	total := 0
	for i := range sizes {
		sizes[i] = int(binary.LittleEndian.Uint32(rest[4*i:])) * wordBytes
		total += sizes[i]
		if total > maxBytes {
			return nil, errors.Wrapf(ErrMessageTooLarge, "more than %d bytes", maxBytes)
		}
	}
	body := make([]byte, total)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.Wrap(err, "reading segments")
	}
	segs := make([][]byte, n)
	off := 0
	for i, size := range sizes {
		segs[i] = body[off : off+size : off+size]
		off += size
	}
	return segs, nil
}

// Unmarshal parses a framed message held in b.
func Unmarshal(b []byte) ([][]byte, error) {
	return Read(bytes.NewReader(b))
}

// WriteCompressed frames segs onto w through a zstd stream.
func WriteCompressed(w io.Writer, segs [][]byte) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return errors.Wrap(err, "creating zstd writer")
	}
	if _, err := Write(enc, segs); err != nil {
		_ = enc.Close()
		return err
	}
	return errors.Wrap(enc.Close(), "closing zstd writer")
}

// ReadCompressed parses a message written by WriteCompressed.
func ReadCompressed(r io.Reader) ([][]byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "creating zstd reader")
	}
	defer dec.Close()
	return Read(dec)
}
