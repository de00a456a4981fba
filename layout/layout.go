// Package layout encodes the fixed-width words of the segmented message
// format: word alignment, struct and list sizing, list headers and pointer
// tags (direct, far and double-far).
//
// All multi-byte values are little-endian. A pointer word is split into a
// low half carrying the tag and offset and a high half carrying either a
// size header (struct and list pointers) or a segment id (far pointers).
package layout

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// WordBytes is the addressing quantum of the format.
const WordBytes = 8

// MaxListLength is the largest element count a list pointer can carry.
const MaxListLength = 1<<29 - 1

// maxSectionWords bounds each half of a struct size header.
const maxSectionWords = math.MaxUint16

var ErrInvalidSize = errors.New("layout: invalid size")

// WordAligned rounds n up to a multiple of WordBytes.
func WordAligned(n int) int {
	return (n + WordBytes - 1) &^ (WordBytes - 1)
}

// StructBytes is the compiled size of a struct: data and pointer sections in
// bytes. Both sections are whole words.
type StructBytes struct {
	Data     int
	Pointers int
}

// Validate reports whether b can be encoded in a struct size header.
func (b StructBytes) Validate() error {
	if b.Data < 0 || b.Pointers < 0 {
		return errors.Wrapf(ErrInvalidSize, "negative struct section (data %d, pointers %d)", b.Data, b.Pointers)
	}
	if b.Data%WordBytes != 0 || b.Pointers%WordBytes != 0 {
		return errors.Wrapf(ErrInvalidSize, "struct sections must be word aligned (data %d, pointers %d)", b.Data, b.Pointers)
	}
	if b.Data/WordBytes > maxSectionWords || b.Pointers/WordBytes > maxSectionWords {
		return errors.Wrapf(ErrInvalidSize, "struct section too large (data %d, pointers %d)", b.Data, b.Pointers)
	}
	return nil
}

// Total is the byte length of the struct body.
func (b StructBytes) Total() int {
	return WordAligned(b.Data + b.Pointers)
}

// StructHi is the size header stored in the high half of a struct pointer.
func StructHi(b StructBytes) uint32 {
	return uint32(b.Data/WordBytes) | uint32(b.Pointers/WordBytes)<<16
}

// StructFromHi is the inverse of StructHi.
func StructFromHi(hi uint32) StructBytes {
	return StructBytes{
		Data:     int(hi&0xffff) * WordBytes,
		Pointers: int(hi>>16) * WordBytes,
	}
}

// ElementSize is the 3-bit element width code of a list pointer.
type ElementSize uint8

const (
	Void ElementSize = iota
	Bit
	Byte
	TwoBytes
	FourBytes
	EightBytes
	Pointer
	InlineComposite
)

func (s ElementSize) String() string {
	switch s {
	case Void:
		return "void"
	case Bit:
		return "bit"
	case Byte:
		return "byte"
	case TwoBytes:
		return "two-bytes"
	case FourBytes:
		return "four-bytes"
	case EightBytes:
		return "eight-bytes"
	case Pointer:
		return "pointer"
	case InlineComposite:
		return "inline-composite"
	}
	return "unknown"
}

// bits is the element width of every size except InlineComposite.
func (s ElementSize) bits() int {
	switch s {
	case Bit:
		return 1
	case Byte:
		return 8
	case TwoBytes:
		return 16
	case FourBytes:
		return 32
	case EightBytes, Pointer:
		return 64
	}
	return 0
}

// ListEncoding describes list elements. Struct is only consulted for
// InlineComposite lists.
type ListEncoding struct {
	Size   ElementSize
	Struct StructBytes
}

// Validate reports whether a list of length elements can be encoded.
func (e ListEncoding) Validate(length int) error {
	if e.Size > InlineComposite {
		return errors.Wrapf(ErrInvalidSize, "unknown element size %d", e.Size)
	}
	if length < 0 || length > MaxListLength {
		return errors.Wrapf(ErrInvalidSize, "list length %d out of range", length)
	}
	if e.Size != InlineComposite {
		return nil
	}
	if err := e.Struct.Validate(); err != nil {
		return err
	}
	if words := length * e.Struct.Total() / WordBytes; words > MaxListLength {
		return errors.Wrapf(ErrInvalidSize, "composite list body of %d words too large", words)
	}
	return nil
}

// ListBytes is the word-aligned byte length of a list body, including the tag
// word of an InlineComposite list.
func ListBytes(length int, e ListEncoding) int {
	if e.Size == InlineComposite {
		return WordBytes + length*e.Struct.Total()
	}
	return WordAligned((length*e.Size.bits() + 7) / 8)
}

// ListHi is the header stored in the high half of a list pointer. Composite
// lists record their body length in words, excluding the tag.
func ListHi(e ListEncoding, length int) uint32 {
	if e.Size == InlineComposite {
		words := length * e.Struct.Total() / WordBytes
		return uint32(InlineComposite) | uint32(words)<<3
	}
	return uint32(e.Size) | uint32(length)<<3
}

// ListBytesFromHi recovers the body length of a list from its pointer header.
func ListBytesFromHi(hi uint32) int {
	size := ElementSize(hi & 7)
	count := int(hi >> 3)
	if size == InlineComposite {
		return WordBytes + count*WordBytes
	}
	return WordAligned((count*size.bits() + 7) / 8)
}

// CompositeTag is the word preceding the elements of an InlineComposite list:
// a struct-shaped word whose offset field carries the element count.
func CompositeTag(length int, elem StructBytes) uint64 {
	return Direct(StructPointer, length, StructHi(elem))
}

// PointerType is the 2-bit tag in the low bits of every pointer word.
type PointerType uint8

const (
	StructPointer PointerType = iota
	ListPointer
	FarPointer
	OtherPointer
)

func (t PointerType) String() string {
	switch t {
	case StructPointer:
		return "struct"
	case ListPointer:
		return "list"
	case FarPointer:
		return "far"
	}
	return "other"
}

// Direct encodes a same-segment pointer. offset is measured in words from the
// end of the pointer word to the start of the object.
func Direct(t PointerType, offset int, hi uint32) uint64 {
	lo := uint32(int32(offset))<<2 | uint32(t)
	return uint64(lo) | uint64(hi)<<32
}

// Far encodes a far pointer to the landing pad at word padWords of segment.
func Far(double bool, padWords, segment int) uint64 {
	lo := uint32(padWords)<<3 | uint32(FarPointer)
	if double {
		lo |= 4
	}
	return uint64(lo) | uint64(uint32(segment))<<32
}

// Ptr is a decoded pointer word.
type Ptr struct {
	Type PointerType
	// Offset is a signed word offset for direct pointers and the landing pad
	// word index for far pointers.
	Offset  int
	Hi      uint32
	Double  bool
	Segment int
}

// Decode splits a pointer word into its fields.
func Decode(w uint64) Ptr {
	lo := uint32(w)
	hi := uint32(w >> 32)
	t := PointerType(lo & 3)
	if t == FarPointer {
		return Ptr{
			Type:    t,
			Offset:  int(lo >> 3),
			Double:  lo&4 != 0,
			Segment: int(hi),
		}
	}
	return Ptr{
		Type:   t,
		Offset: int(int32(lo) >> 2),
		Hi:     hi,
	}
}

// Get reads the word at byte offset pos of raw.
func Get(raw []byte, pos int) uint64 {
	return binary.LittleEndian.Uint64(raw[pos : pos+WordBytes])
}

// Put writes w at byte offset pos of raw.
func Put(raw []byte, pos int, w uint64) {
	binary.LittleEndian.PutUint64(raw[pos:pos+WordBytes], w)
}
