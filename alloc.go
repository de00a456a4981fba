package arena

import (
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/pavanmanishd/msgarena/layout"
)

// InitStruct allocates a zeroed struct body, extending bias when it has room.
func (a *Arena) InitStruct(size layout.StructBytes, bias *Segment) (*Orphan, error) {
	if err := size.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidArgument, err.Error())
	}
	object, err := a.Allocate(size.Total(), bias)
	if err != nil {
		return nil, err
	}
	return &Orphan{
		arena:  a,
		kind:   KindStruct,
		hi:     layout.StructHi(size),
		object: object,
		length: size.Total(),
	}, nil
}

// InitList allocates a zeroed list of length elements. Bit lists are packed
// eight elements per byte; composite lists get their tag word written
// immediately.
func (a *Arena) InitList(enc layout.ListEncoding, length int, bias *Segment) (*Orphan, error) {
	if err := enc.Validate(length); err != nil {
		return nil, errors.Wrap(ErrInvalidArgument, err.Error())
	}
	n := layout.ListBytes(length, enc)
	object, err := a.Allocate(n, bias)
	if err != nil {
		return nil, err
	}
	if enc.Size == layout.InlineComposite {
		layout.Put(object.Segment.raw, object.Position, layout.CompositeTag(length, enc.Struct))
	}
	return &Orphan{
		arena:  a,
		kind:   KindList,
		hi:     layout.ListHi(enc, length),
		object: object,
		length: n,
	}, nil
}

// InitText allocates a NUL-terminated byte list and copies s into it. s must
// be valid UTF-8.
func (a *Arena) InitText(s string, bias *Segment) (*Orphan, error) {
	if !utf8.ValidString(s) {
		return nil, errors.Wrap(ErrInvalidArgument, "text is not valid UTF-8")
	}
	length := len(s) + 1
	if length > layout.MaxListLength {
		return nil, errors.Wrapf(ErrInvalidArgument, "text of %d bytes too long", len(s))
	}
	object, err := a.Allocate(length, bias)
	if err != nil {
		return nil, err
	}
	copy(object.Segment.raw[object.Position:], s)
	return &Orphan{
		arena:  a,
		kind:   KindText,
		hi:     uint32(layout.Byte) | uint32(length)<<3,
		object: object,
		length: layout.WordAligned(length),
	}, nil
}

// InitData allocates a zeroed byte list of length bytes.
func (a *Arena) InitData(length int, bias *Segment) (*Orphan, error) {
	if length < 0 || length > layout.MaxListLength {
		return nil, errors.Wrapf(ErrInvalidArgument, "data length %d out of range", length)
	}
	object, err := a.Allocate(length, bias)
	if err != nil {
		return nil, err
	}
	return &Orphan{
		arena:  a,
		kind:   KindData,
		hi:     uint32(layout.Byte) | uint32(length)<<3,
		object: object,
		length: layout.WordAligned(length),
	}, nil
}
