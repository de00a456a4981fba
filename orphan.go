package arena

import (
	"github.com/pkg/errors"

	"github.com/pavanmanishd/msgarena/layout"
)

// Kind classifies the object an orphan holds.
type Kind uint8

const (
	KindStruct Kind = iota
	KindList
	KindText
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindList:
		return "list"
	case KindText:
		return "text"
	case KindData:
		return "data"
	}
	return "unknown"
}

func (k Kind) pointerType() layout.PointerType {
	if k == KindStruct {
		return layout.StructPointer
	}
	return layout.ListPointer
}

// Orphan is an object whose storage exists but which nothing points at yet.
// Attach consumes it; afterwards the handle can no longer be attached.
type Orphan struct {
	arena    *Arena
	kind     Kind
	hi       uint32 // size header stamped into the pointer
	object   Word
	length   int // bytes of the object body
	consumed bool
}

// Kind reports what the orphan holds.
func (o *Orphan) Kind() Kind { return o.kind }

// Object returns the location of the object body.
func (o *Orphan) Object() Word { return o.object }

// Hi returns the size header that Attach stamps into the pointer.
func (o *Orphan) Hi() uint32 { return o.hi }

// Consumed reports whether the orphan has been attached.
func (o *Orphan) Consumed() bool { return o.consumed }

// Bytes returns the object body. For composite lists it includes the tag word.
func (o *Orphan) Bytes() []byte {
	return o.object.Segment.raw[o.object.Position : o.object.Position+o.length]
}

// Struct views a struct orphan so its fields can be filled before attachment.
func (o *Orphan) Struct() (StructValue, error) {
	if o.kind != KindStruct {
		return StructValue{}, errors.Wrapf(ErrKindMismatch, "orphan holds %s", o.kind)
	}
	return StructValue{arena: o.arena, object: o.object, size: layout.StructFromHi(o.hi)}, nil
}

// Text returns the string held by a text orphan, without its NUL terminator.
// A disowned byte list qualifies when its last byte is NUL, since text and
// byte lists share one pointer encoding.
func (o *Orphan) Text() (string, error) {
	switch {
	case o.kind == KindText:
	case o.kind == KindList && layout.ElementSize(o.hi&7) == layout.Byte:
		n := int(o.hi >> 3)
		if n == 0 || o.object.Segment.raw[o.object.Position+n-1] != 0 {
			return "", errors.Wrap(ErrKindMismatch, "byte list is not NUL-terminated")
		}
	default:
		return "", errors.Wrapf(ErrKindMismatch, "orphan holds %s", o.kind)
	}
	n := int(o.hi>>3) - 1
	return string(o.object.Segment.raw[o.object.Position : o.object.Position+n]), nil
}

// Attach stores a pointer to the orphan in slot, transferring ownership of the
// object to whatever owns the slot.
func (o *Orphan) Attach(slot Word) error {
	if o == nil {
		return errors.Wrap(ErrInvalidArgument, "nil orphan")
	}
	if o.consumed {
		return ErrOrphanConsumed
	}
	if err := o.arena.point(slot, ref{typ: o.kind.pointerType(), hi: o.hi, object: o.object}); err != nil {
		return err
	}
	o.consumed = true
	return nil
}
