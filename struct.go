package arena

import (
	"github.com/pkg/errors"

	"github.com/pavanmanishd/msgarena/layout"
)

// StructValue is a live handle to a struct body inside an arena.
type StructValue struct {
	arena  *Arena
	object Word
	size   layout.StructBytes
	level  int // pointers between the root and this struct
}

// Object returns the location of the struct body.
func (v StructValue) Object() Word { return v.object }

// Size returns the data and pointer section sizes.
func (v StructValue) Size() layout.StructBytes { return v.size }

// Data returns the data section.
func (v StructValue) Data() []byte {
	p := v.object.Position
	return v.object.Segment.raw[p : p+v.size.Data]
}

// PointerSlot addresses pointer field i.
func (v StructValue) PointerSlot(i int) (Word, error) {
	if i < 0 || i >= v.size.Pointers/layout.WordBytes {
		return Word{}, errors.Wrapf(ErrOutOfBounds, "pointer field %d of %d", i, v.size.Pointers/layout.WordBytes)
	}
	return Word{
		Segment:  v.object.Segment,
		Position: v.object.Position + v.size.Data + i*layout.WordBytes,
	}, nil
}

// InitStruct allocates a struct for pointer field i, overwriting the field.
func (v StructValue) InitStruct(i int, size layout.StructBytes) (StructValue, error) {
	slot, err := v.PointerSlot(i)
	if err != nil {
		return StructValue{}, err
	}
	return v.arena.initStructAt(slot, size, v.level+1)
}

// Struct returns the struct referenced by pointer field i; false if the field
// is null.
func (v StructValue) Struct(i int) (StructValue, bool, error) {
	slot, err := v.PointerSlot(i)
	if err != nil {
		return StructValue{}, false, err
	}
	return v.arena.structAt(slot, v.level+1)
}

// Adopt attaches o to pointer field i.
func (v StructValue) Adopt(i int, o *Orphan) error {
	slot, err := v.PointerSlot(i)
	if err != nil {
		return err
	}
	if o != nil && o.arena != v.arena {
		return ErrForeignArena
	}
	return o.Attach(slot)
}

// Disown detaches the object referenced by pointer field i and nulls the
// field. A null field yields a nil orphan.
func (v StructValue) Disown(i int) (*Orphan, error) {
	slot, err := v.PointerSlot(i)
	if err != nil {
		return nil, err
	}
	return v.arena.disown(slot)
}

// initStructAt allocates a struct reachable from slot, through the
// preallocated landing pad if it spilled into another segment.
func (a *Arena) initStructAt(slot Word, size layout.StructBytes, lvl int) (StructValue, error) {
	if err := size.Validate(); err != nil {
		return StructValue{}, errors.Wrap(ErrInvalidArgument, err.Error())
	}
	if _, err := a.slotBytes(slot); err != nil {
		return StructValue{}, err
	}
	if err := a.limiter.Level(lvl); err != nil {
		a.metrics.rejected("level")
		return StructValue{}, err
	}
	object, err := a.Preallocate(size.Total(), slot.Segment)
	if err != nil {
		return StructValue{}, err
	}
	a.pointInPlace(slot, ref{typ: layout.StructPointer, hi: layout.StructHi(size), object: object})
	return StructValue{arena: a, object: object, size: size, level: lvl}, nil
}

// structAt resolves slot into a struct handle.
func (a *Arena) structAt(slot Word, lvl int) (StructValue, bool, error) {
	r, ok, err := a.resolve(slot)
	if err != nil || !ok {
		return StructValue{}, false, err
	}
	if r.typ != layout.StructPointer {
		return StructValue{}, false, errors.Wrapf(ErrKindMismatch, "%s pointer where a struct was expected", r.typ)
	}
	size := layout.StructFromHi(r.hi)
	if r.object.Position+size.Total() > r.object.Segment.end {
		return StructValue{}, false, errors.Wrap(ErrInvalidPointer, "struct extends past its segment")
	}
	return StructValue{arena: a, object: r.object, size: size, level: lvl}, true, nil
}
