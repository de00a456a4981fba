package arena

import (
	"github.com/pkg/errors"

	"github.com/pavanmanishd/msgarena/layout"
)

// rootSlot is the pointer word at offset 0 of segment 0.
func (a *Arena) rootSlot() Word {
	return Word{Segment: a.segments[0], Position: 0}
}

// InitRoot allocates a struct of the given size and makes it the root,
// replacing any previous root.
func (a *Arena) InitRoot(size layout.StructBytes) (StructValue, error) {
	return a.initStructAt(a.rootSlot(), size, 0)
}

// GetRoot returns the root struct; false if the root is absent.
func (a *Arena) GetRoot() (StructValue, bool, error) {
	return a.structAt(a.rootSlot(), 0)
}

// SetRoot points the root at v. The struct body is not copied.
func (a *Arena) SetRoot(v StructValue) error {
	if v.arena != a {
		return ErrForeignArena
	}
	return a.point(a.rootSlot(), ref{typ: layout.StructPointer, hi: layout.StructHi(v.size), object: v.object})
}

// DisownRoot detaches the root struct and leaves the root absent. An absent
// root yields a nil orphan. A root that is not a struct is reported as a kind
// mismatch and left in place, matching what AdoptRoot accepts.
func (a *Arena) DisownRoot() (*Orphan, error) {
	slot := a.rootSlot()
	r, ok, err := a.resolve(slot)
	if err != nil || !ok {
		return nil, err
	}
	if r.typ != layout.StructPointer {
		return nil, errors.Wrapf(ErrKindMismatch, "root holds a %s pointer", r.typ)
	}
	return a.disown(slot)
}

// AdoptRoot makes the struct held by o the root and consumes o.
func (a *Arena) AdoptRoot(o *Orphan) error {
	if o == nil {
		return errors.Wrap(ErrInvalidArgument, "nil orphan")
	}
	if o.arena != a {
		return ErrForeignArena
	}
	if o.kind != KindStruct {
		return errors.Wrapf(ErrKindMismatch, "root must be a struct, orphan holds %s", o.kind)
	}
	return o.Attach(a.rootSlot())
}
