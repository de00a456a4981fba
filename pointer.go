package arena

import (
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/pavanmanishd/msgarena/layout"
)

// ref is a resolved pointer: what the slot points at, past any landing pads.
type ref struct {
	typ    layout.PointerType
	hi     uint32
	object Word
}

// slotBytes returns the pointer word at slot, which must lie in allocated
// bytes of a segment owned by a.
func (a *Arena) slotBytes(slot Word) ([]byte, error) {
	if !a.owns(slot.Segment) {
		return nil, ErrForeignArena
	}
	if slot.Position%layout.WordBytes != 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "pointer slot at unaligned offset %d", slot.Position)
	}
	return span(slot, layout.WordBytes)
}

func putDirect(slot Word, r ref) {
	offset := (r.object.Position - slot.Position - layout.WordBytes) / layout.WordBytes
	if r.typ == layout.StructPointer && r.hi == 0 {
		// A zero-sized struct would otherwise encode as the null word.
		offset = -1
	}
	layout.Put(slot.Segment.raw, slot.Position, layout.Direct(r.typ, offset, r.hi))
}

// point stores a pointer to r.object in slot. Objects in another segment are
// reached through a landing pad: a single-far pad in the object's own segment
// when it has a spare word, otherwise a double-far pad pair anywhere.
func (a *Arena) point(slot Word, r ref) error {
	if _, err := a.slotBytes(slot); err != nil {
		return err
	}
	if r.object.Segment == slot.Segment {
		putDirect(slot, r)
		return nil
	}

	pad, ok, err := a.tryExtend(r.object.Segment, layout.WordBytes)
	if err != nil {
		return err
	}
	if ok {
		putDirect(pad, r)
		layout.Put(slot.Segment.raw, slot.Position,
			layout.Far(false, pad.Position/layout.WordBytes, pad.Segment.id))
		a.metrics.landingPad("single")
		return nil
	}

	if err := a.charge(2 * layout.WordBytes); err != nil {
		return err
	}
	pads := a.malloc(2 * layout.WordBytes)
	layout.Put(pads.Segment.raw, pads.Position,
		layout.Far(false, r.object.Position/layout.WordBytes, r.object.Segment.id))
	layout.Put(pads.Segment.raw, pads.Position+layout.WordBytes, layout.Direct(r.typ, 0, r.hi))
	layout.Put(slot.Segment.raw, slot.Position,
		layout.Far(true, pads.Position/layout.WordBytes, pads.Segment.id))
	a.metrics.landingPad("double")
	level.Debug(a.logger).Log("msg", "wrote double-far pointer", "slot_segment", slot.Segment.id,
		"object_segment", r.object.Segment.id, "pad_segment", pads.Segment.id)
	return nil
}

// pointInPlace stores a pointer to an object obtained from Preallocate(…,
// slot.Segment): either in the slot's segment or directly after its own
// landing pad.
func (a *Arena) pointInPlace(slot Word, r ref) {
	if r.object.Segment == slot.Segment {
		putDirect(slot, r)
		return
	}
	pad := Word{Segment: r.object.Segment, Position: r.object.Position - layout.WordBytes}
	putDirect(pad, r)
	layout.Put(slot.Segment.raw, slot.Position,
		layout.Far(false, pad.Position/layout.WordBytes, pad.Segment.id))
}

// objectAt checks that a pointer target lies inside its segment.
func (a *Arena) objectAt(seg *Segment, pos int) (Word, error) {
	if seg == nil || pos < 0 || pos > seg.end {
		return Word{}, errors.Wrapf(ErrInvalidPointer, "target offset %d out of range", pos)
	}
	return Word{Segment: seg, Position: pos}, nil
}

func (a *Arena) padWord(seg *Segment, words int) (uint64, error) {
	b, err := span(Word{Segment: seg, Position: words * layout.WordBytes}, layout.WordBytes)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidPointer, err.Error())
	}
	return layout.Get(b, 0), nil
}

// resolve follows the pointer in slot through any landing pads. It reports
// false for the null word.
func (a *Arena) resolve(slot Word) (ref, bool, error) {
	b, err := a.slotBytes(slot)
	if err != nil {
		return ref{}, false, err
	}
	w := layout.Get(b, 0)
	if w == 0 {
		return ref{}, false, nil
	}

	p := layout.Decode(w)
	switch p.Type {
	case layout.StructPointer, layout.ListPointer:
		obj, err := a.objectAt(slot.Segment, slot.Position+layout.WordBytes+p.Offset*layout.WordBytes)
		if err != nil {
			return ref{}, false, err
		}
		return ref{typ: p.Type, hi: p.Hi, object: obj}, true, nil

	case layout.FarPointer:
		seg := a.Segment(p.Segment)
		if seg == nil {
			return ref{}, false, errors.Wrapf(ErrInvalidPointer, "far pointer to missing segment %d", p.Segment)
		}
		pad, err := a.padWord(seg, p.Offset)
		if err != nil {
			return ref{}, false, err
		}
		if !p.Double {
			inner := layout.Decode(pad)
			if inner.Type != layout.StructPointer && inner.Type != layout.ListPointer {
				return ref{}, false, errors.Wrapf(ErrInvalidPointer, "landing pad holds a %s pointer", inner.Type)
			}
			obj, err := a.objectAt(seg, (p.Offset+1+inner.Offset)*layout.WordBytes)
			if err != nil {
				return ref{}, false, err
			}
			return ref{typ: inner.Type, hi: inner.Hi, object: obj}, true, nil
		}

		tagWord, err := a.padWord(seg, p.Offset+1)
		if err != nil {
			return ref{}, false, err
		}
		far, tag := layout.Decode(pad), layout.Decode(tagWord)
		if far.Type != layout.FarPointer || far.Double {
			return ref{}, false, errors.Wrap(ErrInvalidPointer, "double-far pad does not start with a single far pointer")
		}
		if tag.Type != layout.StructPointer && tag.Type != layout.ListPointer {
			return ref{}, false, errors.Wrapf(ErrInvalidPointer, "double-far tag holds a %s pointer", tag.Type)
		}
		obj, err := a.objectAt(a.Segment(far.Segment), far.Offset*layout.WordBytes)
		if err != nil {
			return ref{}, false, err
		}
		return ref{typ: tag.Type, hi: tag.Hi, object: obj}, true, nil
	}
	return ref{}, false, errors.Wrap(ErrInvalidPointer, "capability pointers are not supported")
}

// disown detaches whatever slot references and clears the slot. The slot is
// left untouched when the pointer is malformed.
func (a *Arena) disown(slot Word) (*Orphan, error) {
	r, ok, err := a.resolve(slot)
	if err != nil || !ok {
		return nil, err
	}
	o := &Orphan{arena: a, hi: r.hi, object: r.object}
	switch r.typ {
	case layout.StructPointer:
		o.kind = KindStruct
		o.length = layout.StructFromHi(r.hi).Total()
	default:
		o.kind = KindList
		o.length = layout.ListBytesFromHi(r.hi)
	}
	if room := r.object.Segment.end - r.object.Position; o.length > room {
		return nil, errors.Wrapf(ErrInvalidPointer, "%s of %d bytes at offset %d overruns segment %d with %d allocated",
			o.kind, o.length, r.object.Position, r.object.Segment.id, r.object.Segment.end)
	}
	layout.Put(slot.Segment.raw, slot.Position, 0)
	level.Debug(a.logger).Log("msg", "disowned pointer", "segment", slot.Segment.id, "offset", slot.Position, "kind", o.kind)
	return o, nil
}
