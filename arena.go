// Package arena implements the write side of a segmented, zero-copy message
// format: a bump allocator over fixed-capacity segments that keeps every
// object word aligned, tracks the root pointer and produces orphans.
package arena

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pavanmanishd/msgarena/layout"
	"github.com/pavanmanishd/msgarena/limit"
)

// rootBytes is reserved at the start of segment 0 for the root pointer.
const rootBytes = layout.WordBytes

// Segment is a fixed-capacity byte buffer with an append-only cursor.
type Segment struct {
	id  int
	raw []byte // capacity never changes
	end int    // next free byte
}

// ID returns the segment's position in the arena's segment list.
func (s *Segment) ID() int { return s.id }

// End returns the offset of the first unallocated byte.
func (s *Segment) End() int { return s.end }

// Cap returns the segment capacity in bytes.
func (s *Segment) Cap() int { return len(s.raw) }

// Data returns the allocated prefix of the segment, the bytes emitted on the
// wire. Its capacity is clipped at the end of the allocation so unallocated
// bytes stay zero for the objects that will claim them.
func (s *Segment) Data() []byte { return s.raw[:s.end:s.end] }

// extend reserves n bytes in place if the segment has room.
func (s *Segment) extend(n int) (int, bool) {
	pos := s.end
	if pos+n > len(s.raw) {
		return 0, false
	}
	s.end += n
	return pos, true
}

func (s *Segment) fits(n int) bool {
	return s.end+n <= len(s.raw)
}

// Word addresses a byte offset within a segment. It never owns the segment.
type Word struct {
	Segment  *Segment
	Position int
}

// Arena owns the ordered segment list of one message. Not goroutine-safe;
// use SafeArena for concurrent access.
type Arena struct {
	segments []*Segment
	nextSize int // capacity hint for the next new segment

	limiter limit.Limiter
	logger  log.Logger
	metrics *AllocatorMetrics
}

// Option configures an Arena.
type Option func(*Arena)

// WithLimiter charges every allocation against l.
func WithLimiter(l limit.Limiter) Option {
	return func(a *Arena) { a.limiter = l }
}

// WithLogger tags l with a fresh session id and logs segment growth and
// limiter rejections to it.
func WithLogger(l log.Logger) Option {
	return func(a *Arena) { a.logger = log.With(l, "arena", uuid.NewString()) }
}

// WithMetrics records allocation counters into m, which is usually shared by
// every arena of a process.
func WithMetrics(m *AllocatorMetrics) Option {
	return func(a *Arena) { a.metrics = m }
}

// NewArena creates an arena whose first segment holds bytes of payload after
// the reserved root word. Negative sizes are treated as zero and sizes are
// rounded up to whole words.
func NewArena(bytes int, opts ...Option) *Arena {
	if bytes < 0 {
		bytes = 0
	}
	raw := make([]byte, layout.WordAligned(bytes)+rootBytes)
	return newArena([]*Segment{{id: 0, raw: raw, end: rootBytes}}, opts)
}

// NewArenaFromSegments resumes building a message whose segments were already
// written, e.g. ones read back with the wire package. Every segment is treated
// as full; new objects land in fresh segments.
func NewArenaFromSegments(segs [][]byte, opts ...Option) (*Arena, error) {
	if len(segs) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "no segments")
	}
	if len(segs[0]) < rootBytes {
		return nil, errors.Wrap(ErrInvalidArgument, "first segment lacks a root word")
	}
	segments := make([]*Segment, len(segs))
	for i, raw := range segs {
		if len(raw)%layout.WordBytes != 0 {
			return nil, errors.Wrapf(ErrInvalidArgument, "segment %d has %d bytes, not word aligned", i, len(raw))
		}
		segments[i] = &Segment{id: i, raw: raw, end: len(raw)}
	}
	return newArena(segments, opts), nil
}

func newArena(segments []*Segment, opts []Option) *Arena {
	a := &Arena{
		segments: segments,
		nextSize: growth(len(segments[0].raw)),
		limiter:  limit.Unlimited{},
		logger:   log.NewNopLogger(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// growth returns the next segment size hint: 1.5x, word aligned.
func growth(n int) int {
	return layout.WordAligned(n + n/2)
}

// Segment returns the segment with the given id, or nil.
func (a *Arena) Segment(id int) *Segment {
	if id < 0 || id >= len(a.segments) {
		return nil
	}
	return a.segments[id]
}

// Segments returns the segment list in id order.
func (a *Arena) Segments() []*Segment {
	out := make([]*Segment, len(a.segments))
	copy(out, a.segments)
	return out
}

func (a *Arena) owns(s *Segment) bool {
	return s != nil && s.id >= 0 && s.id < len(a.segments) && a.segments[s.id] == s
}

// charge runs n bytes past the limiter before anything is committed.
func (a *Arena) charge(n int) error {
	if err := a.limiter.Bytes(n); err != nil {
		a.metrics.rejected("bytes")
		level.Warn(a.logger).Log("msg", "allocation rejected by limiter", "bytes", n, "err", err)
		return err
	}
	a.metrics.allocated(n)
	return nil
}

// malloc returns length bytes from the newest segment, opening a new segment
// when it lacks room. Older segments are never probed.
func (a *Arena) malloc(length int) Word {
	// Fast path: newest segment
	seg := a.segments[len(a.segments)-1]
	if pos, ok := seg.extend(length); ok {
		return Word{Segment: seg, Position: pos}
	}

	size := a.nextSize
	if length > size {
		size = length
	}
	size = layout.WordAligned(size)
	seg = &Segment{
		id:  len(a.segments),
		raw: make([]byte, size),
		end: length,
	}
	a.segments = append(a.segments, seg)
	a.nextSize = growth(size)

	a.metrics.segmentCreated()
	level.Debug(a.logger).Log("msg", "created segment", "segment", seg.id, "capacity", humanBytes(size), "requested", length)
	return Word{Segment: seg, Position: 0}
}

func checkLength(length int) (int, error) {
	if length < 0 {
		return 0, errors.Wrapf(ErrInvalidArgument, "negative length %d", length)
	}
	return layout.WordAligned(length), nil
}

// Allocate reserves length bytes, preferring to extend bias in place so the
// new object can be referenced from its neighbours without a far pointer.
// bias may be nil. Lengths are rounded up to whole words.
func (a *Arena) Allocate(length int, bias *Segment) (Word, error) {
	length, err := checkLength(length)
	if err != nil {
		return Word{}, err
	}
	if bias != nil && !a.owns(bias) {
		return Word{}, ErrForeignArena
	}
	if err := a.charge(length); err != nil {
		return Word{}, err
	}
	if bias != nil {
		if pos, ok := bias.extend(length); ok {
			return Word{Segment: bias, Position: pos}, nil
		}
	}
	return a.malloc(length), nil
}

// Preallocate reserves length bytes that must be reachable from local. When
// local lacks room, the object is placed in another segment directly after
// an 8-byte landing pad; the returned position already skips the pad, which
// the caller fills with a pointer to the object.
func (a *Arena) Preallocate(length int, local *Segment) (Word, error) {
	length, err := checkLength(length)
	if err != nil {
		return Word{}, err
	}
	if local == nil {
		return Word{}, errors.Wrap(ErrInvalidArgument, "nil local segment")
	}
	if !a.owns(local) {
		return Word{}, ErrForeignArena
	}
	if local.fits(length) {
		if err := a.charge(length); err != nil {
			return Word{}, err
		}
		pos, _ := local.extend(length)
		return Word{Segment: local, Position: pos}, nil
	}

	if err := a.charge(layout.WordBytes + length); err != nil {
		return Word{}, err
	}
	land := a.malloc(layout.WordBytes + length)
	land.Position += layout.WordBytes
	a.metrics.landingPad("preallocated")
	return land, nil
}

// tryExtend reserves n bytes in seg only if it has room.
func (a *Arena) tryExtend(seg *Segment, n int) (Word, bool, error) {
	if !seg.fits(n) {
		return Word{}, false, nil
	}
	if err := a.charge(n); err != nil {
		return Word{}, false, err
	}
	pos, _ := seg.extend(n)
	return Word{Segment: seg, Position: pos}, true, nil
}

// span returns the allocated bytes [w.Position, w.Position+length) of w's segment.
func span(w Word, length int) ([]byte, error) {
	if w.Segment == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil segment")
	}
	if length < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "negative length %d", length)
	}
	if w.Position < 0 || w.Position > w.Segment.end || length > w.Segment.end-w.Position {
		return nil, errors.Wrapf(ErrOutOfBounds, "%d bytes at offset %d of segment %d with %d allocated",
			length, w.Position, w.Segment.id, w.Segment.end)
	}
	return w.Segment.raw[w.Position : w.Position+length], nil
}

// Write copies length bytes from source into target. source may belong to
// any segment, including one read from another message; target must belong
// to this arena. Both ranges must lie within allocated bytes. Overlapping
// ranges are copied as if through an intermediate buffer.
func (a *Arena) Write(source Word, length int, target Word) error {
	src, err := span(source, length)
	if err != nil {
		return errors.Wrap(err, "source")
	}
	if !a.owns(target.Segment) {
		return ErrForeignArena
	}
	dst, err := span(target, length)
	if err != nil {
		return errors.Wrap(err, "target")
	}
	copy(dst, src)
	return nil
}

// Zero clears length bytes starting at region.
func (a *Arena) Zero(region Word, length int) error {
	if !a.owns(region.Segment) {
		return ErrForeignArena
	}
	b, err := span(region, length)
	if err != nil {
		return err
	}
	clear(b)
	return nil
}
