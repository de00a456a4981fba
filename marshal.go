package arena

import (
	"io"

	"github.com/samber/lo"

	"github.com/pavanmanishd/msgarena/wire"
)

// segmentData returns each segment's allocated bytes in id order. Unused
// capacity is never emitted.
func (a *Arena) segmentData() [][]byte {
	return lo.Map(a.segments, func(s *Segment, _ int) []byte { return s.Data() })
}

// WriteTo frames the message onto w.
func (a *Arena) WriteTo(w io.Writer) (int64, error) {
	return wire.Write(w, a.segmentData())
}

// Marshal returns the framed message.
func (a *Arena) Marshal() ([]byte, error) {
	return wire.Marshal(a.segmentData())
}

// WriteCompressed frames the message onto w through zstd.
func (a *Arena) WriteCompressed(w io.Writer) error {
	return wire.WriteCompressed(w, a.segmentData())
}
