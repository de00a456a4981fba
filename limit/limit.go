// Package limit bounds the resources a single message may consume: the
// aggregate bytes it allocates and the nesting depth of its objects.
package limit

import (
	"math"

	"github.com/pkg/errors"
)

var (
	ErrQuotaExceeded = errors.New("limit: byte quota exceeded")
	ErrDepthExceeded = errors.New("limit: nesting depth exceeded")
)

// Limiter is charged before any bytes are committed to a segment. A rejection
// leaves the arena untouched.
type Limiter interface {
	// Bytes charges n bytes against the quota.
	Bytes(n int) error
	// Level checks that an object nested level pointers below the root may be
	// created.
	Level(level int) error
}

// Unlimited accepts every charge.
type Unlimited struct{}

func (Unlimited) Bytes(int) error { return nil }
func (Unlimited) Level(int) error { return nil }

// Limited enforces a byte quota and a maximum nesting depth.
// Not goroutine-safe; it shares the owning arena's discipline.
type Limited struct {
	remaining int
	maxLevel  int
}

// NewLimited returns a limiter allowing maxBytes in total and objects down to
// maxLevel. A value <= 0 disables the corresponding bound.
func NewLimited(maxBytes, maxLevel int) *Limited {
	if maxBytes <= 0 {
		maxBytes = math.MaxInt
	}
	if maxLevel <= 0 {
		maxLevel = math.MaxInt
	}
	return &Limited{remaining: maxBytes, maxLevel: maxLevel}
}

func (l *Limited) Bytes(n int) error {
	if n > l.remaining {
		return errors.Wrapf(ErrQuotaExceeded, "requested %d bytes with %d remaining", n, l.remaining)
	}
	l.remaining -= n
	return nil
}

func (l *Limited) Level(level int) error {
	if level > l.maxLevel {
		return errors.Wrapf(ErrDepthExceeded, "level %d exceeds maximum %d", level, l.maxLevel)
	}
	return nil
}

// Remaining returns the unspent byte quota.
func (l *Limited) Remaining() int {
	return l.remaining
}
