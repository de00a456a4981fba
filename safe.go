package arena

import (
	"io"
	"sync"

	"github.com/pavanmanishd/msgarena/layout"
)

// SafeArena is a mutex-protected wrapper around Arena for concurrent access.
// Only the arena's own operations are guarded: StructValue and Orphan handles
// returned from it still write into shared segments and must not be used from
// several goroutines at once.
type SafeArena struct {
	mu sync.Mutex
	a  *Arena
}

// NewSafeArena creates a thread-safe arena; see NewArena.
func NewSafeArena(bytes int, opts ...Option) *SafeArena {
	return &SafeArena{a: NewArena(bytes, opts...)}
}

// Allocate thread-safely reserves length bytes; see Arena.Allocate.
func (s *SafeArena) Allocate(length int, bias *Segment) (Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Allocate(length, bias)
}

// Preallocate thread-safely reserves length bytes reachable from local.
func (s *SafeArena) Preallocate(length int, local *Segment) (Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Preallocate(length, local)
}

// Write thread-safely copies length bytes from source to target.
func (s *SafeArena) Write(source Word, length int, target Word) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Write(source, length, target)
}

// Zero thread-safely clears length bytes at region.
func (s *SafeArena) Zero(region Word, length int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Zero(region, length)
}

// InitStruct thread-safely allocates a struct orphan.
func (s *SafeArena) InitStruct(size layout.StructBytes, bias *Segment) (*Orphan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.InitStruct(size, bias)
}

// InitList thread-safely allocates a list orphan.
func (s *SafeArena) InitList(enc layout.ListEncoding, length int, bias *Segment) (*Orphan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.InitList(enc, length, bias)
}

// InitText thread-safely allocates a text orphan.
func (s *SafeArena) InitText(text string, bias *Segment) (*Orphan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.InitText(text, bias)
}

// InitData thread-safely allocates a data orphan.
func (s *SafeArena) InitData(length int, bias *Segment) (*Orphan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.InitData(length, bias)
}

// InitRoot thread-safely allocates a new root struct.
func (s *SafeArena) InitRoot(size layout.StructBytes) (StructValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.InitRoot(size)
}

// GetRoot thread-safely reads the root.
func (s *SafeArena) GetRoot() (StructValue, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.GetRoot()
}

// SetRoot thread-safely points the root at v.
func (s *SafeArena) SetRoot(v StructValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.SetRoot(v)
}

// DisownRoot thread-safely detaches the root.
func (s *SafeArena) DisownRoot() (*Orphan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.DisownRoot()
}

// AdoptRoot thread-safely makes o the root.
func (s *SafeArena) AdoptRoot(o *Orphan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.AdoptRoot(o)
}

// Segment thread-safely returns the segment with the given id, or nil.
func (s *SafeArena) Segment(id int) *Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Segment(id)
}

// Metrics thread-safely returns a snapshot of arena statistics.
func (s *SafeArena) Metrics() ArenaMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Metrics()
}

// WriteTo thread-safely frames the message onto w.
func (s *SafeArena) WriteTo(w io.Writer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.WriteTo(w)
}

// Marshal thread-safely returns the framed message.
func (s *SafeArena) Marshal() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Marshal()
}
