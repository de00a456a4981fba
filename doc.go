// Package arena implements the write side of a segmented, zero-copy binary
// message format in the style of Cap'n Proto.
//
// # Overview
//
// A message is an ordered list of fixed-capacity segments. Objects are bump
// allocated at word-aligned offsets and never moved or freed, so a finished
// message can be read in place. The first word of segment 0 is reserved for
// the root pointer.
//
//   - Allocation probes only the newest segment; when it is full a new segment
//     of 1.5x the previous hint (or the request, if larger) is opened.
//   - Allocate extends a caller-chosen bias segment first, keeping related
//     objects together so they can point at each other directly.
//   - Preallocate guarantees an object reachable from a given segment: if it
//     spills, it is placed behind an 8-byte landing pad for a far pointer.
//
// # Basic Usage
//
//	a := arena.NewArena(1024)
//
//	root, err := a.InitRoot(layout.StructBytes{Data: 8, Pointers: 8})
//	if err != nil {
//		return err
//	}
//	binary.LittleEndian.PutUint64(root.Data(), 42)
//
//	name, err := a.InitText("hello", root.Object().Segment)
//	if err != nil {
//		return err
//	}
//	if err := root.Adopt(0, name); err != nil {
//		return err
//	}
//
//	_, err = a.WriteTo(conn)
//
// # Orphans
//
// InitStruct, InitList, InitText and InitData return orphans: objects with
// storage but no pointer to them. Attaching an orphan (Orphan.Attach,
// StructValue.Adopt or Arena.AdoptRoot) consumes it. An orphan that is never
// attached is wasted space; nothing reclaims it.
//
// # Limits
//
// Every allocation is charged against a limit.Limiter before any byte is
// committed, so a rejected allocation leaves existing segments intact.
//
// # Thread Safety
//
// Arena is not thread-safe. SafeArena serialises the arena's own operations
// behind a mutex.
package arena
