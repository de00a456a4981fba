package arena

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanmanishd/msgarena/layout"
	"github.com/pavanmanishd/msgarena/wire"
)

func rootWord(a *Arena) uint64 {
	return layout.Get(a.Segment(0).Data(), 0)
}

func TestGetRootAbsent(t *testing.T) {
	a := NewArena(0)
	_, ok, err := a.GetRoot()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInitRootInPlace(t *testing.T) {
	a := NewArena(64)
	size := layout.StructBytes{Data: 8, Pointers: 8}

	v, err := a.InitRoot(size)
	require.NoError(t, err)
	assert.Equal(t, Word{Segment: a.Segment(0), Position: 8}, v.Object())
	assert.Equal(t, layout.Direct(layout.StructPointer, 0, layout.StructHi(size)), rootWord(a))

	got, ok, err := a.GetRoot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v.Object(), got.Object())
	assert.Equal(t, size, got.Size())
}

func TestInitRootSpillsBehindLandingPad(t *testing.T) {
	a := NewArena(0)
	size := layout.StructBytes{Data: 16, Pointers: 8}

	v, err := a.InitRoot(size)
	require.NoError(t, err)
	seg := v.Object().Segment
	assert.Equal(t, 1, seg.ID())
	assert.Equal(t, 8, v.Object().Position)
	assert.Equal(t, 32, seg.End())

	assert.Equal(t, layout.Far(false, 0, 1), rootWord(a))
	assert.Equal(t, layout.Direct(layout.StructPointer, 0, layout.StructHi(size)), layout.Get(seg.Data(), 0))

	got, ok, err := a.GetRoot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v.Object(), got.Object())
}

func TestInitRootReplaces(t *testing.T) {
	a := NewArena(64)
	first, err := a.InitRoot(layout.StructBytes{Data: 8})
	require.NoError(t, err)
	second, err := a.InitRoot(layout.StructBytes{Data: 16})
	require.NoError(t, err)
	require.NotEqual(t, first.Object(), second.Object())

	got, ok, err := a.GetRoot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.Object(), got.Object())
	assert.Equal(t, 16, got.Size().Data)
}

func TestInitRootEmptyStruct(t *testing.T) {
	a := NewArena(16)
	_, err := a.InitRoot(layout.StructBytes{})
	require.NoError(t, err)
	assert.NotZero(t, rootWord(a), "an empty struct root must not read as absent")

	got, ok, err := a.GetRoot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, layout.StructBytes{}, got.Size())
}

func TestSetRoot(t *testing.T) {
	tests := []struct {
		name    string
		payload int
		size    layout.StructBytes
		segs    int
	}{
		// object lands in segment 0 next to the root
		{"direct", 64, layout.StructBytes{Data: 8}, 1},
		// segment 1 has a spare word for the landing pad
		{"single far", 0, layout.StructBytes{Data: 8}, 2},
		// segment 1 is full, the pad pair opens segment 2
		{"double far", 0, layout.StructBytes{Data: 16}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArena(tt.payload)
			o, err := a.InitStruct(tt.size, nil)
			require.NoError(t, err)
			v, err := o.Struct()
			require.NoError(t, err)
			copy(v.Data(), "rootdata")

			require.NoError(t, a.SetRoot(v))
			assert.Equal(t, tt.segs, a.NumSegments())

			got, ok, err := a.GetRoot()
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, v.Object(), got.Object())
			assert.Equal(t, tt.size, got.Size())
			assert.Equal(t, "rootdata", string(got.Data()[:8]))
		})
	}
}

func TestSetRootForeign(t *testing.T) {
	a := NewArena(64)
	b := NewArena(64)
	v, err := b.InitRoot(layout.StructBytes{Data: 8})
	require.NoError(t, err)
	assert.True(t, errors.Is(a.SetRoot(v), ErrForeignArena))
	assert.Zero(t, rootWord(a))
}

func TestDisownAdoptRoot(t *testing.T) {
	for _, payload := range []int{64, 0} {
		a := NewArena(payload)
		v, err := a.InitRoot(layout.StructBytes{Data: 8, Pointers: 8})
		require.NoError(t, err)
		copy(v.Data(), "persists")

		o, err := a.DisownRoot()
		require.NoError(t, err)
		require.NotNil(t, o)
		assert.Equal(t, KindStruct, o.Kind())
		assert.Equal(t, v.Object(), o.Object())

		assert.Zero(t, rootWord(a))
		_, ok, err := a.GetRoot()
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, a.AdoptRoot(o))
		assert.True(t, o.Consumed())

		got, ok, err := a.GetRoot()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, v.Object(), got.Object())
		assert.Equal(t, "persists", string(got.Data()))

		assert.True(t, errors.Is(a.AdoptRoot(o), ErrOrphanConsumed))
	}
}

func TestDisownRootAbsent(t *testing.T) {
	a := NewArena(8)
	o, err := a.DisownRoot()
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestAdoptRootErrors(t *testing.T) {
	a := NewArena(64)

	assert.True(t, errors.Is(a.AdoptRoot(nil), ErrInvalidArgument))

	list, err := a.InitData(8, nil)
	require.NoError(t, err)
	assert.True(t, errors.Is(a.AdoptRoot(list), ErrKindMismatch))
	assert.False(t, list.Consumed())

	other, err := NewArena(64).InitStruct(layout.StructBytes{Data: 8}, nil)
	require.NoError(t, err)
	assert.True(t, errors.Is(a.AdoptRoot(other), ErrForeignArena))
	assert.Zero(t, rootWord(a))
}

func TestGetRootMalformed(t *testing.T) {
	tests := []struct {
		name string
		word uint64
		want error
	}{
		{"list root", layout.Direct(layout.ListPointer, 0, 2|8<<3), ErrKindMismatch},
		{"far to missing segment", layout.Far(false, 0, 9), ErrInvalidPointer},
		{"capability", 3, ErrInvalidPointer},
		{"offset past end", layout.Direct(layout.StructPointer, 40, 1), ErrInvalidPointer},
		{"struct past end", layout.Direct(layout.StructPointer, 0, 4), ErrInvalidPointer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArena(16)
			_, err := a.Allocate(16, nil)
			require.NoError(t, err)
			layout.Put(a.Segment(0).Data(), 0, tt.word)

			_, _, err = a.GetRoot()
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestDisownRootMalformed(t *testing.T) {
	tests := []struct {
		name string
		word uint64
		want error
	}{
		{"struct past end", layout.Direct(layout.StructPointer, 0, 5), ErrInvalidPointer},
		{"offset past end", layout.Direct(layout.StructPointer, 40, 1), ErrInvalidPointer},
		{"list root", layout.Direct(layout.ListPointer, 0, 2|8<<3), ErrKindMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArena(16)
			_, err := a.Allocate(16, nil)
			require.NoError(t, err)
			layout.Put(a.Segment(0).Data(), 0, tt.word)

			o, err := a.DisownRoot()
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Nil(t, o)
			assert.Equal(t, tt.word, rootWord(a), "a rejected root must stay in place")
		})
	}
}

func TestRootSurvivesMarshal(t *testing.T) {
	a := NewArena(0)
	v, err := a.InitRoot(layout.StructBytes{Data: 8, Pointers: 8})
	require.NoError(t, err)
	copy(v.Data(), "payload!")
	text, err := a.InitText("far away", nil)
	require.NoError(t, err)
	require.NoError(t, v.Adopt(0, text))

	b, err := a.Marshal()
	require.NoError(t, err)

	segs, err := wire.Unmarshal(b)
	require.NoError(t, err)
	resumed, err := NewArenaFromSegments(segs)
	require.NoError(t, err)

	got, ok, err := resumed.GetRoot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "payload!", string(got.Data()))

	o, err := got.Disown(0)
	require.NoError(t, err)
	assert.Equal(t, "far away\x00", string(o.Bytes()[:9]))
}
