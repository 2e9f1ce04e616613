package value

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeBuffer struct {
	size     int64
	released *int
}

func (b *fakeBuffer) Release() error {
	*b.released++
	return nil
}

func (b *fakeBuffer) ByteSize() int64 { return b.size }

func (b *fakeBuffer) Shape() []int { return []int{int(b.size)} }

func TestMentionCreatesOnce(t *testing.T) {
	s := NewStore()

	a := s.Mention("X")
	b := s.Mention("X")

	assert.Same(t, a, b)
	assert.Equal(t, Mentioned, a.Stage())
	assert.True(t, a.Type().IsZero())
	assert.Equal(t, "X of yet unknown type", a.TypeName())
}

func TestIDsIncrease(t *testing.T) {
	s := NewStore()
	a := s.Mention("a")
	b := s.Mention("b")
	other := NewStore().Mention("c")

	assert.Less(t, a.ID(), b.ID())
	assert.Less(t, b.ID(), other.ID())
}

func TestGetUnknownName(t *testing.T) {
	s := NewStore()

	_, err := Get[float64](s, "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetTypeMismatch(t *testing.T) {
	s := NewStore()
	require.NoError(t, Set(s, "n", 1.5))

	_, err := Get[int64](s, "n")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Contains(t, err.Error(), "real")
	assert.Contains(t, err.Error(), "integer")
}

func TestGetMentionedIsNotAllocated(t *testing.T) {
	s := NewStore()
	s.Mention("X")

	_, err := Get[float64](s, "X")

	assert.ErrorIs(t, err, ErrNotAllocated)
}

func TestDeclareThenSet(t *testing.T) {
	s := NewStore()

	v, err := s.Declare("n", Meta{Type: TypeOf[float64](), Bytes: 8})
	require.NoError(t, err)
	assert.Equal(t, Declared, v.Stage())
	assert.Equal(t, int64(8), s.Footprint().Current)

	_, err = Get[float64](s, "n")
	assert.ErrorIs(t, err, ErrNotAllocated)

	require.NoError(t, Set(s, "n", 2.0))
	got, err := Get[float64](s, "n")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
	assert.Equal(t, Allocated, v.Stage())
}

func TestDeclareConflict(t *testing.T) {
	s := NewStore()
	_, err := s.Declare("n", Meta{Type: TypeOf[float64]()})
	require.NoError(t, err)

	_, err = s.Declare("n", Meta{Type: TypeOf[string]()})

	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestSetDeclaredWithWrongType(t *testing.T) {
	s := NewStore()
	_, err := s.Declare("n", Meta{Type: TypeOf[float64]()})
	require.NoError(t, err)

	err = Set(s, "n", "text")

	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestOverwriteReleasesPrevious(t *testing.T) {
	s := NewStore()
	released := 0
	first := &fakeBuffer{size: 16, released: &released}
	second := &fakeBuffer{size: 32, released: &released}

	require.NoError(t, Set(s, "T", first))
	require.NoError(t, Set(s, "T", second))

	assert.Equal(t, 1, released)
	got, err := Get[*fakeBuffer](s, "T")
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Equal(t, int64(32), s.Footprint().Current)
	assert.Equal(t, int64(48), s.Footprint().Peak)
}

func TestOverwriteWithSamePayloadKeepsIt(t *testing.T) {
	s := NewStore()
	released := 0
	buf := &fakeBuffer{size: 16, released: &released}

	require.NoError(t, Set(s, "T", buf))
	require.NoError(t, Set(s, "T", buf))

	assert.Equal(t, 0, released)
	assert.Equal(t, int64(16), s.Footprint().Peak)
}

func TestOverwriteWithOtherTypeConflicts(t *testing.T) {
	s := NewStore()
	require.NoError(t, Set(s, "x", int64(3)))

	err := Set(s, "x", "three")

	assert.ErrorIs(t, err, ErrDuplicateName)
	got, err := Get[int64](s, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)
}

func TestEraseReleasesAndRemoves(t *testing.T) {
	s := NewStore()
	released := 0
	require.NoError(t, Set(s, "T", &fakeBuffer{size: 8, released: &released}))

	require.NoError(t, s.Erase("T"))

	assert.Equal(t, 1, released)
	assert.False(t, s.Has("T"))
	assert.Equal(t, int64(0), s.Footprint().Current)
	assert.ErrorIs(t, s.Erase("T"), ErrNotFound)
}

func TestEraseAllowsRebindingType(t *testing.T) {
	s := NewStore()
	require.NoError(t, Set(s, "x", int64(3)))
	require.NoError(t, s.Erase("x"))

	require.NoError(t, Set(s, "x", "three"))

	got, err := Get[string](s, "x")
	require.NoError(t, err)
	assert.Equal(t, "three", got)
}

func TestMarkFreedKeepsName(t *testing.T) {
	s := NewStore()
	_, err := s.Declare("T", Meta{Type: TypeOf[*fakeBuffer](), Shape: []int{4}, Bytes: 64})
	require.NoError(t, err)

	require.NoError(t, s.MarkFreed("T"))
	require.NoError(t, s.MarkFreed("T"))

	v, err := s.Lookup("T")
	require.NoError(t, err)
	assert.Equal(t, Freed, v.Stage())
	assert.Equal(t, []int{4}, v.Meta().Shape)
	assert.Equal(t, Footprint{Current: 0, Peak: 64}, s.Footprint())
}

func TestNamesSorted(t *testing.T) {
	s := NewStore()
	s.Mention("b")
	s.Mention("a")
	s.Mention("c")

	assert.Equal(t, []string{"a", "b", "c"}, s.Names())
	assert.Equal(t, 3, s.Len())
}

func TestSummary(t *testing.T) {
	s := NewStore()
	require.NoError(t, Set(s, "n", 0.5))
	_, err := s.Declare("T", Meta{Type: TypeOf[*fakeBuffer](), Shape: []int{2, 3}})
	require.NoError(t, err)

	n, _ := s.Lookup("n")
	tv, _ := s.Lookup("T")
	assert.Equal(t, "0.5", n.Summary())
	assert.Contains(t, tv.Summary(), "[2 3]")
}

func TestSetGetRoundTrip(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		s := NewStore()
		name := rapid.StringMatching(`[A-Za-z][A-Za-z0-9]{0,8}`).Draw(r, "name")

		switch rapid.IntRange(0, 4).Draw(r, "kind") {
		case 0:
			v := rapid.Int64().Draw(r, "int")
			roundTrip(r, s, name, v)
		case 1:
			v := rapid.Float64Range(-1e300, 1e300).Draw(r, "real")
			roundTrip(r, s, name, v)
		case 2:
			v := rapid.String().Draw(r, "text")
			roundTrip(r, s, name, v)
		case 3:
			v := rapid.Bool().Draw(r, "bool")
			roundTrip(r, s, name, v)
		case 4:
			v := rapid.SliceOf(rapid.Int64()).Draw(r, "vector")
			require.NoError(r, Set(s, name, v))
			got, err := Get[[]int64](s, name)
			require.NoError(r, err)
			assert.Equal(r, v, got)
		}
	})
}

func roundTrip[T comparable](r *rapid.T, s *Store, name string, v T) {
	require.NoError(r, Set(s, name, v))
	got, err := Get[T](s, name)
	require.NoError(r, err)
	assert.Equal(r, v, got)
}
