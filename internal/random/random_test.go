package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(seed int64) *Source {
	return New(seed, NewPool(seed), 990)
}

func TestNewPool(t *testing.T) {
	pool := NewPool(42)
	require.Len(t, pool, 10000)
	for _, s := range pool[:50] {
		assert.Len(t, s, 32)
	}
	assert.Equal(t, pool, NewPool(42), "pool must be deterministic for a seed")
	assert.NotEqual(t, pool[0], NewPool(43)[0])
}

func TestBetweenInclusive(t *testing.T) {
	s := newTestSource(1)
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		v := s.Between(3, 5)
		require.GreaterOrEqual(t, v, 3)
		require.LessOrEqual(t, v, 5)
		seen[v] = true
	}
	assert.Len(t, seen, 3, "all values in the inclusive range should occur")
}

func TestBetweenInvertedRangePanics(t *testing.T) {
	s := newTestSource(1)
	assert.Panics(t, func() { s.Between(5, 3) })
}

func TestSeedRange(t *testing.T) {
	s := newTestSource(7)
	for i := 0; i < 100; i++ {
		seed := s.Seed()
		assert.GreaterOrEqual(t, seed, int64(MinSeed))
		assert.LessOrEqual(t, seed, int64(MaxSeed))
	}
}

func TestTryNegative(t *testing.T) {
	alwaysPositive := New(1, nil, 1000)
	for i := 0; i < 200; i++ {
		assert.Equal(t, 5, alwaysPositive.TryNegative(5))
	}

	alwaysNegative := New(1, nil, -1)
	for i := 0; i < 200; i++ {
		assert.Equal(t, -5, alwaysNegative.TryNegative(5))
	}
}

func TestFloatAndDoublePrecision(t *testing.T) {
	s := New(3, nil, 1000)
	f := s.Float(100)
	_, frac, ok := strings.Cut(f, ".")
	require.True(t, ok, "float literal %q must carry decimals", f)
	assert.Len(t, frac, 2)

	d := s.Double(100)
	_, frac, ok = strings.Cut(d, ".")
	require.True(t, ok)
	assert.Len(t, frac, 5)
}

func TestStringBetween(t *testing.T) {
	s := newTestSource(11)
	for i := 0; i < 200; i++ {
		v := s.StringBetween(3, 10)
		assert.GreaterOrEqual(t, len(v), 3)
		assert.LessOrEqual(t, len(v), 10)
	}
	long := s.StringBetween(100, 100)
	assert.Len(t, long, 100, "sizes above one pool entry concatenate chunks")
}

func TestDateFormats(t *testing.T) {
	s := newTestSource(13)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, s.Date())
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, s.Datetime())

	for i := 0; i < 100; i++ {
		ts := s.Timestamp()
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, ts)
		year := ts[:4]
		assert.GreaterOrEqual(t, year, "1971")
		assert.LessOrEqual(t, year, "2037")
	}
}

func TestBit(t *testing.T) {
	s := newTestSource(17)
	v := s.Bit(8)
	assert.Regexp(t, `^b'[01]{8}'$`, v)
}

func TestUniqueInts(t *testing.T) {
	s := newTestSource(19)

	dense := s.UniqueInts(5, 100, true)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, dense)

	for i := 0; i < 50; i++ {
		vals := s.UniqueInts(20, 10000, false)
		require.Len(t, vals, 20)
		seen := map[int]bool{}
		for _, v := range vals {
			require.False(t, seen[v], "duplicate key %d", v)
			seen[v] = true
		}
	}

	assert.Nil(t, s.UniqueInts(0, 10, false))
}

func TestDeterminismPerSeed(t *testing.T) {
	a := newTestSource(99)
	b := newTestSource(99)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Int(1000), b.Int(1000))
	}
}
