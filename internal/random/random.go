// Package random holds the seeded value generator that drives all schema and
// SQL synthesis. Every worker thread owns one Source; nothing in here is safe
// for concurrent use and nothing needs to be.
package random

import (
	"fmt"
	"math/rand"
	"strings"
)

const (
	// MinSeed and MaxSeed bound the per-thread seeds drawn from the step
	// generator.
	MinSeed = 10000
	MaxSeed = 100000

	poolSize       = 10000
	poolStringSize = 32
)

const alphabet = "  abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789"

// Source wraps a seeded PRNG together with the step's shared string pool and
// the positive-integer bias.
type Source struct {
	rng *rand.Rand
	// pool is read-only after creation and may be shared across sources.
	pool []string
	// positiveProb is out of 1000; draws above it negate the value.
	positiveProb int
}

// New returns a Source seeded with seed. The pool is the step's shared
// string pool from NewPool.
func New(seed int64, pool []string, positiveProb int) *Source {
	return &Source{
		rng:          rand.New(rand.NewSource(seed)),
		pool:         pool,
		positiveProb: positiveProb,
	}
}

// NewPool generates the step's pool of random fixed-width strings from the
// step seed. The pool is generated once and shared read-only by every thread.
func NewPool(seed int64) []string {
	rng := rand.New(rand.NewSource(seed))
	pool := make([]string, 0, poolSize)
	var sb strings.Builder
	for i := 0; i < poolSize; i++ {
		sb.Reset()
		sb.Grow(poolStringSize)
		for j := 0; j < poolStringSize; j++ {
			sb.WriteByte(alphabet[rng.Intn(len(alphabet))])
		}
		pool = append(pool, sb.String())
	}
	return pool
}

// Int returns a uniform integer in [0, upper], inclusive on both ends.
func (s *Source) Int(upper int) int {
	return s.Between(0, upper)
}

// Between returns a uniform integer in [lower, upper] inclusive.
func (s *Source) Between(lower, upper int) int {
	if upper < lower {
		panic(fmt.Sprintf("random: inverted range [%d, %d]", lower, upper))
	}
	return lower + s.rng.Intn(upper-lower+1)
}

// Seed draws a fresh per-thread seed from this source.
func (s *Source) Seed() int64 {
	return int64(s.Between(MinSeed, MaxSeed))
}

// TryNegative negates v with probability 1 - positiveProb/1000.
func (s *Source) TryNegative(v int) int {
	if s.Int(1000) > s.positiveProb {
		return -v
	}
	return v
}

func (s *Source) tryNegativeFloat(v float64) float64 {
	if s.Int(1000) > s.positiveProb {
		return -v
	}
	return v
}

// Float returns a FLOAT literal in [0, upper) with two decimal places,
// possibly negated.
func (s *Source) Float(upper float64) string {
	return fmt.Sprintf("%.2f", s.tryNegativeFloat(s.rng.Float64()*upper))
}

// Double returns a DOUBLE literal in [0, upper) with five decimal places,
// possibly negated.
func (s *Source) Double(upper float64) string {
	return fmt.Sprintf("%.5f", s.tryNegativeFloat(s.rng.Float64()*upper))
}

// String returns a random string of length in [2, upper] assembled from the
// shared pool.
func (s *Source) String(upper int) string {
	return s.StringBetween(2, upper)
}

// StringBetween returns a random string of length in [lower, upper]
// assembled from pool entries, truncating the final chunk to fit.
func (s *Source) StringBetween(lower, upper int) string {
	if upper < 2 {
		upper = 2
	}
	if lower > upper {
		lower = upper
	}
	size := s.Between(lower, upper)
	var sb strings.Builder
	sb.Grow(size)
	for size > 0 {
		str := s.pool[s.Int(len(s.pool)-1)]
		if size < poolStringSize {
			str = str[:size]
		}
		sb.WriteString(str)
		size -= poolStringSize
	}
	return sb.String()
}

// Date returns a DATE literal body in years 1000-9999.
func (s *Source) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d",
		s.Between(1000, 9999), s.Between(1, 12), s.Between(1, 28))
}

// Datetime returns a DATETIME literal body. The time component stays within
// [0,1] for each field so that two engines truncating fractional seconds
// differently still compare equal.
func (s *Source) Datetime() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		s.Between(1000, 9999), s.Between(1, 12), s.Between(1, 28),
		s.Int(1), s.Int(1), s.Int(1))
}

// Timestamp returns a TIMESTAMP literal body in the 1971-2037 range.
func (s *Source) Timestamp() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		s.Between(1971, 2037), s.Between(1, 12), s.Between(1, 28),
		s.Int(1), s.Int(1), s.Int(1))
}

// Bit returns a b'0101...' literal of the given length.
func (s *Source) Bit(length int) string {
	var sb strings.Builder
	sb.Grow(length + 3)
	sb.WriteString("b'")
	for i := 0; i < length; i++ {
		sb.WriteByte(byte('0' + s.Int(1)))
	}
	sb.WriteString("'")
	return sb.String()
}

// Bool returns an even coin flip.
func (s *Source) Bool() bool {
	return s.Int(1) == 1
}

// Shuffle randomizes the order of n elements using swap.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// UniqueInts returns n distinct integers to seed primary and foreign key
// columns. Ten percent of the time it is a dense 1..n run; otherwise values
// are drawn from [1, max] with the negative bias applied.
func (s *Source) UniqueInts(n, max int, alwaysDense bool) []int {
	if n <= 0 {
		return nil
	}
	if alwaysDense || s.Int(100) < 10 {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	seen := make(map[int]struct{}, n)
	out := make([]int, 0, n)
	for len(out) < n {
		v := s.TryNegative(s.Between(1, max))
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
