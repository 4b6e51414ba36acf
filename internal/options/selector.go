package options

import (
	"fmt"
	"sort"

	"rstress/internal/random"
)

type selEntry struct {
	upto int
	id   ID
}

// Selector maps a random draw to a SQL-producing operation through the
// cumulative weights of every enabled option. It is built once per worker
// thread, after Normalize has run.
type Selector struct {
	entries []selEntry
	total   int
}

// NewSelector builds the cumulative table from the registry.
func NewSelector(r *Registry) (*Selector, error) {
	s := &Selector{}
	r.Each(func(o *Option) {
		w := o.Weight()
		if w <= 0 {
			return
		}
		s.total += w
		s.entries = append(s.entries, selEntry{upto: s.total, id: o.ID})
	})
	if s.total == 0 {
		return nil, fmt.Errorf("no option selected")
	}
	return s, nil
}

// Total is the sum of all enabled weights.
func (s *Selector) Total() int { return s.total }

// Enabled reports whether id can ever be picked.
func (s *Selector) Enabled(id ID) bool {
	for _, e := range s.entries {
		if e.id == id {
			return true
		}
	}
	return false
}

// Pick draws one operation.
func (s *Selector) Pick(rng *random.Source) ID {
	draw := rng.Int(s.total)
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].upto >= draw
	})
	return s.entries[i].id
}
