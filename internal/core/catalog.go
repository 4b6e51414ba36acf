package core

// Catalog is the insertion-ordered set of all tables alive in the run. The
// mutex covers appends, name lookups and the Len/At reads alike; entries
// never move because the sequence only grows.
import "sync"

type Catalog struct {
	mu     sync.Mutex
	tables []*Table
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog { return &Catalog{} }

// Append adds a table under the catalog lock.
func (c *Catalog) Append(t *Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = append(c.tables, t)
}

// Len is the current table count.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tables)
}

// At returns the i-th table. Entries never move once appended.
func (c *Catalog) At(i int) *Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables[i]
}

// Find returns the table with the given name, or nil.
func (c *Catalog) Find(name string) *Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Tables returns a point-in-time copy of the sequence.
func (c *Catalog) Tables() []*Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Table, len(c.tables))
	copy(out, c.tables)
	return out
}
