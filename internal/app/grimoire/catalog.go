// Package grimoire holds the grimoire catalog and the weighted draw over it.
package grimoire

import (
	"fmt"
	"strings"

	"github.com/cloverkingdom/academy/internal/pkg/apperrors"
)

// Entry is one grimoire variant. Rarity is used directly as the sampling
// weight: a higher rarity is drawn more often.
type Entry struct {
	Type   string `json:"type" yaml:"type"`
	Rarity int    `json:"rarity" yaml:"rarity"`
}

// Catalog is an immutable, ordered list of grimoire variants.
type Catalog struct {
	entries []Entry
	total   int
}

// NewCatalog validates entries and returns a catalog holding a copy of them.
func NewCatalog(entries []Entry) (Catalog, error) {
	if len(entries) == 0 {
		return Catalog{}, fmt.Errorf("%w: catalog is empty", apperrors.ErrInvalidCatalog)
	}

	copied := make([]Entry, len(entries))
	total := 0
	for i, e := range entries {
		if strings.TrimSpace(e.Type) == "" {
			return Catalog{}, fmt.Errorf("%w: entry %d has no type", apperrors.ErrInvalidCatalog, i)
		}
		if e.Rarity <= 0 {
			return Catalog{}, fmt.Errorf("%w: entry %d (%s) has non-positive rarity %d", apperrors.ErrInvalidCatalog, i, e.Type, e.Rarity)
		}
		copied[i] = e
		total += e.Rarity
	}

	return Catalog{entries: copied, total: total}, nil
}

// MustCatalog is NewCatalog for static data; it panics on invalid input.
func MustCatalog(entries []Entry) Catalog {
	c, err := NewCatalog(entries)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog returns the academy's reference catalog.
func DefaultCatalog() Catalog {
	return MustCatalog([]Entry{
		{Type: "One-Leaf Clover", Rarity: 1},
		{Type: "Two-Leaf Clover", Rarity: 1},
		{Type: "Three-Leaf Clover", Rarity: 2},
		{Type: "Four-Leaf Clover", Rarity: 3},
		{Type: "Five-Leaf Clover", Rarity: 5},
	})
}

// Entries returns a copy of the catalog entries in order.
func (c Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of variants.
func (c Catalog) Len() int {
	return len(c.entries)
}

// TotalWeight returns the sum of all rarities.
func (c Catalog) TotalWeight() int {
	return c.total
}

// Lookup finds the entry with the given type label.
func (c Catalog) Lookup(typ string) (Entry, bool) {
	for _, e := range c.entries {
		if e.Type == typ {
			return e, true
		}
	}
	return Entry{}, false
}
