package grimoire

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/cloverkingdom/academy/internal/pkg/apperrors"
)

// Drawer picks one grimoire from a catalog.
type Drawer interface {
	Draw(catalog Catalog) (Entry, error)
}

// Source is the entropy a WeightedAssigner consumes. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

// IntN uses the process-wide math/rand/v2 generator, which is safe for
// concurrent use.
func (globalSource) IntN(n int) int {
	return rand.IntN(n)
}

// NewSeededSource returns a deterministic source for reproducible draws. It is
// not safe for concurrent use.
func NewSeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

// NewLockedSource serializes access to src so a seeded source can be shared
// by concurrent requests.
func NewLockedSource(src Source) Source {
	return &lockedSource{src: src}
}

// WeightedAssigner samples catalog entries with replacement, choosing entry i
// with probability rarity(i) / sum(rarities).
type WeightedAssigner struct {
	src Source
}

// NewWeightedAssigner returns an assigner reading from src, or from the shared
// generator when src is nil.
func NewWeightedAssigner(src Source) *WeightedAssigner {
	if src == nil {
		src = globalSource{}
	}
	return &WeightedAssigner{src: src}
}

// Draw returns exactly one entry of catalog.
func (a *WeightedAssigner) Draw(catalog Catalog) (Entry, error) {
	if len(catalog.entries) == 0 {
		return Entry{}, fmt.Errorf("%w: catalog is empty", apperrors.ErrInvalidCatalog)
	}
	// Re-checked here since the zero Catalog never went through NewCatalog.
	total := 0
	for i, e := range catalog.entries {
		if e.Rarity <= 0 {
			return Entry{}, fmt.Errorf("%w: entry %d (%s) has non-positive rarity %d", apperrors.ErrInvalidCatalog, i, e.Type, e.Rarity)
		}
		total += e.Rarity
	}

	r := a.src.IntN(total)
	for _, e := range catalog.entries {
		if r < e.Rarity {
			return e, nil
		}
		r -= e.Rarity
	}

	// Unreachable while IntN honours its contract.
	return catalog.entries[len(catalog.entries)-1], nil
}
