package grimoire

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloverkingdom/academy/internal/pkg/apperrors"
)

// fixedSource returns r for every draw.
type fixedSource int

func (f fixedSource) IntN(n int) int {
	if int(f) >= n {
		panic("fixedSource out of range")
	}
	return int(f)
}

func TestNewCatalogRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{name: "empty", entries: nil},
		{name: "zero rarity", entries: []Entry{{Type: "A", Rarity: 1}, {Type: "B", Rarity: 0}}},
		{name: "negative rarity", entries: []Entry{{Type: "A", Rarity: -3}}},
		{name: "blank type", entries: []Entry{{Type: " ", Rarity: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.entries)
			require.ErrorIs(t, err, apperrors.ErrInvalidCatalog)
		})
	}
}

func TestCatalogIsImmutable(t *testing.T) {
	entries := []Entry{{Type: "A", Rarity: 1}, {Type: "B", Rarity: 2}}
	c := MustCatalog(entries)

	entries[0].Rarity = 100
	exposed := c.Entries()
	exposed[1].Type = "Z"

	require.Equal(t, []Entry{{Type: "A", Rarity: 1}, {Type: "B", Rarity: 2}}, c.Entries())
	require.Equal(t, 3, c.TotalWeight())
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.Equal(t, 5, c.Len())
	require.Equal(t, 12, c.TotalWeight())

	weights := make([]int, 0, c.Len())
	for _, e := range c.Entries() {
		weights = append(weights, e.Rarity)
	}
	require.Equal(t, []int{1, 1, 2, 3, 5}, weights)

	e, ok := c.Lookup("Five-Leaf Clover")
	require.True(t, ok)
	require.Equal(t, 5, e.Rarity)
}

func TestDrawWalksCumulativeWeights(t *testing.T) {
	c := DefaultCatalog()
	tests := []struct {
		r    int
		want string
	}{
		{0, "One-Leaf Clover"},
		{1, "Two-Leaf Clover"},
		{2, "Three-Leaf Clover"},
		{3, "Three-Leaf Clover"},
		{4, "Four-Leaf Clover"},
		{6, "Four-Leaf Clover"},
		{7, "Five-Leaf Clover"},
		{11, "Five-Leaf Clover"},
	}

	for _, tt := range tests {
		got, err := NewWeightedAssigner(fixedSource(tt.r)).Draw(c)
		require.NoError(t, err)
		require.Equal(t, tt.want, got.Type, "r=%d", tt.r)
	}
}

func TestDrawInvalidCatalog(t *testing.T) {
	a := NewWeightedAssigner(fixedSource(0))

	_, err := a.Draw(Catalog{})
	require.True(t, errors.Is(err, apperrors.ErrInvalidCatalog))

	_, err = a.Draw(Catalog{entries: []Entry{{Type: "A", Rarity: 2}, {Type: "B", Rarity: 0}}})
	require.ErrorIs(t, err, apperrors.ErrInvalidCatalog)
}

func TestDrawIsReproducibleWithSeed(t *testing.T) {
	c := DefaultCatalog()
	first := NewWeightedAssigner(NewSeededSource(42))
	second := NewWeightedAssigner(NewSeededSource(42))

	for i := 0; i < 50; i++ {
		a, err := first.Draw(c)
		require.NoError(t, err)
		b, err := second.Draw(c)
		require.NoError(t, err)
		require.Equal(t, a, b)
	}
}

func TestDrawConvergesToWeights(t *testing.T) {
	const draws = 120000
	c := DefaultCatalog()
	a := NewWeightedAssigner(NewSeededSource(2024))

	counts := make(map[string]int, c.Len())
	for i := 0; i < draws; i++ {
		e, err := a.Draw(c)
		require.NoError(t, err)
		counts[e.Type]++
	}

	for _, e := range c.Entries() {
		want := float64(e.Rarity) / float64(c.TotalWeight())
		got := float64(counts[e.Type]) / draws
		require.InDelta(t, want, got, 0.01, "%s drawn %d times", e.Type, counts[e.Type])
	}
}

func TestDrawWithSharedSource(t *testing.T) {
	c := DefaultCatalog()
	e, err := NewWeightedAssigner(nil).Draw(c)
	require.NoError(t, err)

	_, ok := c.Lookup(e.Type)
	require.True(t, ok)
}

func TestLockedSourceSharedAcrossGoroutines(t *testing.T) {
	const workers, perWorker = 8, 250
	c := DefaultCatalog()

	want := map[string]int{}
	sequential := NewWeightedAssigner(NewSeededSource(99))
	for i := 0; i < workers*perWorker; i++ {
		e, err := sequential.Draw(c)
		require.NoError(t, err)
		want[e.Type]++
	}

	shared := NewWeightedAssigner(NewLockedSource(NewSeededSource(99)))
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		got = map[string]int{}
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				e, err := shared.Draw(c)
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				got[e.Type]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Every draw asks for the same bound, so the stream is consumed in order
	// regardless of interleaving.
	require.Equal(t, want, got)
}
