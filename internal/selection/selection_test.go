package selection

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand() *rand.Rand { return rand.New(rand.NewSource(42)) }

func assertValidSelection(t *testing.T, got []int, total int) {
	t.Helper()
	assert.LessOrEqual(t, len(got), total)
	for i, p := range got {
		assert.GreaterOrEqual(t, p, 0)
		assert.Less(t, p, total)
		if i > 0 {
			assert.Greater(t, p, got[i-1], "selection must be strictly ascending")
		}
	}
}

func TestSelectInvariants(t *testing.T) {
	rng := newRand()
	for total := 0; total <= 25; total++ {
		for requested := 1; requested <= 30; requested++ {
			for _, force := range []bool{true, false} {
				for _, slots := range []Slots{SlotsAdditional, SlotsTotal} {
					got := Select(total, requested, force, slots, rng)
					assertValidSelection(t, got, total)

					if total == 0 {
						assert.Empty(t, got)
						continue
					}
					if force {
						require.NotEmpty(t, got)
						assert.Equal(t, 0, got[0], "first page must be forced")
					}
					if !force && requested >= total {
						assert.Equal(t, allPages(total), got)
					}
				}
			}
		}
	}
}

func TestSelectSizes(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		requested int
		force     bool
		slots     Slots
		wantLen   int
	}{
		{"ten pages three requested", 10, 3, false, SlotsAdditional, 3},
		{"single page forced", 1, 5, true, SlotsAdditional, 1},
		{"five pages ten requested", 5, 10, false, SlotsAdditional, 5},
		{"forced additional slots", 10, 3, true, SlotsAdditional, 4},
		{"forced total slots", 10, 3, true, SlotsTotal, 3},
		{"forced total slots one requested", 10, 1, true, SlotsTotal, 1},
		{"forced clamps to document", 4, 10, true, SlotsAdditional, 4},
		{"empty document", 0, 3, true, SlotsAdditional, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.total, tt.requested, tt.force, tt.slots, newRand())
			assert.Len(t, got, tt.wantLen)
			assertValidSelection(t, got, tt.total)
		})
	}
}

func TestSelectAllPagesSkipsRandomness(t *testing.T) {
	// nil generator would panic if randomness were invoked
	assert.Equal(t, []int{0, 1, 2, 3, 4}, Select(5, 10, false, SlotsAdditional, nil))
	assert.Equal(t, []int{0, 1, 2}, Select(3, 3, false, SlotsAdditional, nil))
	assert.Equal(t, []int{0}, Select(1, 5, true, SlotsAdditional, nil))
}

func TestSeededPolicyIsReproducible(t *testing.T) {
	a := NewPolicy(3, false, SlotsAdditional, 7)
	b := NewPolicy(3, false, SlotsAdditional, 7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Pick(100), b.Pick(100))
	}
}

func TestPolicyClampsRequested(t *testing.T) {
	p := NewPolicy(0, false, SlotsAdditional, 1)
	assert.Equal(t, 1, p.Requested)
	assert.Len(t, p.Pick(10), 1)
}

func TestPolicyConcurrentPick(t *testing.T) {
	p := NewPolicy(4, true, SlotsAdditional, 0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got := p.Pick(30)
				assert.Len(t, got, 5)
				assert.Equal(t, 0, got[0])
			}
		}()
	}
	wg.Wait()
}

func TestParseSlots(t *testing.T) {
	s, err := ParseSlots("Total")
	require.NoError(t, err)
	assert.Equal(t, SlotsTotal, s)

	s, err = ParseSlots("")
	require.NoError(t, err)
	assert.Equal(t, SlotsAdditional, s)

	_, err = ParseSlots("some")
	assert.Error(t, err)
	assert.Equal(t, "total", SlotsTotal.String())
}
