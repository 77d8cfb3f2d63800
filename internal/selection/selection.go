package selection

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

// Slots decides how the requested count is interpreted when the first page is forced.
type Slots int

const (
	// SlotsAdditional draws the requested count on top of page 0,
	// so up to requested+1 pages are returned.
	SlotsAdditional Slots = iota
	// SlotsTotal treats the requested count as the total including page 0.
	SlotsTotal
)

func (s Slots) String() string {
	if s == SlotsTotal {
		return "total"
	}
	return "additional"
}

// ParseSlots accepts "additional" or "total" (case-insensitive).
func ParseSlots(s string) (Slots, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "additional":
		return SlotsAdditional, nil
	case "total":
		return SlotsTotal, nil
	}
	return SlotsAdditional, fmt.Errorf("unknown first-page slot mode %q (want additional|total)", s)
}

// Select returns the ascending, distinct page indices to extract from a
// document with total pages. Indices are 0-based.
func Select(total, requested int, forceFirst bool, slots Slots, rng *rand.Rand) []int {
	if total <= 0 {
		return []int{}
	}

	if forceFirst {
		out := []int{0}
		if total == 1 {
			return out
		}
		need := requested
		if slots == SlotsTotal {
			need = requested - 1
		}
		if need < 0 {
			need = 0
		}
		if need > total-1 {
			need = total - 1
		}
		for _, i := range sample(rng, total-1, need) {
			out = append(out, i+1)
		}
		sort.Ints(out)
		return out
	}

	count := requested
	if count < 0 {
		count = 0
	}
	if count >= total {
		return allPages(total)
	}
	out := sample(rng, total, count)
	sort.Ints(out)
	return out
}

// sample draws k distinct values from [0,n) without replacement.
func sample(rng *rand.Rand, n, k int) []int {
	if k <= 0 {
		return []int{}
	}
	if k >= n {
		return allPages(n)
	}
	perm := rng.Perm(n)
	return append([]int(nil), perm[:k]...)
}

func allPages(n int) []int {
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		idx[i] = i
	}
	return idx
}

// Policy bundles the selection settings with a random source that is safe
// to share between workers.
type Policy struct {
	Requested  int
	ForceFirst bool
	Slots      Slots

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPolicy builds a Policy. A zero seed means time-seeded, non-reproducible sampling.
func NewPolicy(requested int, forceFirst bool, slots Slots, seed int64) *Policy {
	if requested < 1 {
		requested = 1
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Policy{
		Requested:  requested,
		ForceFirst: forceFirst,
		Slots:      slots,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Pick selects pages for a document with total pages.
func (p *Policy) Pick(total int) []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Select(total, p.Requested, p.ForceFirst, p.Slots, p.rng)
}
