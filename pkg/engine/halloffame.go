package engine

import (
	"github.com/ishanwen-byte/symrule-go/internal/types"
	"github.com/ishanwen-byte/symrule-go/pkg/gp"
)

// HallOfFame is a bounded, deduplicated collection of the best
// individuals ever observed, ordered by descending fitness. Two
// individuals with the same canonical string are considered identical;
// the worst entry is dropped on overflow.
type HallOfFame struct {
	capacity int
	entries  []*gp.Individual
	index    map[string]struct{}
}

// NewHallOfFame creates an empty hall of fame with the given capacity.
func NewHallOfFame(capacity int) *HallOfFame {
	return &HallOfFame{
		capacity: capacity,
		index:    make(map[string]struct{}),
	}
}

// Update offers a batch of evaluated individuals to the hall of fame.
func (h *HallOfFame) Update(inds []*gp.Individual) {
	for _, ind := range inds {
		if ind == nil || !ind.HasFitness() {
			continue
		}
		if h.Len() >= h.capacity && ind.Fitness() <= h.worstFitness() {
			continue
		}
		h.insert(ind)
	}
}

func (h *HallOfFame) worstFitness() float64 {
	return h.entries[len(h.entries)-1].Fitness()
}

func (h *HallOfFame) insert(ind *gp.Individual) {
	key := ind.String()
	if _, dup := h.index[key]; dup {
		return
	}

	pos := len(h.entries)
	for pos > 0 && h.entries[pos-1].Fitness() < ind.Fitness() {
		pos--
	}
	h.entries = append(h.entries, nil)
	copy(h.entries[pos+1:], h.entries[pos:])
	h.entries[pos] = ind.Clone()
	h.index[key] = struct{}{}

	if len(h.entries) > h.capacity {
		dropped := h.entries[len(h.entries)-1]
		h.entries = h.entries[:len(h.entries)-1]
		delete(h.index, dropped.String())
	}
}

// Best returns the best-ever individual, or nil when empty.
func (h *HallOfFame) Best() *gp.Individual {
	if len(h.entries) == 0 {
		return nil
	}
	return h.entries[0]
}

// Top returns up to k entries in descending fitness order.
func (h *HallOfFame) Top(k int) []types.HofEntry {
	if k > len(h.entries) {
		k = len(h.entries)
	}
	out := make([]types.HofEntry, 0, k)
	for _, ind := range h.entries[:k] {
		out = append(out, types.HofEntry{
			Expression: ind.String(),
			Fitness:    ind.Fitness(),
		})
	}
	return out
}

// Len returns the number of entries.
func (h *HallOfFame) Len() int {
	return len(h.entries)
}

// Capacity returns the maximum number of entries.
func (h *HallOfFame) Capacity() int {
	return h.capacity
}

// Contains reports whether an individual with the same canonical string
// is already present.
func (h *HallOfFame) Contains(ind *gp.Individual) bool {
	_, ok := h.index[ind.String()]
	return ok
}

// Clear removes all entries. Safe to call repeatedly.
func (h *HallOfFame) Clear() {
	h.entries = nil
	h.index = make(map[string]struct{})
}
