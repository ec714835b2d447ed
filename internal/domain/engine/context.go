package engine

import (
	"github.com/prysmaticlabs/go-bitfield"
)

// Context is the pooled per-evaluation scratchpad: the true-predicate
// bitset, the touched-rule list with its companion seen bitset, and the
// per-rule counter array. A Context is owned by the pool and borrowed by
// exactly one evaluation at a time. Between evaluations it is in the reset
// state: no true predicates, no touched rules, all counters zero.
type Context struct {
	truePreds bitfield.Bitlist
	seenRules bitfield.Bitlist
	trueList  []int32
	touched   []int32
	counters  []int32
	activated int

	numPreds int
	numRules int
}

// newContext returns a reset Context sized for the given model dimensions.
func newContext(numRules, numPreds int) *Context {
	return &Context{
		truePreds: bitfield.NewBitlist(uint64(numPreds)),
		seenRules: bitfield.NewBitlist(uint64(numRules)),
		trueList:  make([]int32, 0, numPreds),
		touched:   make([]int32, 0, numRules),
		counters:  make([]int32, numRules),
		numPreds:  numPreds,
		numRules:  numRules,
	}
}

// fits reports whether the context is sized for the model.
func (c *Context) fits(m *Model) bool {
	return c.numRules >= m.NumRules() && c.numPreds >= m.NumPredicates()
}

// grow resizes the context for a model that outgrew it. Existing state is
// discarded; grow is only called on a reset context.
func (c *Context) grow(numRules, numPreds int) {
	if numPreds > c.numPreds {
		c.truePreds = bitfield.NewBitlist(uint64(numPreds))
		c.trueList = make([]int32, 0, numPreds)
		c.numPreds = numPreds
	}
	if numRules > c.numRules {
		c.seenRules = bitfield.NewBitlist(uint64(numRules))
		c.touched = make([]int32, 0, numRules)
		c.counters = make([]int32, numRules)
		c.numRules = numRules
	}
}

// markTrue marks a predicate true, returning false if it already was.
// The true set only grows during an evaluation.
func (c *Context) markTrue(predID int32) bool {
	if c.truePreds.BitAt(uint64(predID)) {
		return false
	}
	c.truePreds.SetBitAt(uint64(predID), true)
	c.trueList = append(c.trueList, predID)
	c.activated++
	return true
}

// isTrue reports whether a predicate is marked true.
func (c *Context) isTrue(predID int32) bool {
	return c.truePreds.BitAt(uint64(predID))
}

// touchRule records a rule's first counter increment. The seen bitset keeps
// the containment check O(1) regardless of how many rules an evaluation
// touches.
func (c *Context) touchRule(ruleID int32) {
	if c.seenRules.BitAt(uint64(ruleID)) {
		return
	}
	c.seenRules.SetBitAt(uint64(ruleID), true)
	c.touched = append(c.touched, ruleID)
}

// Reset restores the context to the freshly-constructed state. Only the
// positions touched by the last evaluation are cleared; with large models
// zeroing the full counter array would dominate the cost of evaluation.
func (c *Context) Reset() {
	for _, p := range c.trueList {
		c.truePreds.SetBitAt(uint64(p), false)
	}
	for _, r := range c.touched {
		c.counters[r] = 0
		c.seenRules.SetBitAt(uint64(r), false)
	}
	c.trueList = c.trueList[:0]
	c.touched = c.touched[:0]
	c.activated = 0
}
