// Package aggregate implements the Aggregator (spec §4.A): walking a
// container or a decoded tagged tree to a map<item-id, count>, honouring
// an optional item filter, bounded by depth and per-root visit budget.
//
// The teacher has no direct analogue (AIStore objects don't nest), but
// the traversal shape below follows the same pattern the teacher uses for
// every other bounded walk in this codebase: an explicit work list plus a
// visited set, rather than unbounded recursion with an exception for
// cutoff (mirror/dpromote.go and fs.Walk's Callback-based traversal do the
// same thing for directory trees). Design Note 5 in spec §9 asks for an
// explicit TraversalOutcome::Truncated-style return instead of throwing;
// Outcome.Truncated below is that value.
package aggregate

import (
	"strings"
	"unsafe"

	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/tagtree"
)

const (
	// MaxDepth is the traversal depth bound of spec §3 ("Traversal Context").
	MaxDepth = 8
	// MaxNodeVisits is the per-root visited-node budget of spec §3.
	MaxNodeVisits = 4096
)

// Stack is one non-empty slot of a Container: an item-id/count pair plus
// whatever sub-structure (e.g. a backpack's own serialized inventory) is
// attached to it.
type Stack struct {
	ItemID string
	Count  int64
	Nested *tagtree.Value
}

// Container is a host-provided indexed collection of item stacks: a
// player inventory, an ender chest, a block-entity's slots. HostBridge
// implementations adapt the live host API to this interface.
type Container interface {
	SlotCount() int
	// Stack returns the stack at slot i, or ok=false if the slot is empty.
	Stack(i int) (Stack, bool)
}

// Outcome reports whether a traversal ran to completion or was cut off by
// a depth/visit bound. A truncated traversal is never an error (spec
// §4.A, §8): the scanner reading it just sets PARTIAL_COMPLETED.
type Outcome struct {
	Truncated bool
}

// context carries the per-root traversal budget shared across the whole
// walk; depth is threaded by value because sibling branches must not
// share a depth counter, only the visited set and remaining-visit budget.
type context struct {
	remaining int
	visited   map[uintptr]struct{}
}

func newContext() *context {
	return &context{remaining: MaxNodeVisits, visited: make(map[uintptr]struct{}, 64)}
}

// visit marks ptr as seen, returning false if it was already visited
// (cycle) or the budget is exhausted.
func (c *context) visit(ptr uintptr) bool {
	if c.remaining <= 0 {
		return false
	}
	if ptr != 0 {
		if _, seen := c.visited[ptr]; seen {
			return false
		}
		c.visited[ptr] = struct{}{}
	}
	c.remaining--
	return true
}

// AggregateContainer iterates a container's indexed slots, adding each
// non-empty stack's count (at multiplier 1, the root multiplier) to the
// result map, then recursing into nested sub-structure (spec §4.A.1).
func AggregateContainer(c Container, filter *model.ItemFilter) (map[string]int64, Outcome) {
	result := make(map[string]int64)
	ctx := newContext()
	outcome := Outcome{}
	for i := 0; i < c.SlotCount(); i++ {
		stack, ok := c.Stack(i)
		if !ok {
			continue
		}
		mergeStack(stack, filter, result, ctx, 0, &outcome)
	}
	return result, outcome
}

// AggregateNested walks a decoded tagged tree (spec §4.A.2), recognising
// stack-like compounds (an "id" field with a namespace:path value and a
// positive count under Count/count/amount) and recursing into every
// compound/list/array otherwise.
func AggregateNested(v *tagtree.Value, filter *model.ItemFilter) (map[string]int64, Outcome) {
	result := make(map[string]int64)
	ctx := newContext()
	outcome := Outcome{}
	walk(v, filter, result, ctx, 0, 1, &outcome)
	return result, outcome
}

// mergeStack folds one container slot's stack into result, then recurses
// into its nested tag tree (if any) at the stack's multiplier.
func mergeStack(s Stack, filter *model.ItemFilter, result map[string]int64, ctx *context, depth int, outcome *Outcome) {
	itemID := normalizeItemID(s.ItemID)
	if itemID != "" && s.Count > 0 && filter.Accept(itemID) {
		result[itemID] += s.Count
	}
	if s.Nested == nil {
		return
	}
	mult := saturatingMultiplier(1, s.Count)
	walk(s.Nested, filter, result, ctx, depth, mult, outcome)
}

// walk is the generic graph traversal: maps (compounds), lists, arrays
// and scalar leaves. A compound that looks like an item stack contributes
// to result and also recurses (a nested stack may itself contain nested
// stacks, e.g. a backpack inside a backpack).
func walk(v *tagtree.Value, filter *model.ItemFilter, result map[string]int64, ctx *context, depth int, multiplier int64, outcome *Outcome) {
	if v == nil {
		return
	}
	if depth > MaxDepth {
		outcome.Truncated = true
		return
	}
	switch v.Kind {
	case tagtree.KindCompound:
		ptr := uintptr(unsafe.Pointer(v))
		if !ctx.visit(ptr) {
			outcome.Truncated = true
			return
		}
		if itemID, count, ok := stackLike(v); ok {
			if filter.Accept(itemID) {
				total := saturatingMultiply(count, multiplier)
				result[itemID] += total
			}
			nextMult := saturatingMultiplier(multiplier, count)
			for _, child := range v.Compound {
				walk(child, filter, result, ctx, depth+1, nextMult, outcome)
			}
			return
		}
		for _, child := range v.Compound {
			walk(child, filter, result, ctx, depth+1, multiplier, outcome)
		}
	case tagtree.KindList:
		ptr := uintptr(unsafe.Pointer(v))
		if !ctx.visit(ptr) {
			outcome.Truncated = true
			return
		}
		for _, child := range v.List {
			walk(child, filter, result, ctx, depth+1, multiplier, outcome)
		}
	case tagtree.KindByteArray, tagtree.KindIntArray, tagtree.KindLongArray:
		// scalar arrays carry no item-stack semantics; nothing to recurse into
	default:
		// scalar leaf: nothing to do
	}
}

// stackLike reports whether v is a stack-shaped compound: has an "id"
// field whose string value contains ":" and one of the count fields
// (Count/count/amount, first positive wins) per spec §4.A contracts.
func stackLike(v *tagtree.Value) (itemID string, count int64, ok bool) {
	idField := v.Get("id")
	idStr, hasID := idField.AsString()
	if !hasID || !strings.Contains(idStr, ":") {
		return "", 0, false
	}
	for _, key := range []string{"Count", "count", "amount"} {
		if n, present := v.Get(key).AsInt64(); present && n > 0 {
			return normalizeItemID(idStr), n, true
		}
	}
	return "", 0, false
}

func normalizeItemID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if !strings.Contains(id, ":") {
		return ""
	}
	return id
}

// saturatingMultiplier folds a new stack count into the ambient
// multiplier: max(1, count), clamped so the cumulative product never
// overflows 32 bits, saturating at i32::MAX (spec §4.A contracts).
func saturatingMultiplier(ambient, count int64) int64 {
	factor := count
	if factor < 1 {
		factor = 1
	}
	return saturatingMultiply(ambient, factor)
}

func saturatingMultiply(a, b int64) int64 {
	const maxI32 = int64(1<<31 - 1)
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > maxI32/b {
		return maxI32
	}
	product := a * b
	if product > maxI32 {
		return maxI32
	}
	return product
}
