package aggregate

import (
	"testing"

	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/tagtree"
	"github.com/stretchr/testify/require"
)

func stackTag(id string, count int64) *tagtree.Value {
	return tagtree.Compound(map[string]*tagtree.Value{
		"id":    tagtree.Str(id),
		"Count": tagtree.Int(count),
	})
}

type fakeContainer struct {
	stacks []*Stack
}

func (f *fakeContainer) SlotCount() int { return len(f.stacks) }
func (f *fakeContainer) Stack(i int) (Stack, bool) {
	if f.stacks[i] == nil {
		return Stack{}, false
	}
	return *f.stacks[i], true
}

func TestAggregateContainerSimple(t *testing.T) {
	c := &fakeContainer{stacks: []*Stack{
		{ItemID: "minecraft:diamond", Count: 5},
		nil,
		{ItemID: "minecraft:diamond", Count: 2},
		{ItemID: "minecraft:stick", Count: 64},
	}}
	result, outcome := AggregateContainer(c, nil)
	require.False(t, outcome.Truncated)
	require.EqualValues(t, 7, result["minecraft:diamond"])
	require.EqualValues(t, 64, result["minecraft:stick"])
}

func TestAggregateContainerFilterStillRecurses(t *testing.T) {
	nested := tagtree.Compound(map[string]*tagtree.Value{
		"Items": tagtree.List(stackTag("minecraft:diamond", 3)),
	})
	c := &fakeContainer{stacks: []*Stack{
		{ItemID: "minecraft:stick", Count: 1, Nested: nested},
	}}
	filter := model.NewItemFilter([]string{"minecraft:diamond"})
	result, _ := AggregateContainer(c, filter)
	require.EqualValues(t, 3, result["minecraft:diamond"])
	_, hasStick := result["minecraft:stick"]
	require.False(t, hasStick)
}

func TestAggregateNestedIgnoresBadStacks(t *testing.T) {
	root := tagtree.List(
		stackTag("nocolon", 5),            // missing ":" -> ignored
		stackTag("minecraft:diamond", 0),   // count <= 0 -> ignored
		stackTag("minecraft:diamond", -3),  // negative -> ignored
		stackTag("minecraft:emerald", 9),
	)
	result, outcome := AggregateNested(root, nil)
	require.False(t, outcome.Truncated)
	require.Len(t, result, 1)
	require.EqualValues(t, 9, result["minecraft:emerald"])
}

func TestAggregateNestedCycleDetection(t *testing.T) {
	a := tagtree.Compound(map[string]*tagtree.Value{
		"id":    tagtree.Str("minecraft:emerald"),
		"Count": tagtree.Int(3),
	})
	b := tagtree.Compound(map[string]*tagtree.Value{
		"ref": a,
	})
	a.Compound["ref"] = b // a -> b -> a cycle

	result, outcome := AggregateNested(a, nil)
	require.EqualValues(t, 3, result["minecraft:emerald"])
	require.True(t, outcome.Truncated)
}

func TestAggregateNestedDepthBound(t *testing.T) {
	var leaf *tagtree.Value = stackTag("minecraft:emerald", 1)
	cur := leaf
	for i := 0; i < MaxDepth+5; i++ {
		cur = tagtree.Compound(map[string]*tagtree.Value{"child": cur})
	}
	_, outcome := AggregateNested(cur, nil)
	require.True(t, outcome.Truncated)
}

func TestAggregateNestedMultiplier(t *testing.T) {
	inner := tagtree.List(stackTag("minecraft:emerald", 2))
	backpack := tagtree.Compound(map[string]*tagtree.Value{
		"id":      tagtree.Str("mod:backpack"),
		"Count":   tagtree.Int(3),
		"Items":   inner,
	})
	result, outcome := AggregateNested(backpack, nil)
	require.False(t, outcome.Truncated)
	// backpack itself counts once at its own stack size, and its contents
	// are multiplied by how many backpacks are stacked together.
	require.EqualValues(t, 3, result["mod:backpack"])
	require.EqualValues(t, 6, result["minecraft:emerald"])
}
