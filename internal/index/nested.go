package index

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/loopwic/lattice-scan/internal/aggregate"
	"github.com/loopwic/lattice-scan/internal/cmn"
	"github.com/loopwic/lattice-scan/internal/model"
	"github.com/loopwic/lattice-scan/internal/tagtree"
)

// nestedStorageFile is the mod-specific data blob spec §4.C names only as
// "the mod-specific .dat file under data/". Resolved here to a fixed,
// documented filename (see DESIGN.md) rather than a configurable path,
// since no other part of the functional description gives it a name.
const nestedStorageFile = "storage_network.dat"

var canonicalUUID = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// SeedNestedStorage reads the per-mod nested-storage data blob and
// resolves every UUID entry's full aggregate, following "backpack-like"
// nested-container references across UUID boundaries (spec §4.C).
func SeedNestedStorage(worldRoot string, filter *model.ItemFilter) ([]model.NestedStorageRoot, error) {
	path := filepath.Join(worldRoot, "data", nestedStorageFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, cmn.NewCodedError(cmn.FailureNestedDataUnavailable, "nested storage file unavailable", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, cmn.NewCodedError(cmn.FailureNestedDataUnavailable, "nested storage file not gzip", err)
	}
	defer gr.Close()

	root, err := tagtree.Decode(gr)
	if err != nil {
		return nil, cmn.NewCodedError(cmn.FailureNestedDataUnavailable, "nested storage file corrupt", err)
	}

	byUUID := make(map[string]*tagtree.Value)
	entries := root.Get("entries")
	if entries != nil {
		for _, e := range entries.List {
			id, ok := e.Get("uuid").AsString()
			if !ok {
				continue
			}
			byUUID[strings.ToLower(id)] = e.Get("contents")
		}
	}

	r := &nestedResolver{byUUID: byUUID, filter: filter, cache: make(map[string]nestedResult)}
	out := make([]model.NestedStorageRoot, 0, len(byUUID))
	for id := range byUUID {
		res := r.resolve(id)
		out = append(out, model.NestedStorageRoot{StorageID_: id, ItemCounts: res.counts})
	}
	return out, nil
}

type nestedResult struct {
	counts    map[string]int64
	truncated bool
}

// nestedResolver resolves one UUID's contents tree to a final item-count
// map, following backpack-like items' embedded UUID references into
// sibling entries of the same data file. Results are memoised per root
// UUID passed to resolve; a sub-container reached through a backpack
// reference is walked again for every root that references it.
type nestedResolver struct {
	byUUID map[string]*tagtree.Value
	filter *model.ItemFilter
	cache  map[string]nestedResult
}

func (r *nestedResolver) resolve(id string) nestedResult {
	if cached, ok := r.cache[id]; ok {
		return cached
	}
	out := make(map[string]int64)
	visited := map[string]struct{}{id: {}}
	truncated := r.walk(r.byUUID[id], 0, 1, visited, out)
	res := nestedResult{counts: out, truncated: truncated}
	r.cache[id] = res
	return res
}

// walk mirrors internal/aggregate's generic tree walk, with one addition:
// a backpack-like stack's contents are not read from its own inline
// sub-structure but fetched by following its embedded storage UUID into
// another entry of the same file (spec §4.C).
func (r *nestedResolver) walk(v *tagtree.Value, depth int, multiplier int64, visitedUUIDs map[string]struct{}, out map[string]int64) bool {
	if v == nil {
		return false
	}
	if depth > aggregate.MaxDepth {
		return true
	}
	switch v.Kind {
	case tagtree.KindCompound:
		itemID, count, ok := stackLike(v)
		if ok {
			if r.filter.Accept(itemID) {
				out[itemID] += saturatingMultiply(count, multiplier)
			}
			nextMult := saturatingMultiplier(multiplier, count)
			if isBackpackLike(itemID) {
				nestedUUID, found := extractNestedUUID(v)
				if !found {
					return false
				}
				nestedUUID = strings.ToLower(nestedUUID)
				if _, seen := visitedUUIDs[nestedUUID]; seen {
					return true
				}
				contents, known := r.byUUID[nestedUUID]
				if !known {
					return false
				}
				visitedUUIDs[nestedUUID] = struct{}{}
				return r.walk(contents, depth+1, nextMult, visitedUUIDs, out)
			}
		}
		truncated := false
		for _, child := range v.Compound {
			if r.walk(child, depth+1, multiplier, visitedUUIDs, out) {
				truncated = true
			}
		}
		return truncated
	case tagtree.KindList:
		truncated := false
		for _, child := range v.List {
			if r.walk(child, depth+1, multiplier, visitedUUIDs, out) {
				truncated = true
			}
		}
		return truncated
	default:
		return false
	}
}

func stackLike(v *tagtree.Value) (itemID string, count int64, ok bool) {
	idStr, hasID := v.Get("id").AsString()
	if !hasID || !strings.Contains(idStr, ":") {
		return "", 0, false
	}
	for _, key := range []string{"Count", "count", "amount"} {
		if n, present := v.Get(key).AsInt64(); present && n > 0 {
			return strings.ToLower(strings.TrimSpace(idStr)), n, true
		}
	}
	return "", 0, false
}

// isBackpackLike applies spec §4.C's "item-id namespace/path convention
// for backpack-like items": the path component names one of the common
// portable-storage item families.
func isBackpackLike(itemID string) bool {
	parts := strings.SplitN(itemID, ":", 2)
	if len(parts) != 2 {
		return false
	}
	path := parts[1]
	for _, kw := range []string{"backpack", "satchel", "pouch", "rucksack"} {
		if strings.Contains(path, kw) {
			return true
		}
	}
	return false
}

// extractNestedUUID tries, in order, the four encodings spec §4.C lists:
// a structured storage_uuid string/IntArray component, a {most,least}
// long pair, and a text match of the canonical UUID pattern anywhere in
// the stack's own tag data.
func extractNestedUUID(stack *tagtree.Value) (string, bool) {
	candidates := []*tagtree.Value{stack, stack.Get("tag"), stack.Get("components")}
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if s, ok := uuidFromStorageUUIDField(c); ok {
			return s, true
		}
		if s, ok := uuidFromMostLeastFields(c); ok {
			return s, true
		}
	}
	for _, c := range candidates {
		if s, ok := uuidFromTextScan(c, 0); ok {
			return s, true
		}
	}
	return "", false
}

func uuidFromStorageUUIDField(c *tagtree.Value) (string, bool) {
	field := c.Get("storage_uuid")
	if field == nil {
		return "", false
	}
	if s, ok := field.AsString(); ok && canonicalUUID.MatchString(s) {
		return s, true
	}
	if field.Kind == tagtree.KindIntArray && len(field.IntArr) == 4 {
		return uuidFromIntArray(field.IntArr), true
	}
	return "", false
}

func uuidFromMostLeastFields(c *tagtree.Value) (string, bool) {
	pairs := [][2]string{
		{"uuid_most", "uuid_least"},
		{"UUIDMost", "UUIDLeast"},
		{"storage_uuid_most", "storage_uuid_least"},
	}
	for _, p := range pairs {
		most, okM := c.Get(p[0]).AsInt64()
		least, okL := c.Get(p[1]).AsInt64()
		if okM && okL {
			return uuidFromMostLeast(most, least), true
		}
	}
	return "", false
}

func uuidFromIntArray(arr []int32) string {
	most := int64(arr[0])<<32 | int64(uint32(arr[1]))
	least := int64(arr[2])<<32 | int64(uint32(arr[3]))
	return uuidFromMostLeast(most, least)
}

func uuidFromMostLeast(most, least int64) string {
	var b [16]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(most >> (56 - 8*i))
		b[8+i] = byte(least >> (56 - 8*i))
	}
	u, err := uuid.FromBytes(b[:])
	if err != nil {
		return ""
	}
	return u.String()
}

const maxTextScanDepth = 4

// uuidFromTextScan is the last-resort fallback: scan string-valued
// fields for a canonical UUID pattern, bounded shallow so a malformed or
// adversarial blob can't force unbounded recursion.
func uuidFromTextScan(v *tagtree.Value, depth int) (string, bool) {
	if v == nil || depth > maxTextScanDepth {
		return "", false
	}
	switch v.Kind {
	case tagtree.KindString:
		if canonicalUUID.MatchString(v.Str) {
			return v.Str, true
		}
	case tagtree.KindCompound:
		for _, child := range v.Compound {
			if s, ok := uuidFromTextScan(child, depth+1); ok {
				return s, true
			}
		}
	case tagtree.KindList:
		for _, child := range v.List {
			if s, ok := uuidFromTextScan(child, depth+1); ok {
				return s, true
			}
		}
	}
	return "", false
}

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
