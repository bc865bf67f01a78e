package model

import "strings"

// ItemFilter is the rule-configured item filter of spec §3: a set of
// normalised (namespace:path, lowercased) item identifiers. An empty set
// accepts everything.
type ItemFilter struct {
	set map[string]struct{}
}

// NewItemFilter normalises and dedupes the given ids.
func NewItemFilter(ids []string) *ItemFilter {
	f := &ItemFilter{set: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		norm := strings.ToLower(strings.TrimSpace(id))
		if norm == "" {
			continue
		}
		f.set[norm] = struct{}{}
	}
	return f
}

// Empty reports whether the filter has no configured ids, i.e. accepts
// everything.
func (f *ItemFilter) Empty() bool {
	return f == nil || len(f.set) == 0
}

// Accept reports whether itemID passes the filter. itemID is expected to
// already be normalised by the caller (aggregate package normalises on
// ingest); Accept re-normalises defensively all the same.
func (f *ItemFilter) Accept(itemID string) bool {
	if f.Empty() {
		return true
	}
	norm := strings.ToLower(strings.TrimSpace(itemID))
	_, ok := f.set[norm]
	return ok
}

// Ids returns the configured ids in no particular order.
func (f *ItemFilter) Ids() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.set))
	for id := range f.set {
		out = append(out, id)
	}
	return out
}
