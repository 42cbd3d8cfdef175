package reconcile

import (
	"sort"
	"strings"
)

// Handle is the opaque identity a store assigns to a card.
//
// The reconciler only carries handles from ListRecords back into ApplyUpdate.
// Store implementations create them with NewHandle and read them with Key.
type Handle struct {
	key string
}

// NewHandle wraps a store-specific identifier.
func NewHandle(key string) Handle {
	return Handle{key: key}
}

// Key returns the store-specific identifier. Only stores should call it.
func (h Handle) Key() string {
	return h.key
}

// IsZero reports whether the handle was never assigned.
func (h Handle) IsZero() bool {
	return h.key == ""
}

// Tags is a set of tag names kept sorted and free of duplicates.
// The zero value is an empty set.
type Tags []string

// NewTags builds a tag set. Blank names are dropped.
func NewTags(names ...string) Tags {
	seen := make(map[string]struct{}, len(names))
	tags := make(Tags, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
	}
	sort.Strings(tags)
	return tags
}

// Union returns the set union of t and other. Neither input is modified.
func (t Tags) Union(other Tags) Tags {
	merged := make([]string, 0, len(t)+len(other))
	merged = append(merged, t...)
	merged = append(merged, other...)
	return NewTags(merged...)
}

// Contains reports whether name is in the set.
func (t Tags) Contains(name string) bool {
	i := sort.SearchStrings(t, name)
	return i < len(t) && t[i] == name
}

// Equal reports whether both sets hold the same names.
func (t Tags) Equal(other Tags) bool {
	a, b := NewTags(t...), NewTags(other...)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String joins the names with commas.
func (t Tags) String() string {
	return strings.Join(t, ",")
}

// SourceRecord is one card as described by the source table.
type SourceRecord struct {
	Front string
	Back  string
	Tags  Tags
}

// StoreRecord is one card as held by the store.
type StoreRecord struct {
	ID    Handle
	Front string
	Back  string
	Tags  Tags
}

// Kind classifies a planned mutation.
type Kind int

const (
	// KindSkip marks a matched card whose back text is unchanged.
	KindSkip Kind = iota
	// KindUpdate marks a matched card whose back text changed.
	KindUpdate
	// KindInsert marks a source card with no match in the store.
	KindInsert
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSkip:
		return "skip"
	case KindUpdate:
		return "update"
	case KindInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// Mutation is one entry of a reconciliation plan.
//
// For KindUpdate, ID is the store card, Back the new back text and Tags the
// union of store and source tags. For KindInsert, ID is zero and Tags are the
// source tags as given. For KindSkip only ID and Front are meaningful.
type Mutation struct {
	Kind  Kind
	ID    Handle
	Front string
	Back  string
	Tags  Tags
}

// Describe returns the audit line for the mutation, or "" for a skip.
func (m Mutation) Describe() string {
	switch m.Kind {
	case KindUpdate:
		return "Updating " + m.Front
	case KindInsert:
		return "Inserting " + m.Front
	default:
		return ""
	}
}
