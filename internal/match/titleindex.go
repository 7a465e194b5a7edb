package match

import "sort"

// titleIndex keeps canonical titles in sorted order so truncated-title
// prefixes can be resolved by binary search instead of a scan. It is
// deliberately separate from the exact-match maps: it is order-preserving
// and answers prefix queries, which the maps cannot.
//
// Duplicate titles may be inserted more than once; Remove takes out one
// occurrence.
type titleIndex struct {
	titles []string
}

// Insert adds a canonical title, keeping the list sorted.
func (ti *titleIndex) Insert(title string) {
	i := sort.SearchStrings(ti.titles, title)
	ti.titles = append(ti.titles, "")
	copy(ti.titles[i+1:], ti.titles[i:])
	ti.titles[i] = title
}

// Remove deletes one occurrence of title. It reports whether the title was
// present.
func (ti *titleIndex) Remove(title string) bool {
	i := sort.SearchStrings(ti.titles, title)
	if i == len(ti.titles) || ti.titles[i] != title {
		return false
	}
	ti.titles = append(ti.titles[:i], ti.titles[i+1:]...)
	return true
}

// FirstWithPrefix returns the lexicographically first stored title that
// starts with prefix. The sorted order guarantees that if any stored title
// has the prefix, the first title >= prefix does.
func (ti *titleIndex) FirstWithPrefix(prefix string) (string, bool) {
	i := sort.SearchStrings(ti.titles, prefix)
	if i == len(ti.titles) || len(ti.titles[i]) < len(prefix) || ti.titles[i][:len(prefix)] != prefix {
		return "", false
	}
	return ti.titles[i], true
}

// Len returns the number of stored titles.
func (ti *titleIndex) Len() int { return len(ti.titles) }
