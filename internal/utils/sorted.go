package utils

import "sort"

// SortedCopy returns a sorted copy of ss, leaving the input untouched
func SortedCopy(ss []string) []string {
	sorted := make([]string, len(ss))
	copy(sorted, ss)
	sort.Strings(sorted)

	return sorted
}

// Diff returns the entries only present in before (removed) and only present in after (added).
// Both results are sorted and free of duplicates.
func Diff(before, after []string) (removed, added []string) {
	return missingFrom(before, after), missingFrom(after, before)
}

func missingFrom(from, other []string) []string {
	present := make(map[string]bool, len(other))
	for _, s := range other {
		present[s] = true
	}

	var out []string
	for _, s := range SortedCopy(from) {
		if present[s] {
			continue
		}

		present[s] = true
		out = append(out, s)
	}

	return out
}
