package snapshot

import (
	"sort"

	"invcli/internal/errs"
)

// Order sorts refs ascending by snapshot date.
//
// Two files resolving to the same date make the fold order ambiguous,
// which would corrupt first/last-observed provenance. By default that
// is a DuplicateDateError. With allowDuplicates the first file in
// input order is kept per date and the rest are returned as dropped
// for the caller to count and log.
func Order(refs []Reference, allowDuplicates bool) (ordered, dropped []Reference, err error) {
	ordered = make([]Reference, len(refs))
	copy(ordered, refs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	for i := 1; i < len(ordered); i++ {
		if !ordered[i].Date.Equal(ordered[i-1].Date) {
			continue
		}
		if !allowDuplicates {
			dup := &errs.DuplicateDateError{Date: ordered[i].Date}
			for _, r := range ordered {
				if r.Date.Equal(ordered[i].Date) {
					dup.Files = append(dup.Files, r.Name)
				}
			}
			return nil, nil, dup
		}
		dropped = append(dropped, ordered[i])
		ordered = append(ordered[:i], ordered[i+1:]...)
		i--
	}

	return ordered, dropped, nil
}
