package pipeline

import (
	"slices"
	"time"

	"replay/internal/export"
)

// Merge concatenates the sequences in order and drops records whose
// canonical key was already seen, keeping the first occurrence. It returns
// the merged records and the number of duplicates removed.
func Merge(sequences [][]export.Record) ([]export.Record, int) {
	total := 0
	for _, seq := range sequences {
		total += len(seq)
	}
	seen := make(map[export.Key]struct{}, total)
	merged := make([]export.Record, 0, total)
	for _, seq := range sequences {
		for _, rec := range seq {
			if _, dup := seen[rec.Key]; dup {
				continue
			}
			seen[rec.Key] = struct{}{}
			merged = append(merged, rec)
		}
	}
	return merged, total - len(merged)
}

// SortByTimestamp stably orders records by the named timestamp field.
// Records without a parseable timestamp keep their relative order after
// every timestamped record. It returns how many records lacked a timestamp.
func SortByTimestamp(records []export.Record, field string) int {
	type keyed struct {
		rec export.Record
		at  time.Time
		ok  bool
	}
	items := make([]keyed, len(records))
	missing := 0
	for i, rec := range records {
		at, ok := rec.Timestamp(field)
		if !ok {
			missing++
		}
		items[i] = keyed{rec: rec, at: at, ok: ok}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		switch {
		case a.ok && b.ok:
			return a.at.Compare(b.at)
		case a.ok:
			return -1
		case b.ok:
			return 1
		default:
			return 0
		}
	})
	for i, item := range items {
		records[i] = item.rec
	}
	return missing
}
