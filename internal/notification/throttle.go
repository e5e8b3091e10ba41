package notification

import "fmt"

// Unbounded is the notif_max_show sentinel that disables the per-cycle cap.
// Any negative value is treated the same way; 0 is a literal cap.
const Unbounded = -1

// Throttle returns at most limit records from batch, preserving order. When
// records are held back it appends exactly one synthetic overflow record from
// the batch's source stating how many were suppressed.
//
// batch is expected to come from a single source.
func Throttle(batch []Record, limit int) []Record {
	if limit < 0 || len(batch) <= limit {
		return batch
	}

	out := make([]Record, 0, limit+1)
	out = append(out, batch[:limit]...)
	out = append(out, Overflow(batch[0].Source, len(batch)-limit))
	return out
}

// Overflow builds the synthetic record announcing n suppressed notifications.
func Overflow(source string, n int) Record {
	body := fmt.Sprintf("You have %d more notification(s) from this website. "+
		"Please go to the website to see them.", n)
	return New(source, "", body)
}

// Suppressed returns how many records of a batch of size n are held back by limit.
func Suppressed(n, limit int) int {
	if limit < 0 || n <= limit {
		return 0
	}
	return n - limit
}
