package notification

// History remembers the identities of records already let through for one
// client. It grows for the lifetime of the process and is never persisted.
//
// History is not safe for concurrent use; the poll loop is its only caller.
type History struct {
	seen map[Key]struct{}
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{seen: make(map[Key]struct{})}
}

// FilterNew returns the candidates whose identity has not been seen before,
// in input order, and records each of them. A duplicate within the same batch
// is kept once (first occurrence wins). Synthetic records always pass and are
// never recorded.
func (h *History) FilterNew(candidates []Record) []Record {
	out := make([]Record, 0, len(candidates))
	for _, rec := range candidates {
		k, ok := rec.Key()
		if !ok {
			out = append(out, rec)
			continue
		}
		if _, dup := h.seen[k]; dup {
			continue
		}
		h.seen[k] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// Len returns the number of identities recorded.
func (h *History) Len() int { return len(h.seen) }
