package dynamics

import "sync/atomic"

// IDAllocator hands out contiguous blocks of unique IDs. IDs start at 1 and
// are never reused.
type IDAllocator struct {
	next atomic.Uint64
}

// RequestID reserves count consecutive IDs and returns the first and last.
// A count below one reserves a single ID.
func (a *IDAllocator) RequestID(count int) (first, last uint64) {
	if count < 1 {
		count = 1
	}
	last = a.next.Add(uint64(count))
	first = last - uint64(count) + 1
	return first, last
}
