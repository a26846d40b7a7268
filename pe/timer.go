package pe

import (
	"container/heap"
	"time"

	"github.com/fknauf/shoc-go/coro"
)

// timerEntry is one pending Timeout() call.
type timerEntry struct {
	deadline time.Time
	seq      uint64
	slot     *coro.Slot[struct{}]
	index    int // heap.Interface bookkeeping
}

// timerHeap is a min-heap ordered by deadline, ties broken by submission
// order, matching the ancestor event loop's own timer-wheel tie-breaking.
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

var _ = heap.Interface(&timerHeap{})
