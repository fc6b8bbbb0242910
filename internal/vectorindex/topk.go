package vectorindex

import "container/heap"

// topK keeps the k highest-scoring hits seen so far. Equal scores are
// ordered by ID so results are deterministic.
type topK struct {
	k int
	h hitHeap
}

func newTopK(k int) *topK {
	return &topK{k: k, h: make(hitHeap, 0, k+1)}
}

func (t *topK) push(hit Hit) {
	if t.k <= 0 {
		return
	}
	heap.Push(&t.h, hit)
	if t.h.Len() > t.k {
		heap.Pop(&t.h)
	}
}

// sorted drains the heap, best hit first.
func (t *topK) sorted() []Hit {
	out := make([]Hit, t.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&t.h).(Hit)
	}
	return out
}

type hitHeap []Hit

func (h hitHeap) Len() int { return len(h) }

func (h hitHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].ID > h[j].ID
}

func (h hitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x interface{}) {
	*h = append(*h, x.(Hit))
}

func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
