package store

// touchHeap implements heap.Interface over items, oldest first.
type touchHeap []*item

func (h touchHeap) Len() int           { return len(h) }
func (h touchHeap) Less(i, j int) bool { return older(h[i].entry, h[j].entry) }

func (h touchHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *touchHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *touchHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}
