package ranker

import (
	"container/heap"
)

// TopK returns at most k documents from scores in rank order. It keeps a
// bounded min-heap, so memory stays O(k) regardless of the candidate count.
func TopK(scores map[uint32]float64, k int) []ScoredDoc {
	if k <= 0 || len(scores) == 0 {
		return []ScoredDoc{}
	}
	h := &scoredDocHeap{}
	for docID, score := range scores {
		doc := ScoredDoc{DocID: docID, Score: score}
		if h.Len() < k {
			heap.Push(h, doc)
			continue
		}
		if Less(doc, (*h)[0]) {
			(*h)[0] = doc
			heap.Fix(h, 0)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ScoredDoc)
	}
	return result
}

// scoredDocHeap is a min-heap on rank: the root is the worst kept document.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return Less(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
