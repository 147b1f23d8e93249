// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package governance

import "container/heap"

type rankEntry struct {
	id  uint64
	yes uint64
}

// ranksBelow reports whether a ranks strictly lower than b: fewer yes votes,
// or equal yes votes and a larger id.
func ranksBelow(a, b rankEntry) bool {
	if a.yes != b.yes {
		return a.yes < b.yes
	}
	return a.id > b.id
}

// rankHeap is a min-heap whose root is the lowest ranked entry kept so far.
type rankHeap []rankEntry

func (h rankHeap) Len() int           { return len(h) }
func (h rankHeap) Less(i, j int) bool { return ranksBelow(h[i], h[j]) }
func (h rankHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *rankHeap) Push(x any) { *h = append(*h, x.(rankEntry)) }

func (h *rankHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// RankTop selects the ids of the k proposals with the most yes votes,
// breaking ties by ascending id. The result has min(k, len(proposals))
// entries, highest ranked first. The input is only read.
func RankTop(proposals []*Proposal, k int) []uint64 {
	if k <= 0 || len(proposals) == 0 {
		return []uint64{}
	}
	if k > len(proposals) {
		k = len(proposals)
	}
	h := make(rankHeap, 0, k)
	for _, p := range proposals {
		e := rankEntry{id: p.ID, yes: p.YesVotes}
		if h.Len() < k {
			heap.Push(&h, e)
			continue
		}
		if ranksBelow(h[0], e) {
			h[0] = e
			heap.Fix(&h, 0)
		}
	}
	// Popping yields the lowest ranked first, so fill from the back.
	ids := make([]uint64, h.Len())
	for i := len(ids) - 1; i >= 0; i-- {
		ids[i] = heap.Pop(&h).(rankEntry).id
	}
	return ids
}
