package psarc

import (
	"bytes"
	"sync"
	"testing"
)

func TestOrderedPoolCommitsInSubmissionOrder(t *testing.T) {
	t.Parallel()

	for _, numSlots := range []int{0, 1, 4, 16} {
		numSlots := numSlots
		t.Run(numSlotsName(numSlots), func(t *testing.T) {
			t.Parallel()

			pool := newOrderedPool(numSlots, 1024)

			const n = 200

			var mu sync.Mutex
			order := make([]int, 0, n)

			for i := 0; i < n; i++ {
				tk := pool.acquire()
				i := i

				pool.submit(tk, func(gate func(), _ *bytes.Buffer) {
					gate()

					mu.Lock()
					order = append(order, i)
					mu.Unlock()
				})
			}

			pool.drain()

			if len(order) != n {
				t.Fatalf("got %d commits, want %d", len(order), n)
			}

			for i, v := range order {
				if v != i {
					t.Fatalf("commit order broken at index %d: got %d, want %d", i, v, i)
				}
			}
		})
	}
}

func TestOrderedPoolHandsOutOwnedScratchBuffer(t *testing.T) {
	t.Parallel()

	const slots = 4

	pool := newOrderedPool(slots, 256)

	seen := make(map[*bytes.Buffer]int)
	var mu sync.Mutex

	for i := 0; i < slots*3; i++ {
		tk := pool.acquire()

		if tk.buf == nil {
			t.Fatal("ticket should carry a non-nil scratch buffer")
		}

		if tk.buf.Cap() < 256 {
			t.Fatalf("scratch buffer capacity = %d, want >= 256", tk.buf.Cap())
		}

		pool.submit(tk, func(gate func(), scratch *bytes.Buffer) {
			gate()

			mu.Lock()
			seen[scratch]++
			mu.Unlock()
		})
	}

	pool.drain()

	if len(seen) > slots {
		t.Fatalf("observed %d distinct scratch buffers, want at most %d (one per slot)", len(seen), slots)
	}
}

func numSlotsName(n int) string {
	switch n {
	case 0:
		return "synchronous_0"
	case 1:
		return "synchronous_1"
	default:
		return "parallel"
	}
}
