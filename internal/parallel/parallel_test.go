package parallel

import (
	"sync/atomic"
	"testing"
)

func TestForVisitsEveryIndex(t *testing.T) {
	const n = 1000
	var count int64
	seen := make([]int32, n)

	For(n, func(i int) {
		atomic.AddInt64(&count, 1)
		atomic.AddInt32(&seen[i], 1)
	}, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8})

	if count != n {
		t.Fatalf("visited %d indices, want %d", count, n)
	}
	for i, c := range seen {
		if c != 1 {
			t.Fatalf("index %d visited %d times, want 1", i, c)
		}
	}
}

func TestForSequentialFallback(t *testing.T) {
	// Below MinChunkSize the loop must run inline, in order.
	var order []int
	For(8, func(i int) {
		order = append(order, i)
	}, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 64})

	for i, v := range order {
		if v != i {
			t.Fatalf("sequential fallback out of order at %d: got %d", i, v)
		}
	}
}

func TestForDisabled(t *testing.T) {
	var count int
	For(100, func(i int) { count++ }, Config{Enabled: false})
	if count != 100 {
		t.Fatalf("visited %d indices, want 100", count)
	}
}

func TestForRowsCoversGrid(t *testing.T) {
	const batch, rows = 7, 13
	var hits [batch][rows]int32

	ForRows(batch, rows, func(b, r int) {
		atomic.AddInt32(&hits[b][r], 1)
	}, Config{Enabled: true, NumWorkers: 3, MinChunkSize: 4})

	for b := 0; b < batch; b++ {
		for r := 0; r < rows; r++ {
			if hits[b][r] != 1 {
				t.Fatalf("cell (%d, %d) visited %d times, want 1", b, r, hits[b][r])
			}
		}
	}
}
