package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}

	var counter int64
	seen := make([]bool, 1000)
	For(len(seen), func(i int) {
		atomic.AddInt64(&counter, 1)
		seen[i] = true
	}, cfg)

	assert.Equal(t, int64(1000), counter)
	for i, ok := range seen {
		assert.True(t, ok, "index %d not visited", i)
	}
}

func TestForChunks_CoversRangeOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 10}

	var mu sync.Mutex
	var chunks [][2]int
	ForChunks(100, func(start, end int) {
		mu.Lock()
		chunks = append(chunks, [2]int{start, end})
		mu.Unlock()
	}, cfg)

	covered := 0
	for _, c := range chunks {
		assert.Less(t, c[0], c[1])
		covered += c[1] - c[0]
	}
	assert.Equal(t, 100, covered)
	assert.Len(t, chunks, 3)
}

func TestForChunks_Sequential(t *testing.T) {
	calls := 0
	ForChunks(100, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 100, end)
	}, Config{Enabled: false})
	assert.Equal(t, 1, calls)

	ForChunks(0, func(int, int) { calls++ }, DefaultConfig())
	assert.Equal(t, 1, calls, "empty range runs nothing")
}

func TestForChunks_SmallInputStaysInline(t *testing.T) {
	calls := 0
	ForChunks(10, func(int, int) { calls++ }, Config{Enabled: true, NumWorkers: 8, MinChunkSize: 64})
	assert.Equal(t, 1, calls)
}
