package instances

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	counters := map[string]int{}
	var mu sync.Mutex // guards the map itself, not the counts

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		key := []string{"a", "b"}[i%2]
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(key)
			defer unlock()
			mu.Lock()
			v := counters[key]
			mu.Unlock()
			mu.Lock()
			counters[key] = v + 1
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counters["a"])
	assert.Equal(t, 50, counters["b"])
	assert.Zero(t, k.len(), "idle keys are released")
}
