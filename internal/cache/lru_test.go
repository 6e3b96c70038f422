package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[int, []byte](30, func(b []byte) int64 { return int64(len(b)) })

	c.Set(1, make([]byte, 10))
	c.Set(2, make([]byte, 10))
	c.Set(3, make([]byte, 10))
	assert.Equal(t, int64(30), c.Size())

	// Touch 1 so 2 becomes the oldest.
	_, ok := c.Get(1)
	assert.True(t, ok)

	c.Set(4, make([]byte, 10))
	_, ok = c.Get(2)
	assert.False(t, ok)
	_, ok = c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 3, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_EdgeCases(t *testing.T) {
	c := NewLRU[string, []byte](50, func(b []byte) int64 { return int64(len(b)) })

	c.Set("big", make([]byte, 60))
	_, ok := c.Get("big")
	assert.False(t, ok, "value larger than capacity is not cached")

	c.Set("k", make([]byte, 10))
	c.Set("k", make([]byte, 20))
	assert.Equal(t, int64(20), c.Size())
	c.Set("k", make([]byte, 5))
	assert.Equal(t, int64(5), c.Size())

	c.Invalidate(func(key string) bool { return key == "k" })
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Size())
}

func TestLRU_Disabled(t *testing.T) {
	c := NewLRU[int, string](0, nil)
	c.Set(1, "a")
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, int](64, nil)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Set(i%100, g)
				c.Get((i + g) % 100)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 64)
}
