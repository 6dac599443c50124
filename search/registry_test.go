package search_test

import (
	"sync"
	"testing"

	"git.fiblab.net/sim/isochrone/layer"
	"git.fiblab.net/sim/isochrone/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAdmit(t *testing.T) {
	r := search.NewRegistry(search.Walking, 0.15, 1)
	assert.Equal(t, search.Walking, r.Mode())

	assert.True(t, r.Admit(1, 0.10))
	// 相同或更晚的时间不再接受
	assert.False(t, r.Admit(1, 0.10))
	assert.False(t, r.Admit(1, 0.12))
	assert.True(t, r.Admit(1, 0.05))

	tm, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, 0.05, tm)
	_, ok = r.Lookup(2)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryMonotonic(t *testing.T) {
	r := search.NewRegistry(search.Transit, 1, 1)
	times := []float64{0.9, 0.5, 0.7, 0.5, 0.2, 0.3, 0.1, 0.95, 0.1}
	last := 2.0
	for _, tm := range times {
		r.Admit(7, tm)
		cur, _ := r.Lookup(7)
		assert.LessOrEqual(t, cur, last)
		last = cur
	}
	assert.Equal(t, 0.1, last)
}

func TestRegistryRepeatThreshold(t *testing.T) {
	// 阈值为2时剩余时间需要翻倍才重新接受
	r := search.NewRegistry(search.Walking, 1, 2)
	assert.True(t, r.Admit(1, 0.8))
	assert.False(t, r.Admit(1, 0.7))
	assert.False(t, r.Admit(1, 0.65))
	assert.True(t, r.Admit(1, 0.55))

	// 恰好翻倍时不接受，比较为严格大于
	r = search.NewRegistry(search.Walking, 1, 2)
	assert.True(t, r.Admit(1, 0.75))
	assert.False(t, r.Admit(1, 0.5))
	assert.True(t, r.Admit(1, 0.49))

	// 小于1的阈值按1处理
	r = search.NewRegistry(search.Walking, 1, 0.5)
	assert.True(t, r.Admit(1, 0.5))
	assert.False(t, r.Admit(1, 0.6))
}

func TestRegistryConcurrentAdmit(t *testing.T) {
	r := search.NewRegistry(search.Transit, 1, 1)
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for id := layer.LocationID(0); id < 16; id++ {
				r.Admit(id, float64(64-i)/100)
			}
		}(i)
	}
	wg.Wait()
	// 并发写入总是保留最小值
	for id, tm := range r.Snapshot() {
		assert.Equal(t, 0.01, tm, "location %d", id)
	}
	assert.Equal(t, 16, r.Len())
}
