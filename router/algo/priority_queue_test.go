package algo_test

import (
	"container/heap"
	"testing"

	"git.fiblab.net/sim/isochrone/router/algo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func popAll(t *testing.T, pq *algo.PriorityQueue) []int {
	values := []int{}
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*algo.Item)
		assert.Equal(t, -1, item.Index)
		values = append(values, item.Value)
	}
	return values
}

func TestPriorityQueueOrder(t *testing.T) {
	cases := []struct {
		name       string
		priorities map[int]float64
		want       []int
	}{
		{"distinct", map[int]float64{4: 4, 2: 2, 1: 1, 3: 3}, []int{1, 2, 3, 4}},
		// 相同优先级按Value弹出
		{"ties", map[int]float64{7: 1, 5: 1, 6: 1, 2: 3}, []int{5, 6, 7, 2}},
		{"empty", map[int]float64{}, []int{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pq := make(algo.PriorityQueue, 0)
			for v, p := range c.priorities {
				heap.Push(&pq, &algo.Item{Value: v, Priority: p})
			}
			assert.Equal(t, c.want, popAll(t, &pq))
		})
	}
}

// 模拟最短路中的松弛：降低已入队节点的代价后用heap.Fix调整
func TestPriorityQueueRelax(t *testing.T) {
	pq := make(algo.PriorityQueue, 0)
	items := map[int]*algo.Item{}
	for v, p := range map[int]float64{10: 5, 11: 2, 12: 8} {
		items[v] = &algo.Item{Value: v, Priority: p}
		heap.Push(&pq, items[v])
	}
	for _, item := range pq {
		require.Equal(t, item, pq[item.Index])
	}

	items[12].Priority = 1
	heap.Fix(&pq, items[12].Index)
	first := heap.Pop(&pq).(*algo.Item)
	assert.Equal(t, 12, first.Value)
	assert.Equal(t, 1.0, first.Priority)

	items[10].Priority = 2
	heap.Fix(&pq, items[10].Index)
	// 10与11代价相同，按Value
	assert.Equal(t, []int{10, 11}, popAll(t, &pq))
}
