package solver

import (
	"slices"
	"sort"

	"github.com/glorpus-work/hif/pkg/model"
)

// order sorts actions so that every package comes after the packages it
// requires; members of a dependency cycle stay adjacent. With reverse set,
// dependents come first, as removals need.
func order(actions []model.Action, reverse bool) []model.Action {
	n := len(actions)
	edges := make([][]int, n)
	for i, a := range actions {
		for _, r := range a.Package.Requires {
			for j, b := range actions {
				if i != j && b.Package.ProvidesDep(r) && !slices.Contains(edges[i], j) {
					edges[i] = append(edges[i], j)
				}
			}
		}
	}

	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	counter := 0
	out := make([]model.Action, 0, n)

	var visit func(v int)
	visit = func(v int) {
		index[v], low[v] = counter, counter
		counter++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range edges[v] {
			switch {
			case index[w] < 0:
				visit(w)
				low[v] = min(low[v], low[w])
			case onStack[w]:
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}
		var comp []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		sort.Ints(comp)
		for _, c := range comp {
			out = append(out, actions[c])
		}
	}
	for v := range actions {
		if index[v] < 0 {
			visit(v)
		}
	}
	if reverse {
		slices.Reverse(out)
	}
	return out
}
