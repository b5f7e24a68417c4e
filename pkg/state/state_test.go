package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect() (*[]int, Reporter) {
	var mu sync.Mutex
	var got []int
	return &got, func(p int) {
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	}
}

func TestSequentialSteps(t *testing.T) {
	got, r := collect()
	s := New(r)
	require.NoError(t, s.SetNumberSteps(4))

	for i := 0; i < 4; i++ {
		require.NoError(t, s.Done())
	}
	assert.Equal(t, []int{25, 50, 75, 100}, *got)
	assert.ErrorIs(t, s.Done(), ErrStepOverflow)
}

func TestWeightedChildProgress(t *testing.T) {
	got, r := collect()
	root := New(r)
	require.NoError(t, root.SetSteps(50, 50))

	child := root.Child()
	assert.Same(t, root, child.Parent())
	require.NoError(t, child.SetSteps(40, 10, 50))

	require.NoError(t, child.Done())
	assert.Equal(t, 20, root.Percentage())
	require.NoError(t, child.Done())
	assert.Equal(t, 25, root.Percentage())
	require.NoError(t, child.Done())
	assert.Equal(t, 50, root.Percentage())

	require.NoError(t, root.Done())
	grandchild := root.Child().Child()
	require.NoError(t, grandchild.SetNumberSteps(2))
	require.NoError(t, grandchild.Done())
	assert.Equal(t, 75, root.Percentage())

	require.NoError(t, root.Finished())
	assert.Equal(t, 100, root.Percentage())
	assert.Equal(t, []int{20, 25, 50, 75, 100}, *got)
}

func TestChildFinishedEarly(t *testing.T) {
	root := New(nil)
	require.NoError(t, root.SetNumberSteps(2))
	child := root.Child()
	require.NoError(t, child.SetNumberSteps(10))
	require.NoError(t, child.Finished())
	assert.Equal(t, 50, root.Percentage())
	require.NoError(t, root.Done())
	assert.Equal(t, 50, root.Percentage(), "done after a finished child must not double count")
}

func TestChildrenRunConcurrently(t *testing.T) {
	got, r := collect()
	root := New(r)
	require.NoError(t, root.SetNumberSteps(3))

	children := root.Children()
	require.Len(t, children, 3)

	var wg sync.WaitGroup
	for _, c := range children {
		wg.Add(1)
		go func(c *State) {
			defer wg.Done()
			_ = c.SetSteps(50, 50)
			_ = c.Done()
			_ = c.Done()
		}(c)
	}
	wg.Wait()

	assert.Equal(t, 100, root.Percentage())
	require.NotEmpty(t, *got)
	for i := 1; i < len(*got); i++ {
		assert.Greater(t, (*got)[i], (*got)[i-1], "reported progress must increase")
	}
	require.NoError(t, root.Finished())
}

func TestErrors(t *testing.T) {
	s := New(nil)
	assert.ErrorIs(t, s.Done(), ErrNoSteps)
	assert.ErrorIs(t, s.SetNumberSteps(0), ErrInvalidWeights)
	assert.ErrorIs(t, s.SetSteps(), ErrInvalidWeights)
	assert.ErrorIs(t, s.SetSteps(10, 0), ErrInvalidWeights)
}

func TestChildOfSteplessScope(t *testing.T) {
	root := New(nil)
	c := root.Child()
	require.NoError(t, c.SetNumberSteps(2))
	require.NoError(t, c.Done())
	assert.Equal(t, 50, root.Percentage())
}
