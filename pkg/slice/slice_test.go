// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yomira/synccore/pkg/slice"
)

func TestMap(t *testing.T) {
	in := []int{1, 2, 3}
	out := slice.Map(in, func(n int) string {
		if n == 1 {
			return "one"
		}
		return "many"
	})
	assert.Equal(t, []string{"one", "many", "many"}, out)
}

func TestMap_NilInput(t *testing.T) {
	var in []int
	assert.Nil(t, slice.Map(in, func(n int) int { return n }))
}

func TestFilter(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6}
	out := slice.Filter(in, func(n int) bool { return n%2 == 0 })
	assert.Equal(t, []int{2, 4, 6}, out)
}

func TestFilter_NoMatches(t *testing.T) {
	in := []int{1, 3, 5}
	assert.Nil(t, slice.Filter(in, func(n int) bool { return n%2 == 0 }))
}

func TestReduce(t *testing.T) {
	in := []int{1, 2, 3, 4}
	sum := slice.Reduce(in, 0, func(acc, cur int) int { return acc + cur })
	assert.Equal(t, 10, sum)
}

func TestReduce_EmptyInputReturnsInitial(t *testing.T) {
	var in []int
	sum := slice.Reduce(in, 42, func(acc, cur int) int { return acc + cur })
	assert.Equal(t, 42, sum)
}
