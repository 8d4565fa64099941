package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yomira/synccore/pkg/query"
)

func TestIntSlice(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3}, query.IntSlice([]string{"1", "2", "3"}))
}

func TestIntSlice_IgnoresInvalidEntries(t *testing.T) {
	assert.Equal(t, []int{1, 3}, query.IntSlice([]string{"1", "abc", "3"}))
}

func TestIntSlice_EmptyInput(t *testing.T) {
	assert.Nil(t, query.IntSlice(nil))
}

func TestStringSlice(t *testing.T) {
	assert.Equal(t, []string{"idle", "error"}, query.StringSlice("idle, error"))
}

func TestStringSlice_EmptyValue(t *testing.T) {
	assert.Nil(t, query.StringSlice(""))
}

func TestStringSlice_DropsBlankEntries(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, query.StringSlice("a,,  ,b"))
}
