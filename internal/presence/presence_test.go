package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_FirstAndLastTransitions(t *testing.T) {
	r := NewRegistry[int]()

	assert.True(t, r.Add("alice", 1), "first tab")
	assert.False(t, r.Add("alice", 2), "second tab")
	assert.True(t, r.IsOnline("alice"))
	assert.ElementsMatch(t, []int{1, 2}, r.Connections("alice"))

	assert.False(t, r.Remove("alice", 1))
	assert.True(t, r.IsOnline("alice"))
	assert.True(t, r.Remove("alice", 2))
	assert.False(t, r.IsOnline("alice"))
	assert.Equal(t, 0, r.NumUsers())
}

func TestRegistry_RemoveUnknownIsNoop(t *testing.T) {
	r := NewRegistry[int]()
	assert.False(t, r.Remove("ghost", 1))

	r.Add("bob", 1)
	assert.False(t, r.Remove("bob", 7))
	assert.False(t, r.Remove("bob", 1) && r.Remove("bob", 1), "second remove must not report last again")
	assert.False(t, r.IsOnline("bob"))
}

func TestRegistry_ForEach(t *testing.T) {
	r := NewRegistry[int]()
	r.Add("a", 1)
	r.Add("a", 2)
	r.Add("b", 3)

	seen := map[int]string{}
	r.ForEach(func(id string, h int) { seen[h] = id })
	assert.Equal(t, map[int]string{1: "a", 2: "a", 3: "b"}, seen)
}
