package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbackListOrder(t *testing.T) {
	t.Parallel()

	var l callbackList[func()]

	var order []int

	l.add(func() { order = append(order, 1) })
	l.add(func() { order = append(order, 2) })
	l.add(func() { order = append(order, 3) })

	l.walk(func(cb func()) { cb() })

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestCallbackListRemove(t *testing.T) {
	t.Parallel()

	var l callbackList[func()]

	var order []int

	l.add(func() { order = append(order, 1) })
	token := l.add(func() { order = append(order, 2) })
	l.add(func() { order = append(order, 3) })

	l.remove(token)
	l.walk(func(cb func()) { cb() })

	assert.Equal(t, []int{1, 3}, order)

	// Stale tokens are ignored.
	l.remove(token)
	l.remove(999)
}

func TestCallbackListSameFunctionTwice(t *testing.T) {
	t.Parallel()

	var l callbackList[func()]

	calls := 0
	cb := func() { calls++ }

	t1 := l.add(cb)
	l.add(cb)

	l.walk(func(cb func()) { cb() })
	assert.Equal(t, 2, calls)

	// Each registration is independent.
	l.remove(t1)

	calls = 0

	l.walk(func(cb func()) { cb() })
	assert.Equal(t, 1, calls)
}
