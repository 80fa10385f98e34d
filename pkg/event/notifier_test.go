package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifierFanOut(t *testing.T) {
	n := NewNotifier()

	var first, second []Change
	n.OnChange(func(c Change) { first = append(first, c) })
	unregister := n.OnChange(func(c Change) { second = append(second, c) })

	n.Notify(Change{Action: ActionCreate, Resource: "referral", ID: "1"})
	assert.Len(t, first, 1)
	assert.Len(t, second, 1)

	unregister()
	n.Notify(Change{Action: ActionDelete, Resource: "referral", ID: "1"})
	assert.Len(t, first, 2)
	assert.Len(t, second, 1)
}

func TestNotifierUnregisterIsIdempotent(t *testing.T) {
	n := NewNotifier()

	var got []Change
	unregister := n.OnChange(func(c Change) { got = append(got, c) })
	unregister()
	unregister()

	n.Notify(Change{Action: ActionUpdate, Resource: "referral", ID: "2"})
	assert.Empty(t, got)
}
