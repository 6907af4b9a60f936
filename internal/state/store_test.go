package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreNotifiesInOrder(t *testing.T) {
	s := NewStore(0)

	var seen []int
	unsubscribe := s.Subscribe(func(v int) { seen = append(seen, v) })

	s.Set(1)
	got := s.Update(func(v int) int { return v + 10 })
	assert.Equal(t, 11, got)
	assert.Equal(t, 11, s.Get())
	assert.Equal(t, []int{1, 11}, seen)

	unsubscribe()
	s.Set(5)
	assert.Equal(t, []int{1, 11}, seen)
}

func TestStoreTryUpdateRejects(t *testing.T) {
	s := NewStore("idle")
	calls := 0
	s.Subscribe(func(string) { calls++ })

	errNope := errors.New("nope")
	v, err := s.TryUpdate(func(string) (string, error) { return "", errNope })
	assert.ErrorIs(t, err, errNope)
	assert.Equal(t, "idle", v)
	assert.Equal(t, "idle", s.Get())
	assert.Zero(t, calls)
}

func TestStoreSubscriberCanRead(t *testing.T) {
	s := NewStore(1)
	var read int
	s.Subscribe(func(int) { read = s.Get() })
	s.Set(2)
	assert.Equal(t, 2, read)
}
