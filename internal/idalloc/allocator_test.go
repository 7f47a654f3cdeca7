package idalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocatorNext(t *testing.T) {
	a := New(EntityOrder, 0)

	assert.Equal(t, int64(1), a.Next())
	assert.Equal(t, int64(2), a.Next())
	assert.Equal(t, int64(2), a.Last())
}

func TestAllocatorSeededFromMax(t *testing.T) {
	a := New(EntityCustomer, 41)
	assert.Equal(t, int64(42), a.Next())

	a.Seed(7)
	assert.Equal(t, int64(8), a.Next())

	a.Seed(-3)
	assert.Equal(t, int64(1), a.Next())
}

func TestAllocatorObserveOnlyRaises(t *testing.T) {
	a := New(EntityProduct, 0)
	a.Observe(10)
	a.Observe(4)

	assert.Equal(t, int64(11), a.Next())
}

func TestRegistrySeparatesEntities(t *testing.T) {
	r := NewRegistry()
	r.For(EntityOrder).Seed(100)

	assert.Equal(t, int64(101), r.Next(EntityOrder))
	assert.Equal(t, int64(1), r.Next(EntityCustomer))
	assert.Same(t, r.For(EntityOrder), r.For(EntityOrder))
	assert.Equal(t, "product=0 customer=1 order=101", r.String())
}
