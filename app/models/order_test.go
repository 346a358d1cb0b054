package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusConfirmed.CanTransition(StatusShipped))
	assert.True(t, StatusConfirmed.CanTransition(StatusDelivered))
	assert.True(t, StatusShipped.CanTransition(StatusCancelled))
	assert.True(t, StatusPending.CanTransition(StatusCancelled))

	assert.False(t, StatusShipped.CanTransition(StatusConfirmed))
	assert.False(t, StatusConfirmed.CanTransition(StatusConfirmed))
	assert.False(t, StatusDelivered.CanTransition(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransition(StatusShipped))
	assert.False(t, StatusConfirmed.CanTransition("lost"))
}

func TestCategoryGating(t *testing.T) {
	assert.True(t, Category{CategoryType: CategoryEmpty}.CanParentSubcategory())
	assert.True(t, Category{CategoryType: CategorySubcategory}.CanParentSubcategory())
	assert.False(t, Category{CategoryType: CategoryProductCard}.CanParentSubcategory())
	assert.True(t, Category{Name: "Today's Deals"}.IsPseudo())
}

func TestSnapshotIsACopy(t *testing.T) {
	a := Address{Name: "Asha", Street: "12 MG Road", City: "Pune", State: "MH", Zip: "411001"}
	snap := a.Snapshot()
	a.Street = "99 FC Road"
	assert.Equal(t, "12 MG Road", snap.Street)
}
