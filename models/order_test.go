package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestComputeTotal(t *testing.T) {
	items := []OrderItem{
		{Name: "Arnica 30C", Price: 50, Quantity: 2},
		{Name: "Calendula Ointment", Price: 100, Quantity: 1},
	}
	assert.Equal(t, 200.0, ComputeTotal(items))

	assert.Equal(t, 0.0, ComputeTotal(nil))
}

func TestOrderViewableBy(t *testing.T) {
	owner := &User{ID: primitive.NewObjectID(), Role: RoleUser}
	stranger := &User{ID: primitive.NewObjectID(), Role: RoleUser}
	admin := &User{ID: primitive.NewObjectID(), Role: RoleAdmin}

	order := &Order{User: owner.ID}

	assert.True(t, order.ViewableBy(owner))
	assert.True(t, order.ViewableBy(admin))
	assert.False(t, order.ViewableBy(stranger))
}

func TestParseOrderStatus(t *testing.T) {
	status, ok := ParseOrderStatus("Shipped")
	assert.True(t, ok)
	assert.Equal(t, StatusShipped, status)

	_, ok = ParseOrderStatus("InTransit")
	assert.False(t, ok)

	// Statuses are case-sensitive.
	_, ok = ParseOrderStatus("processing")
	assert.False(t, ok)
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{StatusProcessing, StatusConfirmed, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusShipped, false},
		{StatusProcessing, StatusDelivered, false},
		{StatusConfirmed, StatusShipped, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusProcessing, false},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, true},
		{StatusShipped, StatusConfirmed, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusDelivered, StatusProcessing, false},
		{StatusCancelled, StatusProcessing, false},
		{StatusCancelled, StatusDelivered, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		assert.Equalf(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}
