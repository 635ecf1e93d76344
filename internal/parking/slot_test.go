package parking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSlot(t *testing.T) {
	slot := NewSlot(1)

	assert.Equal(t, 1, slot.Number)
	assert.False(t, slot.IsOccupied())
	assert.Nil(t, slot.Vehicle)
}

func TestSlotParkAndLeave(t *testing.T) {
	slot := NewSlot(1)
	vehicle := NewVehicle("KA01HH1234", "White")

	slot.Park(vehicle)
	assert.True(t, slot.IsOccupied())
	assert.Same(t, vehicle, slot.Vehicle)

	leavingVehicle := slot.Leave()
	assert.False(t, slot.IsOccupied())
	assert.Nil(t, slot.Vehicle)
	assert.Same(t, vehicle, leavingVehicle)
}
