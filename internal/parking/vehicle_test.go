package parking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVehicle(t *testing.T) {
	vehicle := NewVehicle("KA01HH1234", "White")

	assert.Equal(t, "KA01HH1234", vehicle.RegistrationNumber)
	assert.Equal(t, "White", vehicle.Color)
}
