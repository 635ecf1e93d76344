package parking

import (
	"fmt"
	"slices"
	"sync"
)

// MaxCapacity bounds Initialize so an oversized request fails with
// ErrInvalidCapacity instead of exhausting memory.
const MaxCapacity = 1_000_000

// ParkingLot allocates the lowest free slot to arriving vehicles and keeps
// the color and registration indexes in step with slot occupancy. A lot
// returned by NewParkingLot is uninitialized until Initialize is called.
type ParkingLot struct {
	mu       sync.RWMutex
	capacity int
	slots    []Slot
	free     *FreeSet

	colorIndex        map[string][]int
	registrationIndex map[string]int
}

type Stats struct {
	Initialized bool
	Capacity    int
	Occupied    int
	Available   int
}

func NewParkingLot() *ParkingLot {
	return &ParkingLot{}
}

// Initialize discards any previous state and creates capacity free slots.
func (pl *ParkingLot) Initialize(capacity int) error {
	if capacity <= 0 || capacity > MaxCapacity {
		return fmt.Errorf("%w: %d not in 1..%d", ErrInvalidCapacity, capacity, MaxCapacity)
	}

	slots := make([]Slot, capacity)
	for i := range slots {
		slots[i] = NewSlot(i + 1)
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()

	pl.capacity = capacity
	pl.slots = slots
	pl.free = NewFreeSet(capacity)
	pl.colorIndex = make(map[string][]int)
	pl.registrationIndex = make(map[string]int)

	return nil
}

func (pl *ParkingLot) initialized() bool {
	return pl.slots != nil
}

// Park places the vehicle in the lowest free slot and returns its number.
// A registration that is already parked is not rejected; the registration
// index then points at the newest slot.
func (pl *ParkingLot) Park(registrationNumber, color string) (int, error) {
	if registrationNumber == "" || color == "" {
		return 0, fmt.Errorf("%w: registration number and color are required", ErrInvalidInput)
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()

	if !pl.initialized() {
		return 0, ErrNotInitialized
	}

	slotNumber, ok := pl.free.PopMin()
	if !ok {
		return 0, ErrLotFull
	}

	pl.slots[slotNumber-1].Park(NewVehicle(registrationNumber, color))
	pl.colorIndex[color] = append(pl.colorIndex[color], slotNumber)
	pl.registrationIndex[registrationNumber] = slotNumber

	return slotNumber, nil
}

// Leave frees slotNumber. ErrSlotAlreadyEmpty reports a slot that holds no
// vehicle and leaves the lot untouched.
func (pl *ParkingLot) Leave(slotNumber int) error {
	if slotNumber < 1 {
		return fmt.Errorf("%w: slot number %d", ErrInvalidInput, slotNumber)
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()

	if !pl.initialized() {
		return ErrNotInitialized
	}

	if slotNumber > pl.capacity {
		return fmt.Errorf("%w: slot number %d outside 1..%d", ErrInvalidInput, slotNumber, pl.capacity)
	}

	// Add refuses a slot that is already free, which leaves the lot untouched.
	if !pl.free.Add(slotNumber) {
		return fmt.Errorf("%w: slot %d", ErrSlotAlreadyEmpty, slotNumber)
	}
	vehicle := pl.slots[slotNumber-1].Leave()

	if remaining := removeFirst(pl.colorIndex[vehicle.Color], slotNumber); len(remaining) > 0 {
		pl.colorIndex[vehicle.Color] = remaining
	} else {
		delete(pl.colorIndex, vehicle.Color)
	}

	// A re-parked registration may already point at a newer slot.
	if pl.registrationIndex[vehicle.RegistrationNumber] == slotNumber {
		delete(pl.registrationIndex, vehicle.RegistrationNumber)
	}

	return nil
}

// GetStatus returns copies of the occupied slots in ascending slot order.
func (pl *ParkingLot) GetStatus() ([]Slot, error) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	if !pl.initialized() {
		return nil, ErrNotInitialized
	}

	occupiedSlots := make([]Slot, 0, pl.capacity-pl.free.Len())
	for _, slot := range pl.slots {
		if slot.IsOccupied() {
			vehicle := *slot.Vehicle
			occupiedSlots = append(occupiedSlots, Slot{Number: slot.Number, Vehicle: &vehicle})
		}
	}

	return occupiedSlots, nil
}

func (pl *ParkingLot) GetSlotByRegistrationNumber(registrationNumber string) (int, error) {
	if registrationNumber == "" {
		return 0, fmt.Errorf("%w: registration number is required", ErrInvalidInput)
	}

	pl.mu.RLock()
	defer pl.mu.RUnlock()

	if !pl.initialized() {
		return 0, ErrNotInitialized
	}

	slotNumber, ok := pl.registrationIndex[registrationNumber]
	if !ok {
		return 0, fmt.Errorf("%w: registration number %s", ErrNotFound, registrationNumber)
	}
	return slotNumber, nil
}

// GetSlotNumbersByColor returns the slots holding vehicles of color in the
// order they were allocated.
func (pl *ParkingLot) GetSlotNumbersByColor(color string) ([]int, error) {
	if color == "" {
		return nil, fmt.Errorf("%w: color is required", ErrInvalidInput)
	}

	pl.mu.RLock()
	defer pl.mu.RUnlock()

	slotNumbers, err := pl.slotsForColorLocked(color)
	if err != nil {
		return nil, err
	}
	return slices.Clone(slotNumbers), nil
}

// GetRegistrationNumbersByColor returns registrations in the same order as
// GetSlotNumbersByColor.
func (pl *ParkingLot) GetRegistrationNumbersByColor(color string) ([]string, error) {
	if color == "" {
		return nil, fmt.Errorf("%w: color is required", ErrInvalidInput)
	}

	pl.mu.RLock()
	defer pl.mu.RUnlock()

	slotNumbers, err := pl.slotsForColorLocked(color)
	if err != nil {
		return nil, err
	}

	registrationNumbers := make([]string, 0, len(slotNumbers))
	for _, slotNumber := range slotNumbers {
		registrationNumbers = append(registrationNumbers, pl.slots[slotNumber-1].Vehicle.RegistrationNumber)
	}
	return registrationNumbers, nil
}

func (pl *ParkingLot) slotsForColorLocked(color string) ([]int, error) {
	if !pl.initialized() {
		return nil, ErrNotInitialized
	}

	slotNumbers := pl.colorIndex[color]
	if len(slotNumbers) == 0 {
		return nil, fmt.Errorf("%w: color %s", ErrNotFound, color)
	}
	return slotNumbers, nil
}

func (pl *ParkingLot) Stats() Stats {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	if !pl.initialized() {
		return Stats{}
	}

	available := pl.free.Len()
	return Stats{
		Initialized: true,
		Capacity:    pl.capacity,
		Occupied:    pl.capacity - available,
		Available:   available,
	}
}

func (pl *ParkingLot) GetCapacity() int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.capacity
}

// removeFirst drops only the first occurrence of value.
func removeFirst(values []int, value int) []int {
	if i := slices.Index(values, value); i >= 0 {
		return slices.Delete(values, i, i+1)
	}
	return values
}
