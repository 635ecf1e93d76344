package parking

import "errors"

var (
	ErrInvalidCapacity  = errors.New("invalid capacity")
	ErrInvalidInput     = errors.New("invalid input")
	ErrLotFull          = errors.New("parking lot is full")
	ErrNotFound         = errors.New("not found")
	ErrNotInitialized   = errors.New("parking lot not created")
	ErrSlotAlreadyEmpty = errors.New("slot is already empty")
)
