package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/base-14/examples/go/parking-lot/internal/logging"
	"github.com/base-14/examples/go/parking-lot/internal/parking"
)

type Handler struct {
	parkingLot  *parking.InstrumentedParkingLot
	serviceName string
}

func NewHandler(parkingLot *parking.InstrumentedParkingLot, serviceName string) *Handler {
	return &Handler{
		parkingLot:  parkingLot,
		serviceName: serviceName,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(r.Context(), w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) CreateParkingLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ParkingLotCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.parkingLot.Initialize(ctx, req.Capacity); err != nil {
		writeParkingError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Parking lot created successfully", map[string]any{
		"capacity": req.Capacity,
	})
}

func (h *Handler) ParkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ParkVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	slotNumber, err := h.parkingLot.Park(ctx, req.Registration, req.Color)
	if err != nil {
		writeParkingError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle parked successfully", ParkVehicleResponse{
		SlotNumber:   slotNumber,
		Registration: req.Registration,
		Color:        req.Color,
	})
}

func (h *Handler) LeaveSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req LeaveSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.parkingLot.Leave(ctx, req.SlotNumber)
	switch {
	case errors.Is(err, parking.ErrSlotAlreadyEmpty):
		WriteSuccess(ctx, w, "Slot already empty", LeaveSlotResponse{
			SlotNumber:   req.SlotNumber,
			AlreadyEmpty: true,
		})
	case err != nil:
		writeParkingError(w, r, err)
	default:
		WriteSuccess(ctx, w, "Slot vacated successfully", LeaveSlotResponse{
			SlotNumber: req.SlotNumber,
		})
	}
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	occupiedSlots, err := h.parkingLot.GetStatus(ctx)
	if err != nil {
		writeParkingError(w, r, err)
		return
	}

	slots := make([]SlotStatus, 0, len(occupiedSlots))
	for _, slot := range occupiedSlots {
		slots = append(slots, SlotStatus{
			SlotNumber:   slot.Number,
			Registration: slot.Vehicle.RegistrationNumber,
			Color:        slot.Vehicle.Color,
		})
	}

	capacity := h.parkingLot.GetCapacity()
	WriteSuccess(ctx, w, "Status retrieved successfully", StatusResponse{
		Capacity:  capacity,
		Occupied:  len(occupiedSlots),
		Available: capacity - len(occupiedSlots),
		Slots:     slots,
	})
}

func (h *Handler) FindByRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registration := chi.URLParam(r, "registration")

	slotNumber, err := h.parkingLot.GetSlotByRegistrationNumber(ctx, registration)
	if err != nil {
		writeParkingError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle found", FindVehicleResponse{
		SlotNumber:   slotNumber,
		Registration: registration,
	})
}

func (h *Handler) RegistrationsByColor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	color := chi.URLParam(r, "color")

	registrations, err := h.parkingLot.GetRegistrationNumbersByColor(ctx, color)
	if err != nil {
		writeParkingError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Registrations found", ColorRegistrationsResponse{
		Color:         color,
		Registrations: registrations,
	})
}

func (h *Handler) SlotsByColor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	color := chi.URLParam(r, "color")

	slotNumbers, err := h.parkingLot.GetSlotNumbersByColor(ctx, color)
	if err != nil {
		writeParkingError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Slots found", ColorSlotsResponse{
		Color:       color,
		SlotNumbers: slotNumbers,
	})
}

func writeParkingError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, parking.ErrNotInitialized):
		WriteError(ctx, w, http.StatusBadRequest, "Parking lot not created. Create parking lot first")
	case errors.Is(err, parking.ErrInvalidCapacity), errors.Is(err, parking.ErrInvalidInput):
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, parking.ErrLotFull):
		WriteError(ctx, w, http.StatusConflict, err.Error())
	case errors.Is(err, parking.ErrNotFound):
		WriteError(ctx, w, http.StatusNotFound, err.Error())
	default:
		logging.Error(ctx).Err(err).Str("path", r.URL.Path).Msg("unexpected parking lot error")
		WriteError(ctx, w, http.StatusInternalServerError, "Internal server error")
	}
}
