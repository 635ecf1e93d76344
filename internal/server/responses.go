package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/base-14/examples/go/parking-lot/internal/logging"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type ParkingLotCreateRequest struct {
	Capacity int `json:"capacity"`
}

type ParkVehicleRequest struct {
	Registration string `json:"registration"`
	Color        string `json:"color"`
}

type ParkVehicleResponse struct {
	SlotNumber   int    `json:"slot_number"`
	Registration string `json:"registration"`
	Color        string `json:"color"`
}

type LeaveSlotRequest struct {
	SlotNumber int `json:"slot_number"`
}

type LeaveSlotResponse struct {
	SlotNumber   int  `json:"slot_number"`
	AlreadyEmpty bool `json:"already_empty"`
}

type FindVehicleResponse struct {
	SlotNumber   int    `json:"slot_number"`
	Registration string `json:"registration"`
}

type ColorRegistrationsResponse struct {
	Color         string   `json:"color"`
	Registrations []string `json:"registrations"`
}

type ColorSlotsResponse struct {
	Color       string `json:"color"`
	SlotNumbers []int  `json:"slot_numbers"`
}

type SlotStatus struct {
	SlotNumber   int    `json:"slot_number"`
	Registration string `json:"registration"`
	Color        string `json:"color"`
}

type StatusResponse struct {
	Capacity  int          `json:"capacity"`
	Occupied  int          `json:"occupied"`
	Available int          `json:"available"`
	Slots     []SlotStatus `json:"slots"`
}

func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error(ctx).Err(err).Msg("encoding response")
	}
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(ctx, w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(ctx, w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
