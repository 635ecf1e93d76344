package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/base-14/examples/go/parking-lot/internal/parking"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	telemetry := parking.NewTelemetryProviderFrom(sdktrace.NewTracerProvider(), sdkmetric.NewMeterProvider())
	t.Cleanup(func() { telemetry.Shutdown(context.Background()) })

	parkingLot, err := parking.NewInstrumentedParkingLot(telemetry)
	require.NoError(t, err)

	return NewServer("0", parkingLot, "parking-lot-test")
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var resp Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "parking-lot-test", resp.Service)
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/parking-lot/status", nil)
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, "req-42", resp.Meta.RequestID)
}

func TestOperationsBeforeCreate(t *testing.T) {
	srv := newTestServer(t)

	w, resp := doRequest(t, srv, http.MethodPost, "/api/parking-lot/park",
		ParkVehicleRequest{Registration: "KA-01-HH-1234", Color: "White"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "Create parking lot first")
}

func TestCreateParkingLotValidation(t *testing.T) {
	srv := newTestServer(t)

	w, _ := doRequest(t, srv, http.MethodPost, "/api/parking-lot/", ParkingLotCreateRequest{Capacity: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := doRequest(t, srv, http.MethodPost, "/api/parking-lot/", ParkingLotCreateRequest{Capacity: 1 << 62})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Error, "invalid capacity")

	req := httptest.NewRequest(http.MethodPost, "/api/parking-lot/", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParkingFlow(t *testing.T) {
	srv := newTestServer(t)

	w, resp := doRequest(t, srv, http.MethodPost, "/api/parking-lot/", ParkingLotCreateRequest{Capacity: 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	w, resp = doRequest(t, srv, http.MethodPost, "/api/parking-lot/park",
		ParkVehicleRequest{Registration: "KA-01-HH-1234", Color: "White"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp.Data.(map[string]any)["slot_number"])

	w, _ = doRequest(t, srv, http.MethodPost, "/api/parking-lot/park",
		ParkVehicleRequest{Registration: "KA-01-HH-9999", Color: "White"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, srv, http.MethodPost, "/api/parking-lot/park",
		ParkVehicleRequest{Registration: "KA-01-BB-0001", Color: "Black"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = doRequest(t, srv, http.MethodPost, "/api/parking-lot/park",
		ParkVehicleRequest{Registration: "", Color: "Black"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = doRequest(t, srv, http.MethodPost, "/api/parking-lot/leave", LeaveSlotRequest{SlotNumber: 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp.Data.(map[string]any)["already_empty"])

	w, resp = doRequest(t, srv, http.MethodPost, "/api/parking-lot/leave", LeaveSlotRequest{SlotNumber: 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp.Data.(map[string]any)["already_empty"])

	w, _ = doRequest(t, srv, http.MethodPost, "/api/parking-lot/leave", LeaveSlotRequest{SlotNumber: 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = doRequest(t, srv, http.MethodPost, "/api/parking-lot/park",
		ParkVehicleRequest{Registration: "KA-01-P-333", Color: "White"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp.Data.(map[string]any)["slot_number"])

	w, _ = doRequest(t, srv, http.MethodGet, "/api/parking-lot/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Data StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, StatusResponse{
		Capacity:  2,
		Occupied:  2,
		Available: 0,
		Slots: []SlotStatus{
			{SlotNumber: 1, Registration: "KA-01-P-333", Color: "White"},
			{SlotNumber: 2, Registration: "KA-01-HH-9999", Color: "White"},
		},
	}, status.Data)

	w, _ = doRequest(t, srv, http.MethodGet, "/api/parking-lot/find/KA-01-HH-9999", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found struct {
		Data FindVehicleResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	assert.Equal(t, 2, found.Data.SlotNumber)

	w, _ = doRequest(t, srv, http.MethodGet, "/api/parking-lot/find/KA-01-HH-1234", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doRequest(t, srv, http.MethodGet, "/api/parking-lot/colors/White/registrations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var registrations struct {
		Data ColorRegistrationsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registrations))
	assert.Equal(t, []string{"KA-01-HH-9999", "KA-01-P-333"}, registrations.Data.Registrations)

	w, _ = doRequest(t, srv, http.MethodGet, "/api/parking-lot/colors/White/slots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var slots struct {
		Data ColorSlotsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slots))
	assert.Equal(t, []int{2, 1}, slots.Data.SlotNumbers)

	w, _ = doRequest(t, srv, http.MethodGet, "/api/parking-lot/colors/Black/slots", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/api/parking-lot/", ParkingLotCreateRequest{Capacity: 3})
	doRequest(t, srv, http.MethodPost, "/api/parking-lot/park",
		ParkVehicleRequest{Registration: "KA-01-HH-1234", Color: "White"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "parking_lot_occupied_slots 1")
	assert.Contains(t, body, "parking_lot_available_slots 2")
	assert.Contains(t, body, "parking_lot_capacity_slots 3")
	assert.Contains(t, body, `parking_lot_http_requests_total{method="POST",route="/api/parking-lot/park",status="200"} 1`)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/parking-lot/park", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
