package parking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/base-14/examples/go/parking-lot/internal/logging"
)

// InstrumentedParkingLot traces, measures and logs every operation of the
// wrapped ParkingLot.
type InstrumentedParkingLot struct {
	*ParkingLot
	telemetry *TelemetryProvider

	parkingOperations metric.Int64Counter
	leavingOperations metric.Int64Counter
	queryOperations   metric.Int64Counter
	operationDuration metric.Float64Histogram
}

func NewInstrumentedParkingLot(telemetry *TelemetryProvider) (*InstrumentedParkingLot, error) {
	meter := telemetry.Meter()

	parkingOperations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of parking operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	leavingOperations, err := meter.Int64Counter("leaving_operations_total",
		metric.WithDescription("Total number of leaving operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	queryOperations, err := meter.Int64Counter("query_operations_total",
		metric.WithDescription("Total number of occupancy queries"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking lot operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	ipl := &InstrumentedParkingLot{
		ParkingLot:        NewParkingLot(),
		telemetry:         telemetry,
		parkingOperations: parkingOperations,
		leavingOperations: leavingOperations,
		queryOperations:   queryOperations,
		operationDuration: operationDuration,
	}

	// Gauges read the lot at collection time so re-initialization needs no
	// bookkeeping.
	_, err = meter.Int64ObservableGauge("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking slots"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(ipl.Stats().Occupied))
			return nil
		}))
	if err != nil {
		return nil, err
	}

	_, err = meter.Int64ObservableGauge("parking_lot_total_slots",
		metric.WithDescription("Total number of parking slots"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(ipl.Stats().Capacity))
			return nil
		}))
	if err != nil {
		return nil, err
	}

	return ipl, nil
}

func (ipl *InstrumentedParkingLot) Initialize(ctx context.Context, capacity int) error {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.initialize",
		trace.WithAttributes(attribute.Int("parking_lot.capacity", capacity)))
	defer span.End()

	start := time.Now()
	err := ipl.ParkingLot.Initialize(capacity)

	labels := []attribute.KeyValue{attribute.String("operation", "initialize")}
	if err != nil {
		recordSpanError(span, err)
		labels = append(labels, attribute.String("status", "failed"))
		logging.Warn(ctx).Err(err).Int("capacity", capacity).Msg("parking lot not created")
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.AddEvent("parking_lot_created")
		logging.Info(ctx).Int("capacity", capacity).Msg("parking lot created")
	}

	ipl.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return err
}

func (ipl *InstrumentedParkingLot) Park(ctx context.Context, registrationNumber, color string) (int, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.park",
		trace.WithAttributes(
			attribute.String("vehicle.registration_number", registrationNumber),
			attribute.String("vehicle.color", color),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("finding_available_slot")

	slotNumber, err := ipl.ParkingLot.Park(registrationNumber, color)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "park"),
		attribute.String("vehicle_color", color),
	}

	if err != nil {
		recordSpanError(span, err)
		labels = append(labels, attribute.String("status", statusLabel(err)))
		logging.Warn(ctx).Err(err).
			Str("registration_number", registrationNumber).
			Str("color", color).
			Msg("park rejected")
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.Int("allocated_slot_number", slotNumber))
		span.AddEvent("slot_allocated", trace.WithAttributes(
			attribute.Int("slot_number", slotNumber),
		))
		logging.Info(ctx).
			Str("registration_number", registrationNumber).
			Str("color", color).
			Int("slot_number", slotNumber).
			Msg("vehicle parked")
	}

	ipl.parkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return slotNumber, err
}

func (ipl *InstrumentedParkingLot) Leave(ctx context.Context, slotNumber int) error {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.leave",
		trace.WithAttributes(
			attribute.Int("slot_number", slotNumber),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("releasing_slot")

	err := ipl.ParkingLot.Leave(slotNumber)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "leave"),
	}

	switch {
	case errors.Is(err, ErrSlotAlreadyEmpty):
		// Informational outcome; the span stays unset.
		span.AddEvent("slot_already_empty")
		labels = append(labels, attribute.String("status", "already_empty"))
		logging.Info(ctx).Int("slot_number", slotNumber).Msg("slot already empty")
	case err != nil:
		recordSpanError(span, err)
		labels = append(labels, attribute.String("status", statusLabel(err)))
		logging.Warn(ctx).Err(err).Int("slot_number", slotNumber).Msg("leave rejected")
	default:
		labels = append(labels, attribute.String("status", "success"))
		span.AddEvent("slot_released")
		logging.Info(ctx).Int("slot_number", slotNumber).Msg("slot freed")
	}

	ipl.leavingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return err
}

func (ipl *InstrumentedParkingLot) GetStatus(ctx context.Context) ([]Slot, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.get_status")
	defer span.End()

	start := time.Now()

	span.AddEvent("retrieving_status")

	occupiedSlots, err := ipl.ParkingLot.GetStatus()
	if err != nil {
		recordSpanError(span, err)
	} else {
		span.SetAttributes(
			attribute.Int("occupied_slots_count", len(occupiedSlots)),
			attribute.Int("total_capacity", ipl.GetCapacity()),
		)
	}

	ipl.recordQuery(ctx, "get_status", err, time.Since(start))

	return occupiedSlots, err
}

func (ipl *InstrumentedParkingLot) GetSlotByRegistrationNumber(ctx context.Context, registrationNumber string) (int, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.get_slot_by_registration",
		trace.WithAttributes(
			attribute.String("registration_number", registrationNumber),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("searching_by_registration")

	slotNumber, err := ipl.ParkingLot.GetSlotByRegistrationNumber(registrationNumber)
	switch {
	case errors.Is(err, ErrNotFound):
		span.AddEvent("vehicle_not_found")
	case err != nil:
		recordSpanError(span, err)
	default:
		span.SetAttributes(attribute.Int("found_slot_number", slotNumber))
		span.AddEvent("vehicle_found", trace.WithAttributes(
			attribute.Int("slot_number", slotNumber),
		))
	}

	ipl.recordQuery(ctx, "get_slot_by_registration", err, time.Since(start))

	return slotNumber, err
}

func (ipl *InstrumentedParkingLot) GetSlotNumbersByColor(ctx context.Context, color string) ([]int, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.get_slots_by_color",
		trace.WithAttributes(attribute.String("vehicle.color", color)))
	defer span.End()

	start := time.Now()

	slotNumbers, err := ipl.ParkingLot.GetSlotNumbersByColor(color)
	ipl.annotateColorQuery(span, len(slotNumbers), err)
	ipl.recordQuery(ctx, "get_slots_by_color", err, time.Since(start))

	return slotNumbers, err
}

func (ipl *InstrumentedParkingLot) GetRegistrationNumbersByColor(ctx context.Context, color string) ([]string, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.get_registrations_by_color",
		trace.WithAttributes(attribute.String("vehicle.color", color)))
	defer span.End()

	start := time.Now()

	registrationNumbers, err := ipl.ParkingLot.GetRegistrationNumbersByColor(color)
	ipl.annotateColorQuery(span, len(registrationNumbers), err)
	ipl.recordQuery(ctx, "get_registrations_by_color", err, time.Since(start))

	return registrationNumbers, err
}

func (ipl *InstrumentedParkingLot) annotateColorQuery(span trace.Span, matches int, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		span.AddEvent("color_not_found")
	case err != nil:
		recordSpanError(span, err)
	default:
		span.SetAttributes(attribute.Int("matching_vehicles_count", matches))
	}
}

func (ipl *InstrumentedParkingLot) recordQuery(ctx context.Context, operation string, err error, elapsed time.Duration) {
	labels := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("status", statusLabel(err)),
	}
	ipl.queryOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(labels...))
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// statusLabel keeps metric cardinality bounded to the error kinds.
func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrLotFull):
		return "lot_full"
	case errors.Is(err, ErrSlotAlreadyEmpty):
		return "already_empty"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidCapacity):
		return "invalid_input"
	default:
		return "failed"
	}
}
