package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/base-14/examples/go/parking-lot/internal/logging"
)

const (
	cmdCreateParkingLot              = "create_parking_lot"
	cmdPark                          = "park"
	cmdLeave                         = "leave"
	cmdStatus                        = "status"
	cmdRegistrationNumbersWithColour = "registration_numbers_for_cars_with_colour"
	cmdSlotNumbersWithColour         = "slot_numbers_for_cars_with_colour"
	cmdSlotNumberForRegistration     = "slot_number_for_registration_number"
	cmdSlotNumberForRegistrationNo   = "slot_number_for_car_with_registrationNo"
	cmdExit                          = "exit"
)

// Shell reads one command per line and prints the result of each against a
// shared InstrumentedParkingLot.
type Shell struct {
	parkingLot *InstrumentedParkingLot
	telemetry  *TelemetryProvider
	in         io.Reader
	out        io.Writer
}

func NewShell(parkingLot *InstrumentedParkingLot, telemetry *TelemetryProvider, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		parkingLot: parkingLot,
		telemetry:  telemetry,
		in:         in,
		out:        out,
	}
}

// Run processes commands until input ends, exit is read or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == cmdExit {
			break
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))
		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")

	if err := scanner.Err(); err != nil {
		logging.Error(ctx).Err(err).Msg("reading shell input")
		return err
	}
	return nil
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	parts := strings.Fields(input)
	command, args := parts[0], parts[1:]

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case cmdCreateParkingLot:
		s.handleCreateParkingLot(ctx, args)
	case cmdPark:
		s.handlePark(ctx, args)
	case cmdLeave:
		s.handleLeave(ctx, args)
	case cmdStatus:
		s.handleStatus(ctx)
	case cmdRegistrationNumbersWithColour:
		s.handleRegistrationNumbersForColour(ctx, args)
	case cmdSlotNumbersWithColour:
		s.handleSlotNumbersForColour(ctx, args)
	case cmdSlotNumberForRegistration:
		s.handleSlotNumberForRegistrationNumber(ctx, args, "Not found")
	case cmdSlotNumberForRegistrationNo:
		s.handleSlotNumberForRegistrationNumber(ctx, args, "Invalid registration no.")
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.println("Unknown command: " + command)
	}
}

func (s *Shell) handleCreateParkingLot(ctx context.Context, args []string) {
	capacity, err := strconv.Atoi(argOrEmpty(args, 0))
	if err != nil {
		s.println("Invalid slot number")
		return
	}

	if err := s.parkingLot.Initialize(ctx, capacity); err != nil {
		s.println("Invalid slot number")
		return
	}
	s.printf("Created a parking lot with %d slots\n", capacity)
}

func (s *Shell) handlePark(ctx context.Context, args []string) {
	slotNumber, err := s.parkingLot.Park(ctx, argOrEmpty(args, 0), argOrEmpty(args, 1))
	switch {
	case errors.Is(err, ErrInvalidInput):
		s.println("Not a valid registrationNumber and/or color")
	case errors.Is(err, ErrLotFull):
		s.println("Sorry, parking lot is full")
	case err != nil:
		s.printError(err)
	default:
		s.printf("Allocated slot number: %d\n", slotNumber)
	}
}

func (s *Shell) handleLeave(ctx context.Context, args []string) {
	// A missing or unparsable slot reads as 0, the "not provided" slot.
	slotNumber, _ := strconv.Atoi(argOrEmpty(args, 0))

	err := s.parkingLot.Leave(ctx, slotNumber)
	switch {
	case errors.Is(err, ErrInvalidInput):
		s.println("Invalid slot number")
	case errors.Is(err, ErrSlotAlreadyEmpty):
		s.println("Slot already empty!")
	case err != nil:
		s.printError(err)
	default:
		s.printf("Slot number %d is free\n", slotNumber)
	}
}

func (s *Shell) handleStatus(ctx context.Context) {
	occupiedSlots, err := s.parkingLot.GetStatus(ctx)
	if err != nil {
		s.printError(err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-9s%-18s%s\n", "Slot No.", "Registration No.", "Colour")
	for _, slot := range occupiedSlots {
		fmt.Fprintf(&sb, "%-9d%-18s%s\n", slot.Number, slot.Vehicle.RegistrationNumber, slot.Vehicle.Color)
	}
	s.print(sb.String())
}

func (s *Shell) handleRegistrationNumbersForColour(ctx context.Context, args []string) {
	registrationNumbers, err := s.parkingLot.GetRegistrationNumbersByColor(ctx, argOrEmpty(args, 0))
	switch {
	case errors.Is(err, ErrInvalidInput):
		s.println("No colour provided")
	case errors.Is(err, ErrNotFound):
		s.println("No cars found of this colour")
	case err != nil:
		s.printError(err)
	default:
		s.println(strings.Join(registrationNumbers, ", "))
	}
}

func (s *Shell) handleSlotNumbersForColour(ctx context.Context, args []string) {
	slotNumbers, err := s.parkingLot.GetSlotNumbersByColor(ctx, argOrEmpty(args, 0))
	switch {
	case errors.Is(err, ErrInvalidInput):
		s.println("No color provided")
	case errors.Is(err, ErrNotFound):
		s.println("No slots found for this colour")
	case err != nil:
		s.printError(err)
	default:
		s.println(formatSlotList(slotNumbers))
	}
}

func (s *Shell) handleSlotNumberForRegistrationNumber(ctx context.Context, args []string, notFound string) {
	slotNumber, err := s.parkingLot.GetSlotByRegistrationNumber(ctx, argOrEmpty(args, 0))
	switch {
	case errors.Is(err, ErrInvalidInput):
		s.println("No registration number provided")
	case errors.Is(err, ErrNotFound):
		s.println(notFound)
	case err != nil:
		s.printError(err)
	default:
		s.println(strconv.Itoa(slotNumber))
	}
}

func (s *Shell) printError(err error) {
	if errors.Is(err, ErrNotInitialized) {
		s.println("Parking lot not created")
		return
	}
	s.printf("Error: %s\n", err.Error())
}

func (s *Shell) print(text string) {
	fmt.Fprint(s.out, text)
}

func (s *Shell) println(text string) {
	fmt.Fprintln(s.out, text)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func argOrEmpty(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func formatSlotList(slotNumbers []int) string {
	items := make([]string, len(slotNumbers))
	for i, slotNumber := range slotNumbers {
		items[i] = strconv.Itoa(slotNumber)
	}
	return "[" + strings.Join(items, ", ") + "]"
}
