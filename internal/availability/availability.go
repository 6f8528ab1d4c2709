package availability

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"mesaflow/internal/baas"
)

// Service is the access layer over the remote availability procedures. It is
// stateless: every call builds its arguments, forwards, and normalizes the
// response into a structurally complete result. Remote failures never escape
// as Go errors from the forwarding operations; they surface as failure-shaped
// results so callers can destructure without nil checks.
type Service struct {
	rc  *baas.Client
	log *zap.SugaredLogger
	now func() time.Time
}

func NewService(rc *baas.Client, log *zap.SugaredLogger) *Service {
	return &Service{rc: rc, log: log, now: time.Now}
}

const dateLayout = "2006-01-02"
const timeLayout = "15:04"

// CheckAvailability asks the remote for free capacity at a given date/time.
// The invariant HasAvailability == (AvailableSlots > 0) holds on every path.
func (s *Service) CheckAvailability(ctx context.Context, restaurantID, date, timeStr string, partySize int, durationMinutes *int) AvailabilityResult {
	if err := validateQueryArgs(restaurantID, date, timeStr, partySize); err != nil {
		return failedAvailability(err.Error())
	}

	args := map[string]any{
		"restaurant_id": restaurantID,
		"date":          date,
		"time":          timeStr,
		"party_size":    partySize,
	}
	if durationMinutes != nil {
		args["duration_minutes"] = *durationMinutes
	}

	raw, err := s.rc.Rpc(ctx, "check_availability", args)
	if err != nil {
		s.log.Warnw("check_availability failed", "restaurant", restaurantID, "err", err)
		return failedAvailability(err.Error())
	}

	var row struct {
		AvailableSlots  int         `json:"available_slots"`
		SuggestedTimes  []string    `json:"suggested_times"`
		AvailableTables []TableInfo `json:"available_tables"`
	}
	if err := unwrapFirstRow(raw, &row); err != nil {
		s.log.Warnw("check_availability returned malformed payload", "restaurant", restaurantID, "err", err)
		return failedAvailability(err.Error())
	}

	result := AvailabilityResult{
		Success:         true,
		AvailableSlots:  row.AvailableSlots,
		SuggestedTimes:  row.SuggestedTimes,
		AvailableTables: row.AvailableTables,
		HasAvailability: row.AvailableSlots > 0,
	}
	if result.SuggestedTimes == nil {
		result.SuggestedTimes = []string{}
	}
	if result.AvailableTables == nil {
		result.AvailableTables = []TableInfo{}
	}
	return result
}

// BookTable forwards a booking to the remote procedure. No idempotency check
// and no retry happen here: calling this twice with the same request may
// create two reservations. The at-most-one-table-per-slot invariant is owned
// by the remote.
func (s *Service) BookTable(ctx context.Context, req BookingRequest) BookingResult {
	args := map[string]any{
		"restaurant_id": req.RestaurantID,
		"date":          req.Date,
		"time":          req.Time,
		"party_size":    req.PartySize,
		"channel":       req.Channel,
		"customer": map[string]any{
			"name":  req.Customer.Name,
			"phone": req.Customer.Phone,
			"email": req.Customer.Email,
		},
	}
	if req.DurationMinutes != nil {
		args["duration_minutes"] = *req.DurationMinutes
	}
	if strings.TrimSpace(req.SpecialRequests) != "" {
		args["special_requests"] = req.SpecialRequests
	}

	raw, err := s.rc.Rpc(ctx, "book_table", args)
	if err != nil {
		s.log.Warnw("book_table failed", "restaurant", req.RestaurantID, "err", err)
		return BookingResult{
			Success: false,
			Error:   err.Error(),
			Message: "Error al procesar la reserva: " + err.Error(),
		}
	}

	var row struct {
		Success       bool            `json:"success"`
		ReservationID string          `json:"reservation_id"`
		TableInfo     json.RawMessage `json:"table_info"`
		Message       string          `json:"message"`
	}
	if err := unwrapFirstRow(raw, &row); err != nil {
		return BookingResult{
			Success: false,
			Error:   err.Error(),
			Message: "Error al procesar la reserva: " + err.Error(),
		}
	}

	result := BookingResult{
		Success:   row.Success,
		TableInfo: row.TableInfo,
		Message:   row.Message,
	}
	if row.Success && row.ReservationID != "" {
		id := row.ReservationID
		result.ReservationID = &id
	}
	if result.Message == "" {
		if row.Success {
			result.Message = "Reserva confirmada"
		} else {
			result.Message = "No se pudo completar la reserva"
		}
	}
	return result
}

// ReleaseReservationSlot frees the slot consumed by a reservation. The remote
// is expected to treat already-released ids as a no-op; whatever it reports is
// passed through untouched.
func (s *Service) ReleaseReservationSlot(ctx context.Context, reservationID string) ReleaseResult {
	raw, err := s.rc.Rpc(ctx, "release_reservation_slot", map[string]any{
		"reservation_id": reservationID,
	})
	if err != nil {
		s.log.Warnw("release_reservation_slot failed", "reservation", reservationID, "err", err)
		return ReleaseResult{Success: false, Error: err.Error()}
	}

	var released bool
	if err := json.Unmarshal(raw, &released); err != nil {
		// Some deployments wrap the boolean in a row.
		var row struct {
			Success bool `json:"success"`
		}
		if err2 := unwrapFirstRow(raw, &row); err2 != nil {
			return ReleaseResult{Success: false, Error: err.Error()}
		}
		released = row.Success
	}

	if !released {
		return ReleaseResult{Success: false, Message: "No se pudo liberar la reserva"}
	}
	return ReleaseResult{Success: true, Message: "Slot liberado correctamente"}
}

// GenerateAvailabilitySlots triggers bulk slot creation for a date range.
// A nil endDate means the remote picks its default span.
func (s *Service) GenerateAvailabilitySlots(ctx context.Context, restaurantID, startDate string, endDate *string) SlotGenerationResult {
	args := map[string]any{
		"restaurant_id": restaurantID,
		"start_date":    startDate,
	}
	if endDate != nil {
		args["end_date"] = *endDate
	}

	raw, err := s.rc.Rpc(ctx, "generate_availability_slots_simple", args)
	if err != nil {
		s.log.Warnw("generate_availability_slots_simple failed", "restaurant", restaurantID, "err", err)
		return SlotGenerationResult{Success: false, Error: err.Error()}
	}

	var row struct {
		SlotsGenerated int    `json:"slots_generated"`
		DateRange      string `json:"date_range"`
	}
	if err := unwrapFirstRow(raw, &row); err != nil {
		return SlotGenerationResult{Success: false, Error: err.Error()}
	}

	return SlotGenerationResult{
		Success:        true,
		SlotsGenerated: row.SlotsGenerated,
		DateRange:      row.DateRange,
		Message:        "Slots generados correctamente",
	}
}

// InitializeAvailabilitySystem is a single forward with no local logic.
func (s *Service) InitializeAvailabilitySystem(ctx context.Context, restaurantID string) InitResult {
	raw, err := s.rc.Rpc(ctx, "initialize_availability_system", map[string]any{
		"restaurant_id": restaurantID,
	})
	if err != nil {
		s.log.Warnw("initialize_availability_system failed", "restaurant", restaurantID, "err", err)
		return InitResult{Success: false, Error: err.Error()}
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil || msg == "" {
		msg = "Sistema de disponibilidad inicializado"
	}
	return InitResult{Success: true, Message: msg}
}

func failedAvailability(msg string) AvailabilityResult {
	return AvailabilityResult{
		Success:         false,
		Error:           msg,
		AvailableSlots:  0,
		SuggestedTimes:  []string{},
		AvailableTables: []TableInfo{},
		HasAvailability: false,
	}
}

// unwrapFirstRow decodes the first row of a tabular RPC response into dest.
// A bare object is accepted as a one-row table; an empty table leaves dest at
// its zero values.
func unwrapFirstRow(raw json.RawMessage, dest any) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var rows []json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return json.Unmarshal(rows[0], dest)
	}
	return json.Unmarshal(raw, dest)
}
