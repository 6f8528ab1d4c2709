package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type restaurantSettings struct {
	MinAdvanceHours     float64
	AllowSameDayBooking bool
}

func validateQueryArgs(restaurantID, date, timeStr string, partySize int) error {
	if strings.TrimSpace(restaurantID) == "" {
		return errors.New("restaurant_id es obligatorio")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return errors.New("formato de fecha inválido")
	}
	if _, err := time.Parse(timeLayout, timeStr); err != nil {
		return errors.New("formato de hora inválido")
	}
	if partySize < 1 {
		return errors.New("el número de comensales debe ser al menos 1")
	}
	return nil
}

// ValidateBookingTime runs the only locally-owned business decision: advance
// time, same-day policy, and special-event blocks. It never returns a Go
// error; anything that goes wrong while reading settings or events comes back
// as a VALIDATION_ERROR rejection.
func (s *Service) ValidateBookingTime(ctx context.Context, restaurantID, date, timeStr string) ValidationResult {
	if err := validateQueryArgs(restaurantID, date, timeStr, 1); err != nil {
		return ValidationResult{Valid: false, Reason: err.Error(), Code: CodeValidationError}
	}

	settings, err := s.fetchSettings(ctx, restaurantID)
	if err != nil {
		s.log.Warnw("settings read failed during validation", "restaurant", restaurantID, "err", err)
		return ValidationResult{Valid: false, Reason: err.Error(), Code: CodeValidationError}
	}

	now := s.now()
	bookingDateTime, err := time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+timeStr, now.Location())
	if err != nil {
		return ValidationResult{Valid: false, Reason: "fecha u hora inválida", Code: CodeValidationError}
	}

	minBookingTime := now.Add(time.Duration(settings.MinAdvanceHours * float64(time.Hour)))
	if bookingDateTime.Before(minBookingTime) {
		return ValidationResult{
			Valid:  false,
			Reason: fmt.Sprintf("Las reservas requieren al menos %g horas de antelación", settings.MinAdvanceHours),
			Code:   CodeMinAdvanceTime,
		}
	}

	if !settings.AllowSameDayBooking && date == now.Format(dateLayout) {
		return ValidationResult{
			Valid:  false,
			Reason: "No se permiten reservas para el mismo día",
			Code:   CodeSameDayDisabled,
		}
	}

	events, err := s.fetchActiveEvents(ctx, restaurantID, date)
	if err != nil {
		s.log.Warnw("special events read failed during validation", "restaurant", restaurantID, "err", err)
		return ValidationResult{Valid: false, Reason: err.Error(), Code: CodeValidationError}
	}

	// First blocking event wins. Events are ordered by start_date,id on the
	// query so the surfaced message is deterministic when several overlap.
	for _, ev := range events {
		if !blocksTime(ev, timeStr) {
			continue
		}
		reason := strings.TrimSpace(ev.Description)
		if reason == "" {
			reason = "El restaurante no admite reservas: " + ev.EventName
		}
		return ValidationResult{Valid: false, Reason: reason, Code: CodeSpecialEventBlock}
	}

	return ValidationResult{Valid: true, Message: "Fecha y hora válidas para reserva"}
}

func (s *Service) fetchSettings(ctx context.Context, restaurantID string) (restaurantSettings, error) {
	var row struct {
		Settings json.RawMessage `json:"settings"`
	}
	err := s.rc.From("restaurants").
		Select("settings").
		Eq("id", restaurantID).
		Single(ctx, &row)
	if err != nil {
		return restaurantSettings{}, err
	}

	out := restaurantSettings{MinAdvanceHours: 2, AllowSameDayBooking: true}
	if len(row.Settings) == 0 {
		return out, nil
	}

	var parsed struct {
		MinAdvanceHours     *float64 `json:"min_advance_hours"`
		AllowSameDayBooking *bool    `json:"allow_same_day_bookings"`
	}
	if err := json.Unmarshal(row.Settings, &parsed); err != nil {
		// Settings column holds arbitrary JSON; a malformed blob falls back
		// to defaults rather than rejecting the booking.
		return out, nil
	}
	if parsed.MinAdvanceHours != nil && *parsed.MinAdvanceHours >= 0 {
		out.MinAdvanceHours = *parsed.MinAdvanceHours
	}
	if parsed.AllowSameDayBooking != nil {
		out.AllowSameDayBooking = *parsed.AllowSameDayBooking
	}
	return out, nil
}

// fetchActiveEvents returns active special events whose date range covers the
// requested date. The overlap test is date-level only; time windows are
// applied afterwards in blocksTime.
func (s *Service) fetchActiveEvents(ctx context.Context, restaurantID, date string) ([]SpecialEvent, error) {
	var events []SpecialEvent
	err := s.rc.From("special_events").
		Select("id,restaurant_id,event_name,event_type,start_date,end_date,start_time,end_time,description,is_active").
		Eq("restaurant_id", restaurantID).
		Eq("is_active", true).
		Lte("start_date", date).
		Gte("end_date", date).
		Order("start_date,id").
		Get(ctx, &events)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// blocksTime decides whether a closure-style event blocks the requested time.
// Closures and holidays without a time window block the whole day; with a
// window they block inclusively on both ends. Other event types never block.
func blocksTime(ev SpecialEvent, timeStr string) bool {
	if ev.EventType != "closure" && ev.EventType != "holiday" {
		return false
	}
	start := normalizeClock(ev.StartTime)
	end := normalizeClock(ev.EndTime)
	if start == "" || end == "" {
		return true
	}
	t := normalizeClock(timeStr)
	return t >= start && t <= end
}

// normalizeClock trims HH:MM:SS to HH:MM so lexicographic comparison works
// across the two formats the remote stores.
func normalizeClock(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 5 {
		return v[:5]
	}
	return v
}
