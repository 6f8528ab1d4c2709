package availability

import "encoding/json"

// TableInfo is the table shape returned inside availability results. The
// remote is inconsistent about the name column (name vs table_name), so both
// are accepted on decode.
type TableInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

func (t *TableInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.Number `json:"id"`
		Name      string      `json:"name"`
		TableName string      `json:"table_name"`
		Capacity  int         `json:"capacity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.ID = raw.ID.String()
	t.Name = raw.Name
	if t.Name == "" {
		t.Name = raw.TableName
	}
	t.Capacity = raw.Capacity
	return nil
}

// AvailabilityResult is the normalized shape of check_availability.
// HasAvailability is always derived locally from AvailableSlots.
type AvailabilityResult struct {
	Success         bool        `json:"success"`
	Error           string      `json:"error,omitempty"`
	AvailableSlots  int         `json:"availableSlots"`
	SuggestedTimes  []string    `json:"suggestedTimes"`
	AvailableTables []TableInfo `json:"availableTables"`
	HasAvailability bool        `json:"hasAvailability"`
}

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

type BookingRequest struct {
	RestaurantID    string   `json:"restaurantId" validate:"required"`
	Date            string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string   `json:"time" validate:"required,datetime=15:04"`
	PartySize       int      `json:"partySize" validate:"required,min=1"`
	Channel         string   `json:"channel"`
	Customer        Customer `json:"customer"`
	DurationMinutes *int     `json:"durationMinutes,omitempty" validate:"omitempty,min=1"`
	SpecialRequests string   `json:"specialRequests,omitempty"`
}

// BookingResult keeps ReservationID as a pointer: it is null whenever
// Success is false, and Message is always populated.
type BookingResult struct {
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	ReservationID *string         `json:"reservationId"`
	TableInfo     json.RawMessage `json:"tableInfo"`
	Message       string          `json:"message"`
}

type ReleaseResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type SlotGenerationResult struct {
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	SlotsGenerated int    `json:"slotsGenerated"`
	DateRange      string `json:"dateRange"`
	Message        string `json:"message,omitempty"`
}

type InitResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// SlotTable is the joined table row embedded in an availability slot.
type SlotTable struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	TableType string `json:"table_type"`
	IsActive  bool   `json:"is_active"`
}

type Slot struct {
	ID        string          `json:"id"`
	SlotDate  string          `json:"slot_date"`
	StartTime string          `json:"start_time"`
	EndTime   string          `json:"end_time"`
	Status    string          `json:"status"`
	ShiftName string          `json:"shift_name"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Table     *SlotTable      `json:"tables,omitempty"`
}

type SlotsResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Slots   []Slot `json:"slots"`
	Count   int    `json:"count"`
}

// TimeSlot is one bookable time inside a shift. AvailableCount is always the
// length of AvailableTables, never an upstream counter.
type TimeSlot struct {
	Time            string      `json:"time"`
	EndTime         string      `json:"endTime"`
	AvailableTables []SlotTable `json:"availableTables"`
	AvailableCount  int         `json:"availableCount"`
}

// ShiftGroup groups time slots under a shift name ("comida", "cena"). Output
// order of shifts is first-seen order of shift_name values, not canonical.
type ShiftGroup struct {
	Shift string     `json:"shift"`
	Slots []TimeSlot `json:"slots"`
}

type TimeSlotsResult struct {
	Success    bool         `json:"success"`
	Error      string       `json:"error,omitempty"`
	Shifts     []ShiftGroup `json:"shifts"`
	TotalSlots int          `json:"totalSlots"`
}

// Validation rejection codes.
const (
	CodeMinAdvanceTime    = "MIN_ADVANCE_TIME"
	CodeSameDayDisabled   = "SAME_DAY_DISABLED"
	CodeSpecialEventBlock = "SPECIAL_EVENT_BLOCK"
	CodeValidationError   = "VALIDATION_ERROR"
)

type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type SpecialEvent struct {
	ID             string          `json:"id,omitempty"`
	RestaurantID   string          `json:"restaurant_id"`
	EventName      string          `json:"event_name"`
	EventType      string          `json:"event_type"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	StartTime      string          `json:"start_time,omitempty"`
	EndTime        string          `json:"end_time,omitempty"`
	AffectedTables json.RawMessage `json:"affected_tables,omitempty"`
	Description    string          `json:"description,omitempty"`
	IsActive       bool            `json:"is_active"`
}

type SpecialEventResult struct {
	Success bool          `json:"success"`
	Event   *SpecialEvent `json:"event,omitempty"`
	Message string        `json:"message,omitempty"`
}
