package availability

import "context"

const slotColumns = "id,slot_date,start_time,end_time,status,shift_name,metadata,tables(id,name,capacity,table_type,is_active)"

// GetAvailabilitySlots reads raw slot rows for one day, filtered by exact
// status. No matching rows is a success with an empty list, not an error.
func (s *Service) GetAvailabilitySlots(ctx context.Context, restaurantID, date, status string) SlotsResult {
	if status == "" {
		status = "free"
	}

	var rows []Slot
	err := s.rc.From("availability_slots").
		Select(slotColumns).
		Eq("restaurant_id", restaurantID).
		Eq("slot_date", date).
		Eq("status", status).
		Order("start_time").
		Get(ctx, &rows)
	if err != nil {
		s.log.Warnw("availability_slots read failed", "restaurant", restaurantID, "date", date, "err", err)
		return SlotsResult{Success: false, Error: err.Error(), Slots: []Slot{}, Count: 0}
	}

	if rows == nil {
		rows = []Slot{}
	}
	return SlotsResult{Success: true, Slots: rows, Count: len(rows)}
}

// GetAvailableTimeSlots returns free slots for a day grouped by shift and then
// by start time, keeping only tables that fit the party. Rows are filtered
// server-side (status=free, capacity >= partySize, active tables) and grouped
// client-side.
func (s *Service) GetAvailableTimeSlots(ctx context.Context, restaurantID, date string, partySize int) TimeSlotsResult {
	if partySize < 1 {
		partySize = 2
	}

	var rows []Slot
	err := s.rc.From("availability_slots").
		Select("id,slot_date,start_time,end_time,status,shift_name,tables!inner(id,name,capacity,table_type,is_active)").
		Eq("restaurant_id", restaurantID).
		Eq("slot_date", date).
		Eq("status", "free").
		Gte("tables.capacity", partySize).
		Eq("tables.is_active", true).
		Order("start_time").
		Get(ctx, &rows)
	if err != nil {
		s.log.Warnw("time slots read failed", "restaurant", restaurantID, "date", date, "err", err)
		return TimeSlotsResult{Success: false, Error: err.Error(), Shifts: []ShiftGroup{}, TotalSlots: 0}
	}

	shifts, total := groupSlotsByShift(rows)
	return TimeSlotsResult{Success: true, Shifts: shifts, TotalSlots: total}
}

// groupSlotsByShift walks rows in the order given (server-sorted by
// start_time) and buckets them shift -> start time -> tables. Shift order in
// the output is first-seen order of shift_name values; callers that need a
// canonical comida-before-cena ordering must re-sort. Per-time counts are
// recomputed from the table list length after grouping so the result stays
// correct under any row ordering.
func groupSlotsByShift(rows []Slot) ([]ShiftGroup, int) {
	shifts := []ShiftGroup{}
	shiftIdx := map[string]int{}
	timeIdx := map[string]map[string]int{}
	total := 0

	for _, row := range rows {
		if row.Table == nil {
			continue
		}
		total++

		si, ok := shiftIdx[row.ShiftName]
		if !ok {
			si = len(shifts)
			shiftIdx[row.ShiftName] = si
			timeIdx[row.ShiftName] = map[string]int{}
			shifts = append(shifts, ShiftGroup{Shift: row.ShiftName, Slots: []TimeSlot{}})
		}

		ti, ok := timeIdx[row.ShiftName][row.StartTime]
		if !ok {
			ti = len(shifts[si].Slots)
			timeIdx[row.ShiftName][row.StartTime] = ti
			shifts[si].Slots = append(shifts[si].Slots, TimeSlot{
				Time:            row.StartTime,
				EndTime:         row.EndTime,
				AvailableTables: []SlotTable{},
			})
		}
		shifts[si].Slots[ti].AvailableTables = append(shifts[si].Slots[ti].AvailableTables, *row.Table)
	}

	for si := range shifts {
		for ti := range shifts[si].Slots {
			shifts[si].Slots[ti].AvailableCount = len(shifts[si].Slots[ti].AvailableTables)
		}
	}
	return shifts, total
}
