package availability

import (
	"context"
	"errors"
	"strings"
)

// CreateSpecialEvent inserts the event row and then regenerates availability
// slots for the affected range. The two steps are sequential and there is no
// compensation: when the insert succeeds but regeneration fails, the event
// row durably exists and the call still returns an error. Callers must treat
// that error as "event saved, slots stale" and can retry regeneration alone
// via GenerateAvailabilitySlots.
func (s *Service) CreateSpecialEvent(ctx context.Context, ev SpecialEvent) (SpecialEventResult, error) {
	if strings.TrimSpace(ev.RestaurantID) == "" {
		return SpecialEventResult{Success: false}, errors.New("restaurant_id es obligatorio")
	}
	if strings.TrimSpace(ev.EventName) == "" {
		return SpecialEventResult{Success: false}, errors.New("event_name es obligatorio")
	}
	if strings.TrimSpace(ev.StartDate) == "" || strings.TrimSpace(ev.EndDate) == "" {
		return SpecialEventResult{Success: false}, errors.New("start_date y end_date son obligatorios")
	}

	var inserted SpecialEvent
	if err := s.rc.Insert(ctx, "special_events", ev, &inserted); err != nil {
		s.log.Warnw("special event insert failed", "restaurant", ev.RestaurantID, "err", err)
		return SpecialEventResult{Success: false}, err
	}

	end := ev.EndDate
	gen := s.GenerateAvailabilitySlots(ctx, ev.RestaurantID, ev.StartDate, &end)
	if !gen.Success {
		s.log.Warnw("slot regeneration failed after event insert",
			"restaurant", ev.RestaurantID, "event", inserted.ID, "err", gen.Error)
		return SpecialEventResult{
			Success: false,
			Event:   &inserted,
			Message: "Evento creado pero la regeneración de slots falló",
		}, errors.New(gen.Error)
	}

	return SpecialEventResult{
		Success: true,
		Event:   &inserted,
		Message: "Evento especial creado correctamente",
	}, nil
}
