package availability

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func TestCreateSpecialEventRegeneratesSlots(t *testing.T) {
	regenerated := false
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/special_events":
			writeRows(w, []map[string]any{{
				"id": "ev-1", "restaurant_id": "r1", "event_name": "Nochevieja",
				"event_type": "closure", "start_date": "2025-12-31", "end_date": "2025-12-31",
				"is_active": true,
			}})
		case "/rest/v1/rpc/generate_availability_slots_simple":
			regenerated = true
			var args map[string]any
			_ = json.NewDecoder(r.Body).Decode(&args)
			if args["start_date"] != "2025-12-31" || args["end_date"] != "2025-12-31" {
				t.Errorf("regeneration range = %v - %v", args["start_date"], args["end_date"])
			}
			writeRows(w, []map[string]any{{"slots_generated": 0, "date_range": "2025-12-31"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	res, err := svc.CreateSpecialEvent(context.Background(), SpecialEvent{
		RestaurantID: "r1",
		EventName:    "Nochevieja",
		EventType:    "closure",
		StartDate:    "2025-12-31",
		EndDate:      "2025-12-31",
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Event == nil || res.Event.ID != "ev-1" {
		t.Errorf("result = %+v", res)
	}
	if !regenerated {
		t.Error("slot regeneration must follow the insert")
	}
}

// The insert-then-regenerate pair has no compensation: a regeneration failure
// returns an error although the event row already exists remotely.
func TestCreateSpecialEventRegenerationFailureKeepsEvent(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/special_events":
			writeRows(w, []map[string]any{{"id": "ev-2", "restaurant_id": "r1"}})
		case "/rest/v1/rpc/generate_availability_slots_simple":
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "deadlock detected"})
		}
	})

	res, err := svc.CreateSpecialEvent(context.Background(), SpecialEvent{
		RestaurantID: "r1",
		EventName:    "Cierre",
		StartDate:    "2025-12-31",
		EndDate:      "2025-12-31",
	})
	if err == nil {
		t.Fatal("regeneration failure must surface as an error")
	}
	if res.Success {
		t.Error("result must not claim success")
	}
	if res.Event == nil || res.Event.ID != "ev-2" {
		t.Error("result must still reference the durably inserted event")
	}
}

func TestCreateSpecialEventInsertFailure(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/v1/rpc/generate_availability_slots_simple" {
			t.Error("regeneration must not run when the insert fails")
			return
		}
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "duplicate key value"})
	})

	res, err := svc.CreateSpecialEvent(context.Background(), SpecialEvent{
		RestaurantID: "r1",
		EventName:    "Cierre",
		StartDate:    "2025-12-31",
		EndDate:      "2025-12-31",
	})
	if err == nil || res.Success {
		t.Errorf("expected failure, got res=%+v err=%v", res, err)
	}
	if res.Event != nil {
		t.Error("no event must be reported when the insert fails")
	}
}

func TestCreateSpecialEventValidatesInput(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote must not be called on invalid input")
	})

	_, err := svc.CreateSpecialEvent(context.Background(), SpecialEvent{EventName: "Sin restaurante"})
	if err == nil {
		t.Error("expected validation error")
	}
}
