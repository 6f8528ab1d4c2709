package availability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"mesaflow/internal/baas"
	"mesaflow/internal/config"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	rc := baas.New(config.BaasConfig{URL: srv.URL, ServiceKey: "test-key", Timeout: 5 * time.Second})
	return NewService(rc, zap.NewNop().Sugar()), srv
}

func writeRows(w http.ResponseWriter, rows any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

func TestCheckAvailabilityMapsRemoteRow(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/rpc/check_availability" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeRows(w, []map[string]any{{
			"available_slots": 3,
			"suggested_times": []string{"20:00", "20:30"},
			"available_tables": []map[string]any{
				{"id": "t1", "table_name": "Terraza 1", "capacity": 4},
			},
		}})
	})

	res := svc.CheckAvailability(context.Background(), "r1", "2025-06-01", "20:00", 4, nil)
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.AvailableSlots != 3 || !res.HasAvailability {
		t.Errorf("slots = %d, hasAvailability = %v", res.AvailableSlots, res.HasAvailability)
	}
	if len(res.SuggestedTimes) != 2 || res.SuggestedTimes[0] != "20:00" {
		t.Errorf("suggestedTimes = %v", res.SuggestedTimes)
	}
	if len(res.AvailableTables) != 1 || res.AvailableTables[0].Name != "Terraza 1" {
		t.Errorf("availableTables = %+v", res.AvailableTables)
	}
}

func TestCheckAvailabilityZeroSlots(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		writeRows(w, []map[string]any{{"available_slots": 0}})
	})

	res := svc.CheckAvailability(context.Background(), "r1", "2025-06-01", "20:00", 4, nil)
	if !res.Success {
		t.Fatalf("zero availability must still be a success, got error %q", res.Error)
	}
	if res.HasAvailability {
		t.Error("hasAvailability must be false when availableSlots == 0")
	}
	if res.SuggestedTimes == nil || res.AvailableTables == nil {
		t.Error("absent remote sequences must default to empty, not nil")
	}
	if len(res.SuggestedTimes) != 0 || len(res.AvailableTables) != 0 {
		t.Errorf("expected empty defaults, got %v / %v", res.SuggestedTimes, res.AvailableTables)
	}
}

func TestCheckAvailabilityRemoteError(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "function check_availability does not exist"})
	})

	res := svc.CheckAvailability(context.Background(), "r1", "2025-06-01", "20:00", 4, nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error == "" {
		t.Error("failure must carry the remote message")
	}
	if res.HasAvailability || res.AvailableSlots != 0 {
		t.Error("failure must carry zero availability defaults")
	}
	if res.SuggestedTimes == nil || res.AvailableTables == nil {
		t.Error("failure must carry empty, non-nil sequences")
	}
}

func TestCheckAvailabilityValidatesArgs(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote must not be called on invalid input")
	})

	tests := []struct {
		name       string
		restaurant string
		date       string
		time       string
		party      int
	}{
		{"empty restaurant", "", "2025-06-01", "20:00", 2},
		{"bad date", "r1", "01/06/2025", "20:00", 2},
		{"bad time", "r1", "2025-06-01", "8pm", 2},
		{"zero party", "r1", "2025-06-01", "20:00", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.CheckAvailability(context.Background(), tt.restaurant, tt.date, tt.time, tt.party, nil)
			if res.Success {
				t.Error("expected rejection")
			}
		})
	}
}

func TestBookTableSuccess(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var args map[string]any
		_ = json.NewDecoder(r.Body).Decode(&args)
		if args["channel"] != "web" {
			t.Errorf("channel = %v", args["channel"])
		}
		writeRows(w, []map[string]any{{
			"success":        true,
			"reservation_id": "abc-123",
			"table_info":     map[string]any{"id": "t1", "name": "Mesa 4"},
			"message":        "Reserva confirmada",
		}})
	})

	res := svc.BookTable(context.Background(), BookingRequest{
		RestaurantID: "r1",
		Date:         "2025-06-01",
		Time:         "20:00",
		PartySize:    4,
		Channel:      "web",
		Customer:     Customer{Name: "Ana", Phone: "600111222"},
	})
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if res.ReservationID == nil || *res.ReservationID != "abc-123" {
		t.Errorf("reservationId = %v", res.ReservationID)
	}
	if res.Message == "" {
		t.Error("message must always be populated")
	}
}

func TestBookTableRemoteFailure(t *testing.T) {
	svc, srv := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close() // force a transport error

	res := svc.BookTable(context.Background(), BookingRequest{
		RestaurantID: "r1", Date: "2025-06-01", Time: "20:00", PartySize: 2,
	})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ReservationID != nil {
		t.Error("reservationId must be null on failure")
	}
	if res.Error == "" {
		t.Error("error must be set")
	}
	const prefix = "Error al procesar la reserva: "
	if len(res.Message) <= len(prefix) || res.Message[:len(prefix)] != prefix {
		t.Errorf("message = %q, want prefix %q", res.Message, prefix)
	}
}

func TestBookTableBusinessRejection(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		writeRows(w, []map[string]any{{
			"success": false,
			"message": "No hay mesas disponibles para esa hora",
		}})
	})

	res := svc.BookTable(context.Background(), BookingRequest{
		RestaurantID: "r1", Date: "2025-06-01", Time: "20:00", PartySize: 2,
	})
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.ReservationID != nil {
		t.Error("reservationId must be null when remote rejects")
	}
	if res.Message != "No hay mesas disponibles para esa hora" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestReleaseReservationSlot(t *testing.T) {
	t.Run("released", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			writeRows(w, true)
		})
		res := svc.ReleaseReservationSlot(context.Background(), "abc")
		if !res.Success {
			t.Errorf("expected success, got %+v", res)
		}
	})

	t.Run("remote says no", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			writeRows(w, false)
		})
		res := svc.ReleaseReservationSlot(context.Background(), "abc")
		if res.Success {
			t.Error("expected failure passthrough")
		}
	})
}

func TestGenerateAvailabilitySlots(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var args map[string]any
		_ = json.NewDecoder(r.Body).Decode(&args)
		if _, hasEnd := args["end_date"]; hasEnd {
			t.Error("nil endDate must be omitted so the remote picks its default span")
		}
		writeRows(w, []map[string]any{{
			"slots_generated": 42,
			"date_range":      "2025-06-01 - 2025-06-30",
		}})
	})

	res := svc.GenerateAvailabilitySlots(context.Background(), "r1", "2025-06-01", nil)
	if !res.Success || res.SlotsGenerated != 42 {
		t.Errorf("result = %+v", res)
	}
}

func TestGetAvailabilitySlotsEmptyIsSuccess(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("status"); got != "eq.free" {
			t.Errorf("status filter = %q", got)
		}
		writeRows(w, []any{})
	})

	res := svc.GetAvailabilitySlots(context.Background(), "r1", "2025-06-01", "")
	if !res.Success {
		t.Fatalf("empty result must be success, got %q", res.Error)
	}
	if res.Count != 0 || len(res.Slots) != 0 {
		t.Errorf("count = %d, slots = %v", res.Count, res.Slots)
	}
}

func TestGroupSlotsByShift(t *testing.T) {
	table := func(id string) *SlotTable {
		return &SlotTable{ID: id, Name: "Mesa " + id, Capacity: 4, IsActive: true}
	}
	rows := []Slot{
		{StartTime: "13:00", EndTime: "14:30", ShiftName: "comida", Table: table("1")},
		{StartTime: "13:00", EndTime: "14:30", ShiftName: "comida", Table: table("2")},
		{StartTime: "14:00", EndTime: "15:30", ShiftName: "comida", Table: table("1")},
		{StartTime: "20:00", EndTime: "21:30", ShiftName: "cena", Table: table("3")},
		{StartTime: "20:00", EndTime: "21:30", ShiftName: "cena", Table: table("1")},
	}

	shifts, total := groupSlotsByShift(rows)

	if total != len(rows) {
		t.Fatalf("total = %d, want %d", total, len(rows))
	}
	if len(shifts) != 2 || shifts[0].Shift != "comida" || shifts[1].Shift != "cena" {
		t.Fatalf("shift order must be first-seen: %+v", shifts)
	}

	sum := 0
	for _, sh := range shifts {
		for _, ts := range sh.Slots {
			if ts.AvailableCount != len(ts.AvailableTables) {
				t.Errorf("availableCount %d != len(tables) %d at %s", ts.AvailableCount, len(ts.AvailableTables), ts.Time)
			}
			sum += ts.AvailableCount
		}
	}
	if sum != len(rows) {
		t.Errorf("grouped count %d, want every input row counted exactly once (%d)", sum, len(rows))
	}

	if len(shifts[0].Slots) != 2 {
		t.Errorf("comida time buckets = %d, want 2", len(shifts[0].Slots))
	}
	if shifts[0].Slots[0].AvailableCount != 2 {
		t.Errorf("13:00 count = %d, want 2", shifts[0].Slots[0].AvailableCount)
	}
}

func TestGroupSlotsByShiftInterleavedOrder(t *testing.T) {
	table := func(id string) *SlotTable { return &SlotTable{ID: id} }
	rows := []Slot{
		{StartTime: "20:00", ShiftName: "cena", Table: table("1")},
		{StartTime: "13:00", ShiftName: "comida", Table: table("1")},
		{StartTime: "20:00", ShiftName: "cena", Table: table("2")},
	}

	shifts, total := groupSlotsByShift(rows)
	if total != 3 {
		t.Fatalf("total = %d", total)
	}
	if shifts[0].Shift != "cena" {
		t.Errorf("first-seen shift must lead, got %q", shifts[0].Shift)
	}
	if shifts[0].Slots[0].AvailableCount != 2 {
		t.Errorf("interleaved rows must land in the same bucket, count = %d", shifts[0].Slots[0].AvailableCount)
	}
}
