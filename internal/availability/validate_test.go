package availability

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

// validationFixture wires a fake remote with configurable settings and events
// and pins the clock to 2025-06-01 18:00 local time.
func validationFixture(t *testing.T, settings map[string]any, events []map[string]any) *Service {
	t.Helper()
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/restaurants":
			writeRows(w, []map[string]any{{"settings": settings}})
		case "/rest/v1/special_events":
			if events == nil {
				events = []map[string]any{}
			}
			writeRows(w, events)
		default:
			t.Errorf("unexpected remote path %s", r.URL.Path)
		}
	})
	svc.now = func() time.Time {
		return time.Date(2025, 6, 1, 18, 0, 0, 0, time.Local)
	}
	return svc
}

func TestValidateBookingTimeMinAdvance(t *testing.T) {
	svc := validationFixture(t, map[string]any{"min_advance_hours": 2}, nil)

	res := svc.ValidateBookingTime(context.Background(), "r1", "2025-06-01", "19:00")
	if res.Valid {
		t.Fatal("19:00 is inside the 2h advance window, must be rejected")
	}
	if res.Code != CodeMinAdvanceTime {
		t.Errorf("code = %q, want %q", res.Code, CodeMinAdvanceTime)
	}
	if res.Reason == "" {
		t.Error("rejection must carry a reason")
	}
}

func TestValidateBookingTimeExactBoundaryPasses(t *testing.T) {
	svc := validationFixture(t, map[string]any{"min_advance_hours": 2}, nil)

	// 20:00 == now + 2h: not before the minimum, so it passes.
	res := svc.ValidateBookingTime(context.Background(), "r1", "2025-06-01", "20:00")
	if !res.Valid {
		t.Fatalf("boundary time rejected: %+v", res)
	}
	if res.Message != "Fecha y hora válidas para reserva" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestValidateBookingTimeSameDayDisabled(t *testing.T) {
	svc := validationFixture(t, map[string]any{
		"min_advance_hours":       0.5,
		"allow_same_day_bookings": false,
	}, nil)

	res := svc.ValidateBookingTime(context.Background(), "r1", "2025-06-01", "22:00")
	if res.Valid || res.Code != CodeSameDayDisabled {
		t.Errorf("result = %+v, want %s", res, CodeSameDayDisabled)
	}

	// A future date is unaffected by the same-day policy.
	res = svc.ValidateBookingTime(context.Background(), "r1", "2025-06-02", "22:00")
	if !res.Valid {
		t.Errorf("future date rejected: %+v", res)
	}
}

func TestValidateBookingTimeSpecialEvents(t *testing.T) {
	tests := []struct {
		name     string
		event    map[string]any
		time     string
		wantCode string
	}{
		{
			name: "whole-day closure blocks any time",
			event: map[string]any{
				"event_name": "Cierre por obras", "event_type": "closure",
				"start_date": "2025-06-01", "end_date": "2025-06-05", "is_active": true,
			},
			time:     "21:00",
			wantCode: CodeSpecialEventBlock,
		},
		{
			name: "holiday with window blocks inside it",
			event: map[string]any{
				"event_name": "Festivo local", "event_type": "holiday",
				"start_date": "2025-06-02", "end_date": "2025-06-02",
				"start_time": "13:00:00", "end_time": "16:00:00", "is_active": true,
			},
			time:     "13:00",
			wantCode: CodeSpecialEventBlock,
		},
		{
			name: "window is inclusive at the end",
			event: map[string]any{
				"event_name": "Festivo local", "event_type": "holiday",
				"start_date": "2025-06-02", "end_date": "2025-06-02",
				"start_time": "13:00:00", "end_time": "16:00:00", "is_active": true,
			},
			time:     "16:00",
			wantCode: CodeSpecialEventBlock,
		},
		{
			name: "outside the window passes",
			event: map[string]any{
				"event_name": "Festivo local", "event_type": "holiday",
				"start_date": "2025-06-02", "end_date": "2025-06-02",
				"start_time": "13:00:00", "end_time": "16:00:00", "is_active": true,
			},
			time:     "20:30",
			wantCode: "",
		},
		{
			name: "non-closure event types never block",
			event: map[string]any{
				"event_name": "Cata de vinos", "event_type": "special_menu",
				"start_date": "2025-06-02", "end_date": "2025-06-02", "is_active": true,
			},
			time:     "20:30",
			wantCode: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := validationFixture(t, map[string]any{}, []map[string]any{tt.event})
			res := svc.ValidateBookingTime(context.Background(), "r1", "2025-06-02", tt.time)
			if tt.wantCode == "" {
				if !res.Valid {
					t.Errorf("expected valid, got %+v", res)
				}
				return
			}
			if res.Valid || res.Code != tt.wantCode {
				t.Errorf("result = %+v, want code %s", res, tt.wantCode)
			}
		})
	}
}

func TestValidateBookingTimeFirstEventWins(t *testing.T) {
	events := []map[string]any{
		{
			"event_name": "Cierre mayo", "event_type": "closure",
			"start_date": "2025-05-30", "end_date": "2025-06-03",
			"description": "Cerrado por reforma", "is_active": true,
		},
		{
			"event_name": "Festivo", "event_type": "holiday",
			"start_date": "2025-06-02", "end_date": "2025-06-02", "is_active": true,
		},
	}
	svc := validationFixture(t, map[string]any{}, events)

	res := svc.ValidateBookingTime(context.Background(), "r1", "2025-06-02", "21:00")
	if res.Valid {
		t.Fatal("expected a block")
	}
	if res.Reason != "Cerrado por reforma" {
		t.Errorf("reason = %q, want the first event in query order to win", res.Reason)
	}
}

func TestValidateBookingTimeDefaults(t *testing.T) {
	// Empty settings blob: min_advance_hours defaults to 2,
	// allow_same_day_bookings defaults to true.
	svc := validationFixture(t, map[string]any{}, nil)

	res := svc.ValidateBookingTime(context.Background(), "r1", "2025-06-01", "19:30")
	if res.Valid || res.Code != CodeMinAdvanceTime {
		t.Errorf("default advance window not applied: %+v", res)
	}

	res = svc.ValidateBookingTime(context.Background(), "r1", "2025-06-01", "21:00")
	if !res.Valid {
		t.Errorf("same-day must be allowed by default: %+v", res)
	}
}

func TestValidateBookingTimeSettingsFetchFailure(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "connection refused"})
	})

	res := svc.ValidateBookingTime(context.Background(), "r1", "2025-06-05", "20:00")
	if res.Valid {
		t.Fatal("expected rejection")
	}
	if res.Code != CodeValidationError {
		t.Errorf("code = %q, want %q", res.Code, CodeValidationError)
	}
	if res.Reason == "" {
		t.Error("rejection must carry the underlying reason")
	}
}
