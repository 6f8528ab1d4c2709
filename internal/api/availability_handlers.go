package api

import (
	"net/http"
	"strconv"
	"strings"

	"mesaflow/internal/availability"
	"mesaflow/internal/httpx"
)

// Availability handlers are thin: scope to the session's restaurant, decode,
// delegate to the access layer, and write its normalized result as-is. The
// access layer never returns a Go error for these, so every response is a
// 200 whose body carries success/failure.

type availabilityCheckRequest struct {
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string `json:"time" validate:"required,datetime=15:04"`
	PartySize       int    `json:"partySize" validate:"omitempty,min=1"`
	DurationMinutes *int   `json:"durationMinutes" validate:"omitempty,min=1"`
}

func (s *Server) handleAvailabilityCheck(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	var req availabilityCheckRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Parámetros inválidos: "+err.Error())
		return
	}
	if req.PartySize == 0 {
		req.PartySize = 2
	}

	res := s.avail.CheckAvailability(r.Context(), restaurantID, req.Date, req.Time, req.PartySize, req.DurationMinutes)
	httpx.WriteJSON(w, http.StatusOK, res)
}

type validateTimeRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"required,datetime=15:04"`
}

func (s *Server) handleValidateBookingTime(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	var req validateTimeRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Parámetros inválidos: "+err.Error())
		return
	}

	res := s.avail.ValidateBookingTime(r.Context(), restaurantID, req.Date, req.Time)
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleAvailabilitySlots(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		httpx.WriteError(w, http.StatusBadRequest, "El parámetro date es obligatorio")
		return
	}
	status := strings.TrimSpace(q.Get("status"))

	res := s.avail.GetAvailabilitySlots(r.Context(), restaurantID, date, status)
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleAvailableTimeSlots(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		httpx.WriteError(w, http.StatusBadRequest, "El parámetro date es obligatorio")
		return
	}
	partySize := 2
	if raw := q.Get("party_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			partySize = n
		}
	}

	res := s.avail.GetAvailableTimeSlots(r.Context(), restaurantID, date, partySize)
	httpx.WriteJSON(w, http.StatusOK, res)
}

type generateSlotsRequest struct {
	StartDate string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   *string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

func (s *Server) handleGenerateSlots(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	var req generateSlotsRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Parámetros inválidos: "+err.Error())
		return
	}

	res := s.avail.GenerateAvailabilitySlots(r.Context(), restaurantID, req.StartDate, req.EndDate)
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleInitializeAvailability(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	res := s.avail.InitializeAvailabilitySystem(r.Context(), restaurantID)
	httpx.WriteJSON(w, http.StatusOK, res)
}

type specialEventRequest struct {
	EventName   string `json:"eventName" validate:"required"`
	EventType   string `json:"eventType" validate:"required,oneof=closure holiday special_menu private"`
	StartDate   string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"endDate" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"startTime" validate:"omitempty"`
	EndTime     string `json:"endTime" validate:"omitempty"`
	Description string `json:"description"`
}

func (s *Server) handleCreateSpecialEvent(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	var req specialEventRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Parámetros inválidos: "+err.Error())
		return
	}

	res, err := s.avail.CreateSpecialEvent(r.Context(), availability.SpecialEvent{
		RestaurantID: restaurantID,
		EventName:    req.EventName,
		EventType:    req.EventType,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Description:  req.Description,
		IsActive:     true,
	})
	if err != nil {
		// The event row may already exist when regeneration failed; the
		// result says which case this is.
		status := http.StatusInternalServerError
		if res.Event != nil {
			status = http.StatusConflict
		}
		httpx.WriteJSON(w, status, map[string]any{
			"success": false,
			"message": err.Error(),
			"event":   res.Event,
		})
		return
	}

	s.hub.BroadcastToRestaurant(restaurantID, "event.created", res.Event)
	httpx.WriteJSON(w, http.StatusOK, res)
}
