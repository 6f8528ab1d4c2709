package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"mesaflow/internal/httpx"
)

type reservationRow struct {
	ID              string          `json:"id"`
	RestaurantID    string          `json:"restaurant_id"`
	ReservationDate string          `json:"reservation_date"`
	ReservationTime string          `json:"reservation_time"`
	PartySize       int             `json:"party_size"`
	Status          string          `json:"status"`
	Channel         string          `json:"channel"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerEmail   string          `json:"customer_email"`
	SpecialRequests string          `json:"special_requests"`
	TableID         string          `json:"table_id"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedAt       string          `json:"created_at"`
}

const reservationColumns = "id,restaurant_id,reservation_date,reservation_time,party_size,status,channel,customer_name,customer_phone,customer_email,special_requests,table_id,metadata,created_at"

// Reservation status transitions allowed from the dashboard.
var allowedReservationStatus = map[string]bool{
	"pending":   true,
	"confirmed": true,
	"seated":    true,
	"completed": true,
	"cancelled": true,
	"no_show":   true,
}

func (s *Server) handleReservationsList(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	q := s.rc.From("reservations").
		Select(reservationColumns).
		Eq("restaurant_id", restaurantID).
		Order("reservation_date,reservation_time")

	params := r.URL.Query()
	if date := strings.TrimSpace(params.Get("date")); date != "" {
		q = q.Eq("reservation_date", date)
	}
	if status := strings.TrimSpace(params.Get("status")); status != "" {
		q = q.Eq("status", status)
	}

	var rows []reservationRow
	if err := q.Get(r.Context(), &rows); err != nil {
		s.log.Warnw("reservations read failed", "restaurant", restaurantID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Error consultando reservas")
		return
	}
	if rows == nil {
		rows = []reservationRow{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"reservations": rows,
		"count":        len(rows),
	})
}

type reservationPatchRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) handleReservationPatch(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Falta el identificador de reserva")
		return
	}

	var req reservationPatchRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if !allowedReservationStatus[req.Status] {
		httpx.WriteError(w, http.StatusBadRequest, "Estado de reserva no válido")
		return
	}

	var updated []reservationRow
	err := s.rc.From("reservations").
		Eq("id", id).
		Eq("restaurant_id", restaurantID).
		Update(r.Context(), map[string]any{"status": req.Status}, &updated)
	if err != nil {
		s.log.Warnw("reservation update failed", "reservation", id, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Error actualizando la reserva")
		return
	}
	if len(updated) == 0 {
		httpx.WriteError(w, http.StatusNotFound, "Reserva no encontrada")
		return
	}

	// Cancellation frees the slot so the remote can rebook it.
	if req.Status == "cancelled" {
		release := s.avail.ReleaseReservationSlot(r.Context(), id)
		if !release.Success {
			s.log.Warnw("slot release after cancellation failed", "reservation", id, "err", release.Error)
		}
	}

	s.hub.BroadcastToRestaurant(restaurantID, "reservation.updated", updated[0])
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"reservation": updated[0],
	})
}

// handleDashboardMetrics aggregates a date range of reservations into the
// counters the dashboard cards show.
func (s *Server) handleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	params := r.URL.Query()
	start := strings.TrimSpace(params.Get("start"))
	end := strings.TrimSpace(params.Get("end"))
	if start == "" || end == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Los parámetros start y end son obligatorios")
		return
	}

	var rows []reservationRow
	err := s.rc.From("reservations").
		Select("id,reservation_date,party_size,status,channel").
		Eq("restaurant_id", restaurantID).
		Gte("reservation_date", start).
		Lte("reservation_date", end).
		Get(r.Context(), &rows)
	if err != nil {
		s.log.Warnw("metrics read failed", "restaurant", restaurantID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Error consultando métricas")
		return
	}

	metrics := buildDashboardMetrics(rows)
	metrics["success"] = true
	metrics["start"] = start
	metrics["end"] = end
	httpx.WriteJSON(w, http.StatusOK, metrics)
}

func buildDashboardMetrics(rows []reservationRow) map[string]any {
	totalCovers := 0
	byStatus := map[string]int{}
	byChannel := map[string]int{}
	byDate := map[string]int{}

	for _, row := range rows {
		byStatus[row.Status]++
		byDate[row.ReservationDate]++
		channel := row.Channel
		if channel == "" {
			channel = "unknown"
		}
		byChannel[channel]++
		if row.Status != "cancelled" && row.Status != "no_show" {
			totalCovers += row.PartySize
		}
	}

	return map[string]any{
		"totalReservations": len(rows),
		"totalCovers":       totalCovers,
		"byStatus":          byStatus,
		"byChannel":         byChannel,
		"byDate":            byDate,
	}
}
