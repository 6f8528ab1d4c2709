package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"mesaflow/internal/availability"
	"mesaflow/internal/httpx"
)

type createBookingRequest struct {
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string `json:"time" validate:"required,datetime=15:04"`
	PartySize       int    `json:"partySize" validate:"required,min=1"`
	Channel         string `json:"channel"`
	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	CustomerEmail   string `json:"customerEmail" validate:"omitempty,email"`
	DurationMinutes *int   `json:"durationMinutes" validate:"omitempty,min=1"`
	SpecialRequests string `json:"specialRequests"`
}

// handleCreateBooking validates the requested time locally, forwards the
// booking to the remote procedure, and on success notifies dashboard clients
// and the customer. The booking invariant itself (one table per slot) is
// remote-owned; a duplicate submit can create a duplicate reservation.
func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	var req createBookingRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Parámetros inválidos: "+err.Error())
		return
	}
	if req.Channel == "" {
		req.Channel = "web"
	}

	validation := s.avail.ValidateBookingTime(r.Context(), restaurantID, req.Date, req.Time)
	if !validation.Valid {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"reason":  validation.Reason,
			"code":    validation.Code,
			"message": validation.Reason,
		})
		return
	}

	res := s.avail.BookTable(r.Context(), availability.BookingRequest{
		RestaurantID: restaurantID,
		Date:         req.Date,
		Time:         req.Time,
		PartySize:    req.PartySize,
		Channel:      req.Channel,
		Customer: availability.Customer{
			Name:  strings.TrimSpace(req.CustomerName),
			Phone: strings.TrimSpace(req.CustomerPhone),
			Email: strings.TrimSpace(req.CustomerEmail),
		},
		DurationMinutes: req.DurationMinutes,
		SpecialRequests: req.SpecialRequests,
	})

	httpx.WriteJSON(w, http.StatusOK, res)

	if !res.Success || res.ReservationID == nil {
		return
	}

	s.hub.BroadcastToRestaurant(restaurantID, "reservation.created", map[string]any{
		"reservationId": *res.ReservationID,
		"date":          req.Date,
		"time":          req.Time,
		"partySize":     req.PartySize,
		"channel":       req.Channel,
		"customerName":  req.CustomerName,
	})

	go s.sendBookingConfirmation(restaurantID, req, *res.ReservationID)
}

// sendBookingConfirmation notifies the customer over whichever channels have
// an address, logging each attempt to message_log. Best-effort: failures are
// recorded, never surfaced to the booking response (already written).
func (s *Server) sendBookingConfirmation(restaurantID string, req createBookingRequest, reservationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body := fmt.Sprintf(
		"Hola %s, tu reserva para %d personas el %s a las %s está confirmada. Referencia: %s",
		firstNonEmpty(req.CustomerName, "cliente"), req.PartySize, req.Date, req.Time, reservationID,
	)

	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		err := s.mailer.Send(email, "Confirmación de reserva", body)
		s.logMessage(ctx, restaurantID, "email", email, "Confirmación de reserva", body, err)
	}

	if phone := strings.TrimSpace(req.CustomerPhone); phone != "" && s.whatsapp.Configured() {
		err := s.whatsapp.SendText(ctx, phone, body)
		s.logMessage(ctx, restaurantID, "whatsapp", phone, "", body, err)
	}
}

func (s *Server) handleReleaseReservation(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	reservationID := strings.TrimSpace(chi.URLParam(r, "id"))
	if reservationID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Falta el identificador de reserva")
		return
	}

	res := s.avail.ReleaseReservationSlot(r.Context(), reservationID)
	if res.Success {
		s.hub.BroadcastToRestaurant(restaurantID, "reservation.released", map[string]any{
			"reservationId": reservationID,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
