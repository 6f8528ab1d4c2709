package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mesaflow/internal/httpx"
)

type crmSuggestionRow struct {
	ID           string          `json:"id"`
	RestaurantID string          `json:"restaurant_id"`
	CustomerID   string          `json:"customer_id"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

func (s *Server) handleCRMSuggestionsList(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status == "" {
		status = "pending"
	}

	var rows []crmSuggestionRow
	err := s.rc.From("crm_suggestions").
		Select("id,restaurant_id,customer_id,type,status,payload,created_at").
		Eq("restaurant_id", restaurantID).
		Eq("status", status).
		Order("created_at").
		Get(r.Context(), &rows)
	if err != nil {
		s.log.Warnw("crm suggestions read failed", "restaurant", restaurantID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Error consultando sugerencias")
		return
	}
	if rows == nil {
		rows = []crmSuggestionRow{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"suggestions": rows,
		"count":       len(rows),
	})
}

func (s *Server) handleCRMSuggestionDismiss(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var updated []crmSuggestionRow
	err := s.rc.From("crm_suggestions").
		Eq("id", id).
		Eq("restaurant_id", restaurantID).
		Update(r.Context(), map[string]any{"status": "dismissed"}, &updated)
	if err != nil {
		s.log.Warnw("crm suggestion dismiss failed", "suggestion", id, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Error descartando la sugerencia")
		return
	}
	if len(updated) == 0 {
		httpx.WriteError(w, http.StatusNotFound, "Sugerencia no encontrada")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "suggestion": updated[0]})
}

type receiptSuggestRequest struct {
	ReceiptID string `json:"receiptId" validate:"required"`
}

func (s *Server) handleCRMReceiptSuggest(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	var req receiptSuggestRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Parámetros inválidos: "+err.Error())
		return
	}

	raw, err := s.rc.Rpc(r.Context(), "crm_v2_suggest_receipt_matches", map[string]any{
		"restaurant_id": restaurantID,
		"receipt_id":    req.ReceiptID,
	})
	if err != nil {
		s.log.Warnw("receipt match suggest failed", "receipt", req.ReceiptID, "err", err)
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error(), "matches": []any{}})
		return
	}

	var matches []json.RawMessage
	if err := json.Unmarshal(raw, &matches); err != nil {
		matches = []json.RawMessage{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "matches": matches})
}

type receiptLinkRequest struct {
	ReceiptID     string `json:"receiptId" validate:"required"`
	ReservationID string `json:"reservationId" validate:"required"`
}

func (s *Server) handleCRMReceiptLink(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	var req receiptLinkRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Parámetros inválidos: "+err.Error())
		return
	}

	_, err := s.rc.Rpc(r.Context(), "crm_v2_link_reservation_receipt", map[string]any{
		"restaurant_id":  restaurantID,
		"receipt_id":     req.ReceiptID,
		"reservation_id": req.ReservationID,
	})
	if err != nil {
		s.log.Warnw("receipt link failed", "receipt", req.ReceiptID, "err", err)
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Ticket vinculado a la reserva",
	})
}

type messageTemplateRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Channel  string `json:"channel"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	IsActive bool   `json:"is_active"`
}

func (s *Server) handleCRMTemplatesList(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	var rows []messageTemplateRow
	err := s.rc.From("message_templates").
		Select("id,name,channel,subject,body,is_active").
		Eq("restaurant_id", restaurantID).
		Order("channel,name").
		Get(r.Context(), &rows)
	if err != nil {
		s.log.Warnw("templates read failed", "restaurant", restaurantID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Error consultando plantillas")
		return
	}
	if rows == nil {
		rows = []messageTemplateRow{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"templates": rows,
		"count":     len(rows),
	})
}

func (s *Server) handleCRMTemplateActivate(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	_, err := s.rc.Rpc(r.Context(), "set_active_template", map[string]any{
		"restaurant_id": restaurantID,
		"template_id":   id,
	})
	if err != nil {
		s.log.Warnw("template activation failed", "template", id, "err", err)
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Plantilla activada",
	})
}

type sendMessageRequest struct {
	Channel   string `json:"channel" validate:"required,oneof=email whatsapp"`
	Recipient string `json:"recipient" validate:"required"`
	Subject   string `json:"subject"`
	Body      string `json:"body" validate:"required"`
}

func (s *Server) handleCRMMessageSend(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	var req sendMessageRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Parámetros inválidos: "+err.Error())
		return
	}

	var sendErr error
	switch req.Channel {
	case "email":
		sendErr = s.mailer.Send(req.Recipient, req.Subject, req.Body)
	case "whatsapp":
		sendErr = s.whatsapp.SendText(r.Context(), req.Recipient, req.Body)
	}

	s.logMessage(r.Context(), restaurantID, req.Channel, req.Recipient, req.Subject, req.Body, sendErr)

	if sendErr != nil {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   sendErr.Error(),
			"message": "No se pudo enviar el mensaje",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Mensaje enviado",
	})
}

// logMessage records every channel send attempt in the local store.
func (s *Server) logMessage(ctx context.Context, restaurantID, channel, recipient, subject, body string, sendErr error) {
	if s.db == nil {
		return
	}

	status := "sent"
	var errText any
	if sendErr != nil {
		status = "failed"
		errText = sendErr.Error()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_log (id, restaurant_id, channel, recipient, subject, body, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), restaurantID, channel, recipient, subject, body, status, errText)
	if err != nil {
		s.log.Errorw("message log insert failed", "restaurant", restaurantID, "err", err)
	}
}
