package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"mesaflow/internal/httpx"
)

type tableRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	TableType string `json:"table_type"`
	Zone      string `json:"zone"`
	IsActive  bool   `json:"is_active"`
}

func (s *Server) handleTablesList(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	var rows []tableRow
	err := s.rc.From("tables").
		Select("id,name,capacity,table_type,zone,is_active").
		Eq("restaurant_id", restaurantID).
		Order("zone,name").
		Get(r.Context(), &rows)
	if err != nil {
		s.log.Warnw("tables read failed", "restaurant", restaurantID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Error consultando mesas")
		return
	}
	if rows == nil {
		rows = []tableRow{}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tables":  rows,
		"count":   len(rows),
	})
}

type tablePatchRequest struct {
	Name     *string `json:"name"`
	Capacity *int    `json:"capacity" validate:"omitempty,min=1"`
	Zone     *string `json:"zone"`
	IsActive *bool   `json:"isActive"`
}

func (s *Server) handleTablePatch(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Falta el identificador de mesa")
		return
	}

	var req tablePatchRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Parámetros inválidos: "+err.Error())
		return
	}

	patch := map[string]any{}
	if req.Name != nil {
		patch["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Capacity != nil {
		patch["capacity"] = *req.Capacity
	}
	if req.Zone != nil {
		patch["zone"] = strings.TrimSpace(*req.Zone)
	}
	if req.IsActive != nil {
		patch["is_active"] = *req.IsActive
	}
	if len(patch) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "Nada que actualizar")
		return
	}

	var updated []tableRow
	err := s.rc.From("tables").
		Eq("id", id).
		Eq("restaurant_id", restaurantID).
		Update(r.Context(), patch, &updated)
	if err != nil {
		s.log.Warnw("table update failed", "table", id, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Error actualizando la mesa")
		return
	}
	if len(updated) == 0 {
		httpx.WriteError(w, http.StatusNotFound, "Mesa no encontrada")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"table":   updated[0],
	})
}
