package api

import (
	"encoding/json"
	"net/http"

	"mesaflow/internal/httpx"
)

// Channel toggles live inside the restaurant's settings JSON under a
// "channels" key, so reads merge defaults and writes patch the whole
// settings object back.

type channelSettings struct {
	EmailEnabled    bool `json:"emailEnabled"`
	WhatsappEnabled bool `json:"whatsappEnabled"`
	WidgetEnabled   bool `json:"widgetEnabled"`
}

func defaultChannelSettings() channelSettings {
	return channelSettings{EmailEnabled: true, WhatsappEnabled: false, WidgetEnabled: true}
}

type restaurantSettingsRow struct {
	ID       string          `json:"id"`
	Settings json.RawMessage `json:"settings"`
}

func (s *Server) fetchRestaurantSettings(r *http.Request, restaurantID string) (map[string]json.RawMessage, error) {
	var row restaurantSettingsRow
	err := s.rc.From("restaurants").
		Select("id,settings").
		Eq("id", restaurantID).
		Single(r.Context(), &row)
	if err != nil {
		return nil, err
	}

	settings := map[string]json.RawMessage{}
	if len(row.Settings) > 0 {
		// Malformed settings behave as empty rather than failing the request.
		_ = json.Unmarshal(row.Settings, &settings)
	}
	return settings, nil
}

func (s *Server) handleChannelsGet(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	settings, err := s.fetchRestaurantSettings(r, restaurantID)
	if err != nil {
		s.log.Warnw("channel settings read failed", "restaurant", restaurantID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Error consultando la configuración de canales")
		return
	}

	channels := defaultChannelSettings()
	if raw, ok := settings["channels"]; ok {
		_ = json.Unmarshal(raw, &channels)
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"channels": channels,
	})
}

type channelsPatchRequest struct {
	EmailEnabled    *bool `json:"emailEnabled"`
	WhatsappEnabled *bool `json:"whatsappEnabled"`
	WidgetEnabled   *bool `json:"widgetEnabled"`
}

func (s *Server) handleChannelsSet(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := restaurantIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Unknown restaurant")
		return
	}

	var req channelsPatchRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	if req.EmailEnabled == nil && req.WhatsappEnabled == nil && req.WidgetEnabled == nil {
		httpx.WriteError(w, http.StatusBadRequest, "Nada que actualizar")
		return
	}

	settings, err := s.fetchRestaurantSettings(r, restaurantID)
	if err != nil {
		s.log.Warnw("channel settings read failed", "restaurant", restaurantID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Error consultando la configuración de canales")
		return
	}

	channels := defaultChannelSettings()
	if raw, ok := settings["channels"]; ok {
		_ = json.Unmarshal(raw, &channels)
	}
	if req.EmailEnabled != nil {
		channels.EmailEnabled = *req.EmailEnabled
	}
	if req.WhatsappEnabled != nil {
		channels.WhatsappEnabled = *req.WhatsappEnabled
	}
	if req.WidgetEnabled != nil {
		channels.WidgetEnabled = *req.WidgetEnabled
	}

	encoded, _ := json.Marshal(channels)
	settings["channels"] = encoded
	merged, _ := json.Marshal(settings)

	var updated []restaurantSettingsRow
	err = s.rc.From("restaurants").
		Eq("id", restaurantID).
		Update(r.Context(), map[string]any{"settings": json.RawMessage(merged)}, &updated)
	if err != nil {
		s.log.Warnw("channel settings update failed", "restaurant", restaurantID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Error actualizando la configuración de canales")
		return
	}
	if len(updated) == 0 {
		httpx.WriteError(w, http.StatusNotFound, "Restaurante no encontrado")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"channels": channels,
	})
}
