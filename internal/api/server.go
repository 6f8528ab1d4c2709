package api

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"mesaflow/internal/availability"
	"mesaflow/internal/baas"
	"mesaflow/internal/config"
	"mesaflow/internal/httpx"
	"mesaflow/internal/notify"
	"mesaflow/internal/ratelimit"
)

type Server struct {
	db       *sql.DB
	cfg      config.Config
	log      *zap.SugaredLogger
	rc       *baas.Client
	avail    *availability.Service
	mailer   *notify.Mailer
	whatsapp *notify.WhatsAppClient
	hub      *reservationHub
	limiter  *ratelimit.FixedWindow
	validate *validator.Validate
}

func NewServer(db *sql.DB, cfg config.Config, log *zap.SugaredLogger, rc *baas.Client, avail *availability.Service) *Server {
	s := &Server{
		db:       db,
		cfg:      cfg,
		log:      log,
		rc:       rc,
		avail:    avail,
		mailer:   notify.NewMailer(cfg.SMTP),
		whatsapp: notify.NewWhatsAppClient(cfg.WhatsApp),
		hub:      newReservationHub(log),
		limiter:  ratelimit.NewFixedWindow(cfg.RateLimitPerMin, time.Minute),
		validate: validator.New(),
	}
	go s.hub.run()
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	allowed := []string{"*"}
	if s.cfg.CORSAllowOrigins != "" {
		allowed = splitOrigins(s.cfg.CORSAllowOrigins)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Api-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
	})

	// Dashboard API, authenticated with the data service's session token.
	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireSession)

		r.Post("/availability/check", s.handleAvailabilityCheck)
		r.Post("/availability/validate", s.handleValidateBookingTime)
		r.Get("/availability/slots", s.handleAvailabilitySlots)
		r.Get("/availability/time-slots", s.handleAvailableTimeSlots)
		r.Post("/availability/generate", s.handleGenerateSlots)
		r.Post("/availability/initialize", s.handleInitializeAvailability)

		r.Post("/bookings", s.handleCreateBooking)
		r.Post("/bookings/{id}/release", s.handleReleaseReservation)

		r.Get("/reservations", s.handleReservationsList)
		r.Patch("/reservations/{id}", s.handleReservationPatch)
		r.Get("/dashboard/metrics", s.handleDashboardMetrics)

		r.Get("/tables", s.handleTablesList)
		r.Patch("/tables/{id}", s.handleTablePatch)

		r.Post("/events", s.handleCreateSpecialEvent)

		r.Get("/crm/suggestions", s.handleCRMSuggestionsList)
		r.Post("/crm/suggestions/{id}/dismiss", s.handleCRMSuggestionDismiss)
		r.Post("/crm/receipts/suggest", s.handleCRMReceiptSuggest)
		r.Post("/crm/receipts/link", s.handleCRMReceiptLink)
		r.Get("/crm/templates", s.handleCRMTemplatesList)
		r.Post("/crm/templates/{id}/activate", s.handleCRMTemplateActivate)
		r.Post("/crm/messages/send", s.handleCRMMessageSend)

		r.Get("/config/channels", s.handleChannelsGet)
		r.Post("/config/channels", s.handleChannelsSet)

		r.Get("/ws", s.handleReservationWS)
	})

	// Public booking widget, authenticated with a per-restaurant API key.
	r.Route("/widget", func(r chi.Router) {
		r.Use(s.requireWidgetKey)
		r.Use(s.rateLimitPublic)

		r.Post("/availability/check", s.handleAvailabilityCheck)
		r.Post("/availability/validate", s.handleValidateBookingTime)
		r.Get("/availability/time-slots", s.handleAvailableTimeSlots)
		r.Post("/bookings", s.handleCreateBooking)
	})

	return r
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
