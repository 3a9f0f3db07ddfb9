package httpapi

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/realtime"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/service"
)

// BasePath prefixes every API route, matching the hosted functions gateway.
const BasePath = "/functions/v1"

type Router struct {
	services        *service.Services
	hub             *realtime.Hub
	logger          zerolog.Logger
	gatewayKey      string
	maxRequestBytes int64
	validate        *validator.Validate
}

func NewRouter(services *service.Services, hub *realtime.Hub, logger zerolog.Logger, gatewayKey string, maxRequestBytes int64) http.Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	r := &Router{
		services:        services,
		hub:             hub,
		logger:          logger,
		gatewayKey:      gatewayKey,
		maxRequestBytes: maxRequestBytes,
		validate:        v,
	}
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID, r.requestLogger, middleware.Recoverer)
	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	mux.Get("/health", r.handleHealth)
	mux.Route(BasePath, func(api chi.Router) {
		api.Use(r.gatewayMiddleware)

		api.Post("/auth/login", r.handleLogin)
		api.Post("/auth/refresh", r.handleRefresh)
		api.Post("/auth/logout", r.handleLogout)
		api.Post("/auth/register/step1", r.handleRegisterPersonal)
		api.Post("/auth/verify", r.handleVerify)
		api.Post("/auth/verify/resend", r.handleResend)
		api.Post("/auth/register/step2", r.handleRegisterLocation)
		api.Post("/auth/register/step3", r.handleRegisterBusiness)
		api.Get("/uploads/{id}", r.handleGetUpload)

		api.Group(func(pr chi.Router) {
			pr.Use(r.authMiddleware)
			pr.Get("/realtime", r.handleRealtime)
			pr.Get("/auth/me", r.handleMe)
			r.mountResources(pr)
		})
	})
	return mux
}

func (r *Router) mountResources(pr chi.Router) {
	docs := r.services.Documents

	pr.Get("/bookings", r.list(service.Bookings, "bookings", true))
	pr.Get("/bookings/stats", r.stats(docs.BookingStats))
	pr.Post("/bookings", r.handleCreateBooking)
	pr.Get("/bookings/{id}", r.get(service.Bookings))
	pr.Put("/bookings/{id}", r.update(service.Bookings, bookingRules))
	pr.Patch("/bookings/{id}/status", r.handleBookingStatus)
	pr.Delete("/bookings/{id}", r.remove(service.Bookings))

	pr.Get("/inspections", r.list(service.Inspections, "inspections", true))
	pr.Get("/inspections/stats", r.stats(docs.InspectionStats))
	pr.Post("/inspections", r.create(service.Inspections, inspectionRules, map[string]any{"status": "pending"}))
	pr.Get("/inspections/{id}", r.get(service.Inspections))
	pr.Put("/inspections/{id}", r.update(service.Inspections, inspectionRules))
	pr.Post("/inspections/{id}/complete", r.handleCompleteInspection)
	pr.Delete("/inspections/{id}", r.remove(service.Inspections))

	pr.Get("/appointments", r.list(service.Appointments, "appointments", false))
	pr.Post("/appointments", r.create(service.Appointments, appointmentRules, map[string]any{"status": "scheduled"}))
	pr.Get("/appointments/{id}", r.get(service.Appointments))
	pr.Put("/appointments/{id}", r.update(service.Appointments, appointmentRules))

	pr.Get("/resolution-center/disputes", r.list(service.Disputes, "disputes", false))
	pr.Post("/disputes", r.create(service.Disputes, disputeRules, map[string]any{"status": "open"}))
	pr.Get("/disputes/{id}", r.thread(service.Disputes))
	pr.Post("/disputes/{id}/messages", r.reply(service.Disputes))
	pr.Post("/disputes/{id}/resolve", r.handleResolveDispute)

	pr.Get("/chat/conversations", r.list(service.Conversations, "conversations", false))
	pr.Post("/chat/conversations", r.create(service.Conversations, conversationRules, map[string]any{"unread_count": 0}))
	pr.Get("/chat/conversations/{id}", r.get(service.Conversations))
	pr.Get("/chat/conversations/{id}/messages", r.handleListMessages)
	pr.Post("/chat/conversations/{id}/messages", r.handleSendMessage)
	pr.Post("/chat/conversations/{id}/read", r.handleReadConversation)

	pr.Get("/support/tickets", r.list(service.Tickets, "tickets", false))
	pr.Post("/support/tickets", r.handleCreateTicket)
	pr.Get("/support/tickets/{id}", r.thread(service.Tickets))
	pr.Post("/support/tickets/{id}/messages", r.reply(service.Tickets))

	pr.Get("/notifications", r.list(service.Notifications, "notifications", false))
	pr.Get("/notifications/unread-count", r.handleUnreadCount)
	pr.Patch("/notifications/read-all", r.handleReadAllNotifications)
	pr.Patch("/notifications/{id}/read", r.handleReadNotification)

	pr.Get("/garage-services", r.list(service.GarageServices, "services", false))
	pr.Post("/garage-services", r.create(service.GarageServices, serviceRules, map[string]any{"is_active": true}))
	pr.Put("/garage-services/{id}", r.update(service.GarageServices, serviceRules))
	pr.Delete("/garage-services/{id}", r.remove(service.GarageServices))

	pr.Get("/profile", r.handleGetProfile)
	pr.Put("/profile", r.handleUpdateProfile)
	pr.Post("/uploads", r.handleUpload)
	pr.Get("/dashboard/stats", r.stats(docs.Dashboard))
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, "ok", map[string]string{"status": "ok"})
}
