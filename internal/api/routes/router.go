package routes

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zatekoja/coachpackets/internal/api/handlers"
	"github.com/zatekoja/coachpackets/internal/api/middleware"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
)

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker func(ctx context.Context) error

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	intakeHandler *handlers.IntakeHandler
	packetHandler *handlers.PacketHandler
	adminHandler  *handlers.AdminHandler
	sseHandler    *handlers.SSEHandler

	allowedOrigins []string
	health         map[string]HealthChecker
	metrics        *observability.Metrics
}

// Options carries the optional router collaborators
type Options struct {
	SSEHandler     *handlers.SSEHandler
	AllowedOrigins []string
	Health         map[string]HealthChecker
	Metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	intakeHandler *handlers.IntakeHandler,
	packetHandler *handlers.PacketHandler,
	adminHandler *handlers.AdminHandler,
	opts Options,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		intakeHandler:  intakeHandler,
		packetHandler:  packetHandler,
		adminHandler:   adminHandler,
		sseHandler:     opts.SSEHandler,
		allowedOrigins: opts.AllowedOrigins,
		health:         opts.Health,
		metrics:        opts.Metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthCheck)

	// Intake
	r.mux.HandleFunc("POST /api/intake", r.intakeHandler.SubmitIntake)

	// Client packets
	r.mux.HandleFunc("POST /api/clients/{id}/packets/route", r.packetHandler.RoutePackets)
	r.mux.HandleFunc("POST /api/clients/{id}/packets/{type}/generate", r.packetHandler.GeneratePacket)
	r.mux.HandleFunc("GET /api/clients/{id}/packets", r.packetHandler.ListClientPackets)
	r.mux.HandleFunc("GET /api/packets/{id}", r.packetHandler.GetPacket)

	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/clients/{id}/packets/events", r.sseHandler.StreamClientPackets)
	}

	// Admin
	r.mux.HandleFunc("GET /api/admin/packets/failed", r.adminHandler.ListFailed)
	r.mux.HandleFunc("GET /api/admin/packets/{id}", r.adminHandler.GetPacket)
	r.mux.HandleFunc("GET /api/admin/packets/{id}/audit", r.adminHandler.History)
	r.mux.HandleFunc("POST /api/admin/packets/{id}/retry", r.adminHandler.RetryPacket)
	r.mux.HandleFunc("PUT /api/admin/packets/{id}/content", r.adminHandler.EditContent)
	r.mux.HandleFunc("POST /api/admin/packets/{id}/regenerate", r.adminHandler.Regenerate)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.Recovery(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics, middleware.MuxRoutes(r.mux))(handler)
	handler = middleware.RequestID(handler)

	// CORS wraps everything so preflights never reach the handlers
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	if len(r.health) == 0 {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
		return
	}

	status := http.StatusOK
	checks := make(map[string]string, len(r.health))
	for name, check := range r.health {
		if err := check(req.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(checks)
}
