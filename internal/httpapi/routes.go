package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arcade-arena/internal/auth"
	"github.com/DoyleJ11/arcade-arena/internal/hub"
	"github.com/DoyleJ11/arcade-arena/internal/profile"
	"github.com/DoyleJ11/arcade-arena/internal/ws"
)

type Deps struct {
	Hub            *hub.Hub
	Auth           *auth.Verifier
	Profiles       profile.Store
	OriginPatterns []string
	Logger         *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Profiles == nil {
		d.Profiles = profile.StaticStore{}
	}
	api := &API{hub: d.Hub, log: d.Logger.Named("http")}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(api.log))
	r.Use(chimiddleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(ws.Deps{
		Hub:            d.Hub,
		Auth:           d.Auth,
		Profiles:       d.Profiles,
		OriginPatterns: d.OriginPatterns,
		Logger:         d.Logger,
	}))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Auth))

		r.Route("/tournaments", func(r chi.Router) {
			r.Post("/", api.CreateTournament)
			r.Get("/", api.ListTournaments)
			r.Get("/{id}", api.GetTournament)
			r.Post("/{id}/join", api.JoinTournament)
			r.Post("/{id}/start", api.StartTournament)
		})
		r.Get("/presence/me", api.PresenceMe)
		r.Get("/presence/{userId}", api.Presence)
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
