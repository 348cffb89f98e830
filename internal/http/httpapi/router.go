package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storyreel-server/internal/http/handlers"
	"storyreel-server/internal/middleware"
	"storyreel-server/internal/telemetry"
)

// Options tunes the router's cross-cutting behavior.
type Options struct {
	JWTSecret       string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	AllowedOrigins  []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", telemetry.Handler())

	r.Post("/v1/auth/token", app.AuthToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))

		r.Get("/v1/me", app.Me)
		r.Post("/v1/auth/logout", app.Logout)

		r.Route("/v1/storyboards", func(r chi.Router) {
			r.Post("/", app.StoryboardCreate)
			r.Get("/current", app.StoryboardCurrent)
			r.Get("/current/export", app.StoryboardExport)
		})

		r.Route("/v1/render", func(r chi.Router) {
			r.Post("/images", app.RenderImages)
			r.Post("/videos", app.RenderVideos)
			r.Post("/scenes/{index}/video", app.RenderSceneVideo)
		})

		r.Route("/v1/credits", func(r chi.Router) {
			r.Get("/", app.CreditsBalance)
			r.Post("/purchase", app.CreditsPurchase)
		})

		r.Get("/v1/stats/spend", app.SpendSummary)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminOnly)
			r.Post("/v1/admin/credits/grant", app.CreditsGrant)
		})
	})

	return r
}
