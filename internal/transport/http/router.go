package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-email-verify/internal/application/verification"
	"github.com/go-email-verify/internal/config"
	"github.com/go-email-verify/internal/transport/http/handler"
	appmiddleware "github.com/go-email-verify/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Both POST endpoints send mail, so they share one per-IP budget.
	// TrustedProxies is validated by config.Load.
	trusted, _ := cfg.TrustedProxyPrefixes()
	mailRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, trusted...)

	svc := verification.NewService(verification.ServiceDeps{
		Log:          deps.Log,
		Store:        deps.Store,
		Mailer:       deps.Mailer,
		SMSSender:    deps.SMSSender,
		BaseURL:      cfg.EmailBaseURL,
		ProbeTimeout: cfg.StoreProbeTimeout,
	})

	healthH := handler.NewHealthHandler()
	verifyH := handler.NewVerificationHandler(svc, deps.Log, cfg.LoginURL)

	r.Get("/health-check/{action}", healthH.Ping)
	r.With(mailRL.Limit).Post("/create_lead", verifyH.CreateLead)
	r.With(mailRL.Limit).Post("/send_verification", verifyH.SendVerification)
	r.Get("/verify_client", verifyH.VerifyClient)

	return r
}
