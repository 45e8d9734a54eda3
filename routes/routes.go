package routes

import (
	"log/slog"
	"net/http"

	_ "github.com/Dosada05/alumni-network/docs"
	"github.com/Dosada05/alumni-network/handlers"
	"github.com/Dosada05/alumni-network/middleware"
	"github.com/Dosada05/alumni-network/repositories"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Submission   *handlers.SubmissionHandler
	FieldAdmin   *handlers.FieldAdminHandler
	Directory    *handlers.DirectoryHandler
	Event        *handlers.EventHandler
	Profile      *handlers.ProfileHandler
	Notification *handlers.NotificationHandler
	WebSocket    *handlers.WebSocketHandler
	Dashboard    *handlers.DashboardHandler
}

type Options struct {
	Tokens         *middleware.TokenManager
	Users          repositories.UserRepository
	AllowedOrigins []string
	Registry       *prometheus.Registry
	Logger         *slog.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	metrics := middleware.NewMetrics(opts.Registry)

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(metrics.Handler)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Публичные маршруты
	router.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Auth.Login)
		r.Get("/google", h.Auth.GoogleLogin)
		r.Get("/google/callback", h.Auth.GoogleCallback)
	})

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.Tokens, opts.Users, opts.Logger))

		r.Get("/auth/me", h.Auth.Me)
		r.Get("/ws/notifications", h.WebSocket.ServeWs)
		r.Get("/dashboard", h.Dashboard.Stats)

		r.Route("/submissions", func(r chi.Router) {
			r.Post("/", h.Submission.Create)
			r.Get("/", h.Submission.ListForReview)
			r.Get("/mine", h.Submission.ListOwn)
			r.Route("/{submissionID}", func(r chi.Router) {
				r.Get("/", h.Submission.Get)
				r.Post("/photo", h.Submission.UploadPhoto)
				r.Post("/approve", h.Submission.Approve)
				r.Post("/reject", h.Submission.Reject)
			})
		})

		r.Route("/field-admins", func(r chi.Router) {
			r.Get("/", h.FieldAdmin.List)
			r.Put("/{field}", h.FieldAdmin.Assign)
			r.Delete("/{field}", h.FieldAdmin.Remove)
		})

		r.Get("/directory", h.Directory.Search)
		r.Get("/reports/alumni", h.Directory.Report)

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", h.Profile.GetOwn)
			r.Patch("/", h.Profile.UpdateOwn)
			r.Post("/photo", h.Profile.UploadPhoto)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.Event.List)
			r.Post("/", h.Event.Create)
			r.Get("/registrations/mine", h.Event.ListMyRegistrations)
			r.Route("/{eventID}", func(r chi.Router) {
				r.Get("/", h.Event.Get)
				r.Put("/", h.Event.Update)
				r.Delete("/", h.Event.Delete)
				r.Post("/register", h.Event.Register)
				r.Delete("/register", h.Event.Cancel)
				r.Get("/registrations", h.Event.ListRegistrations)
				r.Put("/attendance/{userID}", h.Event.MarkAttendance)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.Notification.List)
			r.Post("/read-all", h.Notification.MarkAllRead)
			r.Post("/{notificationID}/read", h.Notification.MarkRead)
		})
	})
}
