package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/handler/http/middleware"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// UploadDir, when set, is served read-only under /api/v1/uploads for authenticated users.
	UploadDir string

	JWTService          jwt.Service
	AuthHandler         AuthHandler
	CompanyHandler      CompanyHandler
	EmployeeHandler     EmployeeHandler
	AttendanceHandler   AttendanceHandler
	ApprovalHandler     ApprovalHandler
	PayrollHandler      PayrollHandler
	LedgerHandler       LedgerHandler
	NotificationHandler NotificationHandler
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RequestContext(logger))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition", chiMiddleware.RequestIDHeader},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(metrics.Middleware)
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Handle("/metrics", metrics.Handler())

	ja := cfg.JWTService.JWTAuth()

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
		})

		// SSE authenticates with its own short-lived token
		r.Get("/notifications/stream", cfg.NotificationHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(ja))
			r.Use(middleware.AuthRequired(ja))

			r.Route("/company", func(r chi.Router) {
				r.Get("/", cfg.CompanyHandler.GetMy)
				r.With(middleware.RequirePermission(user.PermissionCompanyManage)).Put("/", cfg.CompanyHandler.UpdateGeofence)
			})

			r.Route("/employees", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionEmployeeManage))
				r.Post("/", cfg.EmployeeHandler.CreateEmployee)
				r.Get("/", cfg.EmployeeHandler.ListEmployees)
			})

			r.Route("/attendance", func(r chi.Router) {
				r.Post("/attempts", cfg.AttendanceHandler.RecordAttempt)
				r.Get("/attempts", cfg.AttendanceHandler.ListAttempts)
				r.Post("/attempts/{id}/dispute", cfg.AttendanceHandler.SubmitDispute)
				r.Post("/clock-out", cfg.AttendanceHandler.ClockOut)
				r.Get("/sessions", cfg.AttendanceHandler.ListSessions)
			})

			r.Route("/approvals", func(r chi.Router) {
				r.Get("/", cfg.ApprovalHandler.List)
				r.Post("/", cfg.ApprovalHandler.Submit)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.ApprovalHandler.Get)
					r.Post("/approve", cfg.ApprovalHandler.Approve)
					r.Post("/reject", cfg.ApprovalHandler.Reject)
				})
			})

			r.Route("/payroll", func(r chi.Router) {
				r.Get("/settings", cfg.PayrollHandler.GetSettings)
				r.Put("/settings", cfg.PayrollHandler.UpdateSettings)

				r.Route("/salary-structures", func(r chi.Router) {
					r.Get("/", cfg.PayrollHandler.ListSalaryStructures)
					r.Get("/{employeeID}", cfg.PayrollHandler.GetSalaryStructure)
					r.Put("/{employeeID}", cfg.PayrollHandler.UpsertSalaryStructure)
				})

				r.Route("/runs", func(r chi.Router) {
					r.Post("/", cfg.PayrollHandler.GenerateRun)
					r.Get("/", cfg.PayrollHandler.ListRuns)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", cfg.PayrollHandler.GetRun)
						r.Delete("/", cfg.PayrollHandler.DeleteRun)
						r.Post("/finalize", cfg.PayrollHandler.FinalizeRun)
						r.Get("/reconciliation", cfg.LedgerHandler.GetReconciliation)
						r.Get("/ledger", cfg.LedgerHandler.GetLedger)
						r.Get("/ledger/export", cfg.LedgerHandler.Export)
					})
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", cfg.NotificationHandler.List)
				r.Get("/stream-token", cfg.NotificationHandler.GetSSEToken)
				r.Post("/read-all", cfg.NotificationHandler.MarkAllRead)
				r.Post("/{id}/read", cfg.NotificationHandler.MarkRead)
			})

			if cfg.UploadDir != "" {
				r.Handle("/uploads/*", http.StripPrefix("/api/v1/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
			}
		})
	})
	return r
}
