package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/config"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	appHTTP "github.com/cmlabs-hris/presence-payroll/internal/handler/http"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/cron"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/logging"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/metrics"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/sse"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/storage"
	"github.com/cmlabs-hris/presence-payroll/internal/repository/memory"
	"github.com/cmlabs-hris/presence-payroll/internal/repository/postgresql"
	approvalService "github.com/cmlabs-hris/presence-payroll/internal/service/approval"
	attendanceService "github.com/cmlabs-hris/presence-payroll/internal/service/attendance"
	serviceAuth "github.com/cmlabs-hris/presence-payroll/internal/service/auth"
	serviceCompany "github.com/cmlabs-hris/presence-payroll/internal/service/company"
	employeeService "github.com/cmlabs-hris/presence-payroll/internal/service/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/service/file"
	ledgerService "github.com/cmlabs-hris/presence-payroll/internal/service/ledger"
	notificationService "github.com/cmlabs-hris/presence-payroll/internal/service/notification"
	payrollService "github.com/cmlabs-hris/presence-payroll/internal/service/payroll"
	reconciliationService "github.com/cmlabs-hris/presence-payroll/internal/service/reconciliation"
)

type repositories struct {
	tx           database.TxManager
	user         user.UserRepository
	company      company.CompanyRepository
	employee     employee.EmployeeRepository
	attempt      attendance.AttemptRepository
	session      attendance.SessionRepository
	approval     approval.ItemRepository
	payroll      payroll.PayrollRepository
	notification notification.Repository
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.App.LogLevel, cfg.App.LogFormat).With(
		slog.String("app", "presence-payroll"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repos repositories
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		metrics.StartPoolStatsCollector(ctx, db.Pool, 15*time.Second)

		repos = repositories{
			tx:           postgresql.NewTxManager(db),
			user:         postgresql.NewUserRepository(db),
			company:      postgresql.NewCompanyRepository(db),
			employee:     postgresql.NewEmployeeRepository(db),
			attempt:      postgresql.NewAttemptRepository(db),
			session:      postgresql.NewSessionRepository(db),
			approval:     postgresql.NewApprovalRepository(db),
			payroll:      postgresql.NewPayrollRepository(db),
			notification: postgresql.NewNotificationRepository(db),
		}
	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		repos = repositories{
			tx:           memory.NewTxManager(store),
			user:         memory.NewUserRepository(store),
			company:      memory.NewCompanyRepository(store),
			employee:     memory.NewEmployeeRepository(store),
			attempt:      memory.NewAttemptRepository(store),
			session:      memory.NewSessionRepository(store),
			approval:     memory.NewApprovalRepository(store),
			payroll:      memory.NewPayrollRepository(store),
			notification: memory.NewNotificationRepository(store),
		}
	}

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize local storage: %w", err)
	}

	defaults := company.Defaults{
		RadiusMeters: cfg.Attendance.DefaultRadiusMeters,
		LateCutoff:   cfg.Attendance.DefaultLateCutoff,
		Timezone:     cfg.Attendance.DefaultTimezone,
	}

	hub := sse.NewHub(16)
	notifSvc := notificationService.NewNotificationService(repos.notification, hub, notificationService.Config{
		BatchSize:     cfg.Notification.BatchSize,
		FlushInterval: cfg.Notification.FlushInterval,
		WorkerCount:   cfg.Notification.WorkerCount,
		QueueSize:     cfg.Notification.QueueSize,
	}, logger)
	defer notifSvc.Stop()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	fileService := file.NewFileService(fileStorage, cfg.Storage.MaxProofSize)

	authSvc := serviceAuth.NewAuthService(repos.tx, repos.user, repos.company, JWTService, defaults)
	companySvc := serviceCompany.NewCompanyService(repos.company, defaults)
	employeeSvc := employeeService.NewEmployeeService(repos.tx, repos.employee, repos.user)
	attendanceSvc := attendanceService.NewAttendanceService(
		repos.tx,
		repos.attempt,
		repos.session,
		repos.company,
		repos.employee,
		notifSvc,
		defaults,
	)
	disputePolicy := attendanceService.NewDisputePolicy(repos.attempt, repos.session, repos.approval, repos.company, defaults)
	approvalSvc := approvalService.NewApprovalService(
		repos.tx,
		repos.approval,
		repos.employee,
		repos.user,
		fileService,
		notifSvc,
		map[approval.Kind]approval.KindPolicy{
			approval.KindAttendanceDispute: disputePolicy,
			approval.KindContentSubmission: approval.NoSideEffect{},
		},
	)
	payrollSvc := payrollService.NewPayrollService(repos.tx, repos.payroll, repos.employee, repos.session, repos.approval, notifSvc)
	reconciliationSvc := reconciliationService.NewReconciliationService(repos.tx, repos.payroll, repos.approval, repos.attempt, repos.session)
	ledgerSvc := ledgerService.NewLedgerService(repos.tx, repos.payroll, repos.approval, repos.session)

	scheduler := cron.NewScheduler(logger)
	cron.NewAttendanceJobs(attendanceSvc, cfg.Attendance.StaleCloseInterval).RegisterJobs(scheduler)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		Logger:              logger,
		AllowedOrigins:      cfg.App.AllowedOrigins,
		UploadDir:           cfg.Storage.BasePath,
		JWTService:          JWTService,
		AuthHandler:         appHTTP.NewAuthHandler(authSvc),
		CompanyHandler:      appHTTP.NewCompanyHandler(companySvc),
		EmployeeHandler:     appHTTP.NewEmployeeHandler(employeeSvc),
		AttendanceHandler:   appHTTP.NewAttendanceHandler(attendanceSvc, approvalSvc),
		ApprovalHandler:     appHTTP.NewApprovalHandler(approvalSvc),
		PayrollHandler:      appHTTP.NewPayrollHandler(payrollSvc),
		LedgerHandler:       appHTTP.NewLedgerHandler(reconciliationSvc, ledgerSvc),
		NotificationHandler: appHTTP.NewNotificationHandler(notifSvc, JWTService),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", "addr", server.Addr, "driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
