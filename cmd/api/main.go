package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine-go/internal/config"
	appHTTP "github.com/cmlabs-hris/attendance-engine-go/internal/handler/http"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-engine-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-engine-go/internal/service/attendance"
	policyService "github.com/cmlabs-hris/attendance-engine-go/internal/service/policy"
	qrtokenService "github.com/cmlabs-hris/attendance-engine-go/internal/service/qrtoken"
	regularizationService "github.com/cmlabs-hris/attendance-engine-go/internal/service/regularization"
	tenantService "github.com/cmlabs-hris/attendance-engine-go/internal/service/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	txRunner := postgresql.NewTxRunner(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	qrTokenRepo := postgresql.NewQRTokenRepository(db)
	auditRepo := postgresql.NewAuditRepository(db)
	policyRepo := postgresql.NewPolicyRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	hub := sse.NewHub()
	guard := tenantService.NewGuard(auditRepo)
	resolver := policyService.NewResolver(policyRepo)

	qrTokenSvc := qrtokenService.NewQRTokenService(txRunner, qrTokenRepo, policyRepo, guard, auditRepo)
	attendanceSvc := attendanceService.NewAttendanceService(
		txRunner,
		attendanceRepo,
		policyRepo,
		resolver,
		qrTokenSvc,
		guard,
		auditRepo,
		hub,
	)
	regularizationSvc := regularizationService.NewRegularizationService(
		txRunner,
		attendanceRepo,
		policyRepo,
		guard,
		auditRepo,
		hub,
	)

	attendanceHandler := appHTTP.NewAttendanceHandler(attendanceSvc)
	regularizationHandler := appHTTP.NewRegularizationHandler(regularizationSvc)
	qrTokenHandler := appHTTP.NewQRTokenHandler(qrTokenSvc)
	eventsHandler := appHTTP.NewEventsHandler(hub, JWTService)

	scheduler := cron.NewScheduler()
	jobs := cron.NewAttendanceJobs(attendanceSvc, regularizationSvc, qrTokenRepo)
	jobs.RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	// Kick the batch jobs once on boot so a restart never skips a freeze
	// day.
	scheduler.RunOnce(context.Background())

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Env:            cfg.App.Env,
			AllowedOrigins: cfg.App.AllowedOrigins,
		},
		JWTService,
		attendanceHandler,
		regularizationHandler,
		qrTokenHandler,
		eventsHandler,
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	fmt.Printf("Server running at http://localhost%s\n", port)
	if err := http.ListenAndServe(port, router); err != nil {
		fmt.Println("Server error:", err)
	}
}
