package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medrefer/referral-api/internal/config"
	"github.com/medrefer/referral-api/internal/handler"
	hospitalHandler "github.com/medrefer/referral-api/internal/handler/hospital"
	patientHandler "github.com/medrefer/referral-api/internal/handler/patient"
	referralHandler "github.com/medrefer/referral-api/internal/handler/referral"
	"github.com/medrefer/referral-api/internal/middleware"
	"github.com/medrefer/referral-api/internal/repository/postgres"
	"github.com/medrefer/referral-api/internal/router"
	auditService "github.com/medrefer/referral-api/internal/service/audit"
	eventService "github.com/medrefer/referral-api/internal/service/event"
	hospitalService "github.com/medrefer/referral-api/internal/service/hospital"
	patientService "github.com/medrefer/referral-api/internal/service/patient"
	referralService "github.com/medrefer/referral-api/internal/service/referral"
	"github.com/medrefer/referral-api/pkg/auth"
	"github.com/medrefer/referral-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("referral_api")

	// Repositories
	referralRepo := postgres.NewReferralRepository(db, m)
	patientRepo := postgres.NewPatientRepository(db)
	hospitalRepo := postgres.NewHospitalRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	// Services
	auditSvc := auditService.NewService(auditRepo)
	eventSvc := eventService.NewService(outboxRepo)
	referralSvc := referralService.NewService(referralRepo, auditSvc, eventSvc, m)
	patientSvc := patientService.NewService(patientRepo, m)
	hospitalSvc := hospitalService.NewService(hospitalRepo)

	// Middleware
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)
	tenantMiddleware := middleware.NewTenantMiddleware(hospitalSvc)

	// Handlers
	h := handler.NewHandler(db)
	referralH := referralHandler.NewHandler(referralSvc, auditSvc)
	patientH := patientHandler.NewHandler(patientSvc)
	hospitalH := hospitalHandler.NewHandler(hospitalSvc)

	r := router.NewRouter(
		authMiddleware,
		tenantMiddleware,
		referralH,
		patientH,
		hospitalH,
		h,
		router.Config{
			RateLimitRPS:   cfg.RateLimit.RPS,
			RateLimitBurst: cfg.RateLimit.Burst,
			CORSConfig:     middleware.DefaultCORSConfig(),
			RequestTimeout: cfg.Server.RequestTimeout,
			MetricsPrefix:  "referral_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
