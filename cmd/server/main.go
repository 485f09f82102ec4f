package main

import (
	"context"
	"database/sql"
	"errors"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/groupchoice/internal/adapters/cache"
	"github.com/vncsmyrnk/groupchoice/internal/adapters/handler/http"
	"github.com/vncsmyrnk/groupchoice/internal/adapters/oauth/google"
	"github.com/vncsmyrnk/groupchoice/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/groupchoice/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/groupchoice/internal/config"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
	"github.com/vncsmyrnk/groupchoice/internal/core/services"
)

type repositories struct {
	surveys     ports.SurveyRepository
	ledger      ports.ResponseLedger
	invitations ports.InvitationRepository
	users       ports.UserRepository
	close       func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := config.SetupLogging(cfg)
	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET not set")
	}

	if cfg.GoogleClientID == "" {
		logger.Warn().Msg("GOOGLE_CLIENT_ID not set, sign-in is disabled")
	}

	clock := services.SystemClock{}
	repos, err := openRepositories(cfg, clock, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer repos.close()

	cacheStore, err := cache.NewStore()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cache")
	}
	surveys := cache.NewSurveyCache(repos.surveys, cacheStore, cfg.SurveyCacheTTL, logger)

	identityService := services.NewIdentityService(repos.users, repos.invitations, cfg.JWTSecret, clock)
	surveyService := services.NewSurveyService(surveys, repos.invitations, clock, logger)
	tallyingService := services.NewTallyingService(surveys, identityService, repos.ledger, repos.invitations, clock, logger)
	userService := services.NewUserService(repos.users, identityService, google.NewVerifier(), cfg.GoogleClientID)
	cleanupService := services.NewCleanupService(surveys, repos.invitations, cfg.InvitationRetention, clock, logger)

	handler := http.NewHandler(http.RouterConfig{
		Authenticator: identityService,
		Surveys:       http.NewSurveyHandler(surveyService),
		Responses:     http.NewResponseHandler(tallyingService),
		Users:         http.NewUserHandler(userService, cfg.CookieDomain),
		CORSOrigins:   cfg.CORSOrigins,
		Logger:        logger,
	})
	server := &stdhttp.Server{Addr: cfg.HTTPAddr, Handler: handler}

	scheduler := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&logger)))
	if _, err := scheduler.AddFunc(cfg.CleanupSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := cleanupService.PurgeExpiredInvitations(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("invitation cleanup failed")
			return
		}
		logger.Info().Int64("deleted", n).Msg("invitation cleanup finished")
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.CleanupSchedule).Msg("invalid cleanup schedule")
	}
	scheduler.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("storage", cfg.Storage).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("gracefully shutting down")

	<-scheduler.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("shutdown failed")
	}
}

func openRepositories(cfg *config.Config, clock ports.Clock, logger zerolog.Logger) (*repositories, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		return &repositories{
			surveys:     memory.NewSurveyRepository(),
			ledger:      memory.NewResponseLedger(),
			invitations: memory.NewInvitationRepository(clock),
			users:       memory.NewUserRepository(),
			close:       func() error { return nil },
		}, nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.ConnString())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &repositories{
		surveys:     postgres.NewSurveyRepository(db),
		ledger:      postgres.NewResponseRepository(db),
		invitations: postgres.NewInvitationRepository(db),
		users:       postgres.NewUserRepository(db),
		close:       db.Close,
	}, nil
}
