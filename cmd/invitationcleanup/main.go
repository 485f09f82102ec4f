package main

import (
	"context"
	"database/sql"
	"flag"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/groupchoice/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/groupchoice/internal/config"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
	"github.com/vncsmyrnk/groupchoice/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := config.SetupLogging(cfg)

	var schedule string
	flag.StringVar(&cfg.Postgres.Host, "db-host", cfg.Postgres.Host, "Database host")
	flag.StringVar(&cfg.Postgres.Port, "db-port", cfg.Postgres.Port, "Database port")
	flag.StringVar(&cfg.Postgres.User, "db-user", cfg.Postgres.User, "Database user")
	flag.StringVar(&cfg.Postgres.Password, "db-pass", cfg.Postgres.Password, "Database password")
	flag.StringVar(&cfg.Postgres.DB, "db-name", cfg.Postgres.DB, "Database name")
	flag.StringVar(&schedule, "schedule", "", "Cron schedule; runs once and exits when empty")
	flag.DurationVar(&cfg.InvitationRetention, "retention", cfg.InvitationRetention, "How long expired invitations are kept")
	flag.Parse()

	db, err := sql.Open("postgres", cfg.Postgres.ConnString())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("failed to reach database")
	}

	cleanupService := services.NewCleanupService(
		postgres.NewSurveyRepository(db),
		postgres.NewInvitationRepository(db),
		cfg.InvitationRetention,
		services.SystemClock{},
		logger,
	)

	if schedule == "" {
		if err := run(cleanupService); err != nil {
			log.Fatal().Err(err).Msg("invitation cleanup failed")
		}
		return
	}

	scheduler := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&logger)))
	if _, err := scheduler.AddFunc(schedule, func() {
		if err := run(cleanupService); err != nil {
			log.Error().Err(err).Msg("invitation cleanup failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", schedule).Msg("invalid schedule")
	}
	scheduler.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	<-scheduler.Stop().Done()
}

func run(cleanupService ports.CleanupService) error {
	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Info().Msg("starting invitation cleanup job")

	n, err := cleanupService.PurgeExpiredInvitations(ctx)
	if err != nil {
		return err
	}

	log.Info().Int64("deleted", n).Msg("invitation cleanup completed")
	return nil
}
