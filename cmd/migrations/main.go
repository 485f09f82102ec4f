package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/groupchoice/internal/config"
)

const allMigrations = "up"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	if len(os.Args) < 2 {
		log.Fatal().Msg(`a migration name, or "up" for every up migration, is required`)
	}
	migrationName := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := sql.Open("postgres", cfg.Postgres.ConnString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	basePath := filepath.Join(".", "internal", "adapters", "repository", "postgres", "migrations")

	var files []string
	if migrationName == allMigrations {
		files, err = upMigrationFiles(basePath)
	} else {
		var file string
		file, err = migrationFilePath(basePath, migrationName)
		files = []string{file}
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to locate migrations")
	}

	for _, file := range files {
		fileContent, err := os.ReadFile(filepath.Join(basePath, file))
		if err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("failed to read migration")
		}
		if _, err := db.Exec(string(fileContent)); err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("failed to execute migration")
		}
		log.Info().Str("file", file).Msg("migration executed")
	}
}

func upMigrationFiles(basePath string) ([]string, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

func migrationFilePath(basePath string, migrationName string) (string, error) {
	regex, err := regexp.Compile(fmt.Sprintf(`^.*%s\.sql$`, regexp.QuoteMeta(migrationName)))
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	files, err := os.ReadDir(basePath)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}

		if regex.MatchString(f.Name()) {
			return f.Name(), nil
		}
	}

	return "", fmt.Errorf("migration file %q not found", migrationName)
}
