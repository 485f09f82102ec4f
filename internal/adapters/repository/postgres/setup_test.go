package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
)

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), "up.sql") {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dirPath, name))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
	}

	return nil
}

// setupDB starts a throwaway postgres with the schema applied.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	container, connStr, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, applyMigrations(db))
	return db
}

func createUser(t *testing.T, db *sql.DB) *domain.User {
	t.Helper()
	id := uuid.New()
	user := &domain.User{Email: fmt.Sprintf("user-%s@example.com", id), Name: "User " + id.String()}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func createSurvey(t *testing.T, db *sql.DB, method domain.VotingMethod, n int) *domain.Survey {
	t.Helper()
	owner := createUser(t, db)

	surveyID := uuid.New()
	survey := &domain.Survey{
		ID:        surveyID,
		Title:     "Survey " + surveyID.String(),
		Question:  "Pick one",
		Method:    method,
		IsActive:  true,
		OwnerID:   owner.ID,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	for i := 0; i < n; i++ {
		survey.Choices = append(survey.Choices, domain.Choice{
			ID:       uuid.New(),
			SurveyID: surveyID,
			Text:     fmt.Sprintf("Choice %d", i),
			Position: i,
		})
	}
	require.NoError(t, NewSurveyRepository(db).Save(context.Background(), survey))
	return survey
}
