package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

type surveyRepository struct {
	db *sql.DB
}

func NewSurveyRepository(db *sql.DB) ports.SurveyRepository {
	return &surveyRepository{
		db: db,
	}
}

func (r *surveyRepository) Save(ctx context.Context, survey *domain.Survey) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	querySurvey := `
		INSERT INTO surveys (id, owner_id, title, question, description, method, is_anonymous, results_public, is_active, deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, querySurvey,
		survey.ID, survey.OwnerID, survey.Title, survey.Question, survey.Description, string(survey.Method),
		survey.IsAnonymous, survey.ResultsPublic, survey.IsActive, survey.Deadline, survey.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert survey: %w", err)
	}

	queryChoice := `
		INSERT INTO survey_choices (id, survey_id, text, url, position)
		VALUES ($1, $2, $3, $4, $5)
	`
	stmt, err := tx.PrepareContext(ctx, queryChoice)
	if err != nil {
		return fmt.Errorf("failed to prepare choice statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range survey.Choices {
		_, err = stmt.ExecContext(ctx, c.ID, c.SurveyID, c.Text, c.URL, c.Position)
		if err != nil {
			return fmt.Errorf("failed to insert choice: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *surveyRepository) GetSurvey(ctx context.Context, id uuid.UUID) (*domain.Survey, error) {
	querySurvey := `
		SELECT id, owner_id, title, question, description, method, is_anonymous, results_public, is_active, deadline, created_at
		FROM surveys
		WHERE id = $1
	`

	var (
		survey domain.Survey
		method string
	)
	err := r.db.QueryRowContext(ctx, querySurvey, id).Scan(
		&survey.ID, &survey.OwnerID, &survey.Title, &survey.Question, &survey.Description, &method,
		&survey.IsAnonymous, &survey.ResultsPublic, &survey.IsActive, &survey.Deadline, &survey.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	survey.Method = domain.VotingMethod(method)

	choices, err := r.fetchChoices(ctx, survey.ID)
	if err != nil {
		return nil, err
	}
	survey.Choices = choices

	return &survey, nil
}

func (r *surveyRepository) SetResultsPublic(ctx context.Context, id uuid.UUID, public bool) error {
	query := `UPDATE surveys SET results_public = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, public)
	if err != nil {
		return fmt.Errorf("failed to update results visibility: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrSurveyNotFound
	}
	return nil
}

func (r *surveyRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM surveys ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan survey id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating surveys: %w", err)
	}
	return ids, nil
}

func (r *surveyRepository) fetchChoices(ctx context.Context, surveyID uuid.UUID) ([]domain.Choice, error) {
	queryChoices := `
		SELECT id, survey_id, text, url, position
		FROM survey_choices
		WHERE survey_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, queryChoices, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get survey choices: %w", err)
	}
	defer rows.Close()

	var choices []domain.Choice
	for rows.Next() {
		var c domain.Choice
		if err := rows.Scan(&c.ID, &c.SurveyID, &c.Text, &c.URL, &c.Position); err != nil {
			return nil, fmt.Errorf("failed to scan choice: %w", err)
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating choices: %w", err)
	}
	return choices, nil
}
