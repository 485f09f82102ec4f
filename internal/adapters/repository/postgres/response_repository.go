package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

type responseRepository struct {
	db *sql.DB
}

// NewResponseRepository returns the ledger backed by survey_responses. The
// (survey_id, respondent_key) unique constraint does the duplicate check, so
// concurrent appends for one respondent leave exactly one row.
func NewResponseRepository(db *sql.DB) ports.ResponseLedger {
	return &responseRepository{
		db: db,
	}
}

func (r *responseRepository) Append(ctx context.Context, response *domain.Response) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryResponse := `
		INSERT INTO survey_responses (id, survey_id, respondent_key, user_id, invitation_id, method, ip_address, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, queryResponse,
		response.ID, response.SurveyID, response.RespondentKey, response.UserID, response.GrantID,
		string(response.Ballot.Method), sql.NullString{String: response.IPAddress, Valid: response.IPAddress != ""},
		response.SubmittedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("failed to insert response: %w", err)
	}

	queryAnswer := `
		INSERT INTO response_answers (response_id, choice_id, rank, stones)
		VALUES ($1, $2, $3, $4)
	`
	stmt, err := tx.PrepareContext(ctx, queryAnswer)
	if err != nil {
		return fmt.Errorf("failed to prepare answer statement: %w", err)
	}
	defer stmt.Close()

	for i, choiceID := range response.Ballot.Ranking {
		if _, err := stmt.ExecContext(ctx, response.ID, choiceID, i+1, nil); err != nil {
			return fmt.Errorf("failed to insert answer: %w", err)
		}
	}
	for _, entry := range response.Ballot.Stones {
		if _, err := stmt.ExecContext(ctx, response.ID, entry.ChoiceID, nil, entry.Stones); err != nil {
			return fmt.Errorf("failed to insert answer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *responseRepository) HasResponded(ctx context.Context, surveyID uuid.UUID, respondentKey string) (bool, error) {
	query := `SELECT 1 FROM survey_responses WHERE survey_id = $1 AND respondent_key = $2 LIMIT 1`
	var exists int
	err := r.db.QueryRowContext(ctx, query, surveyID, respondentKey).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existing response: %w", err)
	}
	return true, nil
}

func (r *responseRepository) ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]domain.Response, error) {
	queryResponses := `
		SELECT id, survey_id, respondent_key, user_id, invitation_id, method, COALESCE(ip_address, ''), submitted_at
		FROM survey_responses
		WHERE survey_id = $1
		ORDER BY submitted_at, id
	`
	rows, err := r.db.QueryContext(ctx, queryResponses, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	responses := []domain.Response{}
	for rows.Next() {
		var (
			resp   domain.Response
			method string
		)
		if err := rows.Scan(&resp.ID, &resp.SurveyID, &resp.RespondentKey, &resp.UserID, &resp.GrantID,
			&method, &resp.IPAddress, &resp.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		resp.Ballot.Method = domain.VotingMethod(method)
		responses = append(responses, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating responses: %w", err)
	}

	if err := r.fillBallots(ctx, surveyID, responses); err != nil {
		return nil, err
	}
	return responses, nil
}

func (r *responseRepository) fillBallots(ctx context.Context, surveyID uuid.UUID, responses []domain.Response) error {
	if len(responses) == 0 {
		return nil
	}

	byID := lo.SliceToMap(lo.Range(len(responses)), func(i int) (uuid.UUID, int) {
		return responses[i].ID, i
	})

	queryAnswers := `
		SELECT a.response_id, a.choice_id, a.rank, a.stones
		FROM response_answers a
		JOIN survey_responses r ON r.id = a.response_id
		JOIN survey_choices c ON c.id = a.choice_id
		WHERE r.survey_id = $1
		ORDER BY a.response_id, a.rank NULLS LAST, c.position
	`
	rows, err := r.db.QueryContext(ctx, queryAnswers, surveyID)
	if err != nil {
		return fmt.Errorf("failed to get response answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			responseID, choiceID uuid.UUID
			rank, stones         sql.NullInt64
		)
		if err := rows.Scan(&responseID, &choiceID, &rank, &stones); err != nil {
			return fmt.Errorf("failed to scan answer: %w", err)
		}
		i, ok := byID[responseID]
		if !ok {
			continue
		}
		ballot := &responses[i].Ballot
		if rank.Valid {
			ballot.Ranking = append(ballot.Ranking, choiceID)
		}
		if stones.Valid {
			ballot.Stones = append(ballot.Stones, domain.StonesEntry{ChoiceID: choiceID, Stones: int(stones.Int64)})
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating answers: %w", err)
	}
	return nil
}
