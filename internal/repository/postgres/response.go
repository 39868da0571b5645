package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

const responseColumns = `
id, question_id, course_id, session_name, giver, giver_section, recipient, recipient_section,
answer, created_at, edited_at`

type responseRepository struct {
	db *sql.DB
}

func scanResponse(row scanner) (*domain.FeedbackResponse, error) {
	var r domain.FeedbackResponse
	err := row.Scan(
		&r.ID, &r.QuestionID, &r.CourseID, &r.SessionName, &r.Giver, &r.GiverSection,
		&r.Recipient, &r.RecipientSection, &r.Answer, &r.CreatedAt, &r.EditedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateIfAbsent relies on the unique key; ON CONFLICT DO NOTHING makes
// the check and the insert one statement.
func (r *responseRepository) CreateIfAbsent(ctx context.Context, resp *domain.FeedbackResponse) error {
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = now()
	}
	if resp.EditedAt.IsZero() {
		resp.EditedAt = resp.CreatedAt
	}
	query := `INSERT INTO feedback_responses (` + responseColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (question_id, giver, recipient) DO NOTHING`
	what := fmt.Sprintf("response %s->%s", resp.Giver, resp.Recipient)
	n, err := exec(ctx, r.db, what, query,
		resp.ID, resp.QuestionID, resp.CourseID, resp.SessionName, resp.Giver, resp.GiverSection,
		resp.Recipient, resp.RecipientSection, resp.Answer, resp.CreatedAt, resp.EditedAt,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, errdefs.ErrAlreadyExists)
	}
	return nil
}

func (r *responseRepository) Get(ctx context.Context, id uuid.UUID) (*domain.FeedbackResponse, error) {
	query := `SELECT ` + responseColumns + ` FROM feedback_responses WHERE id = $1`
	resp, err := scanResponse(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("response %s", id))
	}
	return resp, nil
}

func (r *responseRepository) GetByKey(ctx context.Context, key domain.ResponseKey) (*domain.FeedbackResponse, error) {
	query := `SELECT ` + responseColumns + ` FROM feedback_responses
WHERE question_id = $1 AND giver = $2 AND recipient = $3`
	resp, err := scanResponse(r.db.QueryRowContext(ctx, query, key.QuestionID, key.Giver, key.Recipient))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("response %s->%s", key.Giver, key.Recipient))
	}
	return resp, nil
}

func (r *responseRepository) list(ctx context.Context, what, query string, args ...any) ([]*domain.FeedbackResponse, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, what)
	}
	defer rows.Close()

	var responses []*domain.FeedbackResponse
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, mapError(err, what)
		}
		responses = append(responses, resp)
	}
	return responses, mapError(rows.Err(), what)
}

const responseOrder = ` ORDER BY question_id, giver, recipient`

func (r *responseRepository) ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]*domain.FeedbackResponse, error) {
	query := `SELECT ` + responseColumns + ` FROM feedback_responses WHERE question_id = $1` + responseOrder
	return r.list(ctx, fmt.Sprintf("responses of question %s", questionID), query, questionID)
}

func (r *responseRepository) ListBySession(ctx context.Context, courseID, sessionName string) ([]*domain.FeedbackResponse, error) {
	query := `SELECT ` + responseColumns + ` FROM feedback_responses
WHERE course_id = $1 AND session_name = $2` + responseOrder
	return r.list(ctx, fmt.Sprintf("responses of %s/%s", courseID, sessionName), query, courseID, sessionName)
}

func (r *responseRepository) ListByParticipant(ctx context.Context, courseID, identifier string) ([]*domain.FeedbackResponse, error) {
	query := `SELECT ` + responseColumns + ` FROM feedback_responses
WHERE course_id = $1 AND (giver = $2 OR recipient = $2)` + responseOrder
	return r.list(ctx, fmt.Sprintf("responses of %s", identifier), query, courseID, identifier)
}

func (r *responseRepository) Update(ctx context.Context, resp *domain.FeedbackResponse) error {
	query := `
UPDATE feedback_responses
SET giver_section = $2, recipient_section = $3, answer = $4, edited_at = $5
WHERE id = $1`
	return execOne(ctx, r.db, fmt.Sprintf("response %s", resp.ID), query,
		resp.ID, resp.GiverSection, resp.RecipientSection, resp.Answer, resp.EditedAt)
}

func (r *responseRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := exec(ctx, r.db, fmt.Sprintf("response %s", id), `DELETE FROM feedback_responses WHERE id = $1`, id)
	return n > 0, err
}

func (r *responseRepository) DeleteByQuestion(ctx context.Context, questionID uuid.UUID) (int, error) {
	return exec(ctx, r.db, fmt.Sprintf("responses of question %s", questionID),
		`DELETE FROM feedback_responses WHERE question_id = $1`, questionID)
}

func (r *responseRepository) DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error) {
	query := `
DELETE FROM feedback_responses WHERE id IN (
    SELECT id FROM feedback_responses WHERE course_id = $1 LIMIT $2
)`
	return exec(ctx, r.db, fmt.Sprintf("responses of %s", courseID), query, courseID, limit)
}
