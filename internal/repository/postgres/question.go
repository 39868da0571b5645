package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"feedback_service/internal/domain"
)

const questionColumns = `
id, course_id, session_name, number, text, description, type, giver_type, recipient_type,
max_recipients, show_responses_to, show_giver_name_to, options, generate_options, created_at, edited_at`

type questionRepository struct {
	db *sql.DB
}

func scanQuestion(row scanner) (*domain.FeedbackQuestion, error) {
	var q domain.FeedbackQuestion
	var (
		qType, giver, recipient, generate string
		showResponses, showGiver, options pq.StringArray
	)
	err := row.Scan(
		&q.ID, &q.CourseID, &q.SessionName, &q.Number, &q.Text, &q.Description, &qType, &giver, &recipient,
		&q.MaxRecipients, &showResponses, &showGiver, &options, &generate, &q.CreatedAt, &q.EditedAt,
	)
	if err != nil {
		return nil, err
	}
	q.Type = domain.QuestionType(qType)
	q.GiverType = domain.ParticipantType(giver)
	q.RecipientType = domain.ParticipantType(recipient)
	q.GenerateOptions = domain.ParticipantType(generate)
	q.ShowResponsesTo = toParticipantTypes(showResponses)
	q.ShowGiverNameTo = toParticipantTypes(showGiver)
	q.Options = []string(options)
	return &q, nil
}

func (r *questionRepository) Create(ctx context.Context, q *domain.FeedbackQuestion) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now()
		q.EditedAt = q.CreatedAt
	}
	generate := q.GenerateOptions
	if generate == "" {
		generate = domain.ParticipantNone
	}
	query := `INSERT INTO feedback_questions (` + questionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.db.ExecContext(ctx, query,
		q.ID, q.CourseID, q.SessionName, q.Number, q.Text, q.Description,
		string(q.Type), string(q.GiverType), string(q.RecipientType), q.MaxRecipients,
		participantTypes(q.ShowResponsesTo), participantTypes(q.ShowGiverNameTo), pq.StringArray(q.Options),
		string(generate), q.CreatedAt, q.EditedAt,
	)
	return mapError(err, fmt.Sprintf("question %s", q.ID))
}

func (r *questionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.FeedbackQuestion, error) {
	query := `SELECT ` + questionColumns + ` FROM feedback_questions WHERE id = $1`
	q, err := scanQuestion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("question %s", id))
	}
	return q, nil
}

func (r *questionRepository) list(ctx context.Context, what, query string, args ...any) ([]*domain.FeedbackQuestion, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, what)
	}
	defer rows.Close()

	var questions []*domain.FeedbackQuestion
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, mapError(err, what)
		}
		questions = append(questions, q)
	}
	return questions, mapError(rows.Err(), what)
}

func (r *questionRepository) ListBySession(ctx context.Context, courseID, sessionName string) ([]*domain.FeedbackQuestion, error) {
	query := `SELECT ` + questionColumns + ` FROM feedback_questions
WHERE course_id = $1 AND session_name = $2 ORDER BY number`
	return r.list(ctx, fmt.Sprintf("questions of %s/%s", courseID, sessionName), query, courseID, sessionName)
}

func (r *questionRepository) ListByCourse(ctx context.Context, courseID string) ([]*domain.FeedbackQuestion, error) {
	query := `SELECT ` + questionColumns + ` FROM feedback_questions
WHERE course_id = $1 ORDER BY session_name, number`
	return r.list(ctx, fmt.Sprintf("questions of %s", courseID), query, courseID)
}

func (r *questionRepository) Update(ctx context.Context, q *domain.FeedbackQuestion) error {
	query := `
UPDATE feedback_questions SET
    number = $2, text = $3, description = $4, type = $5, giver_type = $6, recipient_type = $7,
    max_recipients = $8, show_responses_to = $9, show_giver_name_to = $10, options = $11,
    generate_options = $12, edited_at = $13
WHERE id = $1`
	return execOne(ctx, r.db, fmt.Sprintf("question %s", q.ID), query,
		q.ID, q.Number, q.Text, q.Description, string(q.Type), string(q.GiverType), string(q.RecipientType),
		q.MaxRecipients, participantTypes(q.ShowResponsesTo), participantTypes(q.ShowGiverNameTo),
		pq.StringArray(q.Options), string(q.GenerateOptions), q.EditedAt,
	)
}

func (r *questionRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := exec(ctx, r.db, fmt.Sprintf("question %s", id), `DELETE FROM feedback_questions WHERE id = $1`, id)
	return n > 0, err
}

func (r *questionRepository) DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error) {
	query := `
DELETE FROM feedback_questions WHERE id IN (
    SELECT id FROM feedback_questions WHERE course_id = $1 LIMIT $2
)`
	return exec(ctx, r.db, fmt.Sprintf("questions of %s", courseID), query, courseID, limit)
}
