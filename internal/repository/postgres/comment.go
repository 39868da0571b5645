package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"feedback_service/internal/domain"
)

const commentColumns = `
id, response_id, question_id, course_id, session_name, giver_email, text, from_participant,
show_comment_to, show_giver_name_to, created_at, edited_at`

type commentRepository struct {
	db *sql.DB
}

func scanComment(row scanner) (*domain.FeedbackResponseComment, error) {
	var c domain.FeedbackResponseComment
	var showComment, showGiver pq.StringArray
	err := row.Scan(
		&c.ID, &c.ResponseID, &c.QuestionID, &c.CourseID, &c.SessionName, &c.GiverEmail, &c.Text,
		&c.FromParticipant, &showComment, &showGiver, &c.CreatedAt, &c.EditedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ShowCommentTo = toParticipantTypes(showComment)
	c.ShowGiverNameTo = toParticipantTypes(showGiver)
	return &c, nil
}

func (r *commentRepository) Create(ctx context.Context, c *domain.FeedbackResponseComment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
		c.EditedAt = c.CreatedAt
	}
	query := `INSERT INTO feedback_response_comments (` + commentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.ResponseID, c.QuestionID, c.CourseID, c.SessionName, c.GiverEmail, c.Text, c.FromParticipant,
		participantTypes(c.ShowCommentTo), participantTypes(c.ShowGiverNameTo), c.CreatedAt, c.EditedAt,
	)
	return mapError(err, fmt.Sprintf("comment %s", c.ID))
}

func (r *commentRepository) Get(ctx context.Context, id uuid.UUID) (*domain.FeedbackResponseComment, error) {
	query := `SELECT ` + commentColumns + ` FROM feedback_response_comments WHERE id = $1`
	c, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("comment %s", id))
	}
	return c, nil
}

func (r *commentRepository) ListByResponse(ctx context.Context, responseID uuid.UUID) ([]*domain.FeedbackResponseComment, error) {
	what := fmt.Sprintf("comments of response %s", responseID)
	query := `SELECT ` + commentColumns + ` FROM feedback_response_comments
WHERE response_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, responseID)
	if err != nil {
		return nil, mapError(err, what)
	}
	defer rows.Close()

	var comments []*domain.FeedbackResponseComment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, mapError(err, what)
		}
		comments = append(comments, c)
	}
	return comments, mapError(rows.Err(), what)
}

func (r *commentRepository) Update(ctx context.Context, c *domain.FeedbackResponseComment) error {
	query := `
UPDATE feedback_response_comments
SET text = $2, show_comment_to = $3, show_giver_name_to = $4, edited_at = $5
WHERE id = $1`
	return execOne(ctx, r.db, fmt.Sprintf("comment %s", c.ID), query,
		c.ID, c.Text, participantTypes(c.ShowCommentTo), participantTypes(c.ShowGiverNameTo), c.EditedAt)
}

func (r *commentRepository) MoveToResponse(ctx context.Context, from, to uuid.UUID) (int, error) {
	return exec(ctx, r.db, fmt.Sprintf("comments of response %s", from),
		`UPDATE feedback_response_comments SET response_id = $2 WHERE response_id = $1`, from, to)
}

func (r *commentRepository) ReplaceGiverEmail(ctx context.Context, courseID, oldEmail, newEmail string) (int, error) {
	return exec(ctx, r.db, fmt.Sprintf("comments by %s", oldEmail),
		`UPDATE feedback_response_comments SET giver_email = $3 WHERE course_id = $1 AND giver_email = $2`,
		courseID, oldEmail, newEmail)
}

func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := exec(ctx, r.db, fmt.Sprintf("comment %s", id), `DELETE FROM feedback_response_comments WHERE id = $1`, id)
	return n > 0, err
}

func (r *commentRepository) DeleteByResponse(ctx context.Context, responseID uuid.UUID) (int, error) {
	return exec(ctx, r.db, fmt.Sprintf("comments of response %s", responseID),
		`DELETE FROM feedback_response_comments WHERE response_id = $1`, responseID)
}

func (r *commentRepository) DeleteByQuestion(ctx context.Context, questionID uuid.UUID) (int, error) {
	return exec(ctx, r.db, fmt.Sprintf("comments of question %s", questionID),
		`DELETE FROM feedback_response_comments WHERE question_id = $1`, questionID)
}

func (r *commentRepository) DeleteByGiver(ctx context.Context, courseID, giverEmail string) (int, error) {
	return exec(ctx, r.db, fmt.Sprintf("comments by %s", giverEmail),
		`DELETE FROM feedback_response_comments WHERE course_id = $1 AND giver_email = $2`, courseID, giverEmail)
}

func (r *commentRepository) DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error) {
	query := `
DELETE FROM feedback_response_comments WHERE id IN (
    SELECT id FROM feedback_response_comments WHERE course_id = $1 LIMIT $2
)`
	return exec(ctx, r.db, fmt.Sprintf("comments of %s", courseID), query, courseID, limit)
}
