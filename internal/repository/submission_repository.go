package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizgrade-backend/internal/model"
)

// SubmissionRepository handles submission and answer data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create inserts a submission and all of its answers in one transaction.
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	return translate(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO submissions (id, user_id, quiz_id, started_at, ended_at, score, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.ID, s.UserID, s.QuizID, s.StartedAt, s.EndedAt, s.Score, s.Status,
		)
		if err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range s.Answers {
			a := &s.Answers[i]
			if a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			a.SubmissionID = s.ID
			batch.Queue(
				`INSERT INTO answers (id, submission_id, question_id, position, code_answer, points_awarded, feedback)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				a.ID, a.SubmissionID, a.QuestionID, i, a.Code, a.PointsAwarded, a.Feedback,
			)
			for _, cid := range a.SelectedChoiceIDs {
				batch.Queue(
					`INSERT INTO answer_choices (answer_id, choice_id) VALUES ($1, $2)
					 ON CONFLICT DO NOTHING`,
					a.ID, cid,
				)
			}
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		return nil
	}))
}

// Get retrieves a submission with its answers in submission order.
func (r *SubmissionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	return getSubmission(ctx, r.pool, id, false)
}

// Mutate loads a submission under a row lock, lets fn change it in memory and
// writes status, score, end time and every answer's grade back in the same
// transaction. Concurrent callers on one submission are serialized, so a
// state check inside fn cannot be raced. If fn fails nothing is written.
func (r *SubmissionRepository) Mutate(ctx context.Context, id uuid.UUID, fn func(s *model.Submission) error) (*model.Submission, error) {
	var out *model.Submission
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		s, err := getSubmission(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE submissions SET status = $2, score = $3, ended_at = $4 WHERE id = $1`,
			s.ID, s.Status, s.Score, s.EndedAt,
		)
		if err != nil {
			return fmt.Errorf("update submission: %w", err)
		}

		batch := &pgx.Batch{}
		for _, a := range s.Answers {
			batch.Queue(
				`UPDATE answers SET points_awarded = $2, feedback = $3 WHERE id = $1`,
				a.ID, a.PointsAwarded, a.Feedback,
			)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("update answers: %w", err)
			}
		}

		out = s
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// ListByUser retrieves a user's submissions, newest first.
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID int) ([]model.SubmissionSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.user_id, u.username, s.quiz_id, q.title, s.started_at, s.ended_at, s.score, s.status
		 FROM submissions s
		 JOIN users u ON u.id = s.user_id
		 JOIN quizzes q ON q.id = s.quiz_id
		 WHERE s.user_id = $1
		 ORDER BY s.started_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// ListByStatus retrieves submissions in a status, oldest submission first, paginated.
func (r *SubmissionRepository) ListByStatus(ctx context.Context, status model.SubmissionStatus, page, perPage int) ([]model.SubmissionSummary, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE status = $1`, status,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.user_id, u.username, s.quiz_id, q.title, s.started_at, s.ended_at, s.score, s.status
		 FROM submissions s
		 JOIN users u ON u.id = s.user_id
		 JOIN quizzes q ON q.id = s.quiz_id
		 WHERE s.status = $1
		 ORDER BY s.ended_at ASC NULLS LAST, s.id
		 LIMIT $2 OFFSET $3`,
		status, perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, 0, err
	}
	summaries, err := scanSummaries(rows)
	return summaries, total, err
}

func scanSummaries(rows pgx.Rows) ([]model.SubmissionSummary, error) {
	defer rows.Close()

	var out []model.SubmissionSummary
	for rows.Next() {
		var s model.SubmissionSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.Username, &s.QuizID, &s.QuizTitle,
			&s.StartedAt, &s.EndedAt, &s.Score, &s.Status); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getSubmission(ctx context.Context, db querier, id uuid.UUID, lock bool) (*model.Submission, error) {
	query := `SELECT id, user_id, quiz_id, started_at, ended_at, score, status
		 FROM submissions WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	s := &model.Submission{}
	err := db.QueryRow(ctx, query, id).
		Scan(&s.ID, &s.UserID, &s.QuizID, &s.StartedAt, &s.EndedAt, &s.Score, &s.Status)
	if err != nil {
		return nil, translate(err)
	}

	rows, err := db.Query(ctx,
		`SELECT a.id, a.submission_id, a.question_id, a.code_answer, a.points_awarded, a.feedback,
		        COALESCE(array_agg(ac.choice_id) FILTER (WHERE ac.choice_id IS NOT NULL), '{}')
		 FROM answers a
		 LEFT JOIN answer_choices ac ON ac.answer_id = a.id
		 WHERE a.submission_id = $1
		 GROUP BY a.id
		 ORDER BY a.position`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.QuestionID, &a.Code, &a.PointsAwarded,
			&a.Feedback, &a.SelectedChoiceIDs); err != nil {
			return nil, err
		}
		s.Answers = append(s.Answers, a)
	}
	return s, rows.Err()
}
