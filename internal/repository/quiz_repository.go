package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizgrade-backend/internal/model"
)

// LoadPolicy decides what happens to existing quizzes during a bulk load.
type LoadPolicy string

const (
	// LoadPolicyUpsert updates quizzes matched by title and inserts the rest.
	// A matched quiz that already has submissions keeps its questions; only
	// its title, description and duration are updated.
	LoadPolicyUpsert LoadPolicy = "upsert"
	// LoadPolicyReplace deletes every quiz (and its submissions) before loading.
	LoadPolicyReplace LoadPolicy = "replace"
)

// LoadResult counts what a bulk load changed.
type LoadResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	// Skipped counts matched quizzes whose questions were left untouched
	// because submissions reference them.
	Skipped       int      `json:"skipped"`
	SkippedTitles []string `json:"skipped_titles,omitempty"`
}

// QuizRepository handles quiz, question and choice data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// List returns every quiz with its question count and total points.
func (r *QuizRepository) List(ctx context.Context) ([]model.QuizSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.title, q.description, q.duration_minutes, q.created_at,
		        COUNT(qs.id), COALESCE(SUM(qs.points), 0)
		 FROM quizzes q
		 LEFT JOIN questions qs ON qs.quiz_id = q.id
		 GROUP BY q.id
		 ORDER BY q.created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []model.QuizSummary
	for rows.Next() {
		var s model.QuizSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.TimeLimitMinutes, &s.CreatedAt,
			&s.QuestionCount, &s.TotalPoints); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, s)
	}
	return quizzes, rows.Err()
}

// Get retrieves a quiz with its questions (by position) and their choices.
func (r *QuizRepository) Get(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, duration_minutes, created_at, updated_at
		 FROM quizzes WHERE id = $1`, id,
	).Scan(&q.ID, &q.Title, &q.Description, &q.TimeLimitMinutes, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, quiz_id, question_text, question_type, points, position
		 FROM questions WHERE quiz_id = $1
		 ORDER BY position, id`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	index := map[uuid.UUID]int{}
	for rows.Next() {
		var qs model.Question
		if err := rows.Scan(&qs.ID, &qs.QuizID, &qs.Text, &qs.Type, &qs.Points, &qs.Position); err != nil {
			return nil, err
		}
		index[qs.ID] = len(q.Questions)
		q.Questions = append(q.Questions, qs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(q.Questions) == 0 {
		return q, nil
	}

	choiceRows, err := r.pool.Query(ctx,
		`SELECT c.id, c.question_id, c.choice_text, c.is_correct
		 FROM choices c
		 JOIN questions qs ON qs.id = c.question_id
		 WHERE qs.quiz_id = $1
		 ORDER BY c.question_id, c.position`, id,
	)
	if err != nil {
		return nil, err
	}
	defer choiceRows.Close()

	for choiceRows.Next() {
		var c model.Choice
		if err := choiceRows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.IsCorrect); err != nil {
			return nil, err
		}
		i, ok := index[c.QuestionID]
		if !ok {
			continue
		}
		q.Questions[i].Choices = append(q.Questions[i].Choices, c)
	}
	return q, choiceRows.Err()
}

// Create inserts a quiz with all its questions and choices in one transaction.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz) error {
	return translate(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return insertQuiz(ctx, tx, q)
	}))
}

// ReplaceQuestions updates a quiz's metadata and swaps its question set.
// It refuses when submissions already reference the quiz.
func (r *QuizRepository) ReplaceQuestions(ctx context.Context, q *model.Quiz) error {
	return translate(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return replaceQuiz(ctx, tx, q)
	}))
}

// Delete removes a quiz; questions, choices and submissions cascade.
func (r *QuizRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Load writes a batch of quizzes in a single transaction under the given policy.
// With LoadPolicyUpsert, quizzes are matched by title.
func (r *QuizRepository) Load(ctx context.Context, quizzes []*model.Quiz, policy LoadPolicy) (LoadResult, error) {
	var res LoadResult
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		res = LoadResult{}

		if policy == LoadPolicyReplace {
			tag, err := tx.Exec(ctx, `DELETE FROM quizzes`)
			if err != nil {
				return fmt.Errorf("clear quizzes: %w", err)
			}
			res.Deleted = int(tag.RowsAffected())
		}

		for _, q := range quizzes {
			var existing uuid.UUID
			err := tx.QueryRow(ctx,
				`SELECT id FROM quizzes WHERE title = $1 FOR UPDATE`, q.Title,
			).Scan(&existing)

			switch {
			case err == nil:
				q.ID = existing
				locked, err := hasSubmissions(ctx, tx, q.ID)
				if err != nil {
					return fmt.Errorf("count submissions %q: %w", q.Title, err)
				}
				if locked {
					if err := updateQuizMeta(ctx, tx, q); err != nil {
						return fmt.Errorf("update quiz %q: %w", q.Title, err)
					}
					res.Skipped++
					res.SkippedTitles = append(res.SkippedTitles, q.Title)
					continue
				}
				if err := replaceQuiz(ctx, tx, q); err != nil {
					return fmt.Errorf("update quiz %q: %w", q.Title, err)
				}
				res.Updated++
			case translate(err) == ErrNotFound:
				if err := insertQuiz(ctx, tx, q); err != nil {
					return fmt.Errorf("create quiz %q: %w", q.Title, err)
				}
				res.Created++
			default:
				return fmt.Errorf("lookup quiz %q: %w", q.Title, err)
			}
		}
		return nil
	})
	return res, translate(err)
}

func insertQuiz(ctx context.Context, tx pgx.Tx, q *model.Quiz) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	err := tx.QueryRow(ctx,
		`INSERT INTO quizzes (id, title, description, duration_minutes)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		q.ID, q.Title, q.Description, q.TimeLimitMinutes,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return err
	}
	return insertQuestions(ctx, tx, q)
}

func hasSubmissions(ctx context.Context, tx pgx.Tx, quizID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM submissions WHERE quiz_id = $1)`, quizID,
	).Scan(&exists)
	return exists, err
}

func updateQuizMeta(ctx context.Context, tx pgx.Tx, q *model.Quiz) error {
	return tx.QueryRow(ctx,
		`UPDATE quizzes
		 SET title = $2, description = $3, duration_minutes = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		q.ID, q.Title, q.Description, q.TimeLimitMinutes,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
}

func replaceQuiz(ctx context.Context, tx pgx.Tx, q *model.Quiz) error {
	locked, err := hasSubmissions(ctx, tx, q.ID)
	if err != nil {
		return err
	}
	if locked {
		return ErrQuizHasSubmissions
	}

	if err := updateQuizMeta(ctx, tx, q); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE quiz_id = $1`, q.ID); err != nil {
		return err
	}
	return insertQuestions(ctx, tx, q)
}

// insertQuestions queues every question and choice insert into one batch.
func insertQuestions(ctx context.Context, tx pgx.Tx, q *model.Quiz) error {
	batch := &pgx.Batch{}
	for i := range q.Questions {
		qs := &q.Questions[i]
		if qs.ID == uuid.Nil {
			qs.ID = uuid.New()
		}
		qs.QuizID = q.ID
		batch.Queue(
			`INSERT INTO questions (id, quiz_id, question_text, question_type, points, position)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			qs.ID, qs.QuizID, qs.Text, qs.Type, qs.Points, qs.Position,
		)
		for j := range qs.Choices {
			c := &qs.Choices[j]
			if c.ID == uuid.Nil {
				c.ID = uuid.New()
			}
			c.QuestionID = qs.ID
			batch.Queue(
				`INSERT INTO choices (id, question_id, choice_text, is_correct, position)
				 VALUES ($1, $2, $3, $4, $5)`,
				c.ID, c.QuestionID, c.Text, c.IsCorrect, j,
			)
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	return tx.SendBatch(ctx, batch).Close()
}
