package router

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/repository"
)

var errMiss = errors.New("miss")

// memQuizzes is an in-memory quiz store. Loaded quizzes get fresh IDs.
type memQuizzes struct {
	mu      sync.Mutex
	quizzes map[uuid.UUID]*model.Quiz
	subs    *memSubmissions
}

func (m *memQuizzes) List(_ context.Context) ([]model.QuizSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.QuizSummary{}
	for _, q := range m.quizzes {
		out = append(out, model.QuizSummary{ID: q.ID, Title: q.Title, QuestionCount: len(q.Questions), TotalPoints: q.TotalPoints()})
	}
	return out, nil
}

func (m *memQuizzes) Get(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return q, nil
}

func (m *memQuizzes) Create(_ context.Context, q *model.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	assignIDs(q)
	m.quizzes[q.ID] = q
	return nil
}

func (m *memQuizzes) ReplaceQuestions(_ context.Context, q *model.Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[q.ID]; !ok {
		return repository.ErrNotFound
	}
	assignIDs(q)
	m.quizzes[q.ID] = q
	return nil
}

func (m *memQuizzes) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.quizzes, id)
	return nil
}

func (m *memQuizzes) Load(_ context.Context, quizzes []*model.Quiz, policy repository.LoadPolicy) (repository.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res repository.LoadResult
	if policy == repository.LoadPolicyReplace {
		res.Deleted = len(m.quizzes)
		m.quizzes = make(map[uuid.UUID]*model.Quiz)
	}
	for _, q := range quizzes {
		q.ID = uuid.Nil
		for id, existing := range m.quizzes {
			if existing.Title == q.Title {
				q.ID = id
			}
		}
		if q.ID != uuid.Nil && m.subs != nil && m.subs.hasQuiz(q.ID) {
			kept := *m.quizzes[q.ID]
			kept.Title, kept.Description, kept.TimeLimitMinutes = q.Title, q.Description, q.TimeLimitMinutes
			m.quizzes[q.ID] = &kept
			res.Skipped++
			res.SkippedTitles = append(res.SkippedTitles, q.Title)
			continue
		}
		if q.ID == uuid.Nil {
			res.Created++
		} else {
			res.Updated++
		}
		assignIDs(q)
		m.quizzes[q.ID] = q
	}
	return res, nil
}

func assignIDs(q *model.Quiz) {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	for i := range q.Questions {
		qs := &q.Questions[i]
		qs.ID = uuid.New()
		qs.QuizID = q.ID
		for j := range qs.Choices {
			qs.Choices[j].ID = uuid.New()
			qs.Choices[j].QuestionID = qs.ID
		}
	}
}

// memSubmissions serializes Mutate with a single lock.
type memSubmissions struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*model.Submission
}

func copySubmission(s *model.Submission) *model.Submission {
	c := *s
	c.Answers = append([]model.Answer(nil), s.Answers...)
	return &c
}

func (m *memSubmissions) hasQuiz(quizID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.QuizID == quizID {
			return true
		}
	}
	return false
}

func (m *memSubmissions) Create(_ context.Context, s *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ID] = copySubmission(s)
	return nil
}

func (m *memSubmissions) Get(_ context.Context, id uuid.UUID) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copySubmission(s), nil
}

func (m *memSubmissions) Mutate(_ context.Context, id uuid.UUID, fn func(s *model.Submission) error) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	work := copySubmission(s)
	if err := fn(work); err != nil {
		return nil, err
	}
	m.subs[id] = work
	return copySubmission(work), nil
}

func (m *memSubmissions) ListByUser(_ context.Context, userID int) ([]model.SubmissionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SubmissionSummary
	for _, s := range m.subs {
		if s.UserID == userID {
			out = append(out, model.SubmissionSummary{ID: s.ID, UserID: s.UserID, QuizID: s.QuizID, Status: s.Status, Score: s.Score})
		}
	}
	return out, nil
}

func (m *memSubmissions) ListByStatus(_ context.Context, status model.SubmissionStatus, page, perPage int) ([]model.SubmissionSummary, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SubmissionSummary
	for _, s := range m.subs {
		if s.Status == status {
			out = append(out, model.SubmissionSummary{ID: s.ID, UserID: s.UserID, QuizID: s.QuizID, Status: s.Status, Score: s.Score})
		}
	}
	return out, int64(len(out)), nil
}

type memUsers struct {
	mu    sync.Mutex
	users []*model.User
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id int) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return repository.ErrConflict
		}
	}
	u.ID = len(m.users) + 1
	m.users = append(m.users, u)
	return nil
}

// noCache always misses.
type noCache struct{}

func (noCache) Get(context.Context, uuid.UUID) (*model.Quiz, error)           { return nil, errMiss }
func (noCache) GetPaper(context.Context, uuid.UUID) (*model.QuizPaper, error) { return nil, errMiss }
func (noCache) Set(context.Context, *model.Quiz) error                        { return nil }
func (noCache) Invalidate(context.Context, uuid.UUID) error                   { return nil }

type draftKey struct {
	quiz uuid.UUID
	user int
}

type memDrafts struct {
	mu      sync.Mutex
	started map[draftKey]time.Time
	answers map[draftKey][]model.SubmitAnswerRequest
}

func (m *memDrafts) Start(_ context.Context, quizID uuid.UUID, userID int, at time.Time) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := draftKey{quizID, userID}
	if t, ok := m.started[k]; ok {
		return t, nil
	}
	m.started[k] = at
	return at, nil
}

func (m *memDrafts) StartedAt(_ context.Context, quizID uuid.UUID, userID int) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.started[draftKey{quizID, userID}]
	if !ok {
		return time.Time{}, errMiss
	}
	return t, nil
}

func (m *memDrafts) Save(_ context.Context, quizID uuid.UUID, userID int, ans model.SubmitAnswerRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := draftKey{quizID, userID}
	for i, a := range m.answers[k] {
		if a.QuestionID == ans.QuestionID {
			m.answers[k][i] = ans
			return nil
		}
	}
	m.answers[k] = append(m.answers[k], ans)
	return nil
}

func (m *memDrafts) Load(_ context.Context, quizID uuid.UUID, userID int) ([]model.SubmitAnswerRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.answers[draftKey{quizID, userID}], nil
}

func (m *memDrafts) Clear(_ context.Context, quizID uuid.UUID, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := draftKey{quizID, userID}
	delete(m.started, k)
	delete(m.answers, k)
	return nil
}

type memQueue struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (m *memQueue) Enqueue(_ context.Context, _ bool, ids ...uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, ids...)
	return nil
}
