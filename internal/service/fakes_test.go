package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade-backend/internal/config"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/repository"
)

var testLog = zerolog.Nop()

type fakeQuizStore struct {
	mu      sync.Mutex
	quizzes map[uuid.UUID]*model.Quiz
	gets    int
	// referenced reports whether submissions exist for a quiz.
	referenced func(quizID uuid.UUID) bool
}

func newFakeQuizStore(quizzes ...*model.Quiz) *fakeQuizStore {
	f := &fakeQuizStore{quizzes: make(map[uuid.UUID]*model.Quiz)}
	for _, q := range quizzes {
		f.quizzes[q.ID] = q
	}
	return f
}

func (f *fakeQuizStore) List(_ context.Context) ([]model.QuizSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.QuizSummary
	for _, q := range f.quizzes {
		out = append(out, model.QuizSummary{ID: q.ID, Title: q.Title, QuestionCount: len(q.Questions), TotalPoints: q.TotalPoints()})
	}
	return out, nil
}

func (f *fakeQuizStore) Get(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	q, ok := f.quizzes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return q, nil
}

func (f *fakeQuizStore) Create(_ context.Context, q *model.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	f.quizzes[q.ID] = q
	return nil
}

func (f *fakeQuizStore) ReplaceQuestions(_ context.Context, q *model.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quizzes[q.ID]; !ok {
		return repository.ErrNotFound
	}
	f.quizzes[q.ID] = q
	return nil
}

func (f *fakeQuizStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quizzes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.quizzes, id)
	return nil
}

func (f *fakeQuizStore) Load(_ context.Context, quizzes []*model.Quiz, policy repository.LoadPolicy) (repository.LoadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res repository.LoadResult
	if policy == repository.LoadPolicyReplace {
		res.Deleted = len(f.quizzes)
		f.quizzes = make(map[uuid.UUID]*model.Quiz)
	}
	for _, q := range quizzes {
		found := false
		for id, existing := range f.quizzes {
			if existing.Title == q.Title {
				q.ID = id
				found = true
				break
			}
		}
		if found && f.referenced != nil && f.referenced(q.ID) {
			kept := *f.quizzes[q.ID]
			kept.Title, kept.Description, kept.TimeLimitMinutes = q.Title, q.Description, q.TimeLimitMinutes
			f.quizzes[q.ID] = &kept
			res.Skipped++
			res.SkippedTitles = append(res.SkippedTitles, q.Title)
			continue
		}
		if found {
			res.Updated++
		} else {
			q.ID = uuid.New()
			res.Created++
		}
		f.quizzes[q.ID] = q
	}
	return res, nil
}

type fakeSubmissionStore struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*model.Submission
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{subs: make(map[uuid.UUID]*model.Submission)}
}

func cloneSubmission(s *model.Submission) *model.Submission {
	c := *s
	c.Answers = make([]model.Answer, len(s.Answers))
	for i, a := range s.Answers {
		a.SelectedChoiceIDs = append([]uuid.UUID(nil), a.SelectedChoiceIDs...)
		if a.PointsAwarded != nil {
			p := *a.PointsAwarded
			a.PointsAwarded = &p
		}
		c.Answers[i] = a
	}
	if s.Score != nil {
		v := *s.Score
		c.Score = &v
	}
	return &c
}

func (f *fakeSubmissionStore) hasQuiz(quizID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.QuizID == quizID {
			return true
		}
	}
	return false
}

func (f *fakeSubmissionStore) Create(_ context.Context, s *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[s.ID] = cloneSubmission(s)
	return nil
}

func (f *fakeSubmissionStore) Get(_ context.Context, id uuid.UUID) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSubmission(s), nil
}

func (f *fakeSubmissionStore) Mutate(_ context.Context, id uuid.UUID, fn func(s *model.Submission) error) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	work := cloneSubmission(s)
	if err := fn(work); err != nil {
		return nil, err
	}
	f.subs[id] = work
	return cloneSubmission(work), nil
}

func (f *fakeSubmissionStore) ListByUser(_ context.Context, userID int) ([]model.SubmissionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SubmissionSummary
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, summarize(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (f *fakeSubmissionStore) ListByStatus(_ context.Context, status model.SubmissionStatus, page, perPage int) ([]model.SubmissionSummary, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.SubmissionSummary
	for _, s := range f.subs {
		if s.Status == status {
			all = append(all, summarize(s))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.Before(all[j].StartedAt) })
	total := int64(len(all))
	start := (page - 1) * perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func summarize(s *model.Submission) model.SubmissionSummary {
	return model.SubmissionSummary{
		ID: s.ID, UserID: s.UserID, QuizID: s.QuizID,
		StartedAt: s.StartedAt, EndedAt: s.EndedAt, Score: s.Score, Status: s.Status,
	}
}

type fakeUserStore struct {
	mu    sync.Mutex
	users []*model.User
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id int) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return repository.ErrConflict
		}
	}
	u.ID = len(f.users) + 1
	u.CreatedAt = time.Now()
	f.users = append(f.users, u)
	return nil
}

type fakeQuizCache struct {
	mu          sync.Mutex
	quizzes     map[uuid.UUID]*model.Quiz
	invalidated []uuid.UUID
}

func newFakeQuizCache() *fakeQuizCache {
	return &fakeQuizCache{quizzes: make(map[uuid.UUID]*model.Quiz)}
}

func (f *fakeQuizCache) Get(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quizzes[id]
	if !ok {
		return nil, errMiss
	}
	return q, nil
}

func (f *fakeQuizCache) GetPaper(ctx context.Context, id uuid.UUID) (*model.QuizPaper, error) {
	q, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := q.Paper()
	return &p, nil
}

func (f *fakeQuizCache) Set(_ context.Context, q *model.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quizzes[q.ID] = q
	return nil
}

func (f *fakeQuizCache) Invalidate(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.quizzes, id)
	f.invalidated = append(f.invalidated, id)
	return nil
}

type draftKey struct {
	quiz uuid.UUID
	user int
}

type fakeDraftStore struct {
	mu      sync.Mutex
	started map[draftKey]time.Time
	answers map[draftKey]map[uuid.UUID]model.SubmitAnswerRequest
}

func newFakeDraftStore() *fakeDraftStore {
	return &fakeDraftStore{
		started: make(map[draftKey]time.Time),
		answers: make(map[draftKey]map[uuid.UUID]model.SubmitAnswerRequest),
	}
}

func (f *fakeDraftStore) Start(_ context.Context, quizID uuid.UUID, userID int, at time.Time) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := draftKey{quizID, userID}
	if t, ok := f.started[k]; ok {
		return t, nil
	}
	f.started[k] = at
	return at, nil
}

func (f *fakeDraftStore) StartedAt(_ context.Context, quizID uuid.UUID, userID int) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.started[draftKey{quizID, userID}]
	if !ok {
		return time.Time{}, errMiss
	}
	return t, nil
}

func (f *fakeDraftStore) Save(_ context.Context, quizID uuid.UUID, userID int, ans model.SubmitAnswerRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := draftKey{quizID, userID}
	if f.answers[k] == nil {
		f.answers[k] = make(map[uuid.UUID]model.SubmitAnswerRequest)
	}
	f.answers[k][ans.QuestionID] = ans
	return nil
}

func (f *fakeDraftStore) Load(_ context.Context, quizID uuid.UUID, userID int) ([]model.SubmitAnswerRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SubmitAnswerRequest
	for _, a := range f.answers[draftKey{quizID, userID}] {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeDraftStore) Clear(_ context.Context, quizID uuid.UUID, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := draftKey{quizID, userID}
	delete(f.answers, k)
	delete(f.started, k)
	return nil
}

type fakeQueue struct {
	mu    sync.Mutex
	ids   []uuid.UUID
	force bool
}

func (f *fakeQueue) Enqueue(_ context.Context, force bool, ids ...uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.force = force
	f.ids = append(f.ids, ids...)
	return nil
}

type missError struct{}

func (missError) Error() string { return "miss" }

var errMiss error = missError{}

// fixture wires every service over fakes.
type fixture struct {
	quizzes *fakeQuizStore
	subs    *fakeSubmissionStore
	cache   *fakeQuizCache
	drafts  *fakeDraftStore
	queue   *fakeQueue
	quizSvc *QuizService
	subSvc  *SubmissionService
	review  *ReviewService
	clock   time.Time
}

func newFixture(quizzes ...*model.Quiz) *fixture {
	f := &fixture{
		quizzes: newFakeQuizStore(quizzes...),
		subs:    newFakeSubmissionStore(),
		cache:   newFakeQuizCache(),
		drafts:  newFakeDraftStore(),
		queue:   &fakeQueue{},
		clock:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.quizzes.referenced = f.subs.hasQuiz
	f.quizSvc = NewQuizService(f.quizzes, f.cache, testLog)
	f.subSvc = NewSubmissionService(f.quizSvc, f.subs, f.drafts, testLog)
	f.subSvc.now = func() time.Time { return f.clock }
	f.review = NewReviewService(f.quizSvc, f.subs, f.queue, true, testLog)
	return f
}

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: 4}
}

// scenarioQuiz holds one question of each type: a single choice worth 2,
// a multi choice worth 3 and a coding question worth 5.
type scenarioQuiz struct {
	quiz                  *model.Quiz
	single, multi, coding *model.Question
	singleRight           uuid.UUID
	singleWrong           uuid.UUID
	multiRight            []uuid.UUID
	multiWrong            uuid.UUID
}

func newScenarioQuiz() *scenarioQuiz {
	sq := &scenarioQuiz{}
	quizID := uuid.New()
	sq.singleRight, sq.singleWrong = uuid.New(), uuid.New()
	sq.multiRight = []uuid.UUID{uuid.New(), uuid.New()}
	sq.multiWrong = uuid.New()

	single := model.Question{ID: uuid.New(), QuizID: quizID, Text: "Capital of France?", Type: model.QuestionTypeSingleChoice, Points: 2, Position: 0,
		Choices: []model.Choice{{ID: sq.singleRight, Text: "Paris", IsCorrect: true}, {ID: sq.singleWrong, Text: "Rome"}}}
	multi := model.Question{ID: uuid.New(), QuizID: quizID, Text: "Even numbers?", Type: model.QuestionTypeMultiChoice, Points: 3, Position: 1,
		Choices: []model.Choice{{ID: sq.multiRight[0], Text: "2", IsCorrect: true}, {ID: sq.multiRight[1], Text: "4", IsCorrect: true}, {ID: sq.multiWrong, Text: "5"}}}
	coding := model.Question{ID: uuid.New(), QuizID: quizID, Text: "Reverse a string", Type: model.QuestionTypeCoding, Points: 5, Position: 2}

	sq.quiz = &model.Quiz{ID: quizID, Title: "Mixed", TimeLimitMinutes: 30, Questions: []model.Question{single, multi, coding}}
	sq.single, sq.multi, sq.coding = &sq.quiz.Questions[0], &sq.quiz.Questions[1], &sq.quiz.Questions[2]
	return sq
}
