package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/repository"
)

func TestQuizService_GetWarmsCache(t *testing.T) {
	sq := newScenarioQuiz()
	f := newFixture(sq.quiz)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.quizSvc.Get(ctx, sq.quiz.ID); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if f.quizzes.gets != 1 {
		t.Errorf("store hit %d times, want 1", f.quizzes.gets)
	}

	paper, err := f.quizSvc.Paper(ctx, sq.quiz.ID)
	if err != nil {
		t.Fatalf("Paper: %v", err)
	}
	if len(paper.Questions) != 3 || len(paper.Questions[0].Choices) != 2 {
		t.Errorf("paper = %+v", paper)
	}
}

func TestQuizService_CreateValidates(t *testing.T) {
	f := newFixture()
	err := f.quizSvc.Create(context.Background(), &model.Quiz{Title: ""})
	if !errors.Is(err, model.ErrInvalidEntity) {
		t.Fatalf("err = %v, want ErrInvalidEntity", err)
	}
	if len(f.quizzes.quizzes) != 0 {
		t.Error("invalid quiz stored")
	}
}

func TestQuizService_ReplaceAndDeleteInvalidate(t *testing.T) {
	sq := newScenarioQuiz()
	f := newFixture(sq.quiz)
	ctx := context.Background()

	_, _ = f.quizSvc.Get(ctx, sq.quiz.ID)

	updated := *sq.quiz
	updated.Title = "Mixed v2"
	if err := f.quizSvc.Replace(ctx, &updated); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if _, err := f.cache.Get(ctx, sq.quiz.ID); err == nil {
		t.Error("cache entry survived Replace")
	}

	got, _ := f.quizSvc.Get(ctx, sq.quiz.ID)
	if got.Title != "Mixed v2" {
		t.Errorf("title = %q", got.Title)
	}

	if err := f.quizSvc.Delete(ctx, sq.quiz.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.quizSvc.Get(ctx, sq.quiz.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Get after Delete err = %v", err)
	}
}

func TestQuizService_LoadReplaceDropsStaleCache(t *testing.T) {
	sq := newScenarioQuiz()
	f := newFixture(sq.quiz)
	ctx := context.Background()
	_, _ = f.quizSvc.Get(ctx, sq.quiz.ID)

	fresh := &model.Quiz{Title: "Fresh", Questions: []model.Question{{Text: "Why?", Type: model.QuestionTypeCoding, Points: 1}}}
	res, err := f.quizSvc.Load(ctx, []*model.Quiz{fresh}, repository.LoadPolicyReplace)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Deleted != 1 || res.Created != 1 {
		t.Errorf("result = %+v", res)
	}
	if _, err := f.cache.Get(ctx, sq.quiz.ID); err == nil {
		t.Error("deleted quiz still cached")
	}
}

func loopsDocument(description string, questions ...string) *model.Quiz {
	q := &model.Quiz{Title: "Loops", Description: description, TimeLimitMinutes: 20}
	for i, text := range questions {
		q.Questions = append(q.Questions, model.Question{
			ID: uuid.New(), Text: text, Type: model.QuestionTypeCoding, Points: 5, Position: i,
		})
	}
	return q
}

func TestQuizService_ReloadKeepsQuestionsOnceSubmitted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.quizSvc.Load(ctx, []*model.Quiz{loopsDocument("v1", "Sum a slice")}, repository.LoadPolicyUpsert)
	if err != nil || res.Created != 1 {
		t.Fatalf("first load = %+v, %v", res, err)
	}
	res, err = f.quizSvc.Load(ctx, []*model.Quiz{loopsDocument("v1", "Sum a slice")}, repository.LoadPolicyUpsert)
	if err != nil || res.Updated != 1 || res.Skipped != 0 {
		t.Fatalf("reload before submissions = %+v, %v", res, err)
	}

	quizzes, _ := f.quizSvc.List(ctx)
	if len(quizzes) != 1 {
		t.Fatalf("quizzes = %d, want 1", len(quizzes))
	}
	quiz, err := f.quizSvc.Get(ctx, quizzes[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	question := quiz.Questions[0]
	sub, err := f.subSvc.Submit(ctx, 7, quiz.ID, []model.SubmitAnswerRequest{
		{QuestionID: question.ID, Code: "for _, v := range xs { total += v }"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	res, err = f.quizSvc.Load(ctx, []*model.Quiz{loopsDocument("v2", "Sum a slice", "Reverse a slice")}, repository.LoadPolicyUpsert)
	if err != nil {
		t.Fatalf("reload after submission: %v", err)
	}
	if res.Skipped != 1 || res.Updated != 0 || res.Created != 0 {
		t.Errorf("result = %+v, want one skipped", res)
	}
	if len(res.SkippedTitles) != 1 || res.SkippedTitles[0] != "Loops" {
		t.Errorf("skipped titles = %v", res.SkippedTitles)
	}

	got, err := f.quizSvc.Get(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("Get after reload: %v", err)
	}
	if got.Description != "v2" {
		t.Errorf("description = %q, want v2", got.Description)
	}
	if len(got.Questions) != 1 || got.Questions[0].ID != question.ID {
		t.Errorf("questions replaced: %+v", got.Questions)
	}

	if _, err := f.subSvc.Detail(ctx, 7, sub.ID); err != nil {
		t.Errorf("Detail after reload: %v", err)
	}
}
