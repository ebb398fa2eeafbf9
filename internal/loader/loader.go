// Package loader imports quizzes from JSON or YAML documents.
//
// A document is either a list of quizzes or an object with a "quizzes" list.
// Question types accept the canonical names and the short forms MCQ, MSQ and
// CODE; points default to 1.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/repository"
	"github.com/stemsi/quizgrade-backend/internal/validator"
	"gopkg.in/yaml.v2"
)

// Format is a supported document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyDocument is returned when a document holds no quizzes.
	ErrEmptyDocument = errors.New("document contains no quizzes")

	// ErrMalformedDocument is returned when a document cannot be decoded.
	ErrMalformedDocument = errors.New("malformed document")
)

// InvalidQuizError reports the field errors of one quiz in a document.
type InvalidQuizError struct {
	Index  int
	Title  string
	Fields map[string]string
}

func (e *InvalidQuizError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("quiz #%d %q: %s", e.Index, e.Title, strings.Join(parts, "; "))
}

// Store receives the parsed quizzes.
type Store interface {
	Load(ctx context.Context, quizzes []*model.Quiz, policy repository.LoadPolicy) (repository.LoadResult, error)
}

type document struct {
	Quizzes []model.CreateQuizRequest `json:"quizzes" yaml:"quizzes"`
}

// Loader parses documents and hands them to a Store.
type Loader struct {
	store Store
	log   zerolog.Logger
}

// New creates a Loader.
func New(store Store, log zerolog.Logger) *Loader {
	return &Loader{store: store, log: log.With().Str("component", "loader").Logger()}
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// LoadFile parses the file at path and stores its quizzes under policy.
func (l *Loader) LoadFile(ctx context.Context, path string, policy repository.LoadPolicy) (repository.LoadResult, error) {
	format, err := FormatOf(path)
	if err != nil {
		return repository.LoadResult{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return repository.LoadResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return l.Load(ctx, f, format, policy)
}

// Load parses r and stores its quizzes under policy. Nothing is stored when
// any quiz in the document is invalid.
func (l *Loader) Load(ctx context.Context, r io.Reader, format Format, policy repository.LoadPolicy) (repository.LoadResult, error) {
	quizzes, err := Parse(r, format)
	if err != nil {
		return repository.LoadResult{}, err
	}

	for _, q := range quizzes {
		l.warnMalformed(q)
	}

	return l.store.Load(ctx, quizzes, policy)
}

// Parse decodes and validates a document.
func Parse(r io.Reader, format Format) ([]*model.Quiz, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var reqs []model.CreateQuizRequest
	switch format {
	case FormatJSON:
		reqs, err = decodeJSON(raw)
	case FormatYAML:
		reqs, err = decodeYAML(raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, ErrEmptyDocument
	}

	quizzes := make([]*model.Quiz, len(reqs))
	for i := range reqs {
		if fields := validator.Struct(&reqs[i]); fields != nil {
			return nil, &InvalidQuizError{Index: i, Title: reqs[i].Title, Fields: fields}
		}
		quizzes[i] = reqs[i].ToQuiz()
		if err := quizzes[i].Validate(); err != nil {
			return nil, fmt.Errorf("quiz #%d %q: %w", i, reqs[i].Title, err)
		}
	}
	return quizzes, nil
}

func decodeJSON(raw []byte) ([]model.CreateQuizRequest, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []model.CreateQuizRequest
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: json: %v", ErrMalformedDocument, err)
		}
		return list, nil
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrMalformedDocument, err)
	}
	return doc.Quizzes, nil
}

func decodeYAML(raw []byte) ([]model.CreateQuizRequest, error) {
	var probe interface{}
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", ErrMalformedDocument, err)
	}

	if _, isList := probe.([]interface{}); isList {
		var list []model.CreateQuizRequest
		if err := yaml.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: yaml: %v", ErrMalformedDocument, err)
		}
		return list, nil
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", ErrMalformedDocument, err)
	}
	return doc.Quizzes, nil
}

// warnMalformed logs choice questions whose correctness flags can never be
// matched. They load anyway and grade to zero.
func (l *Loader) warnMalformed(q *model.Quiz) {
	for _, qs := range q.Questions {
		correct := len(qs.CorrectChoiceIDs())
		switch {
		case qs.Type == model.QuestionTypeSingleChoice && correct != 1,
			qs.Type == model.QuestionTypeMultiChoice && correct == 0:
			l.log.Warn().
				Str("quiz", q.Title).
				Int("order", qs.Position).
				Str("question_type", string(qs.Type)).
				Int("correct_choices", correct).
				Msg("Question cannot be answered correctly")
		}
	}
}
