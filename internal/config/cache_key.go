package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuizKey returns the cache key for a quiz with its answer key
func (r *CacheKeyStruct) QuizKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:full", quizID)
}

// QuizPaperKey returns the cache key for a quiz's student payload
func (r *CacheKeyStruct) QuizPaperKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:paper", quizID)
}

// DraftAnswersKey returns the cache key for a user's autosaved answers
func (r *CacheKeyStruct) DraftAnswersKey(quizID string, userID int) string {
	return fmt.Sprintf("user:%d:quiz:%s:draft", userID, quizID)
}

// DraftStartKey returns the cache key for when a user opened a quiz
func (r *CacheKeyStruct) DraftStartKey(quizID string, userID int) string {
	return fmt.Sprintf("user:%d:quiz:%s:started_at", userID, quizID)
}

var CacheKey = NewCacheKeyStruct()
