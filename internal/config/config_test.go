package config

import (
	"testing"
	"time"
)

func TestParseOrigins(t *testing.T) {
	if got := parseOrigins(""); got != nil {
		t.Errorf("parseOrigins(\"\") = %v, want nil", got)
	}
	got := parseOrigins(" https://a.test ,,https://b.test")
	if len(got) != 2 || got[0] != "https://a.test" || got[1] != "https://b.test" {
		t.Errorf("parseOrigins = %v", got)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("QUIZ_CACHE_TTL_MINUTES", "5")
	t.Setenv("FINALIZE_BATCH_SIZE", "not-a-number")
	t.Setenv("REQUIRE_FULLY_GRADED", "false")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q", cfg.ServerPort)
	}
	if cfg.QuizCacheTTL != 5*time.Minute {
		t.Errorf("QuizCacheTTL = %v", cfg.QuizCacheTTL)
	}
	if cfg.FinalizeBatchSize != 50 {
		t.Errorf("FinalizeBatchSize = %d, want fallback 50", cfg.FinalizeBatchSize)
	}
	if cfg.RequireFullyGraded {
		t.Error("RequireFullyGraded = true, want false")
	}
}

func TestCacheKeys(t *testing.T) {
	if got := CacheKey.DraftAnswersKey("q1", 4); got != "user:4:quiz:q1:draft" {
		t.Errorf("DraftAnswersKey = %q", got)
	}
	if got := CacheKey.QuizKey("q1"); got != "quiz:q1:full" {
		t.Errorf("QuizKey = %q", got)
	}
}
