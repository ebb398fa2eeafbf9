package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizgrade-backend/internal/config"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuth() *service.AuthService {
	return service.NewAuthService(&config.Config{JWTSecret: "mw-secret", JWTExpiry: time.Hour, BcryptCost: 4}, nil)
}

func TestRoleGuards(t *testing.T) {
	auth := newAuth()
	studentTok, _ := auth.GenerateToken(1, model.RoleStudent, nil)
	adminTok, _ := auth.GenerateToken(2, model.RoleAdmin, model.PermissionsFor(model.RoleAdmin))

	r := gin.New()
	r.GET("/student", RequireStudent(auth), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/admin", RequireAdmin(auth), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/grade", RequireAdmin(auth), RequirePermission(model.PermissionSubmissionsGrade), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", GetClaims(c).UserID)
	})
	r.GET("/any", RequireAuth(auth), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		path  string
		token string
		want  int
	}{
		{"/student", studentTok, http.StatusOK},
		{"/student", adminTok, http.StatusForbidden},
		{"/admin", studentTok, http.StatusForbidden},
		{"/admin", "", http.StatusUnauthorized},
		{"/admin", "garbage", http.StatusUnauthorized},
		{"/grade", adminTok, http.StatusOK},
		{"/any", studentTok, http.StatusOK},
		{"/any", adminTok, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s with %.10q: status %d, want %d", tt.path, tt.token, w.Code, tt.want)
		}
	}
}

func TestRequirePermission_Denied(t *testing.T) {
	auth := newAuth()
	tok, _ := auth.GenerateToken(2, model.RoleAdmin, []string{string(model.PermissionQuizzesRead)})

	r := gin.New()
	r.GET("/grade", RequireAdmin(auth), RequirePermission(model.PermissionSubmissionsGrade), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/read", RequireAdmin(auth), RequirePermission(model.PermissionQuizzesRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/read-and-grade", RequireAdmin(auth),
		RequirePermission(model.PermissionQuizzesRead, model.PermissionSubmissionsGrade),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	tests := []struct {
		path string
		want int
	}{
		{"/grade", http.StatusForbidden},
		{"/read", http.StatusOK},
		{"/read-and-grade", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s: status=%d, want %d", tt.path, w.Code, tt.want)
		}
		if tt.want == http.StatusForbidden && !strings.Contains(w.Body.String(), "PERMISSION_DENIED") {
			t.Errorf("%s: body=%s", tt.path, w.Body.String())
		}
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other visitors have their own bucket")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("bucket should refill after the interval")
	}
}

func TestBrotli(t *testing.T) {
	big := strings.Repeat("quiz ", 500)

	r := gin.New()
	r.Use(Brotli(64, 5))
	r.GET("/big", func(c *gin.Context) { c.JSON(http.StatusCreated, gin.H{"text": big}) })
	r.GET("/small", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	req := httptest.NewRequest(http.MethodGet, "/big", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=0.9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if w.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("expected br encoding, headers %v", w.Header())
	}
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !strings.Contains(string(plain), big) {
		t.Error("decompressed body mismatch")
	}

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Content-Encoding") != "" || !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Errorf("small body should pass through: %v %s", w.Header(), w.Body.String())
	}
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/r", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/r", nil))
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}
}
