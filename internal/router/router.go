package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizgrade-backend/internal/config"
	"github.com/stemsi/quizgrade-backend/internal/handler"
	"github.com/stemsi/quizgrade-backend/internal/middleware"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/response"
	"github.com/stemsi/quizgrade-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Quiz       *handler.QuizHandler
	Submission *handler.SubmissionHandler
	Review     *handler.ReviewHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background helpers such as the rate limiter sweeper.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli(middleware.DefaultCompressMinLength, 5))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(ctx, 30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudent(authService))
	{
		studentAPI.GET("/quizzes", handlers.Quiz.ListQuizzes)
		studentAPI.GET("/quizzes/:quiz_id", handlers.Quiz.StartQuiz)
		studentAPI.POST("/quizzes/:quiz_id/submit", handlers.Submission.SubmitQuiz)

		results := studentAPI.Group("/submissions")
		results.Use(middleware.NoStore())
		{
			results.GET("", handlers.Submission.History)
			results.GET("/:submission_id", handlers.Submission.Detail)
		}
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/quizzes/:quiz_id/stream", handlers.WS.QuizStream)
	}

	// ─── 4. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdmin(authService))
	{
		// Accounts
		adminAPI.POST("/users",
			middleware.RequirePermission(model.PermissionUsersWrite),
			handlers.Auth.CreateUser,
		)

		// Quiz management
		adminAPI.GET("/quizzes",
			middleware.RequirePermission(model.PermissionQuizzesRead),
			handlers.Quiz.ListQuizzes,
		)
		adminAPI.GET("/quizzes/:quiz_id",
			middleware.RequirePermission(model.PermissionQuizzesRead),
			handlers.Quiz.GetQuiz,
		)
		adminAPI.POST("/quizzes",
			middleware.RequirePermission(model.PermissionQuizzesWrite),
			handlers.Quiz.CreateQuiz,
		)
		adminAPI.POST("/quizzes/import",
			middleware.RequirePermission(model.PermissionQuizzesWrite),
			handlers.Quiz.ImportQuizzes,
		)
		adminAPI.PUT("/quizzes/:quiz_id",
			middleware.RequirePermission(model.PermissionQuizzesWrite),
			handlers.Quiz.ReplaceQuiz,
		)
		adminAPI.DELETE("/quizzes/:quiz_id",
			middleware.RequirePermission(model.PermissionQuizzesWrite),
			handlers.Quiz.DeleteQuiz,
		)

		// Review
		review := adminAPI.Group("/submissions")
		review.Use(middleware.NoStore())
		{
			review.GET("/awaiting",
				middleware.RequirePermission(model.PermissionSubmissionsRead),
				handlers.Review.ListAwaiting,
			)
			review.GET("/:submission_id",
				middleware.RequirePermission(model.PermissionSubmissionsRead),
				handlers.Submission.Detail,
			)
			review.PATCH("/:submission_id/answers/:answer_id",
				middleware.RequirePermission(model.PermissionSubmissionsGrade),
				handlers.Review.GradeAnswer,
			)
			review.POST("/:submission_id/finalize",
				middleware.RequirePermission(model.PermissionSubmissionsGrade),
				handlers.Review.Finalize,
			)
			review.POST("/finalize",
				middleware.RequirePermission(model.PermissionSubmissionsGrade),
				handlers.Review.BulkFinalize,
			)
		}
	}

	return router
}
