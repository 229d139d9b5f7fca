package api

import (
	"net/http"
	"time"

	"codearena/internal/api/handler"
	"codearena/internal/app/service"
	"codearena/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	questionService *service.QuestionService,
	judgeService *service.JudgeService,
	leaderboardService *service.LeaderboardService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	// Full evaluations block on the execution backend for every hidden case,
	// so the request budget has to cover the slowest submission.
	r.Use(chiMiddleware.Timeout(3 * time.Minute))

	// Searches "Authorization: Bearer T" and puts verified claims in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Group(func(publicAuth chi.Router) {
			authHandler.RegisterRoutes(publicAuth)
		})

		questionHandler := handler.NewQuestionHandler(questionService)
		v1.Group(questionHandler.RegisterRoutes)

		judgeHandler := handler.NewJudgeHandler(judgeService)
		v1.Route("/judge", judgeHandler.RegisterRoutes)

		leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
		v1.Route("/leaderboard", leaderboardHandler.RegisterRoutes)
	})

	return r
}
