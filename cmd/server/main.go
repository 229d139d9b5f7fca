package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codearena/internal/api"
	"codearena/internal/app/service"
	"codearena/internal/common/security"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/cache"
	"codearena/internal/platform/config"
	"codearena/internal/platform/database"
	"codearena/internal/platform/judge0"
	"codearena/internal/platform/logging"

	"go.uber.org/zap"
)

func main() {
	config.Load()

	log := logging.New()
	defer log.Sync()

	security.InitJWT()

	database.Connect()
	defer database.Close()
	log.Info("database connected", zap.String("host", config.AppConfig.DBHost))

	cache.ConnectRedis()
	defer cache.CloseRedis()
	log.Info("redis connected", zap.String("addr", config.AppConfig.RedisAddr))

	userRepo := repository.NewPgUserRepository(database.DB)
	questionRepo := repository.NewPgQuestionRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)

	executor := judge0.NewClient(judge0.Config{
		BaseURL: config.AppConfig.Judge0BaseURL,
		APIKey:  config.AppConfig.Judge0APIKey,
		APIHost: config.AppConfig.Judge0APIHost,
	}, log)

	authService := service.NewAuthService(userRepo)
	questionService := service.NewQuestionService(questionRepo, config.AppConfig.DefaultScoreWeight, log)
	leaderboardService := service.NewLeaderboardService(submissionRepo, cache.RDB, config.AppConfig.LeaderboardCacheTTL, log)
	judgeService := service.NewJudgeService(
		executor,
		questionRepo,
		submissionRepo,
		userRepo,
		leaderboardService,
		service.JudgeConfig{
			ExecutionTimeout: config.AppConfig.ExecutionTimeout,
			CaseConcurrency:  config.AppConfig.CaseConcurrency,
		},
		log,
	)

	router := api.NewRouter(authService, questionService, judgeService, leaderboardService)

	server := &http.Server{
		Addr:        ":" + config.AppConfig.APIPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// Submissions stay open for the whole evaluation, so the write budget
		// must outlast the router's request timeout.
		WriteTimeout: 4 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("server starting", zap.String("port", config.AppConfig.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}
