package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codearena/internal/admin"
	"codearena/internal/auth"
	"codearena/internal/broadcast"
	"codearena/internal/contest"
	"codearena/internal/grading"
	"codearena/internal/leaderboard"
	"codearena/internal/question"
	"codearena/internal/sandbox"
	"codearena/internal/store"
	"codearena/internal/store/db"
	"codearena/internal/submission"
	"codearena/pkg/logger"
)

const defaultConfigPath = "configs/server.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	handle, err := db.Open(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = handle.Close()
	}()
	st := store.New(handle, appCfg.Database.Driver)

	runner, err := sandbox.New(appCfg.Sandbox)
	if err != nil {
		logger.Error(context.Background(), "init sandbox failed", zap.Error(err))
		return
	}
	grader := grading.New(runner, appCfg.Grading.Workers)

	hub := broadcast.NewHub()
	board := leaderboard.New(appCfg.Redis, st.Teams)
	defer func() {
		_ = board.Close()
	}()

	locks := submission.NewTeamLocker()
	authSvc, err := auth.NewService(appCfg.Auth, st.Teams)
	if err != nil {
		logger.Error(context.Background(), "init auth failed", zap.Error(err))
		return
	}
	submissionSvc := submission.NewService(st, grader, locks, hub, board)
	contestSvc := contest.NewService(st, locks, hub, board)
	questionSvc := question.NewService(st)
	adminSvc := admin.NewService(st, board)

	router := buildRouter(routerDeps{
		auth:       authSvc,
		hub:        hub,
		authCtl:    auth.NewController(authSvc),
		contest:    contest.NewController(contestSvc),
		question:   question.NewController(questionSvc),
		submission: submission.NewController(submissionSvc),
		admin:      admin.NewController(adminSvc),
	})

	httpServer := &http.Server{
		Addr:         appCfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "arena server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

type routerDeps struct {
	auth       *auth.Service
	hub        *broadcast.Hub
	authCtl    *auth.Controller
	contest    *contest.Controller
	question   *question.Controller
	submission *submission.Controller
	admin      *admin.Controller
}

func buildRouter(deps routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(traceContext())
	router.Use(requestLogger())

	api := router.Group("/api")

	api.POST("/auth/login", deps.authCtl.TeamLogin)
	api.POST("/auth/admin/login", deps.authCtl.AdminLogin)
	api.GET("/contest/status", deps.contest.Status)

	team := api.Group("", auth.TeamAuth(deps.auth))
	team.GET("/questions", deps.question.List)
	team.GET("/contest/me", deps.contest.Me)
	team.GET("/submissions/drafts", deps.submission.Drafts)
	team.POST("/submissions/draft", deps.submission.SaveDraft)
	team.POST("/submissions/finalize", deps.submission.Finalize)
	team.POST("/code/run", deps.submission.Run)
	team.POST("/contest/violation", deps.contest.ReportViolation)

	adminAPI := api.Group("/admin", auth.AdminAuth(deps.auth))
	adminAPI.POST("/contest/start", deps.contest.Start)
	adminAPI.POST("/contest/stop", deps.contest.Stop)
	adminAPI.POST("/contest/announce", deps.contest.Announce)
	adminAPI.POST("/teams/disqualify", deps.contest.Disqualify)
	adminAPI.GET("/teams", deps.admin.Teams)
	adminAPI.GET("/teams/:teamID", deps.admin.TeamDetail)
	adminAPI.GET("/stats", deps.admin.Stats)
	adminAPI.GET("/leaderboard", deps.admin.Leaderboard)
	adminAPI.GET("/questions", deps.question.ListFull)
	adminAPI.POST("/questions", deps.question.Import)

	// Team sockets authenticate via token; the hub also accepts anonymous
	// spectators for broadcast-only events.
	router.GET("/ws", broadcast.Handler(deps.hub))
	router.GET("/ws/team", auth.TeamAuth(deps.auth), broadcast.Handler(deps.hub))

	return router
}
