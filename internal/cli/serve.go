package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pomodoro/tracker/internal/handler"
	"pomodoro/tracker/internal/repository"
	"pomodoro/tracker/internal/router"
	"pomodoro/tracker/internal/service"
	"pomodoro/tracker/internal/timer"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	userRepo := repository.NewUserRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	prefsRepo := repository.NewPreferenceRepository(database)

	recorder := timer.NewRecorder(sessionRepo, timer.RecorderOptions{})
	defer recorder.Close()

	authService := service.NewAuthService(userRepo, prefsRepo, cfg.JWTSecret, cfg.TokenTTL)
	historyService := service.NewHistoryService(sessionRepo)
	timerService := service.NewTimerService(prefsRepo, historyService, recorder, nil)
	defer timerService.Close()

	engine := router.New(authService, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, timerService),
		Timer:   handler.NewTimerHandler(timerService),
		Session: handler.NewSessionHandler(historyService),
	}, cfg.CORSOrigins)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("backend listening on :%s", cfg.Port)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
