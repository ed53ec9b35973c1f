package cli

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pomodoro/tracker/internal/auth"
	"pomodoro/tracker/internal/config"
	"pomodoro/tracker/internal/repository"
	"pomodoro/tracker/internal/settings"
	"pomodoro/tracker/internal/timer"
)

// newTimerTicker drives the countdown; tests replace it.
var newTimerTicker timer.TickerFactory = timer.NewRealTicker

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pomodoro countdown in the terminal",
		Long: `Run signs in against the local database and starts a pomodoro.
Breaks and the following pomodoros follow the auto-start settings. Press Ctrl+C to stop;
an unfinished pomodoro stays in the history as incomplete.`,
		RunE: runTimer,
	}
	addCredentialFlags(cmd)
	cmd.Flags().String("title", "", "Title for the pomodoro sessions")
	cmd.Flags().String("settings", "", "Path to the YAML timer settings file")
	return cmd
}

func runTimer(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	title, _ := cmd.Flags().GetString("title")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	settingsPath, err := settingsFilePath(cmd, cfg)
	if err != nil {
		return err
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	principal, err := signIn(ctx, cfg, database, email, password)
	if err != nil {
		return err
	}
	session := auth.NewSession()
	session.SignIn(principal)

	manager := settings.NewManager(settings.NewFileStore(settingsPath))
	if _, err := manager.Load(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	recorder := timer.NewRecorder(repository.NewSessionRepository(database), timer.RecorderOptions{})
	defer recorder.Close()

	machine := timer.NewMachine(timer.Config{
		Settings:  manager,
		Principal: session,
		Sink:      recorder,
		NewTicker: newTimerTicker,
	})
	defer machine.Close()

	if title != "" {
		machine.SetTitle(title)
	}
	machine.Start()

	out := cmd.OutOrStdout()
	refresh := time.NewTicker(time.Second)
	defer refresh.Stop()

	for {
		fmt.Fprintf(out, "\r\033[K%s", renderStatus(machine.Snapshot()))
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			session.SignOut()
			log.Printf("stopped; settings in %s", settingsPath)
			return nil
		case <-refresh.C:
		}
	}
}

func settingsFilePath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if path, _ := cmd.Flags().GetString("settings"); path != "" {
		return path, nil
	}
	if cfg.SettingsFile != "" {
		return cfg.SettingsFile, nil
	}
	return settings.DefaultFilePath("pomodoro")
}
