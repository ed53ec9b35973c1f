package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pomodoro/tracker/internal/config"
	"pomodoro/tracker/internal/db"
	"pomodoro/tracker/internal/model"
	"pomodoro/tracker/internal/repository"
	"pomodoro/tracker/internal/service"
)

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pomodoro",
		Short: "Pomodoro timer with session history",
		Long: `pomodoro runs focused-work countdowns and records every pomodoro session.

Serve the HTTP API with "pomodoro serve" or drive a countdown in the terminal with "pomodoro run".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (defaults to $"+config.FileEnv+")")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newHistoryCmd())
	return rootCmd
}

// Execute runs the root command
func Execute(version string) error {
	if err := newRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// openDatabase opens the configured SQLite file and brings its schema up to date.
func openDatabase(cfg config.Config) (*sql.DB, error) {
	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.RunMigrations(database, db.MigrationSource(cfg.MigrationsDir)); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return database, nil
}

// signIn checks the account credentials against the local database.
func signIn(ctx context.Context, cfg config.Config, database *sql.DB, email, password string) (model.Principal, error) {
	authService := service.NewAuthService(
		repository.NewUserRepository(database),
		repository.NewPreferenceRepository(database),
		cfg.JWTSecret,
		cfg.TokenTTL,
	)
	result, apiErr := authService.Login(ctx, email, password)
	if apiErr != nil {
		return model.Principal{}, fmt.Errorf("sign in %s: %w", email, apiErr)
	}
	return result.Principal(), nil
}

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
}
