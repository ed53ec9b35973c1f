package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pomodoro/tracker/internal/repository"
	"pomodoro/tracker/internal/service"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded pomodoro sessions",
		RunE:  runHistory,
	}
	addCredentialFlags(cmd)
	cmd.Flags().String("filter", "all", "Sessions to show: all, completed or incomplete")
	cmd.Flags().Int("limit", 20, "Number of sessions to show")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	filter, _ := cmd.Flags().GetString("filter")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	principal, err := signIn(ctx, cfg, database, email, password)
	if err != nil {
		return err
	}

	history := service.NewHistoryService(repository.NewSessionRepository(database))
	sessions, apiErr := history.ListSessions(ctx, principal.ID, filter, limit)
	if apiErr != nil {
		return apiErr
	}
	stats, apiErr := history.Stats(ctx, principal.ID)
	if apiErr != nil {
		return apiErr
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return nil
	}

	fmt.Fprintf(out, "Sessions (%d of %d, %d completed, %s focused):\n\n",
		len(sessions), stats.TotalSessions, stats.CompletedSessions, formatClock(stats.CompletedFocusSeconds))
	for _, session := range sessions {
		fmt.Fprintln(out, renderSession(session))
	}
	return nil
}
