package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbonduro/phototasks/internal/auth"
	"github.com/vbonduro/phototasks/internal/web"
)

const maxLoadBackoff = time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			// Requests get 503 until the stored tasks are in memory.
			go loadTasks(cmd.Context(), a)

			server := web.NewServer(a.tasks, auth.NewSessions(), a.photos, a.logger)
			if err := server.ListenAndServe(a.cfg.ListenAddr); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
}

// loadTasks retries Load with backoff until it succeeds or ctx ends. The
// service refuses writes while the stored list is unreadable.
func loadTasks(ctx context.Context, a *app) {
	delay := time.Second
	for {
		err := a.tasks.Load(ctx)
		if err == nil {
			return
		}
		a.logger.Error("failed to load tasks", "error", err, "retry_in", delay.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, maxLoadBackoff)
	}
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print a user's tasks as JSON",
		Long: `Print the tasks owned by a user, oldest first.

Examples:
  phototasks list --owner=a@b.com
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			if owner == "" {
				return fmt.Errorf("--owner is required")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.tasks.Load(cmd.Context()); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a.tasks.ListByOwner(owner))
		},
	}
	cmd.Flags().String("owner", "", "Owner email")
	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every task and its photo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.tasks.Load(cmd.Context()); err != nil {
				return err
			}
			if err := a.tasks.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all tasks removed")
			return nil
		},
	}
}
