package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/strideapp/habitsync/internal/models"
)

// NewPendingCmd creates the pending command
func NewPendingCmd() *cobra.Command {
	var userFlag string

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List records awaiting sync",
		Long:  "List the habits and completions that have not yet been confirmed by the remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserFlag(userFlag)
			if err != nil {
				return err
			}

			env, err := newAdminEnv()
			if err != nil {
				return err
			}
			defer env.close()

			ctx := context.Background()

			habits, err := env.habits.ListPending(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to list pending habits: %w", err)
			}
			completions, err := env.completions.ListPending(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to list pending completions: %w", err)
			}

			if len(habits) == 0 && len(completions) == 0 {
				fmt.Println("Nothing pending, all records are synced")
				return nil
			}

			if len(habits) > 0 {
				fmt.Printf("Pending habits (%d):\n", len(habits))
				for _, h := range habits {
					fmt.Printf("  - %s  %-30s  status=%s  updated=%s\n",
						h.ID, h.Name, h.SyncStatus, h.UpdatedAt.Format("2006-01-02 15:04:05"))
				}
			}

			if len(completions) > 0 {
				fmt.Printf("Pending completions (%d):\n", len(completions))
				for _, c := range completions {
					fmt.Printf("  - %s  habit=%s  date=%s  status=%s\n",
						c.ID, c.HabitID, models.FormatDate(c.Date), c.SyncStatus)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "User ID to inspect (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
