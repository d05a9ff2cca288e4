package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	syncengine "github.com/strideapp/habitsync/internal/sync"
)

// NewSyncCmd creates the sync command
func NewSyncCmd() *cobra.Command {
	var userFlag string
	var timeoutFlag time.Duration

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a full sync for a user",
		Long:  "Pull remote records, merge them, and push everything pending, synchronously",
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

			ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
			defer cancel()

			start := time.Now()
			result := env.engine.FullSync(ctx, userID)
			elapsed := time.Since(start).Round(time.Millisecond)

			switch result.Status {
			case syncengine.StatusSuccess:
				fmt.Printf("Sync completed in %s: pulled=%d pushed=%d failed=%d\n",
					elapsed, result.Pulled, result.Pushed, result.Failed)
			case syncengine.StatusNoConnectivity:
				fmt.Printf("Remote store unreachable, local records left pending: %v\n", result.Err)
			default:
				return fmt.Errorf("sync failed: %w", result.Err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "User ID to sync (required)")
	cmd.Flags().DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "Overall sync timeout")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
