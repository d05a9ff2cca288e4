package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/strideapp/habitsync/internal/clock"
	"github.com/strideapp/habitsync/internal/remote"
	"github.com/strideapp/habitsync/internal/repository"
)

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	var userFlag string
	var intervalFlag time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow remote changes for a user",
		Long:  "Subscribe to the remote store and merge incoming snapshots until interrupted",
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

			subscriber, ok := env.remote.(remote.Subscriber)
			if !ok {
				return fmt.Errorf("REMOTE_API_URL is not configured, nothing to watch")
			}

			// SUBSCRIBE_INTERVAL applies unless --interval was given.
			if !cmd.Flags().Changed("interval") {
				intervalFlag = env.cfg.SubscribeInterval
			}

			facade := repository.NewFacade(
				env.habits,
				env.completions,
				env.remote,
				env.engine,
				nil,
				nil,
				env.cfg.PendingStaleAfter,
				clock.System{},
				nil,
			)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				cancel()
			}()

			fmt.Printf("Watching remote changes for %s (interval %s), Ctrl-C to stop\n", userID, intervalFlag)

			if err := facade.WatchRemote(ctx, userID, subscriber, intervalFlag); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watch ended with error: %w", err)
			}

			fmt.Println("Watch stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "User ID to watch (required)")
	cmd.Flags().DurationVar(&intervalFlag, "interval", 30*time.Second, "Poll interval (defaults to SUBSCRIBE_INTERVAL)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
