package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show agent status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := storesFromConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			active, err := stores.Status.Active(ctx)
			if err != nil {
				return fmt.Errorf("read agent status: %w", err)
			}
			lastInit, err := stores.Status.LastInitDate(ctx)
			if err != nil {
				return fmt.Errorf("read last initialization date: %w", err)
			}

			state := "inactive"
			if active {
				state = "active"
			}
			fmt.Printf("agent: %s\n", state)
			if lastInit.IsZero() {
				fmt.Println("last initialization: never")
			} else {
				fmt.Printf("last initialization: %s\n", lastInit.Format("2006-01-02"))
			}

			pending, err := stores.Actions.Pending(ctx)
			if err != nil {
				return fmt.Errorf("read pending actions: %w", err)
			}
			fmt.Printf("pending actions: %d\n", len(pending))

			marks, err := stores.State.Watermarks(ctx)
			if err != nil {
				return fmt.Errorf("read watermarks: %w", err)
			}
			for _, chatID := range slices.Sorted(maps.Keys(marks)) {
				fmt.Printf("chat %d\tlast_message_id %d\n", chatID, marks[chatID])
			}
			return nil
		},
	}
}
