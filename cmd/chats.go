package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hrvisionhq/visionagent/internal/store"
)

func chatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Manage watched chats",
	}
	cmd.AddCommand(chatsListCmd())
	cmd.AddCommand(chatsAddCmd())
	return cmd
}

func chatsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List watched chats and their watermarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := storesFromConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			chats, err := stores.Chats.List(ctx)
			if err != nil {
				return fmt.Errorf("list chats: %w", err)
			}
			if len(chats) == 0 {
				fmt.Println("no watched chats configured")
				return nil
			}
			watermarks, err := stores.State.Watermarks(ctx)
			if err != nil {
				return fmt.Errorf("load watermarks: %w", err)
			}
			for _, chat := range chats {
				line := fmt.Sprintf("%d\t%s", chat.ChatID, chat.Kind)
				if wm, ok := watermarks[chat.ChatID]; ok {
					line += fmt.Sprintf("\tlast_message_id=%d", wm)
				} else if chat.Kind == store.ChatKindChannel {
					// Channel state is keyed by the linked discussion chat,
					// which only a connected run can resolve. `status` lists
					// every state row by its resolved id.
					line += "\tstate under linked discussion id, see `status`"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func chatsAddCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "add <chat-id>",
		Short: "Add a chat to the watch list",
		Long:  "Add a chat by its -100-prefixed channel id or negative group id. Channels are processed through their linked discussion chat.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q: %w", args[0], err)
			}
			if kind != store.ChatKindChannel && kind != store.ChatKindGroup {
				return fmt.Errorf("invalid chat type %q (want %q or %q)", kind, store.ChatKindChannel, store.ChatKindGroup)
			}

			stores, err := storesFromConfig()
			if err != nil {
				return err
			}
			if err := stores.Chats.Add(cmd.Context(), store.TargetChat{ChatID: chatID, Kind: kind}); err != nil {
				return fmt.Errorf("add chat: %w", err)
			}
			fmt.Printf("added chat %d (%s)\n", chatID, kind)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", store.ChatKindChannel, "chat type: channel or group")
	return cmd
}

func storesFromConfig() (*store.Stores, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return openStores(cfg)
}
