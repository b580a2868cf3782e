package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyonchat/halcyon/internal/config"
	"github.com/halcyonchat/halcyon/internal/dependency"
)

var (
	chatBot     string
	chatMessage string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat from the terminal",
	Long:  "Send one message with -m, or start an interactive session without it.",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatBot, "bot", "b", "", "Bot to talk to (default from config)")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if chatBot != "" {
		cfg.DefaultBot = chatBot
	}

	c, err := dependency.New(cfg, dependency.Options{WithCLI: true})
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	ctx := context.Background()

	if chatMessage != "" {
		reply, err := c.Engine().Process(ctx, cfg.DefaultBot, chatMessage)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		c.Sessions().DrainAll(ctx)
		return nil
	}

	// Interactive: run the engine plus the CLI channel until stdin closes.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.Engine().Run(ctx) //nolint:errcheck
	err = c.Channels().StartAll(ctx)
	cancel()

	c.Sessions().DrainAll(context.Background())
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}
