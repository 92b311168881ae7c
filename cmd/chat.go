package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
	"github.com/KotobaMedia/binary-blackhole/internal/config"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent on the terminal",
		Long:  "Runs the conversation loop against stdin/stdout under a fresh thread id. The conversation is kept in memory only: no thread or message records are written to the store (saved queries and data requests made by tools still are).",
		Run: func(cmd *cobra.Command, args []string) {
			runChat()
		},
	}
}

func runChat() {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, _, ch, registry, err := buildResources(ctx, cfg)
	if err != nil {
		slog.Error("build resources", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cc := chatter.NewContext(registry.Definitions())
	fmt.Printf("thread %s — type a question, ctrl-d to quit\n", cc.ID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cc.AppendUser(line)

		for item := range ch.Run(ctx, cc) {
			if item.Err != nil {
				fmt.Fprintf(os.Stderr, "error: %s\n", item.Err)
				break
			}
			msg := item.Msg
			switch {
			case msg.Role == chatter.RoleAssistant && len(msg.ToolCalls) > 0:
				for _, tc := range msg.ToolCalls {
					fmt.Printf("[tool call] %s\n", tc.Name)
				}
			case msg.Role == chatter.RoleAssistant:
				fmt.Println(msg.Text())
			case msg.Role == chatter.RoleTool && msg.Sidecar.Kind == chatter.SidecarSQLExecution:
				fmt.Printf("[query saved] %s (%s)\n", msg.Sidecar.SQL.Name, msg.Sidecar.SQL.ID)
			}
		}
	}
}
