package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"
	"github.com/tbxark/onboard/agent"
	"github.com/tbxark/onboard/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run one onboarding conversation in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})))
		a, err := buildApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return chat(cmd.Context(), a.service, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// chat drives one session through an adk.Runner until the session is
// complete or in reaches EOF.
func chat(ctx context.Context, service *agent.Service, in io.Reader, out io.Writer) error {
	start, err := service.StartSession(ctx)
	if err != nil {
		return err
	}
	ctx = agent.WithSessionID(ctx, start.Session.ID)
	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent: agent.NewAgent("Onboarding", "Collects insurance onboarding details through conversation", service),
	})
	fmt.Fprintf(out, "Assistant: %s\n", start.Message)

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "You: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil && input == "" {
			fmt.Fprintln(out)
			return nil
		}
		input = strings.TrimSpace(input)
		iter := runner.Run(ctx, []*schema.Message{schema.UserMessage(input)})
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				return event.Err
			}
			msg, mErr := event.Output.MessageOutput.GetMessage()
			if mErr != nil {
				return mErr
			}
			fmt.Fprintf(out, "Assistant: %s\n", msg.Content)
		}
		snapshot, sErr := service.Session(ctx, start.Session.ID)
		if sErr != nil {
			return sErr
		}
		if snapshot.Session.State == types.StateComplete {
			fmt.Fprintf(out, "\n%s\n", types.FormatSummary(snapshot.Session))
			return nil
		}
		if rErr != nil {
			return nil
		}
	}
}
