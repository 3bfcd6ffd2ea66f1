package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	lipgloss "charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/app"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent in the terminal",
	Long: `Starts an interactive chat session. Existing sessions can be resumed
from a numbered list; type "exit" to quit. Every turn is persisted, so a
session picked up later continues where it left off.`,
	RunE: runChat,
}

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	agentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

func runChat(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("building markdown renderer: %w", err)
	}

	in := bufio.NewScanner(os.Stdin)

	sessionID, err := pickSession(ctx, application, in)
	if err != nil {
		return err
	}

	// Replay the transcript when resuming.
	history, err := application.Store.History(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, turn := range history {
		printTurn(renderer, turn.Role, turn.Message)
	}

	fmt.Println(faintStyle.Render(fmt.Sprintf("Session %s — type \"exit\" to quit.", sessionID)))

	for {
		fmt.Print(promptStyle.Render("You: "))
		if !in.Scan() {
			break
		}
		input := strings.TrimSpace(in.Text())
		if input == "" {
			continue
		}
		if input == "exit" {
			break
		}

		result, err := application.Agent.RunTurn(ctx, sessionID, input)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Println(faintStyle.Render(fmt.Sprintf("error: %v", err)))
			continue
		}

		for _, step := range result.Steps {
			fmt.Println(faintStyle.Render(fmt.Sprintf("[%s] %s", step.Tool, step.Input)))
		}
		printTurn(renderer, "ai", result.Answer)
	}

	fmt.Println(faintStyle.Render("Bye."))
	return in.Err()
}

// pickSession offers stored sessions for resumption; Enter starts a
// fresh one.
func pickSession(ctx context.Context, application *app.App, in *bufio.Scanner) (string, error) {
	ids, err := application.Store.List(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return uuid.NewString(), nil
	}

	fmt.Println("Stored sessions:")
	for i, id := range ids {
		fmt.Printf("  %d) %s\n", i+1, id)
	}
	fmt.Print("Number to resume, Enter for a new chat: ")

	if !in.Scan() {
		return uuid.NewString(), nil
	}
	choice := strings.TrimSpace(in.Text())
	if choice == "" {
		return uuid.NewString(), nil
	}

	n, err := strconv.Atoi(choice)
	if err != nil || n < 1 || n > len(ids) {
		fmt.Println(faintStyle.Render("Unrecognized choice, starting a new chat."))
		return uuid.NewString(), nil
	}
	return ids[n-1], nil
}

// printTurn renders one transcript line; agent replies go through the
// markdown renderer.
func printTurn(renderer *glamour.TermRenderer, role, message string) {
	if role == "ai" {
		out, err := renderer.Render(message)
		if err != nil {
			out = message + "\n"
		}
		fmt.Print(agentStyle.Render("Agent:"))
		fmt.Print(out)
		return
	}
	fmt.Println(promptStyle.Render("You: ") + message)
}
