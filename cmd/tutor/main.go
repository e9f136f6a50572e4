package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/zhouzirui/science-tutor/backend/internal/config"
	"github.com/zhouzirui/science-tutor/backend/internal/logger"
	"github.com/zhouzirui/science-tutor/backend/internal/render"
	"github.com/zhouzirui/science-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/science-tutor/backend/internal/service/completion"
)

const banner = `Science Tutor
Ask about physics, chemistry, biology and more.
Commands: /history reprints the conversation, /exit quits.`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr so they do not interleave with the conversation.
	logger.Setup(os.Stderr, cfg.Log.Level, "text")

	client, err := completion.Setup(ctx, cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	out := render.New(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())), 80)
	conv := chat.NewConversation(uuid.NewString(), client)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println(banner)
	if err := repl(ctx, line, conv, out); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// prompter is the part of *liner.State the loop needs.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

func repl(ctx context.Context, in prompter, conv *chat.Conversation, out *render.Renderer) error {
	for {
		input, err := in.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		in.AppendHistory(input)

		switch input {
		case "/exit", "/quit":
			return nil
		case "/history":
			out.Transcript(conv.Transcript())
			continue
		}

		exchange, err := conv.Submit(ctx, input)
		if err != nil {
			out.Error(err)
			continue
		}
		out.Turn(exchange.Assistant)
	}
}
