package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/pterm/pterm"
	"go.uber.org/zap"
)

var (
	youStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	agentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// LineReader reads one line of user input. readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// REPL is the interactive chat prompt.
type REPL struct {
	Agent  *Agent
	Input  LineReader
	Out    io.Writer
	Logger *zap.Logger
	// Rich enables the spinner and markdown rendering; set it when Out is
	// a terminal.
	Rich bool
}

// NewReadline returns a line reader with persistent input history at
// historyFile.
func NewReadline(historyFile string) (LineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          youStyle.Render("You") + ": ",
		HistoryFile:     historyFile,
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("create prompt: %w", err)
	}
	return rl, nil
}

// Run reads questions until exit, quit or end of input.
func (r *REPL) Run(ctx context.Context) error {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defer r.Input.Close()

	fmt.Fprintln(r.Out, "Chat with the IP Fabric assistant (type 'exit' to quit).")
	if id := r.Agent.Conversation().ID; id != "" {
		fmt.Fprintln(r.Out, dimStyle.Render("Resuming conversation "+id))
	}
	if snap := r.Agent.snapshot(); snap != "" {
		fmt.Fprintln(r.Out, dimStyle.Render("Active snapshot: "+snap))
	}
	fmt.Fprintln(r.Out)

	for {
		line, err := r.Input.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		msg := strings.TrimSpace(line)
		switch strings.ToLower(msg) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		answer, err := r.ask(ctx, msg)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logger.Warn("chat turn failed", zap.Error(err))
			fmt.Fprintln(r.Out, pterm.Error.Sprint(err.Error()))
			continue
		}
		fmt.Fprintf(r.Out, "%s: %s\n", agentStyle.Render("Assistant"), r.render(answer))
	}
}

// ask runs one question. Ctrl+C cancels the question, not the session.
func (r *REPL) ask(ctx context.Context, msg string) (string, error) {
	askCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if !r.Rich {
		return r.Agent.Ask(askCtx, msg)
	}

	spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Thinking")
	prev := r.Agent.opts.OnToolCall
	r.Agent.opts.OnToolCall = func(name, args string) {
		if spinner != nil {
			spinner.UpdateText("Calling " + name)
		}
		if prev != nil {
			prev(name, args)
		}
	}
	defer func() { r.Agent.opts.OnToolCall = prev }()

	answer, err := r.Agent.Ask(askCtx, msg)
	if spinner != nil {
		spinner.Stop() //nolint:errcheck
	}
	return answer, err
}

func (r *REPL) render(answer string) string {
	if !r.Rich {
		return answer + "\n"
	}
	out, err := glamour.Render(answer, "dark")
	if err != nil {
		return answer + "\n"
	}
	return "\n" + out
}
