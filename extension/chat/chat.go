// Package chat provides the chat extension.
// Registers commands: chat, history.
//
// chat runs the assistant against the same tool registry "ipfa serve"
// exposes, connected in-process. Conversations are stored in
// ~/.ipfa/history.db and can be resumed.
package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jpl-au/ipfa/cmd"
	"github.com/jpl-au/ipfa/extension"
	"github.com/jpl-au/ipfa/guide"
	"github.com/jpl-au/ipfa/internal/chat"
	"github.com/jpl-au/ipfa/internal/config"
	"github.com/jpl-au/ipfa/internal/history"
	"github.com/jpl-au/ipfa/internal/llm"
	"github.com/jpl-au/ipfa/internal/log"
	"github.com/jpl-au/ipfa/internal/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the chat extension.
type Extension struct {
	ctx extension.Context
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
	_ extension.Offline       = (*Extension)(nil)
)

// Name returns "chat".
func (e *Extension) Name() string { return "chat" }

// Init keeps the shared context for the IP Fabric client and config.
func (e *Extension) Init(ctx extension.Context) error {
	e.ctx = ctx
	return nil
}

// Commands returns the chat and history commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		e.newChatCmd(),
		newHistoryCmd(),
	}
}

// OfflineCommands returns "history": it only reads the local database.
func (e *Extension) OfflineCommands() []string {
	return []string{"history"}
}

// resumeLast resumes the most recent conversation.
const resumeLast = "last"

func (e *Extension) newChatCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "chat [question]",
		Short: "Chat with the IP Fabric assistant",
		Long: `Start an interactive chat with an assistant that answers questions
about the network using the ipfa tools. With a question argument, ask it
once, print the answer and exit.

  ipfa chat
  ipfa chat "which devices run the oldest IOS version?"
  ipfa chat --resume last
  ipfa chat --resume 3f2a

Needs ai.api_key (or AI_API_KEY). ai.base_url points at any
OpenAI-compatible endpoint; ai.model picks the model.
Type 'exit' or 'quit' to leave. Ctrl+C cancels the current question.`,
		RunE: e.runChat,
	}
	c.Flags().StringP(extension.FlagResume, "r", "", `Conversation id (or prefix) to continue, or "last"`)
	c.Flags().Bool(extension.FlagNoPin, false, "Keep snapshot aliases unresolved")
	return c
}

func (e *Extension) runChat(c *cobra.Command, args []string) error {
	ctx := c.Context()
	cfg := e.ctx.Config()
	resume, _ := c.Flags().GetString(extension.FlagResume)
	noPin, _ := c.Flags().GetBool(extension.FlagNoPin)
	l := log.Event("chat:chat", "chat").Author(cmd.Author()).Detail("model", cfg.Model())

	model, err := llm.New(llm.Options{
		BaseURL: cfg.BaseURL(),
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.Model(),
		Logger:  cmd.Logger(),
	})
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			err = fmt.Errorf("%w\n\nTo fix: ipfa config ai.api_key ... or set AI_API_KEY", err)
		}
		l.Write(err)
		return cmd.PrintJSONError(err)
	}

	if !noPin {
		extension.PinSession(ctx, e.ctx)
	}

	store, err := history.Open(history.DefaultPath())
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(fmt.Errorf("opening chat history: %w", err))
	}
	defer store.Close()

	prompt, err := guide.Get(guide.Agent)
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(err)
	}

	srv := mcp.NewServer(mcp.Options{
		Client:  e.ctx.Client(),
		Session: e.ctx.Session(),
		Logger:  cmd.Logger(),
		Source:  "chat",
	})
	agent, err := chat.New(ctx, chat.Options{
		LLM:          model,
		Model:        model.Model(),
		Server:       srv,
		Session:      e.ctx.Session(),
		History:      store,
		SystemPrompt: prompt,
		MaxTurns:     cfg.MaxTurns(),
		Logger:       cmd.Logger(),
	})
	if err != nil {
		l.Write(err)
		return cmd.PrintJSONError(err)
	}
	defer agent.Close()

	if resume != "" {
		if err := resumeConversation(ctx, agent, store, resume); err != nil {
			l.Write(err)
			return cmd.PrintJSONError(err)
		}
		l.Detail("resumed", agent.Conversation().ID)
	}

	if len(args) > 0 {
		return e.askOnce(ctx, agent, strings.Join(args, " "), l)
	}

	input, err := chat.NewReadline(filepath.Join(config.Dir(), "chat_history"))
	if err != nil {
		l.Write(err)
		return err
	}
	repl := &chat.REPL{
		Agent:  agent,
		Input:  input,
		Out:    cmd.Out(),
		Logger: cmd.Logger(),
		Rich:   term.IsTerminal(int(os.Stdout.Fd())),
	}
	err = repl.Run(ctx)
	l.Detail("conversation", agent.Conversation().ID).Write(err)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// askOnce answers one question and prints the answer.
func (e *Extension) askOnce(ctx context.Context, agent *chat.Agent, question string, l *log.Builder) error {
	answer, err := agent.Ask(ctx, question)
	conv := agent.Conversation()
	l.Detail("conversation", conv.ID).Write(err)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{
			"conversation":     conv.ID,
			"answer":           answer,
			"current_snapshot": e.ctx.Session().Snapshot(),
		})
	}
	fmt.Fprintln(cmd.Out(), answer)
	return nil
}

func resumeConversation(ctx context.Context, agent *chat.Agent, store *history.Store, id string) error {
	if id == resumeLast {
		conv, err := store.Latest(ctx)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		id = conv.ID
	}
	if err := agent.Resume(ctx, id); err != nil {
		return fmt.Errorf("resume %q: %w", id, err)
	}
	return nil
}
