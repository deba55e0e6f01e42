// Package chat runs the conversational IP Fabric assistant: an agent loop
// that lets a chat model call the ipfa MCP tools until it can answer.
//
// The agent talks to the tool registry through an in-process MCP client, so
// the model sees exactly the tools, schemas and envelopes an external MCP
// client would. Every message (user, assistant, tool) is persisted to the
// history store as it happens, so an interrupted session can be resumed.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jpl-au/ipfa/internal/history"
	"github.com/jpl-au/ipfa/internal/llm"
	"github.com/jpl-au/ipfa/internal/session"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// DefaultMaxTurns bounds model round trips per question.
const DefaultMaxTurns = 12

// ErrMaxTurns is returned when the model keeps calling tools without
// producing an answer.
var ErrMaxTurns = errors.New("no answer within the turn limit")

// Completer produces the next assistant message for a conversation.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Message, llm.Usage, error)
}

// Options configures an Agent.
type Options struct {
	LLM          Completer
	Model        string // recorded in history
	Server       *server.MCPServer
	Session      *session.Session // recorded in history; may be nil
	History      *history.Store   // nil disables persistence
	SystemPrompt string
	MaxTurns     int
	Logger       *zap.Logger

	// OnToolCall, if set, is called before each tool invocation.
	OnToolCall func(name, arguments string)
}

// Agent is one chat conversation.
type Agent struct {
	opts     Options
	log      *zap.Logger
	mcp      *client.Client
	tools    []llm.Tool
	messages []llm.Message
	conv     history.Conversation
}

// New connects an in-process MCP client to opts.Server and loads its tools.
func New(ctx context.Context, opts Options) (*Agent, error) {
	if opts.LLM == nil {
		return nil, errors.New("chat: no model client")
	}
	if opts.Server == nil {
		return nil, errors.New("chat: no MCP server")
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c, err := client.NewInProcessClient(opts.Server)
	if err != nil {
		return nil, fmt.Errorf("connect to tools: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("start tool client: %w", err)
	}

	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "ipfa-chat", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, init); err != nil {
		c.Close()
		return nil, fmt.Errorf("initialise tool client: %w", err)
	}

	list, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("list tools: %w", err)
	}

	a := &Agent{opts: opts, log: logger, mcp: c}
	for _, t := range list.Tools {
		a.tools = append(a.tools, FunctionTool(t))
	}
	logger.Debug("chat agent ready", zap.Int("tools", len(a.tools)))
	return a, nil
}

// FunctionTool converts an MCP tool into a chat-completions function tool.
func FunctionTool(t mcp.Tool) llm.Tool {
	var params any
	if len(t.RawInputSchema) > 0 {
		params = t.RawInputSchema
	} else {
		props := t.InputSchema.Properties
		if props == nil {
			props = map[string]any{}
		}
		schema := map[string]any{"type": "object", "properties": props}
		if len(t.InputSchema.Required) > 0 {
			schema["required"] = t.InputSchema.Required
		}
		params = schema
	}
	return llm.Tool{
		Type: "function",
		Function: llm.Function{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		},
	}
}

// Tools returns the function tools offered to the model.
func (a *Agent) Tools() []llm.Tool { return a.tools }

// Conversation returns the persisted conversation. Its ID is empty until
// the first question is asked.
func (a *Agent) Conversation() history.Conversation { return a.conv }

// Resume loads conversation id (or a unique prefix) from history so the
// next question continues it.
func (a *Agent) Resume(ctx context.Context, id string) error {
	if a.opts.History == nil {
		return errors.New("chat: history is disabled")
	}
	conv, err := a.opts.History.Get(ctx, id)
	if err != nil {
		return err
	}
	stored, err := a.opts.History.Messages(ctx, conv.ID)
	if err != nil {
		return err
	}
	msgs := make([]llm.Message, 0, len(stored))
	for _, m := range stored {
		lm := llm.Message{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID, Name: m.Name}
		if len(m.ToolCalls) > 0 {
			if err := json.Unmarshal(m.ToolCalls, &lm.ToolCalls); err != nil {
				return fmt.Errorf("conversation %s: decode tool calls: %w", conv.ID, err)
			}
		}
		msgs = append(msgs, lm)
	}
	a.conv = conv
	a.messages = msgs
	if conv.Snapshot != "" && a.opts.Session != nil {
		a.opts.Session.Set(conv.Snapshot)
	}
	return nil
}

// Ask sends prompt and runs tool calls until the model answers.
func (a *Agent) Ask(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("empty question")
	}
	if err := a.record(ctx, llm.Message{Role: history.RoleUser, Content: prompt}); err != nil {
		return "", err
	}

	for turn := 0; turn < a.opts.MaxTurns; turn++ {
		req := llm.Request{Model: a.opts.Model, Messages: a.request(), Tools: a.tools}
		msg, usage, err := a.opts.LLM.Complete(ctx, req)
		if err != nil {
			return "", err
		}
		if msg.Role == "" {
			msg.Role = history.RoleAssistant
		}
		a.log.Debug("model turn",
			zap.Int("turn", turn+1),
			zap.Int("tool_calls", len(msg.ToolCalls)),
			zap.Int("total_tokens", usage.TotalTokens))
		if err := a.record(ctx, msg); err != nil {
			return "", err
		}
		if len(msg.ToolCalls) == 0 {
			a.syncSnapshot(ctx)
			return msg.Content, nil
		}

		for _, call := range msg.ToolCalls {
			out := a.call(ctx, call)
			if err := a.record(ctx, llm.Message{
				Role:       history.RoleTool,
				Content:    out,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
			}); err != nil {
				return "", err
			}
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	a.syncSnapshot(ctx)
	return "", fmt.Errorf("%w (%d turns)", ErrMaxTurns, a.opts.MaxTurns)
}

// Close disconnects the tool client.
func (a *Agent) Close() error {
	return a.mcp.Close()
}

func (a *Agent) request() []llm.Message {
	if a.opts.SystemPrompt == "" {
		return a.messages
	}
	msgs := make([]llm.Message, 0, len(a.messages)+1)
	msgs = append(msgs, llm.Message{Role: history.RoleSystem, Content: a.opts.SystemPrompt})
	return append(msgs, a.messages...)
}

// call invokes one tool and returns the text handed back to the model.
// Failures are reported to the model rather than ending the conversation.
func (a *Agent) call(ctx context.Context, tc llm.ToolCall) string {
	name := tc.Function.Name
	if a.opts.OnToolCall != nil {
		a.opts.OnToolCall(name, tc.Function.Arguments)
	}

	args := map[string]any{}
	if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			a.log.Warn("tool arguments are not a JSON object", zap.String("tool", name), zap.Error(err))
			return a.toolError(fmt.Sprintf("arguments for %s must be a JSON object: %v", name, err))
		}
	}

	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := a.mcp.CallTool(ctx, req)
	if err != nil {
		a.log.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
		return a.toolError(fmt.Sprintf("tool %s failed: %v", name, err))
	}
	a.log.Debug("tool call", zap.String("tool", name), zap.Bool("is_error", res.IsError))

	var parts []string
	for _, c := range res.Content {
		switch t := c.(type) {
		case mcp.TextContent:
			parts = append(parts, t.Text)
		case *mcp.TextContent:
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// record appends m to the conversation and persists it, creating the
// conversation on the first message.
func (a *Agent) record(ctx context.Context, m llm.Message) error {
	a.messages = append(a.messages, m)
	h := a.opts.History
	if h == nil {
		return nil
	}
	if a.conv.ID == "" {
		conv, err := h.CreateConversation(ctx, history.Title(m.Content), a.snapshot(), a.opts.Model)
		if err != nil {
			return err
		}
		a.conv = conv
	}

	stored := history.Message{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID, Name: m.Name}
	if len(m.ToolCalls) > 0 {
		data, err := json.Marshal(m.ToolCalls)
		if err != nil {
			return fmt.Errorf("encode tool calls: %w", err)
		}
		stored.ToolCalls = data
	}
	if err := h.Append(ctx, a.conv.ID, stored); err != nil {
		return err
	}
	a.conv.Messages++
	return nil
}

// syncSnapshot records the session's active snapshot on the conversation
// so a resumed chat continues on it.
func (a *Agent) syncSnapshot(ctx context.Context) {
	snap := a.snapshot()
	if a.opts.History == nil || a.conv.ID == "" || snap == "" || snap == a.conv.Snapshot {
		return
	}
	if err := a.opts.History.Update(ctx, a.conv.ID, "", snap); err != nil {
		a.log.Warn("record conversation snapshot", zap.Error(err))
		return
	}
	a.conv.Snapshot = snap
}

func (a *Agent) snapshot() string {
	if a.opts.Session == nil {
		return ""
	}
	return a.opts.Session.Snapshot()
}

// toolError renders msg in the registry's failure envelope.
func (a *Agent) toolError(msg string) string {
	data, _ := json.Marshal(map[string]any{
		"success":          false,
		"error":            msg,
		"current_snapshot": a.snapshot(),
	})
	return string(data)
}
