// tools_util.go provides argument extraction and the response envelope
// shared by every tool.
//
// Extraction is permissive: a missing optional argument yields its default.
// LLMs often pass numbers as strings or lists as comma-separated text, so
// both are accepted. Arguments that are present but unusable (a filter that
// is not an object, a negative limit) are validation errors reported in the
// envelope.

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ErrInvalidArguments is a protocol error: tool arguments must be a JSON object.
var ErrInvalidArguments = errors.New("tool arguments must be a JSON object")

// ErrInvalidArgument is a validation error for one argument.
var ErrInvalidArgument = errors.New("invalid argument")

// envelope is the JSON payload every tool returns.
type envelope struct {
	Success         bool   `json:"success"`
	Data            any    `json:"data,omitempty"`
	Error           string `json:"error,omitempty"`
	CurrentSnapshot string `json:"current_snapshot"`
	Message         string `json:"message,omitempty"`
}

// requireObject fails the invocation when arguments are present but are
// not an object. Absent arguments are treated as an empty object.
func requireObject(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		switch req.Params.Arguments.(type) {
		case nil, map[string]any:
			return next(ctx, req)
		}
		return nil, fmt.Errorf("%s: %w, got %T", req.Params.Name, ErrInvalidArguments, req.Params.Arguments)
	}
}

// args returns the argument map, never nil.
func args(req mcp.CallToolRequest) map[string]any {
	if m, ok := req.Params.Arguments.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// getString extracts a string parameter, returning def if missing or not a
// string. Surrounding whitespace is trimmed.
func getString(req mcp.CallToolRequest, name, def string) string {
	if v, ok := args(req)[name].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// getInt extracts a non-negative integer parameter. JSON numbers decode as
// float64; numeric strings are accepted too.
func getInt(req mcp.CallToolRequest, name string, def int) (int, error) {
	v, ok := args(req)[name]
	if !ok || v == nil {
		return def, nil
	}
	var n int
	switch x := v.(type) {
	case float64:
		n = int(x)
	case int:
		n = x
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidArgument, name)
		}
		n = int(i)
	case string:
		if strings.TrimSpace(x) == "" {
			return def, nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidArgument, name, x)
		}
		n = i
	default:
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidArgument, name)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidArgument, name)
	}
	return n, nil
}

// getStrings extracts a string array parameter. Returns nil when absent and
// an empty non-nil slice for an empty array, so callers can tell "not
// provided" from "provided but empty". A string is split on commas.
// Non-string items are rejected.
func getStrings(req mcp.CallToolRequest, name string) ([]string, error) {
	switch v := args(req)[name].(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, x := range v {
			s, ok := x.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a string, got %T", ErrInvalidArgument, name, i, x)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case []string:
		return v, nil
	case string:
		out := []string{}
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an array of strings, got %T", ErrInvalidArgument, name, v)
	}
}

// getObject extracts an object parameter. A string holding a JSON object is
// decoded. Returns nil when absent.
func getObject(req mcp.CallToolRequest, name string) (map[string]any, error) {
	switch v := args(req)[name].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("%w: %s must be a JSON object: %v", ErrInvalidArgument, name, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an object, got %T", ErrInvalidArgument, name, v)
	}
}

// marshal renders v as indented JSON without HTML escaping, so filters like
// ['reg', '<x>'] survive unchanged.
func marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// success wraps data in a success envelope.
func (h *handlers) success(data any, message string) (*mcp.CallToolResult, error) {
	text, err := marshal(envelope{
		Success:         true,
		Data:            data,
		CurrentSnapshot: h.sess.Snapshot(),
		Message:         message,
	})
	if err != nil {
		return h.failure(fmt.Errorf("encoding result: %w", err), message)
	}
	return mcp.NewToolResultText(text), nil
}

// failure wraps err in a failure envelope. The error text is surfaced
// verbatim.
func (h *handlers) failure(err error, message string) (*mcp.CallToolResult, error) {
	text, merr := marshal(envelope{
		Success:         false,
		Error:           err.Error(),
		CurrentSnapshot: h.sess.Snapshot(),
		Message:         message,
	})
	if merr != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultError(text), nil
}
