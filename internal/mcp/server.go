package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/mcp-digitalocean/internal/hooks"
	"github.com/soyeahso/mcp-digitalocean/internal/logging"
)

// maxLineSize bounds a single request line.
const maxLineSize = 4 * 1024 * 1024

// Handler supplies the tool surface behind a Server.
type Handler interface {
	Tools() []Tool
	Call(ctx context.Context, name string, args Args) (any, error)
}

// PayloadError is a tool failure that still carries a structured result,
// such as the last observed droplet of a timed-out wait.
type PayloadError struct {
	Err     error
	Payload any
}

func (e *PayloadError) Error() string { return e.Err.Error() }
func (e *PayloadError) Unwrap() error { return e.Err }

// Server handles the JSON-RPC stdin/stdout protocol. Requests are served
// one at a time in arrival order.
type Server struct {
	handler Handler
	info    ServerInfo
	in      io.Reader
	out     io.Writer
	log     *logging.Logger
	hooks   *hooks.Manager

	mu sync.Mutex // serializes writes to out
}

// Option configures a Server.
type Option func(*Server)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.in = in
		s.out = out
	}
}

// WithLogger sets the logger. Logs must never go to the protocol stream.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithHooks routes server and tool call events to m.
func WithHooks(m *hooks.Manager) Option {
	return func(s *Server) { s.hooks = m }
}

// WithServerInfo sets the name and version reported on initialize.
func WithServerInfo(name, version string) Option {
	return func(s *Server) { s.info = ServerInfo{Name: name, Version: version} }
}

// NewServer creates a server for handler.
func NewServer(handler Handler, opts ...Option) *Server {
	s := &Server{
		handler: handler,
		info:    ServerInfo{Name: "mcp-digitalocean", Version: "dev"},
		in:      os.Stdin,
		out:     os.Stdout,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Sub("mcp")
	return s
}

// Run serves requests until the input ends or ctx is done. It returns nil
// on a clean end of input.
func (s *Server) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	s.log.Info().Str("server", s.info.Name).Str("version", s.info.Version).Msg("listening for requests on stdin")
	s.hooks.Emit(ctx, hooks.EventServerStart, map[string]any{"server": s.info.Name})
	defer func() {
		s.log.Info().Msg("server shutting down")
		s.hooks.Emit(context.WithoutCancel(ctx), hooks.EventServerStop, map[string]any{"server": s.info.Name})
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						s.log.Error().Err(err).Msg("error reading stdin")
						return fmt.Errorf("reading requests: %w", err)
					}
				default:
				}
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			s.handleRequest(ctx, line)
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, line string) {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		s.log.Warn().Err(err).Msg("parse error")
		s.sendError(nil, CodeParseError, "Parse error", err.Error())
		return
	}

	s.log.Debug().Str("method", req.Method).Msg("handling request")

	switch req.Method {
	case "initialize":
		s.sendResponse(req.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    Capabilities{Tools: map[string]any{}},
			ServerInfo:      s.info,
		})
	case "ping":
		s.sendResponse(req.ID, map[string]any{})
	case "tools/list":
		s.sendResponse(req.ID, ListToolsResult{Tools: s.handler.Tools()})
	case "tools/call":
		s.handleCallTool(ctx, req)
	default:
		if req.ID == nil {
			// notifications get no response
			s.log.Debug().Str("method", req.Method).Msg("notification received")
			return
		}
		s.log.Warn().Str("method", req.Method).Msg("unknown method")
		s.sendError(req.ID, CodeMethodNotFound, "Method not found", fmt.Sprintf("Unknown method: %s", req.Method))
	}
}

func (s *Server) handleCallTool(ctx context.Context, req Request) {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.log.Warn().Err(err).Msg("invalid params")
		s.sendError(req.ID, CodeInvalidParams, "Invalid params", err.Error())
		return
	}
	if params.Name == "" {
		s.sendError(req.ID, CodeInvalidParams, "Invalid params", "tool name is required")
		return
	}

	callID := uuid.NewString()
	log := s.log.With("call_id", callID)
	log.Info().Str("tool", params.Name).Msg("calling tool")
	s.hooks.Emit(ctx, hooks.EventToolCallStart, map[string]any{"call_id": callID, "tool": params.Name})

	start := time.Now()
	result, err := s.handler.Call(ctx, params.Name, Args(params.Arguments))
	elapsed := time.Since(start)

	end := map[string]any{"call_id": callID, "tool": params.Name, "elapsed": elapsed}
	if err != nil {
		end["error"] = err.Error()
		log.Warn().Err(err).Str("tool", params.Name).Dur("elapsed", elapsed).Msg("tool failed")
		s.hooks.Emit(ctx, hooks.EventToolCallEnd, end)
		s.sendResponse(req.ID, ToolErrorResult(err))
		return
	}

	log.Info().Str("tool", params.Name).Dur("elapsed", elapsed).Msg("tool succeeded")
	s.hooks.Emit(ctx, hooks.EventToolCallEnd, end)
	s.sendJSONResponse(req.ID, result)
}

// ToolErrorResult renders err as an MCP tool error. A PayloadError's
// payload follows the message as indented JSON.
func ToolErrorResult(err error) ToolResult {
	res := ToolResult{
		Content: []ContentItem{{Type: "text", Text: err.Error()}},
		IsError: true,
	}
	var pe *PayloadError
	if errors.As(err, &pe) && pe.Payload != nil {
		if data, merr := json.MarshalIndent(pe.Payload, "", "  "); merr == nil {
			res.Content = append(res.Content, ContentItem{Type: "text", Text: string(data)})
		}
	}
	return res
}

// ---------- JSON-RPC responses ----------

func (s *Server) sendResponse(id any, result any) {
	s.write(Response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendJSONResponse(id any, result any) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		s.sendResponse(id, ToolErrorResult(fmt.Errorf("failed to marshal response: %w", err)))
		return
	}

	s.sendResponse(id, ToolResult{
		Content: []ContentItem{{Type: "text", Text: string(data)}},
	})
}

func (s *Server) sendError(id any, code int, message string, data any) {
	s.log.Debug().Int("code", code).Str("message", message).Msg("sending error response")
	s.write(Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message, Data: data}})
}

func (s *Server) write(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("error marshaling response")
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(data); err != nil {
		s.log.Error().Err(err).Msg("error writing response")
	}
}
