// Package mcp exposes the engine's operation surface to the tool transport
// as a JSON-RPC server over stdio.
package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"rpg/internal/engine"
	rpgerr "rpg/internal/errors"
)

// ToolHandler handles one tool call. The returned value is serialized into
// the tool response; errors become structured failures.
type ToolHandler func(params map[string]interface{}) (interface{}, error)

// Server is the MCP server. It reads one JSON-RPC message per line from
// stdin and writes responses to stdout; logging goes to a file, never to
// the protocol stream.
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	logger  *slog.Logger
	version string
	engine  *engine.Engine
	tools   map[string]ToolHandler
}

// NewServer creates a server bound to an engine.
func NewServer(version string, eng *engine.Engine, logger *slog.Logger) *Server {
	s := &Server{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		logger:  logger,
		version: version,
		engine:  eng,
		tools:   make(map[string]ToolHandler),
	}
	s.registerTools()
	return s
}

// Run processes messages until stdin closes.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.stdin)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			s.send(NewErrorMessage(nil, ParseError, "invalid JSON", nil))
			continue
		}

		switch {
		case msg.IsRequest():
			s.send(s.handleRequest(&msg))
		case msg.IsNotification():
			// Notifications (initialized, cancelled) need no reply.
			s.logger.Debug("notification", "method", msg.Method)
		}
	}
	return scanner.Err()
}

func (s *Server) send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err.Error())
		return
	}
	fmt.Fprintf(s.stdout, "%s\n", data)
}

func (s *Server) handleRequest(msg *Message) *Message {
	switch msg.Method {
	case "initialize":
		return NewResultMessage(msg.Id, map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]interface{}{
				"name":    "rpg",
				"version": s.version,
			},
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"instructions": sessionInstructions,
		})
	case "tools/list":
		return NewResultMessage(msg.Id, map[string]interface{}{
			"tools": toolDefinitions(),
		})
	case "tools/call":
		return s.handleToolCall(msg)
	case "ping":
		return NewResultMessage(msg.Id, map[string]interface{}{})
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, "unknown method "+msg.Method, nil)
	}
}

func (s *Server) handleToolCall(msg *Message) *Message {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "params must be an object", nil)
	}
	name, _ := params["name"].(string)
	handler, ok := s.tools[name]
	if !ok {
		return NewErrorMessage(msg.Id, MethodNotFound, "unknown tool "+name, nil)
	}
	args, _ := params["arguments"].(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	s.logger.Debug("tool call", "tool", name)
	result, err := handler(args)
	if err != nil {
		// Structured failure: stable error code plus message, rendered as a
		// tool error so the agent can react without parsing prose.
		payload := map[string]interface{}{
			"code":    string(rpgerr.CodeOf(err)),
			"message": err.Error(),
		}
		data, _ := json.Marshal(payload)
		return NewResultMessage(msg.Id, map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": string(data)},
			},
			"isError": true,
		})
	}

	text, err := renderResult(result, s.engine.StaleNotice())
	if err != nil {
		return NewErrorMessage(msg.Id, InternalError, err.Error(), nil)
	}
	return NewResultMessage(msg.Id, map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
	})
}

// renderResult serializes a tool payload, attaching the staleness advisory
// when the graph lags HEAD. Handlers that render TOON return a string and
// pass through untouched; everything else is serialized as JSON.
func renderResult(result interface{}, notice string) (string, error) {
	text, ok := result.(string)
	if !ok {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", err
		}
		text = string(data)
	}
	if notice != "" {
		return notice + "\n" + text, nil
	}
	return text, nil
}
