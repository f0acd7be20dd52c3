// Package mcp exposes tools served by a remote MCP server as local
// tool.Tool implementations. Remote tools receive the routed query as a
// single string argument.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sweetpotato0/convoroute/pkg/logging"
	"github.com/sweetpotato0/convoroute/tool"
)

// ErrClientClosed is returned when the MCP client has been closed.
var ErrClientClosed = errors.New("mcp client closed")

// DefaultQueryArgument is the argument name the routed query is passed
// under when calling a remote tool.
const DefaultQueryArgument = "query"

// Option configures the MCP client.
type Option func(*clientConfig)

type clientConfig struct {
	implementation sdkmcp.Implementation
	args           []string
	env            []string
	queryArgument  string
}

// WithClientInfo sets the client metadata advertised to the MCP server.
func WithClientInfo(name, version string) Option {
	return func(cfg *clientConfig) {
		if name != "" {
			cfg.implementation.Name = name
		}
		if version != "" {
			cfg.implementation.Version = version
		}
	}
}

// WithCommandArgs configures additional arguments when launching a stdio
// MCP server.
func WithCommandArgs(args ...string) Option {
	return func(cfg *clientConfig) {
		cfg.args = append(cfg.args, args...)
	}
}

// WithCommandEnv appends environment variables when launching a stdio MCP
// server.
func WithCommandEnv(env ...string) Option {
	return func(cfg *clientConfig) {
		cfg.env = append(cfg.env, env...)
	}
}

// WithQueryArgument overrides the argument name the query is passed under.
func WithQueryArgument(name string) Option {
	return func(cfg *clientConfig) {
		if name != "" {
			cfg.queryArgument = name
		}
	}
}

// Client wraps the official MCP Go SDK client and session.
type Client struct {
	sdkClient     *sdkmcp.Client
	session       *sdkmcp.ClientSession
	queryArgument string
	logger        *slog.Logger
}

func defaultConfig() clientConfig {
	return clientConfig{
		implementation: sdkmcp.Implementation{
			Name:    "convoroute",
			Version: "0.1.0",
		},
		queryArgument: DefaultQueryArgument,
	}
}

// NewStdioClient launches an MCP server command over the stdio transport
// and performs the initialization handshake.
func NewStdioClient(ctx context.Context, command string, opts ...Option) (*Client, error) {
	if command == "" {
		return nil, errors.New("mcp: command cannot be empty")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	cmd := exec.Command(command, cfg.args...)
	if len(cfg.env) > 0 {
		cmd.Env = append(os.Environ(), cfg.env...)
	}

	client := newClient(cfg)
	transport := &sdkmcp.CommandTransport{Command: cmd}

	session, err := client.sdkClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect failed: %w", err)
	}
	client.session = session
	return client, nil
}

// NewStreamableClient connects to an MCP server over the streamable HTTP
// transport.
func NewStreamableClient(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("mcp: endpoint cannot be empty")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	client := newClient(cfg)
	transport := &sdkmcp.StreamableClientTransport{Endpoint: endpoint}

	session, err := client.sdkClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect failed: %w", err)
	}
	client.session = session
	return client, nil
}

func newClient(cfg clientConfig) *Client {
	client := &Client{
		queryArgument: cfg.queryArgument,
		logger:        logging.WithComponent("mcp"),
	}
	client.sdkClient = sdkmcp.NewClient(&cfg.implementation, &sdkmcp.ClientOptions{
		LoggingMessageHandler: func(_ context.Context, req *sdkmcp.LoggingMessageRequest) {
			if req != nil && req.Params != nil {
				client.logger.Info("mcp server log", "level", req.Params.Level, "data", req.Params.Data)
			}
		},
	})
	return client
}

// Close terminates the MCP session.
func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}

// ListAllTools returns the full set of tools exposed by the MCP server.
func (c *Client) ListAllTools(ctx context.Context) ([]*sdkmcp.Tool, error) {
	if c.session == nil {
		return nil, ErrClientClosed
	}

	params := &sdkmcp.ListToolsParams{}
	var (
		cursor string
		tools  []*sdkmcp.Tool
	)

	for {
		if cursor != "" {
			params.Cursor = cursor
		}
		res, err := c.session.ListTools(ctx, params)
		if err != nil {
			return nil, err
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	return tools, nil
}

// CallTool invokes a remote MCP tool and returns the textual response.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if c.session == nil {
		return "", ErrClientClosed
	}

	result, err := c.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", err
	}

	message := normalizeContent(result.Content)
	if result.IsError {
		if message == "" {
			message = "tool returned error without message"
		}
		return "", fmt.Errorf("mcp tool %s: %s", name, message)
	}
	return message, nil
}

// RegisterTools fetches the remote tool definitions and registers each as
// a local tool in the registry.
func (c *Client) RegisterTools(ctx context.Context, registry *tool.Registry) error {
	defs, err := c.ListAllTools(ctx)
	if err != nil {
		return err
	}

	for _, def := range defs {
		if def == nil {
			continue
		}
		description := def.Description
		if description == "" && def.Annotations != nil {
			description = def.Annotations.Title
		}

		remote := &remoteTool{
			client:      c,
			name:        def.Name,
			description: description,
		}
		if err := registry.Register(remote); err != nil {
			return fmt.Errorf("register tool %s: %w", def.Name, err)
		}
	}
	return nil
}

// remoteTool adapts a single MCP server tool to the tool.Tool interface
type remoteTool struct {
	client      *Client
	name        string
	description string
}

func (t *remoteTool) Name() string        { return t.name }
func (t *remoteTool) Description() string { return t.description }

func (t *remoteTool) Run(ctx context.Context, query string) (string, error) {
	return t.client.CallTool(ctx, t.name, map[string]any{
		t.client.queryArgument: query,
	})
}

func normalizeContent(content []sdkmcp.Content) string {
	if len(content) == 0 {
		return ""
	}

	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *sdkmcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := c.MarshalJSON(); err == nil {
				parts = append(parts, string(data))
			}
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}
