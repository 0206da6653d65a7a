package mcpbridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"webpilot/browserloop"
)

// DefaultServerURL is the address of the local browser-automation service.
const DefaultServerURL = "http://localhost:5600/mcp"

// Endpoint is a connected MCP client session against the automation service.
// It implements browserloop.ToolCaller.
type Endpoint struct {
	client *client.Client
	logger *zap.Logger
}

// Connect dials the streamable-http MCP server at serverURL and performs the
// initialize handshake.
func Connect(ctx context.Context, serverURL string, logger *zap.Logger) (*Endpoint, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c, err := client.NewStreamableHttpClient(serverURL)
	if err != nil {
		return nil, fmt.Errorf("creating mcp client for %s: %w", serverURL, err)
	}

	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting mcp transport: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "webpilot",
		Version: "0.1.0",
	}

	result, err := c.Initialize(ctx, initReq)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initializing mcp session: %w", err)
	}

	logger.Info("connected to automation service",
		zap.String("url", serverURL),
		zap.String("server", result.ServerInfo.Name),
		zap.String("server_version", result.ServerInfo.Version))

	return &Endpoint{client: c, logger: logger}, nil
}

// ListTools fetches the service's tool catalog as registry descriptors.
func (e *Endpoint) ListTools(ctx context.Context) ([]browserloop.ToolDescriptor, error) {
	result, err := e.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}

	descriptors := make([]browserloop.ToolDescriptor, 0, len(result.Tools))
	for _, tool := range result.Tools {
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("encoding schema for tool %s: %w", tool.Name, err)
		}
		descriptors = append(descriptors, browserloop.ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			Schema:      schema,
		})
	}

	e.logger.Info("discovered tools", zap.Int("count", len(descriptors)))
	return descriptors, nil
}

// CallTool invokes a remote tool and converts its content items.
func (e *Endpoint) CallTool(ctx context.Context, name string, params map[string]any) (browserloop.ToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = params

	result, err := e.client.CallTool(ctx, req)
	if err != nil {
		return browserloop.ToolResult{}, fmt.Errorf("calling %s: %w", name, err)
	}

	converted, err := convertContent(result.Content)
	if err != nil {
		return browserloop.ToolResult{}, fmt.Errorf("decoding %s result: %w", name, err)
	}

	if result.IsError {
		return browserloop.ToolResult{Content: converted}, fmt.Errorf("tool %s reported an error: %s", name, firstTextOf(converted))
	}

	return browserloop.ToolResult{Content: converted}, nil
}

// Close shuts down the MCP session.
func (e *Endpoint) Close() error {
	return e.client.Close()
}

// convertContent maps MCP content items to browserloop content items,
// base64-decoding image payloads. Unknown content kinds are skipped.
func convertContent(items []mcp.Content) ([]browserloop.ContentItem, error) {
	out := make([]browserloop.ContentItem, 0, len(items))
	for _, item := range items {
		switch c := item.(type) {
		case mcp.TextContent:
			out = append(out, browserloop.ContentItem{Text: c.Text})
		case mcp.ImageContent:
			data, err := base64.StdEncoding.DecodeString(c.Data)
			if err != nil {
				return nil, fmt.Errorf("decoding image content: %w", err)
			}
			out = append(out, browserloop.ContentItem{ImageData: data, MIMEType: c.MIMEType})
		}
	}
	return out, nil
}

func firstTextOf(items []browserloop.ContentItem) string {
	for _, item := range items {
		if item.Text != "" {
			return item.Text
		}
	}
	return ""
}
