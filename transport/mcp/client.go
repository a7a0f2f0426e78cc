package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/pairbroker/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	version    string
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL, version string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		version: version,
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Pairing Broker",
		c.version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Pairing Broker - MCP Interface

This is a thin client that proxies read-only requests to the broker's REST API.
Players connect over websockets at /ws; they are matched first come, first served,
and moves are relayed between the two players of each session.

AVAILABLE TOOLS:
- lobby_stats: Queue depth, active sessions and relay counters
- health: Server liveness and version
- protocol_guide: The websocket message protocol`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "lobby_stats",
		Description: "Get matchmaking statistics: waiting players, active sessions, moves relayed",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleLobbyStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "health",
		Description: "Check that the broker is up",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleHealth)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "protocol_guide",
		Description: "Describe the websocket message protocol used by players",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleProtocolGuide)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes a call to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) handleLobbyStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.LobbyStats
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLobbyStats(&stats)), nil
}

func (c *Client) handleHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var health service.HealthInfo
	if err := c.apiCall(ctx, "GET", "/api/health", nil, &health); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Status: %s\nVersion: %s\nUptime: %s",
		health.Status, health.Version, health.Uptime)), nil
}

func (c *Client) handleProtocolGuide(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(protocolGuide), nil
}

// formatLobbyStats renders stats for humans
func formatLobbyStats(stats *service.LobbyStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Connected players: %d\n", stats.Connected)
	fmt.Fprintf(&b, "Waiting for an opponent: %d\n", stats.Queued)
	fmt.Fprintf(&b, "Active sessions: %d\n", stats.ActiveSessions)
	fmt.Fprintf(&b, "Sessions started: %d\n", stats.SessionsStarted)
	fmt.Fprintf(&b, "Moves relayed: %d (dropped: %d)\n", stats.MovesRelayed, stats.MovesDropped)
	fmt.Fprintf(&b, "Uptime: %s", stats.Uptime)
	return b.String()
}

const protocolGuide = `WEBSOCKET PROTOCOL

Connect to /ws. Every frame is a JSON object {"event": ..., "data": ...}.

Client to server:
  {"event":"move","data":{"slot":4}}   relayed to the opponent verbatim
  {"event":"reset"}                     leave the current session and find a new opponent

Server to client:
  {"event":"startGame","data":{"isFirst":true}}   paired; the player who waited longer goes first
  {"event":"opponentMove","data":{"slot":4}}      the opponent's move
  {"event":"opponentDisconnect"}                  the opponent left; send reset to play again

Players are matched in arrival order. A player with no opponent simply waits;
no message is sent until a partner arrives.`
