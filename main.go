// Command pairbroker starts the pairing broker server.
//
// It supports two modes:
//  1. "server" (default) - runs the HTTP server exposing the websocket lobby, REST API, and an /mcp endpoint
//  2. "stdio-mcp" - runs an MCP stdio server against a running broker, or an internal one if none answers
//
// Settings come from defaults, an optional TOML file (--config), the
// environment (including a .env file), and flags, in increasing priority.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/pairbroker/api"
	"github.com/wricardo/pairbroker/game/broker"
	"github.com/wricardo/pairbroker/game/config"
	"github.com/wricardo/pairbroker/game/service"
	"github.com/wricardo/pairbroker/transport/mcp"
	"github.com/wricardo/pairbroker/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Pairing Broker"
)

// main loads .env and runs the CLI
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatalf("%s: %v", AppName, err)
	}
}

// newApp builds the command tree. Running with no subcommand starts the server.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "pairbroker",
		Usage:   "Pair anonymous websocket players into two-party sessions",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "TOML configuration file",
				Sources: cli.EnvVars("PAIRBROKER_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "host",
				Value:   config.Default().Host,
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("PAIRBROKER_HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   config.Default().Port,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PAIRBROKER_PORT", "PORT"),
			},
			&cli.StringFlag{
				Name:    "static-dir",
				Value:   config.Default().StaticDir,
				Usage:   "Directory of static files served at / (empty disables)",
				Sources: cli.EnvVars("PAIRBROKER_STATIC_DIR"),
			},
			&cli.StringFlag{
				Name:    "allowed-origins",
				Usage:   "Comma-separated websocket origins to accept (default: all)",
				Sources: cli.EnvVars("PAIRBROKER_ALLOWED_ORIGINS"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			} else {
				log.SetFlags(log.LstdFlags)
			}
			return ctx, nil
		},
		Action: serverAction,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with websocket lobby, REST API, and MCP endpoint (default)",
				Action:  serverAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Usage:   "Broker API to proxy (default: http://<host>:<port>)",
						Sources: cli.EnvVars("PAIRBROKER_API_URL"),
					},
				},
				Action: stdioMCPAction,
			},
		},
	}
}

// buildConfig merges defaults, the TOML file and any flag or env overrides
func buildConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()

	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("static-dir") {
		cfg.StaticDir = cmd.String("static-dir")
	}
	if cmd.IsSet("allowed-origins") {
		cfg.AllowedOrigins = config.ParseOrigins(cmd.String("allowed-origins"))
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		cfg.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func serverAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	log.Printf("Starting %s v%s (mode: server)", AppName, Version)
	return runHTTPServer(ctx, cfg)
}

func stdioMCPAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	apiURL := cmd.String("api-url")
	if apiURL == "" {
		apiURL = "http://" + cfg.Addr()
	}

	log.Printf("Starting %s v%s (mode: stdio-mcp)", AppName, Version)
	return runStdioMCP(cfg, apiURL)
}

// services bundles the long-lived components of one broker instance
type services struct {
	broker *broker.Broker
	hub    *websocket.Hub
	lobby  service.LobbyService
}

// initializeServices wires the broker, websocket hub, and lobby service.
// The caller must run hub.Run and eventually hub.Close.
func initializeServices(cfg config.Config) *services {
	b := broker.New()
	hub := websocket.NewHub(b, cfg)

	return &services{
		broker: b,
		hub:    hub,
		lobby:  service.NewLobbyService(b, hub, Version),
	}
}

// newRouter combines the API server and the /mcp endpoint
func newRouter(svc *services, cfg config.Config, mcpClient *mcp.Client) http.Handler {
	mainRouter := http.NewServeMux()

	// Mount API server at root
	mainRouter.Handle("/", api.NewServer(svc.lobby, svc.hub, cfg.StaticDir))

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// runHTTPServer serves the lobby until SIGINT/SIGTERM.
// If ngrok is enabled it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cfg config.Config) error {
	svc := initializeServices(cfg)
	go svc.hub.Run()

	addr := cfg.Addr()
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr), Version)
	handler := newRouter(svc, cfg, mcpClient)

	// Websocket connections are hijacked, so the timeouts only cover plain HTTP
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("WebSocket lobby: ws://%s/ws", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTunnel(ctx, cfg.Ngrok, handler)
		}()
	}

	var runErr error
	select {
	case sig := <-stop:
		log.Printf("Received signal: %v. Shutting down...", sig)
	case runErr = <-serveErr:
		log.Printf("HTTP server failed: %v", runErr)
	}
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	svc.hub.Close()

	wg.Wait()
	log.Println("Server stopped")
	return runErr
}

// runTunnel exposes handler through ngrok until ctx is cancelled
func runTunnel(ctx context.Context, cfg config.NgrokConfig, handler http.Handler) {
	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Printf("Using custom ngrok domain: %s", cfg.Domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  WebSocket lobby (ngrok): %s/ws", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server stopped: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server.
// It proxies to apiURL when a broker answers there; otherwise it starts a
// private broker on a random loopback port and targets that.
func runStdioMCP(cfg config.Config, apiURL string) error {
	baseURL := apiURL

	log.Printf("Checking for broker API at %s...", apiURL)
	if !apiAvailable(apiURL) {
		log.Printf("No broker API found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		svc := initializeServices(cfg)
		go svc.hub.Run()
		defer svc.hub.Close()

		internal := &http.Server{
			Handler: api.NewServer(svc.lobby, svc.hub, ""),
		}
		go func() {
			if err := internal.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer internal.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		log.Printf("Internal HTTP server on %s", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL, Version)
	log.Printf("MCP stdio server ready (proxying %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether a broker health endpoint answers at baseURL
func apiAvailable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}
