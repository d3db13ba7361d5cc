// ABOUTME: Entry point for the ghiseu-gateway workflow server
// ABOUTME: Serves the citizen chat API and the operator console API

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/unibuc-cs/ghiseu-gateway/internal/agents"
	"github.com/unibuc-cs/ghiseu-gateway/internal/caselife"
	"github.com/unibuc-cs/ghiseu-gateway/internal/config"
	"github.com/unibuc-cs/ghiseu-gateway/internal/gateway"
	"github.com/unibuc-cs/ghiseu-gateway/internal/intake"
	"github.com/unibuc-cs/ghiseu-gateway/internal/intent"
	"github.com/unibuc-cs/ghiseu-gateway/internal/metrics"
	"github.com/unibuc-cs/ghiseu-gateway/internal/operator"
	"github.com/unibuc-cs/ghiseu-gateway/internal/scheduling"
	"github.com/unibuc-cs/ghiseu-gateway/internal/session"
	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
	"github.com/unibuc-cs/ghiseu-gateway/internal/toolgw"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
       _     _                                  _
  __ _| |__ (_)___  ___ _   _        __ _  __ _| |_ _____      ____ _ _   _
 / _' | '_ \| / __|/ _ \ | | |_____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
| (_| | | | | \__ \  __/ |_| |_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
 \__, |_| |_|_|___/\___|\__,_|      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
 |___/                              |___/                             |___/
`

// getConfigPath returns the path to the gateway config file.
// Priority: GHISEU_CONFIG env var > XDG_CONFIG_HOME/ghiseu/gateway.yaml > ~/.config/ghiseu/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("GHISEU_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "ghiseu", "gateway.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: ghiseu-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                          Start the gateway server")
		fmt.Println("  operator add --user NAME       Create an operator account")
		fmt.Println("  health                         Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "operator":
		err = runOperator(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	fmt.Println()

	logger.Info("starting ghiseu-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"database", cfg.Database.Path,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	tools := toolgw.NewGateway(toolgw.Config{
		OCRURL:         cfg.Tools.OCRURL,
		EligibilityURL: cfg.Tools.EligibilityURL,
		NotifyURL:      cfg.Tools.NotifyURL,
		Timeout:        cfg.Tools.Timeout,
		RetryAttempts:  cfg.Tools.RetryAttempts,
	}, logger)
	tools.SetRetryObserver(func(tool string) {
		metrics.ToolRetries.WithLabelValues(tool).Inc()
	})

	sched := scheduling.NewService(st, logger)
	if cfg.Scheduling.SeedOnStart {
		if err := sched.SeedSlots(ctx, cfg.Scheduling.SeedDays, cfg.Scheduling.Locations); err != nil {
			return fmt.Errorf("seeding slots: %w", err)
		}
	}

	cases := caselife.NewService(st, logger)

	gw := gateway.New(
		gateway.Config{
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsPath:    cfg.Metrics.Path,
		},
		gateway.Deps{
			Sessions:   session.NewManager(st, logger),
			Router:     intent.NewRouter(intent.NewRuleClassifier()),
			Agents:     agents.NewRegistry(agents.NewIdentityAgent(tools, logger), agents.NewSocialAidAgent(logger), agents.NewHubGovAgent()),
			Intake:     intake.NewCoordinator(tools, logger),
			Scheduling: sched,
			Cases:      cases,
			Operators:  operator.NewService(st, cases, logger),
			Auth:       operator.NewAuthenticator(st, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, logger),
			Tools:      tools,
		},
		logger,
	)

	srv := gw.Server(cfg.Server.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runOperator handles "operator add --user NAME [--password PASS]".
// When --password is omitted a random one is generated and printed.
func runOperator(ctx context.Context) error {
	if len(os.Args) < 3 || os.Args[2] != "add" {
		return fmt.Errorf("usage: ghiseu-gateway operator add --user NAME [--password PASS]")
	}

	var username, password string
	args := os.Args[3:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--user" || arg == "-u":
			if i+1 >= len(args) {
				return fmt.Errorf("--user requires a value")
			}
			username = args[i+1]
			i++
		case strings.HasPrefix(arg, "--user="):
			username = strings.TrimPrefix(arg, "--user=")
		case arg == "--password" || arg == "-p":
			if i+1 >= len(args) {
				return fmt.Errorf("--password requires a value")
			}
			password = args[i+1]
			i++
		case strings.HasPrefix(arg, "--password="):
			password = strings.TrimPrefix(arg, "--password=")
		default:
			return fmt.Errorf("unknown argument: %s", arg)
		}
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("--user flag is required")
	}

	generated := false
	if password == "" {
		password = uuid.NewString()
		generated = true
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	auth := operator.NewAuthenticator(st, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, nil)
	op := &store.Operator{ID: uuid.NewString(), Username: username}
	if err := auth.Register(ctx, op, password); err != nil {
		return fmt.Errorf("registering operator: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("Operator %q created.\n", username)
	if generated {
		fmt.Printf("Generated password: %s\n", password)
		color.New(color.FgYellow).Println("Store it now; it is not shown again.")
	}
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
