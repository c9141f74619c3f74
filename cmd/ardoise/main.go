// CLAUDE:SUMMARY Entry point for the ardoise board server — YAML config with env fallbacks, observability journal, mDNS advertising, graceful shutdown.
// Command ardoise runs the collaborative whiteboard server.
//
// Usage:
//
//	ardoise                        # defaults: :3000, JSON snapshot under data/
//	ardoise -config ardoise.yaml   # full configuration
//	ardoise -discover              # list boards advertised on the LAN and exit
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/ardoise/board"
	"github.com/hazyhaar/ardoise/dbopen"
	"github.com/hazyhaar/ardoise/discovery"
	"github.com/hazyhaar/ardoise/observability"
	"github.com/hazyhaar/ardoise/rest"
	"github.com/hazyhaar/ardoise/wsgate"
)

func main() {
	configPath := flag.String("config", "", "path to ardoise.yaml config file")
	listen := flag.String("listen", "", "listen address (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	discover := flag.Bool("discover", false, "list boards advertised on the LAN and exit")
	flag.Parse()

	if *discover {
		if err := runDiscover(); err != nil {
			fmt.Fprintln(os.Stderr, "discover:", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The journal and heartbeats live apart from the snapshot store so a
	// slow save never contends with event writes.
	obsDB, err := dbopen.Open(cfg.Observability.DBPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("observability db", "error", err)
		os.Exit(1)
	}
	defer obsDB.Close()
	if err := observability.Init(obsDB); err != nil {
		slog.Error("observability init", "error", err)
		os.Exit(1)
	}

	journal := observability.NewJournal(obsDB, 1000)
	defer journal.Close()

	heartbeat := observability.NewHeartbeatWriter(obsDB, "ardoise", cfg.Observability.HeartbeatInterval)
	heartbeat.Start(ctx)
	defer heartbeat.Stop()

	go retentionLoop(ctx, obsDB, cfg.Observability.RetentionDays)

	// Board engine.
	svc, err := board.New(board.Config{
		MaxLogSize:   cfg.Board.MaxLogSize,
		SettleDelay:  cfg.Board.SettleDelay,
		SaveInterval: cfg.Board.SaveInterval,
		Backend:      cfg.Board.Backend,
		DataFile:     cfg.Board.DataFile,
		DBPath:       cfg.Board.DBPath,
	}, logger, board.WithJournal(journal))
	if err != nil {
		slog.Error("board service", "error", err)
		os.Exit(1)
	}
	if err := svc.Start(ctx); err != nil {
		slog.Error("board start", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	gateway := wsgate.New(svc,
		wsgate.WithLogger(logger),
		wsgate.WithSendBuffer(cfg.WS.SendBuffer),
	)

	r := rest.NewRouter(svc, gateway, journal, time.Now())

	// LAN advertising, so clients can find the board without typing its IP.
	if cfg.Discovery {
		if port, err := listenPort(cfg.Listen); err != nil {
			slog.Warn("discovery disabled: cannot determine port", "listen", cfg.Listen, "error", err)
		} else if adv, err := discovery.Advertise(port, cfg.InstanceName, logger); err != nil {
			slog.Warn("discovery disabled", "error", err)
		} else {
			defer adv.Close()
		}
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Listen, "join", joinURL(cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// runDiscover browses the LAN for advertised boards and prints join URLs.
func runDiscover() error {
	found := 0
	err := discovery.Browse(func(addr string) {
		found++
		fmt.Printf("http://%s\n", addr)
	})
	if err != nil {
		return err
	}
	if found == 0 {
		fmt.Println("no boards found")
	}
	return nil
}

// retentionLoop prunes journal rows and heartbeats past the retention window
// once a day. days <= 0 disables cleanup.
func retentionLoop(ctx context.Context, db *sql.DB, days int) {
	if days <= 0 {
		return
	}
	run := func() {
		err := observability.Cleanup(ctx, db, observability.RetentionConfig{
			EventsDays:     days,
			HeartbeatsDays: days,
		})
		if err != nil && ctx.Err() == nil {
			slog.Warn("retention cleanup", "error", err)
		}
	}
	run()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func listenPort(listen string) (int, error) {
	_, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}

// joinURL renders the address other devices on the LAN should open.
func joinURL(listen string) string {
	port, err := listenPort(listen)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("http://%s:%d", discovery.LocalIPv4(), port)
}

// --- Configuration ---

// config is the top-level ardoise configuration.
type config struct {
	Listen        string        `yaml:"listen"`
	LogLevel      string        `yaml:"log_level"`
	InstanceName  string        `yaml:"instance_name"`
	Discovery     bool          `yaml:"discovery"`
	Board         boardSection  `yaml:"board"`
	Observability observSection `yaml:"observability"`
	WS            wsSection     `yaml:"ws"`
}

type boardSection struct {
	MaxLogSize   int           `yaml:"max_log_size"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	SaveInterval time.Duration `yaml:"save_interval"`
	Backend      string        `yaml:"backend"` // file | sqlite
	DataFile     string        `yaml:"data_file"`
	DBPath       string        `yaml:"db_path"`
}

type observSection struct {
	DBPath            string        `yaml:"db_path"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	RetentionDays     int           `yaml:"retention_days"` // -1 disables cleanup
}

type wsSection struct {
	SendBuffer int `yaml:"send_buffer"`
}

// loadConfig reads the YAML file when path is set; an empty path yields the
// zero config, filled in by applyEnv and applyDefaults.
func loadConfig(path string) (*config, error) {
	var cfg config
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv fills unset fields from container-style environment variables.
func (c *config) applyEnv() {
	if c.Listen == "" {
		if p := os.Getenv("PORT"); p != "" {
			c.Listen = ":" + p
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = os.Getenv("LOG_LEVEL")
	}
	if d := os.Getenv("DATA_DIR"); d != "" {
		if c.Board.DataFile == "" {
			c.Board.DataFile = filepath.Join(d, "canvas-data.json")
		}
		if c.Board.DBPath == "" {
			c.Board.DBPath = filepath.Join(d, "strokes.db")
		}
		if c.Observability.DBPath == "" {
			c.Observability.DBPath = filepath.Join(d, "observability.db")
		}
	}
}

func (c *config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":3000"
	}
	if c.Observability.DBPath == "" {
		c.Observability.DBPath = "data/observability.db"
	}
	if c.Observability.HeartbeatInterval <= 0 {
		c.Observability.HeartbeatInterval = 15 * time.Second
	}
	if c.Observability.RetentionDays == 0 {
		c.Observability.RetentionDays = 14
	}
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 256
	}
	// The board section keeps its zero values: board.New applies the
	// engine defaults itself.
}
