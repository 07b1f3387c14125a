// Package app wires the process together: logging router, hub, HTTP
// surface, and the simulation loop.
package app

import (
	"context"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"strconv"
	"time"

	"deepwarren/server/internal/hub"
	servernet "deepwarren/server/internal/net"
	"deepwarren/server/internal/telemetry"
	"deepwarren/server/logging"
	loggingsinks "deepwarren/server/logging/sinks"
	"deepwarren/server/tiles/catalog"
)

type Config struct {
	Addr     string
	Hub      hub.Config
	Logging  logging.Config
	TilePath string
	Logger   telemetry.Logger
}

func DefaultConfig() Config {
	return Config{
		Addr:    ":8080",
		Hub:     hub.DefaultConfig(),
		Logging: logging.DefaultConfig(),
	}
}

// Run boots the server and blocks until the listener fails or ctx is
// cancelled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	applyEnvOverrides(&cfg, logger)

	sinkList := []logging.NamedSink{
		{Name: "console", Sink: loggingsinks.NewConsole(os.Stdout, cfg.Logging.Console)},
	}
	if cfg.Logging.HasSink("json") {
		out := os.Stdout
		if path := cfg.Logging.JSON.FilePath; path != "" {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open json log file: %w", err)
			}
			defer f.Close()
			out = f
		}
		sinkList = append(sinkList, logging.NamedSink{Name: "json", Sink: loggingsinks.NewJSON(out, cfg.Logging.JSON.FlushInterval)})
	}

	router, err := logging.NewRouter(nil, cfg.Logging, sinkList)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	resolver := catalog.Default()
	if cfg.TilePath != "" {
		loaded, err := catalog.Load(cfg.TilePath)
		if err != nil {
			return fmt.Errorf("load tile catalog: %w", err)
		}
		resolver = loaded
	}

	hubCfg := cfg.Hub
	hubCfg.Logger = logger
	hubCfg.Publisher = router
	if hubCfg.Metrics == nil {
		hubCfg.Metrics = telemetry.NewCounters()
	}
	h := hub.New(hubCfg, resolver)

	stop := make(chan struct{})
	go h.RunSimulation(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(h, servernet.HandlerConfig{Logger: logger})
	srv := &nethttp.Server{Addr: cfg.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	logger.Printf("server listening on %s (map %s, tick rate %d)", cfg.Addr, hubCfg.MapID, hubCfg.TickRate)
	if err := srv.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// applyEnvOverrides keeps container deployments configurable without a
// config file. Malformed values are logged and ignored.
func applyEnvOverrides(cfg *Config, logger telemetry.Logger) {
	if raw := os.Getenv("DW_ADDR"); raw != "" {
		cfg.Addr = raw
	}
	if raw := os.Getenv("DW_SEED"); raw != "" {
		cfg.Hub.Seed = raw
	}
	if raw := os.Getenv("DW_MAP_ID"); raw != "" {
		cfg.Hub.MapID = raw
	}
	if raw := os.Getenv("DW_TILE_CATALOG"); raw != "" {
		cfg.TilePath = raw
	}
	if raw := os.Getenv("DW_TICK_RATE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			cfg.Hub.TickRate = value
		} else {
			logger.Printf("invalid DW_TICK_RATE=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("DW_MAP_WIDTH_CHUNKS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			cfg.Hub.WidthChunks = value
		} else {
			logger.Printf("invalid DW_MAP_WIDTH_CHUNKS=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("DW_MAP_HEIGHT_CHUNKS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			cfg.Hub.HeightChunks = value
		} else {
			logger.Printf("invalid DW_MAP_HEIGHT_CHUNKS=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("DW_PATH_CACHE_TTL_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Hub.Nav.CacheTTL = time.Duration(value) * time.Millisecond
		} else {
			logger.Printf("invalid DW_PATH_CACHE_TTL_MS=%q: %v", raw, err)
		}
	}
	if raw := os.Getenv("DW_PATH_REQUESTS_PER_TICK"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			cfg.Hub.Nav.MaxRequestsPerTick = value
		} else {
			logger.Printf("invalid DW_PATH_REQUESTS_PER_TICK=%q: %v", raw, err)
		}
	}
}
