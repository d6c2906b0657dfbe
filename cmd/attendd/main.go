// attendd is the meeting-assistant daemon: it captures screen text and
// microphone audio in the background, keeps rolling context buffers, and
// answers client queries over a Unix socket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jcarver/attend/internal/asr"
	"github.com/jcarver/attend/internal/assist"
	"github.com/jcarver/attend/internal/capture"
	"github.com/jcarver/attend/internal/config"
	"github.com/jcarver/attend/internal/daemon"
	"github.com/jcarver/attend/internal/db"
	"github.com/jcarver/attend/internal/llm"
	attendmcp "github.com/jcarver/attend/internal/mcp"
)

const version = "0.1.0"

// shutdownGrace bounds how long we wait for background loops on exit. A
// loop stuck inside a blocking capture is abandoned, not joined forever.
const shutdownGrace = 3 * time.Second

func main() {
	var (
		configPath = flag.String("config", config.DefaultPath(), "Path to config file")
		socketPath = flag.String("socket", "", "Unix socket path (overrides config)")
		dbPath     = flag.String("db", "", "SQLite database path (overrides config)")
		mcpAddr    = flag.String("mcp", "", "MCP SSE listen address (overrides config)")
		noAudio    = flag.Bool("no-audio", false, "Disable microphone capture")
		noScreen   = flag.Bool("no-screen", false, "Disable screen capture")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "attendd: %v\n", err)
		os.Exit(1)
	}
	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *mcpAddr != "" {
		cfg.MCPAddr = *mcpAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "attendd: invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, logClose := setupLogger(cfg.LogFile)
	defer logClose()

	if err := run(cfg, logger, *noAudio, *noScreen); err != nil {
		logger.Error("daemon failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, noAudio, noScreen bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence.
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	session, err := store.CreateSession()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() {
		if err := store.EndSession(session.ID); err != nil {
			logger.Warn("end session failed", "err", err)
		}
	}()
	logger.Info("session started", "session", session.ID)

	// Context buffers.
	ring := capture.NewRing(cfg.RetentionWindow.Std(), cfg.ContextFragments, cfg.MinTranscriptChars)
	screen := capture.NewScreenCache(
		capture.NewTesseractOCR(cfg.TesseractCommand, logger),
		cfg.ScreenInterval.Std(),
		cfg.MinScreenChars,
		logger,
	)

	// Response collaborator.
	keys, err := llm.NewKeyPool(cfg.APIKeys)
	if err != nil {
		return err
	}
	responder := llm.NewGeminiResponder(cfg.Model, logger)
	orch := &assist.Orchestrator{
		Screen:    screen,
		Audio:     ring,
		Responder: responder,
		Keys:      keys,
		Logger:    logger,
	}

	// Startup probe: log whether the first credential works. Failure is
	// informational; rotation handles bad leading keys at query time.
	go func() {
		probeCtx, probeCancel := context.WithTimeout(ctx, 15*time.Second)
		defer probeCancel()
		if _, err := responder.Generate(probeCtx, "Reply with OK.", keys.Current()); err != nil {
			logger.Warn("startup model probe failed", "err", err)
		} else {
			logger.Info("model reachable", "model", cfg.Model)
		}
	}()

	// Control server.
	srv := &daemon.Server{
		SocketPath: cfg.SocketPath,
		Orch:       orch,
		Screen:     screen,
		Ring:       ring,
		Store:      store,
		SessionID:  session.ID,
		Model:      cfg.Model,
		Logger:     logger,
	}
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop(shutdownGrace)

	var wg sync.WaitGroup

	// Screen warm loop.
	if !noScreen {
		wg.Add(1)
		go func() {
			defer wg.Done()
			screen.Run(ctx)
		}()
	} else {
		logger.Info("screen capture disabled")
	}

	// Audio capture loop. A missing input device degrades to screen-only
	// operation rather than failing the daemon.
	if !noAudio {
		recorder, err := capture.NewPortAudioRecorder(cfg.SampleRate, cfg.Channels)
		if err != nil {
			logger.Warn("audio capture unavailable", "err", err)
		} else {
			defer recorder.Close()
			listener := &capture.Listener{
				Recorder: recorder,
				Engine: asr.NewWhisperEngine(
					cfg.WhisperCommand, cfg.WhisperModel,
					cfg.SampleRate, cfg.Channels, logger,
				),
				Ring:       ring,
				Chunk:      cfg.ChunkSeconds.Std(),
				Logger:     logger,
				OnFragment: srv.NotifyFragment,
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				listener.Run(ctx)
			}()
		}
	} else {
		logger.Info("audio capture disabled")
	}

	// Optional MCP surface.
	var mcpSrv *attendmcp.Server
	if cfg.MCPAddr != "" {
		mcpSrv = attendmcp.NewServer(version, screen, ring, orch, logger)
		go func() {
			if err := mcpSrv.Start(cfg.MCPAddr); err != nil {
				logger.Warn("mcp server stopped", "err", err)
			}
		}()
	}

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	cancel()
	if mcpSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()
		_ = mcpSrv.Shutdown(shutdownCtx)
	}

	// Bounded join: a capture loop blocked inside PortAudio may outlive
	// the grace period; abandon it rather than hanging.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		logger.Warn("capture loops did not exit in time; abandoning")
	}

	return nil
}

// setupLogger logs JSON to the configured file and text to stderr.
func setupLogger(logFile string) (*slog.Logger, func()) {
	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})

	if logFile == "" {
		logger := slog.New(stderrHandler)
		slog.SetDefault(logger)
		return logger, func() {}
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger := slog.New(stderrHandler)
		logger.Warn("open log file failed; logging to stderr only", "err", err)
		slog.SetDefault(logger)
		return logger, func() {}
	}

	logger := slog.New(newFanoutHandler(
		stderrHandler,
		slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))
	slog.SetDefault(logger)
	return logger, func() { _ = f.Close() }
}

// fanoutHandler duplicates records to multiple handlers.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) *fanoutHandler {
	return &fanoutHandler{handlers: handlers}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, hh := range h.handlers {
		if !hh.Enabled(ctx, r.Level) {
			continue
		}
		if err := hh.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
