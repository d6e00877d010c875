// Command shellm is a terminal assistant backed by a locally hosted
// model. Plain input gets a single-pass answer; /agent runs the staged
// pipeline with context gathering and validation.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shellm/internal/agent"
	"shellm/internal/config"
	"shellm/internal/provider"
	"shellm/internal/review"
	"shellm/internal/sandbox"
	"shellm/internal/session"
	"shellm/internal/telemetry"
	"shellm/internal/workspace"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "shellm: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("shellm", flag.ExitOnError)
	modelFlag := fs.String("model", "", "model name served by Ollama")
	repoFlag := fs.String("repo", "", "workspace directory (default: current directory)")
	callLimitFlag := fs.Int("call-limit", 0, "model calls allowed per agent task (max 100)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	shutdownTelemetry, err := telemetry.Init(ctx, "shellm", version)
	if err != nil {
		log.Warn("telemetry disabled", zap.Error(err))
		shutdownTelemetry = func(context.Context) error { return nil }
	}
	defer shutdownTelemetry(context.Background())

	manager, err := config.NewManager()
	if err != nil {
		return err
	}
	cfg, err := manager.Load()
	if err != nil {
		return err
	}
	if *modelFlag != "" {
		cfg.Model = *modelFlag
	}
	if *callLimitFlag > 0 {
		cfg.CallLimit = config.ClampCallLimit(*callLimitFlag)
	}

	workDir := *repoFlag
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return err
		}
	}
	workDir, err = filepath.Abs(workDir)
	if err != nil {
		return err
	}

	ws, err := workspace.Open(workDir, log)
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	defer ws.Close()

	store, err := session.NewStore()
	if err != nil {
		return err
	}
	defer store.Close()

	completer := provider.New(provider.Options{
		Host:        cfg.Host,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})

	sandboxCfg := sandbox.ConfigFromEnv(log)
	sandboxCfg.Language = ws.Language()
	capturedRunner := sandbox.NewRunner(sandboxCfg, log)
	runner := &sandboxRunner{captured: capturedRunner, workDir: workDir}

	controller := agent.NewController(agent.ControllerOptions{
		Completer: completer,
		FS:        &agent.OSFS{Root: workDir},
		Runner:    runner,
		Confirmer: &stdinConfirmer{in: bufio.NewReader(os.Stdin)},
		Source:    ws,
		Hooks:     agent.Hooks{agent.ZapHook{Log: log}},
		CallLimit: cfg.CallLimit,
	})

	reviewer := review.New(capturedRunner, completer, workDir)

	r := &repl{
		controller: controller,
		reviewer:   reviewer,
		store:      store,
		log:        log,
		model:      completer.Model(),
		workDir:    workDir,
	}
	return r.loop(ctx)
}

func newLogger() (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if os.Getenv("SHELLM_DEBUG") != "" {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// stdinConfirmer asks y/N on the terminal. Anything but an explicit
// yes declines.
type stdinConfirmer struct {
	in *bufio.Reader
}

func (c *stdinConfirmer) Confirm(message string) bool {
	fmt.Printf("%s [y/N] ", message)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
