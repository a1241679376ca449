package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"classd/internal/app"
	"classd/internal/catalog"
	"classd/internal/config"
	"classd/internal/engine"
	"classd/internal/events"
	"classd/internal/host"
	"classd/internal/httpapi"
	"classd/internal/modelcache"
	"classd/internal/session"
	"classd/pkg/types"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cfg := defaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "classd",
		Short:         "Batch text analysis over rule-based and learned classifiers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (.yaml/.json/.toml)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&cfg.ModelStoreDir, "model-store", cfg.ModelStoreDir, "Directory holding downloaded model assets")
	root.PersistentFlags().StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "Optional catalog file adding learned analyzers")
	root.PersistentFlags().StringVar(&cfg.WorkerBin, "worker-bin", cfg.WorkerBin, "Inference worker binary")
	root.PersistentFlags().StringVar(&cfg.Runtime, "runtime", cfg.Runtime, "Inference runtime: auto|subprocess|llama")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfgPath == "" {
			return nil
		}
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		mergeConfig(&cfg, loaded, cmd)
		return nil
	}

	root.AddCommand(buildServeCmd(&cfg))
	root.AddCommand(buildAnalyzeCmd(&cfg))
	return root
}

func defaultConfig() config.Config {
	cfg := config.Config{
		Addr:          ":8080",
		ModelStoreDir: "~/models/classifiers",
		WorkerBin:     "classd-worker",
		Runtime:       "auto",
		MaxLines:      50,
		MaxLineChars:  2500,
		LogLevel:      "info",
	}
	if v := os.Getenv("CLASSD_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("CLASSD_MODEL_STORE"); v != "" {
		cfg.ModelStoreDir = v
	}
	if v := os.Getenv("CLASSD_WORKER_BIN"); v != "" {
		cfg.WorkerBin = v
	}
	return cfg
}

// mergeConfig overlays file values onto cfg without clobbering values the
// user set explicitly on the command line.
func mergeConfig(cfg *config.Config, file config.Config, cmd *cobra.Command) {
	changed := func(name string) bool {
		f := cmd.InheritedFlags().Lookup(name)
		if f == nil {
			f = cmd.Flags().Lookup(name)
		}
		return f != nil && f.Changed
	}
	if file.Addr != "" && !changed("addr") {
		cfg.Addr = file.Addr
	}
	if file.ModelStoreDir != "" && !changed("model-store") {
		cfg.ModelStoreDir = file.ModelStoreDir
	}
	if file.CatalogPath != "" && !changed("catalog") {
		cfg.CatalogPath = file.CatalogPath
	}
	if file.WorkerBin != "" && !changed("worker-bin") {
		cfg.WorkerBin = file.WorkerBin
	}
	if file.WorkerHost != "" {
		cfg.WorkerHost = file.WorkerHost
	}
	if file.WorkerPortStart != 0 {
		cfg.WorkerPortStart = file.WorkerPortStart
	}
	if file.WorkerPortEnd != 0 {
		cfg.WorkerPortEnd = file.WorkerPortEnd
	}
	if file.Runtime != "" && !changed("runtime") {
		cfg.Runtime = file.Runtime
	}
	if file.MaxLines != 0 {
		cfg.MaxLines = file.MaxLines
	}
	if file.MaxLineChars != 0 {
		cfg.MaxLineChars = file.MaxLineChars
	}
	if file.LogLevel != "" && !changed("log-level") {
		cfg.LogLevel = file.LogLevel
	}
	cfg.CORSEnabled = file.CORSEnabled
	if len(file.CORSOrigins) != 0 {
		cfg.CORSOrigins = file.CORSOrigins
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// stack is the wired application: catalog, cache inspector, host runtime
// and engine behind the HTTP service facade.
type stack struct {
	app       *app.App
	engine    *engine.Engine
	analyzers []types.Analyzer
}

func buildStack(cfg config.Config, scanGGUF bool, log zerolog.Logger) (*stack, error) {
	analyzers := catalog.Builtins()
	if cfg.CatalogPath != "" {
		var err error
		analyzers, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}
	if scanGGUF {
		// Local gguf weights become catalog entries for in-process runtimes.
		found, err := catalog.ScanGGUF(cfg.ModelStoreDir)
		if err != nil {
			return nil, fmt.Errorf("scan gguf: %w", err)
		}
		analyzers = append(analyzers, found...)
	}
	cache, err := modelcache.New(cfg.ModelStoreDir)
	if err != nil {
		return nil, fmt.Errorf("model store: %w", err)
	}
	rt, err := newRuntime(cfg, log)
	if err != nil {
		return nil, err
	}
	hosts := host.NewController(rt, events.NopPublisher{}, log)
	eng := engine.New(engine.Config{
		Hosts:    hosts,
		Sessions: session.NewManager(log),
		Logger:   log,
	})
	return &stack{app: app.New(eng, analyzers, cache), engine: eng, analyzers: analyzers}, nil
}

// newRuntime selects the execution-context runtime. "auto" prefers the
// in-process llama.cpp runtime when the binary carries it (gguf catalog
// entries only run there) and falls back to the worker subprocess.
func newRuntime(cfg config.Config, log zerolog.Logger) (host.Runtime, error) {
	switch cfg.Runtime {
	case "", "auto":
		if host.LlamaBuilt() {
			return host.NewLlamaRuntime(host.LlamaConfig{ModelStoreDir: cfg.ModelStoreDir}), nil
		}
	case "llama":
		if !host.LlamaBuilt() {
			return nil, fmt.Errorf("runtime llama requires a binary built with the 'llama' tag")
		}
		return host.NewLlamaRuntime(host.LlamaConfig{ModelStoreDir: cfg.ModelStoreDir}), nil
	case "subprocess":
	default:
		return nil, fmt.Errorf("unknown runtime %q (want auto, subprocess or llama)", cfg.Runtime)
	}
	return host.NewSubprocessRuntime(host.WorkerConfig{
		Bin:           cfg.WorkerBin,
		Host:          cfg.WorkerHost,
		PortStart:     cfg.WorkerPortStart,
		PortEnd:       cfg.WorkerPortEnd,
		ModelStoreDir: cfg.ModelStoreDir,
	}, log), nil
}

func buildServeCmd(cfg *config.Config) *cobra.Command {
	var scanGGUF bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP analysis server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cfg.LogLevel)
			s, err := buildStack(*cfg, scanGGUF, log)
			if err != nil {
				return err
			}

			httpapi.SetLogger(log)
			httpapi.SetBatchLimits(cfg.MaxLines, cfg.MaxLineChars)
			if cfg.CORSEnabled {
				httpapi.SetCORSOptions(true, cfg.CORSOrigins,
					[]string{http.MethodGet, http.MethodPost, http.MethodOptions},
					[]string{"Content-Type"})
			}
			baseCtx, cancel := context.WithCancel(context.Background())
			defer cancel()
			httpapi.SetBaseContext(baseCtx)

			srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(s.app)}
			go func() {
				log.Info().Str("addr", cfg.Addr).Str("model_store", cfg.ModelStoreDir).Msg("classd listening")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("server error")
				}
			}()

			// Graceful shutdown (Ctrl+C / SIGTERM)
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop
			cancel()
			ctx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("graceful shutdown error")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address, e.g. :8080")
	cmd.Flags().BoolVar(&scanGGUF, "scan-gguf", false, "Add *.gguf files under the model store to the catalog")
	return cmd
}

func buildAnalyzeCmd(cfg *config.Config) *cobra.Command {
	var (
		ids      []string
		keep     bool
		scanGGUF bool
	)
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze a batch of lines and print the result matrix",
		Long:  "Reads one text line per input line from the file argument (or stdin) and prints the completed result matrix as JSON.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cfg.LogLevel)
			s, err := buildStack(*cfg, scanGGUF, log)
			if err != nil {
				return err
			}
			lines, err := readLines(args)
			if err != nil {
				return err
			}
			sel, err := catalog.Select(s.analyzers, ids)
			if err != nil {
				return err
			}
			if _, err := s.engine.Run(cmd.Context(), engine.RunRequest{
				Lines:            lines,
				Analyzers:        sel,
				KeepAssetsLoaded: keep,
			}); err != nil {
				return err
			}
			snap, ok := s.engine.Result()
			if !ok {
				return fmt.Errorf("run produced no result")
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringSliceVar(&ids, "analyzers", nil, "Analyzer ids to run, in order (default: whole catalog)")
	cmd.Flags().BoolVar(&keep, "keep-assets", false, "Keep the inference host alive after the run")
	cmd.Flags().BoolVar(&scanGGUF, "scan-gguf", false, "Add *.gguf files under the model store to the catalog")
	return cmd
}

func readLines(args []string) ([]string, error) {
	data, err := readInput(args)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines, nil
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}
