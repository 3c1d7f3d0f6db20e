package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cvurl/internal/browser"
	"cvurl/internal/capability"
	"cvurl/internal/config"
	"cvurl/internal/domain"
	"cvurl/internal/extractor"
	"cvurl/internal/fetcher"
	"cvurl/internal/formatter"
	"cvurl/internal/logger"
	"cvurl/internal/metrics"
	"cvurl/internal/pipeline"
	"cvurl/internal/softfail"
)

var version = "dev"

var (
	cfgFile      string
	outputFormat string
	outputFile   string
	mode         string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "cvurl [URL]",
		Short:   "A curl-like tool that returns the résumé text behind a profile URL",
		Version: version,
		Long: `cvurl fetches one profile or résumé URL and prints its usable text for
downstream analysis. Bot-protected sites are rendered in a stealth headless
browser or a remote reader; profile pages are parsed into labeled sections;
everything else is reduced to its visible text.`,
		Example: `  # Extract a public profile
  cvurl https://www.linkedin.com/in/someone

  # Print the JSON response the HTTP service would return
  cvurl -f json example.com/cv

  # Force the rendering tiers and save the result
  cvurl --mode stealth -o cv.txt https://example.com/cv

  # Run the HTTP service
  cvurl serve --port 8080

  # Show what the selected tier returned, as markdown
  cvurl dump -l content https://example.com/cv`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				os.Exit(0)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE:         run,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./config.yaml)")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("browser", "", "Chrome executable for the stealth tier")
	pf.String("control-url", "", "DevTools websocket URL of a running browser")
	pf.StringP("proxy", "p", "", "Proxy URL for the stealth tier (e.g. http://127.0.0.1:7890)")
	pf.String("reader", "", "Remote reader endpoint the target URL is appended to")
	pf.Int("max-chars", 0, "Maximum characters of returned text")

	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format (text, json)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (format inferred from extension if -f not specified)")
	rootCmd.Flags().StringVar(&mode, "mode", string(fetcher.ModeAuto), "Fetch mode (auto, fast, stealth)")

	rootCmd.AddCommand(newServeCmd(), newDumpCmd())
	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	if outputFile != "" && !cmd.Flags().Changed("format") {
		if f := formatter.InferFormat(outputFile); f == "json" || f == "text" {
			outputFormat = f
		}
	}
	if outputFormat != "text" && outputFormat != "json" {
		return fmt.Errorf("invalid output format: %s", outputFormat)
	}
	m, err := fetcher.ParseMode(mode)
	if err != nil {
		return err
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := a.orchestrator().Extract(ctx, pipeline.Request{URL: args[0], Mode: m})

	rendered, err := formatter.Outcome(out, outputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	if !out.OK && outputFormat == "text" {
		return errors.New(rendered)
	}
	if err := write(outputFile, rendered); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("extraction failed: %s", out.Reason)
	}
	return nil
}

// write sends s to path, or to stdout when path is empty.
func write(path, s string) error {
	if path == "" {
		fmt.Println(s)
		return nil
	}
	if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Output written to: %s\n", path)
	return nil
}

// app is the process-wide wiring shared by every command.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	metrics    *metrics.Metrics
	caps       capability.Set
	classifier *domain.Classifier
	executor   *fetcher.Executor
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return nil, err
	}

	browserCfg := browser.Config{
		ControlURL: cfg.Fetch.Stealth.ControlURL,
		Bin:        cfg.Fetch.Stealth.BrowserBin,
		ProxyURL:   cfg.Fetch.Stealth.Proxy,
		Headless:   cfg.Fetch.Stealth.Headless,
		NoSandbox:  cfg.Fetch.Stealth.NoSandbox,
	}
	caps := capability.Detect(capability.Options{
		StealthEnabled: cfg.Fetch.Stealth.Enabled,
		Browser:        browserCfg,
		ReaderEndpoint: cfg.Fetch.Reader.Endpoint,
		LightEnabled:   cfg.Fetch.Light.Enabled,
		RawEnabled:     cfg.Fetch.Raw.Enabled,
	})
	log.Info("Capabilities detected",
		zap.Strings("tiers", caps.Tiers()),
		zap.String("browser", caps.BrowserSource),
	)
	if !caps.AnyFetcher() {
		log.Warn("No fetch tier is available; every extraction will fail")
	}

	m := metrics.New()
	client := &http.Client{}
	executor := fetcher.NewExecutor(caps, log, m,
		fetcher.NewStealth(fetcher.StealthConfig{
			Browser:      browserCfg,
			Timeout:      cfg.Fetch.Stealth.Timeout,
			UserAgent:    cfg.Fetch.Stealth.UserAgent,
			Settle:       cfg.Fetch.Stealth.Settle,
			WaitSelector: cfg.Fetch.Stealth.WaitSelector,
		}, log),
		fetcher.NewReader(fetcher.ReaderConfig{
			Endpoint:     cfg.Fetch.Reader.Endpoint,
			Token:        cfg.Fetch.Reader.Token,
			Timeout:      cfg.Fetch.Reader.Timeout,
			WaitSelector: cfg.Fetch.Reader.WaitSelector,
		}, client, log),
		fetcher.NewLight(fetcher.LightConfig{
			Timeout:   cfg.Fetch.Light.Timeout,
			UserAgent: cfg.Fetch.Light.UserAgent,
		}, log),
		fetcher.NewRaw(fetcher.RawConfig{
			Timeout:   cfg.Fetch.Raw.Timeout,
			UserAgent: cfg.Fetch.Raw.UserAgent,
		}, client, log),
	)

	return &app{
		cfg:        cfg,
		log:        log,
		metrics:    m,
		caps:       caps,
		classifier: domain.NewClassifier(cfg.Domains.Stealth, cfg.Domains.Profile),
		executor:   executor,
	}, nil
}

func (a *app) orchestrator() *pipeline.Orchestrator {
	return pipeline.New(pipeline.Options{
		Classifier: a.classifier,
		Fetcher:    a.executor,
		Detector: softfail.New(softfail.Thresholds{
			MinRendered: a.cfg.Extract.MinCharsRendered,
			MinPlain:    a.cfg.Extract.MinCharsPlain,
		}),
		Extractor:   extractor.New(a.log, a.cfg.Extract.ReportFallbackChars),
		Recorder:    a.metrics,
		Logger:      a.log,
		MaxChars:    a.cfg.Extract.MaxChars,
		RawFallback: a.cfg.Fetch.RawFallback,
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
