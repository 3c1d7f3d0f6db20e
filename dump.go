package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cvurl/internal/extractor"
	"cvurl/internal/fetcher"
	"cvurl/internal/formatter"
	"cvurl/internal/pipeline"
)

var (
	dumpFormat   string
	dumpOutput   string
	dumpLevel    string
	dumpSelector string
	dumpMode     string
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [URL]",
		Short: "Fetch a URL with the selected tier and print what it returned",
		Long: `dump runs tier selection and the fetch only, without soft-failure checks or
extraction, and prints the page for diagnosing selectors and blocks.`,
		Example: `  cvurl dump -f html -l full https://example.com/cv
  cvurl dump -l css -s "section[data-section=experience]" https://www.linkedin.com/in/someone`,
		Args:         cobra.ExactArgs(1),
		RunE:         runDump,
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&dumpFormat, "format", "f", "markdown", "Output format (html, text, markdown, json)")
	cmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "Output file path (format inferred from extension if -f not specified)")
	cmd.Flags().StringVarP(&dumpLevel, "level", "l", string(extractor.LevelContent), "Content level (full, body, content, css)")
	cmd.Flags().StringVarP(&dumpSelector, "selector", "s", "", "Selector for the css level")
	cmd.Flags().StringVar(&dumpMode, "mode", string(fetcher.ModeAuto), "Fetch mode (auto, fast, stealth)")
	return cmd
}

func runDump(cmd *cobra.Command, args []string) error {
	if dumpOutput != "" && !cmd.Flags().Changed("format") {
		if f := formatter.InferFormat(dumpOutput); f != "" {
			dumpFormat = f
		}
	}
	level := extractor.Level(dumpLevel)
	if level == extractor.LevelCSS && dumpSelector == "" {
		return fmt.Errorf("--selector is required when using '%s' level", level)
	}
	if level != extractor.LevelCSS && dumpSelector != "" {
		return fmt.Errorf("--selector is only valid with '%s' level", extractor.LevelCSS)
	}
	m, err := fetcher.ParseMode(dumpMode)
	if err != nil {
		return err
	}
	target, err := pipeline.NormalizeURL(args[0])
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

	hint := a.classifier.Classify(target)
	start := time.Now()
	res, err := a.executor.Fetch(ctx, fetcher.Request{URL: target, Hint: hint}, m)
	if err != nil {
		return fmt.Errorf("failed to fetch page: %w", err)
	}
	a.log.Debug("Dumping", zap.Stringer("tier", res.Tier), zap.Int("status", res.StatusCode))

	out, err := formatter.NewDump(res, level, dumpSelector, time.Since(start)).Format(dumpFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	return write(dumpOutput, out)
}
