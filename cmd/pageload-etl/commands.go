package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pageload-etl/internal/config"
	"pageload-etl/internal/logger"
	"pageload-etl/internal/pipeline"
	"pageload-etl/internal/report"
	"pageload-etl/internal/server"
	"pageload-etl/internal/sink"
	"pageload-etl/internal/source"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd(version, commit, buildDate string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "pageload-etl",
		Short:        "Normalize browser performance logs captured during a page load",
		Long:         "Drops entries without a usable timestamp, sorts the rest, trims everything before the page's own network request and rebases timestamps to zero.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML, JSON or TOML config file (env PAGELOAD_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "json or text")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pageload-etl %s\n", version)
			fmt.Fprintf(out, "commit: %s\n", commit)
			fmt.Fprintf(out, "built: %s\n", buildDate)
		},
	})

	return rootCmd
}

// loadConfig applies defaults, the config file, environment and finally
// the given flag overrides, then configures logging.
func loadConfig(cmd *cobra.Command, opts *rootOptions, override config.Config) (config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = os.Getenv("PAGELOAD_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	override.LogLevel = opts.logLevel
	override.LogFormat = opts.logFormat
	cfg = config.Merge(cfg, override)

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	if err := logger.Configure(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		override      config.Config
		filterMethods string
		noExpand      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Normalize one capture file",
		Long:  "Read a capture (JSON array or JSONL), normalize it against --url and write the result to the configured sink.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if filterMethods != "" {
				override.FilterMethods = config.ParseList(filterMethods)
			}

			cfg, err := loadConfig(cmd, opts, override)
			if err != nil {
				return err
			}
			if noExpand {
				cfg.ExpandMessages = false
			}
			if cfg.PageURL == "" {
				logger.Warn("no page URL given, nothing will be trimmed")
			}

			return runCapture(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&override.PageURL, "url", "u", "", "URL of the page whose load was captured")
	cmd.Flags().StringVarP(&override.InputPath, "input", "i", "", "input path (use '-' for stdin)")
	cmd.Flags().StringVarP(&override.OutputPath, "output", "o", "", "output path or webhook URL (use '-' for stdout)")
	cmd.Flags().StringVar(&override.OutputType, "output-type", "", "sink type: stdout|file|jsonl|http (default stdout)")
	cmd.Flags().StringVar(&override.ReportPath, "report", "", "write a JSON report to this path")
	cmd.Flags().StringVar(&filterMethods, "filter-methods", "", "comma-separated DevTools method prefixes to emit (e.g. Network.,Page.)")
	cmd.Flags().BoolVar(&noExpand, "no-expand", false, "do not decode JSON-string message fields")

	return cmd
}

func runCapture(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()

	in, err := source.Open(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	w, err := sink.Build(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	rep := report.NewReport()
	if err := pipeline.Run(ctx, in, w, cfg, rep); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close sink: %w", err)
	}

	if cfg.ReportPath != "" {
		if err := rep.WriteJSON(cfg.ReportPath); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(),
		"Total Entries: %d, Decode Failed: %d, Invalid Timestamp: %d, Trimmed: %d, Filtered: %d, Written OK: %d\n",
		rep.TotalEntries,
		rep.DecodeFailed,
		rep.InvalidTimestamp,
		rep.Trimmed,
		rep.Filtered,
		rep.WrittenOK,
	)
	return nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var override config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /normalize over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts, override)
			if err != nil {
				return err
			}
			return server.Serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&override.ListenAddr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVarP(&override.PageURL, "url", "u", "", "default page URL when a request has no url parameter")

	return cmd
}
