// yieldboard serves a dashboard of US Treasury yields and yield spreads
// built from FRED data.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/yieldboard/api"
	"github.com/seenimoa/yieldboard/internal/config"
	"github.com/seenimoa/yieldboard/internal/datasource"
	"github.com/seenimoa/yieldboard/internal/logging"
	"github.com/seenimoa/yieldboard/internal/providers/workbook"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root pre-run hook.
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "yieldboard",
	Short: "US Treasury yield and spread dashboard",
	Long: `yieldboard fetches policy-rate, Treasury and corporate yield series from
FRED (or a local workbook), derives the level and spread tables, and serves
an interactive dashboard with a historical chart, a yield-curve snapshot and
a spread chart.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger, err = logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// load validates the configuration and performs the one bulk fetch.
func load(ctx context.Context) (*datasource.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg, err := datasource.NewRegistry(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}
	loader, err := datasource.NewLoader(cfg, reg, logger)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("yieldboard %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the series and start the dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		res, err := load(ctx)
		if err != nil {
			return err
		}

		noUI, _ := cmd.Flags().GetBool("no-ui")
		srv := api.NewServer(cfg, res.Tables, api.Options{
			Source:  res.Source,
			Version: version,
			Logger:  logger,
		})
		srv.SetServeUI(!noUI)
		return srv.Serve(ctx, cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().Bool("no-ui", false, "serve only the JSON API, without the dashboard page")
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the series once and print or export the derived tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		res, err := load(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Source: %s  (%s to %s, %s)\n", res.Source, res.Range.Start, res.Range.End, res.Duration.Round(time.Millisecond))
		fmt.Printf("  %-10s %6d rows\n", "raw", res.Frame.Len())
		for _, s := range res.Tables.Summaries() {
			if s.Rows == 0 {
				fmt.Printf("  %-10s %6d rows\n", s.Name, s.Rows)
				continue
			}
			fmt.Printf("  %-10s %6d rows  %s .. %s\n", s.Name, s.Rows, s.First, s.Last)
		}

		out, _ := cmd.Flags().GetString("xlsx")
		if out == "" {
			return nil
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := workbook.WriteTables(f, res.Tables); err != nil {
			f.Close()
			return fmt.Errorf("export tables: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", out)
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("xlsx", "", "write the levels and spreads tables to this workbook")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, API key and provider status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  yieldboard System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Data Source:   %s\n", cfg.Data.Source)
		fmt.Printf("    Date Window:   %s .. %s\n", cfg.Data.Start, orToday(cfg.Data.End))
		fmt.Printf("    API Server:    %s\n", cfg.Addr())
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}
		fmt.Println()

		fmt.Println("  Providers:")
		reg, err := datasource.NewRegistry(cfg, logger)
		if err != nil {
			fmt.Printf("    unavailable: %v\n", err)
		} else {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			for _, info := range reg.List() {
				p, _ := reg.Get(info.Name)
				status := "ok"
				if err := p.Ping(ctx); err != nil {
					status = err.Error()
				}
				fmt.Printf("    %-25s %s\n", info.Name+":", status)
			}
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func orToday(s string) string {
	if s == "" {
		return "today"
	}
	return s
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration (API key masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}
