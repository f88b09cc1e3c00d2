// marketprose — market-session-aware financial news copy generation.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketprose/marketprose/api"
	"github.com/marketprose/marketprose/internal/config"
	"github.com/marketprose/marketprose/internal/datasource"
	"github.com/marketprose/marketprose/internal/story"
	"github.com/marketprose/marketprose/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "marketprose",
	Short: "marketprose — market-session-aware financial news copy generation",
	Long: `marketprose assembles financial news copy from live market data:
it fetches quotes, news, earnings, and analyst ratings for a ticker,
classifies the market session, composes the canonical price-action
sentence, and drafts story fragments through configurable LLM providers
while preserving hyperlinks and section structure.`,
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
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(priceActionCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("marketprose %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := api.NewServer(cfg)
		if err != nil {
			return err
		}
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("Starting marketprose API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Price Action Command ---

var priceActionCmd = &cobra.Command{
	Use:   "price-action [ticker]",
	Short: "Print the canonical price-action sentence for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		agg := datasource.NewAggregator(cfg)
		sc := &datasource.StoryContext{Ticker: ticker}
		if quote, err := agg.FetchQuote(ctx, ticker); err == nil {
			sc.Quote = quote
		}

		writer := story.NewWriter(nil, cfg)
		fmt.Println(writer.PriceActionLine(sc))
		return nil
	},
}

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote [ticker]",
	Short: "Fetch and print the normalized quote for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		agg := datasource.NewAggregator(cfg)
		quote, err := agg.FetchQuote(ctx, ticker)
		if err != nil {
			return err
		}

		fmt.Printf("%s", quote.Symbol)
		if quote.CompanyName != "" {
			fmt.Printf(" (%s)", quote.CompanyName)
		}
		fmt.Println()
		if quote.LastPrice != nil {
			fmt.Printf("  last:     $%s\n", utils.FormatPrice(*quote.LastPrice))
		}
		if quote.PreviousClose != nil {
			fmt.Printf("  prev:     $%s\n", utils.FormatPrice(*quote.PreviousClose))
		}
		if quote.ChangePercent != nil {
			fmt.Printf("  change:   %.2f%%\n", *quote.ChangePercent)
		}
		if quote.Volume != nil {
			fmt.Printf("  volume:   %d\n", *quote.Volume)
		}
		if quote.HasExtendedHours() {
			fmt.Printf("  extended: $%s (%.2f%%)\n",
				utils.FormatPrice(*quote.ExtendedHoursPrice), *quote.ExtendedHoursChangePercent)
		}
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := utils.NowEastern()

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  marketprose — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:     %s (%s)\n", version, commit)
		fmt.Printf("  Session:     %s\n", utils.Session(now))
		fmt.Printf("  Trading Day: %s\n", utils.TradingDay(now))
		fmt.Printf("  Time (ET):   %s\n", utils.FormatDateTimeEastern(now))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Primary, cfg.LLM.Model)
		fmt.Printf("    Attribution:   %s\n", cfg.Editorial.Attribution)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  API Keys:")
		printKey("OpenAI", cfg.LLM.OpenAIKey)
		printKey("Gemini", cfg.LLM.GeminiKey)
		printKey("Benzinga", cfg.Data.BenzingaKey)
		printKey("Polygon", cfg.Data.PolygonKey)
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func printKey(name, key string) {
	status := "not set"
	if key != "" {
		status = "set (" + maskKey(key) + ")"
	}
	fmt.Printf("    %-12s %s\n", name+":", status)
}

// maskKey shows only the last 4 characters of a key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
