// Command fetch calls the configured upstreams once and prints the
// normalized payloads the server would return.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caner-kocamaz/next-wp/internal/app"
	"github.com/caner-kocamaz/next-wp/internal/config"
	"github.com/caner-kocamaz/next-wp/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	cfgPath string
	verbose bool

	logger *zap.Logger
	app    *app.App
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:          "fetch",
		Short:        "Fetch market, weather or posts once and print JSON",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if o.cfgPath == "" {
				o.cfgPath = os.Getenv("CONFIG_FILE")
			}
			cfg, err := config.Load(o.cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			// Responses are printed, never cached.
			cfg.Cache.Backend = "none"
			o.logger, err = logging.New(cfg.Log.Level, cfg.Log.Development, o.verbose)
			if err != nil {
				return err
			}
			o.app = app.New(cmd.Context(), cfg, o.logger)
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if o.logger != nil {
				_ = o.logger.Sync()
			}
			if o.app != nil {
				return o.app.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&o.cfgPath, "config", "", "path to YAML config (default: $CONFIG_FILE or ./config.yaml)")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(marketCmd(o), trendingCmd(o), weatherCmd(o), postsCmd(o), postCmd(o))
	return root
}

func marketCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Print the market snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, outcome := o.app.Market.Snapshot(cmd.Context())
			o.logger.Info("market fetched", zap.String("outcome", string(outcome)))
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
}

func trendingCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "trending",
		Short: "Print the trending list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), o.app.Market.Trending(cmd.Context()))
		},
	}
}

func weatherCmd(o *options) *cobra.Command {
	var city string
	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Print current weather and a five-day forecast",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, outcome := o.app.Weather.Snapshot(cmd.Context(), city)
			o.logger.Info("weather fetched", zap.String("outcome", string(outcome)))
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "city name (default from config)")
	return cmd
}

func postsCmd(o *options) *cobra.Command {
	var page, perPage int
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Print one page of the post feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if perPage <= 0 {
				perPage = o.app.Content.PerPage()
			}
			return printJSON(cmd.OutOrStdout(), o.app.Content.Feed(cmd.Context(), page, perPage))
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "posts per page (default from config)")
	return cmd
}

func postCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "post <slug>",
		Short: "Print one article with headings and related posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.app.Content.Article(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
