package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/contentsearch/internal/app"
	"github.com/dshills/contentsearch/internal/client"
	"github.com/dshills/contentsearch/internal/config"
	"github.com/dshills/contentsearch/internal/fetcher"
	"github.com/dshills/contentsearch/internal/httpapi"
	"github.com/dshills/contentsearch/internal/importer"
	"github.com/dshills/contentsearch/internal/query"
	"github.com/dshills/contentsearch/internal/searcher"
	"github.com/dshills/contentsearch/internal/storage"
	"github.com/dshills/contentsearch/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// globals holds the persistent flags
type globals struct {
	configPath string
	jsonOutput bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "contentsearch",
		Short: "Bilingual semantic search over articles, episodes and site content",
		Long: `contentsearch ranks articles, episodes, seasons, playlists, team members,
FAQs and legal pages against Arabic or English queries using text embeddings,
intent detection and popularity boosts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to config file (default: $XDG_CONFIG_HOME/contentsearch/config.yaml)")
	root.PersistentFlags().BoolVarP(&g.jsonOutput, "json", "j", false, "Output as JSON")

	root.AddCommand(
		newVersionCmd(g),
		newServeCmd(g),
		newMCPCmd(g),
		newImportCmd(g),
		newSearchCmd(g),
		newSuggestCmd(g),
		newRecommendCmd(g),
		newHistoryCmd(g),
	)
	return root
}

// open loads the config and wires the application. Logs go to stderr;
// stdout is reserved for command output and the MCP protocol.
func (g *globals) open() (*app.App, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return app.New(cfg, logger)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newVersionCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]string{
				"version":    version,
				"build_time": buildTime,
				"build_mode": storage.BuildMode,
				"driver":     storage.DriverName,
			}
			if g.jsonOutput {
				return printJSON(cmd, info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "contentsearch %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			return nil
		},
	}
}

func newServeCmd(g *globals) *cobra.Command {
	var (
		addr     string
		watchDir string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP search API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if watchDir != "" {
				go func() {
					if err := a.Importer.Watch(ctx, watchDir, debounce); err != nil {
						a.Logger.Error("content watcher stopped", "dir", watchDir, "error", err)
					}
				}()
			}

			if addr == "" {
				addr = a.Config.HTTP.Addr
			}
			err = a.HTTPServer().ListenAndServe(ctx, addr)
			a.Logger.Info("server stopped")
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&watchDir, "watch", "", "Directory of content dumps to import and watch")
	cmd.Flags().DurationVar(&debounce, "debounce", importer.DefaultDebounce, "Delay before re-importing changed files")
	return cmd
}

func newMCPCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			srv, err := a.MCPServer()
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ctx) }()

			select {
			case <-ctx.Done():
				a.Logger.Info("received shutdown signal")
				return nil
			case err := <-errCh:
				return err
			}
		},
	}
}

func newImportCmd(g *globals) *cobra.Command {
	var (
		force   bool
		workers int
	)
	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Import YAML or JSON content dumps",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			stats, err := a.Importer.ImportPaths(ctx, args, &importer.Config{Force: force, Workers: workers})
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return printJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Files: %d imported, %d skipped, %d failed\n",
				stats.FilesImported, stats.FilesSkipped, stats.FilesFailed)
			fmt.Fprintf(out, "Items: %d imported, %d invalid; users: %d\n",
				stats.ItemsImported, stats.ItemsFailed, stats.UsersImported)
			fmt.Fprintf(out, "Duration: %s\n", stats.Duration.Round(time.Millisecond))
			for _, msg := range stats.ErrorMessages {
				fmt.Fprintf(out, "  ! %s\n", msg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Re-import files whose content is unchanged")
	cmd.Flags().IntVar(&workers, "workers", 0, "Files parsed concurrently (default: number of CPUs)")
	return cmd
}

func newSearchCmd(g *globals) *cobra.Command {
	var (
		language  string
		limit     int
		kinds     []string
		dateRange string
		userID    string
		remote    bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a semantic search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			if v := query.ValidateSearchQuery(q); !v.Valid {
				if v.Suggestion != "" {
					return fmt.Errorf("invalid query (%s), try %q", v.Reason, v.Suggestion)
				}
				return fmt.Errorf("invalid query (%s)", v.Reason)
			}

			kindList, err := parseKinds(kinds)
			if err != nil {
				return err
			}
			dr, err := fetcher.ParseDateRange(dateRange)
			if err != nil {
				return err
			}

			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			ctx := cmd.Context()

			var resp *types.SearchResponse
			if remote {
				c := client.New(a.Config.Client.BaseURL,
					client.WithTimeout(a.Config.Client.Timeout),
					client.WithTracker(a.Tracker),
					client.WithHistory(a.History),
					client.WithLogger(a.Logger))
				resp = c.Search(ctx, client.SearchParams{
					Query:     q,
					Language:  language,
					Limit:     limit,
					Types:     kindList,
					DateRange: string(dr),
				})
				c.SaveSearchHistory(ctx, q, userID)
			} else {
				resp = a.HTTPServer().BuildResponse(ctx, q, language, searcher.Options{
					Limit:   limit,
					Filters: fetcher.Filters{Types: kindList, DateRange: dr},
				})
				if err := a.History.Save(ctx, q, userID); err != nil {
					a.Logger.Warn("failed to save search history", "error", err)
				}
			}

			if g.jsonOutput {
				return printJSON(cmd, resp)
			}
			printResults(cmd, resp)
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "ar", "Interface language (ar or en)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringSliceVarP(&kinds, "type", "t", nil, "Restrict to content types (article, episode, ...)")
	cmd.Flags().StringVar(&dateRange, "date-range", "all", "Publication window: all, week, month or year")
	cmd.Flags().StringVar(&userID, "user", "", "Record the query in this user's history")
	cmd.Flags().BoolVar(&remote, "remote", false, "Query the server at client.base_url instead of the local database")
	return cmd
}

func newSuggestCmd(g *globals) *cobra.Command {
	var (
		language string
		limit    int
		trending bool
	)
	cmd := &cobra.Command{
		Use:   "suggest [prefix]",
		Short: "Autocomplete suggestions, or trending searches with --trending",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if trending {
				phrases := searcher.GetTrendingSearches(language, limit)
				if g.jsonOutput {
					return printJSON(cmd, httpapi.TrendingResponse{Trending: phrases})
				}
				for _, p := range phrases {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("a prefix is required unless --trending is set")
			}

			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			suggestions := a.Searcher.GetSearchSuggestions(cmd.Context(), args[0], language, limit)
			if g.jsonOutput {
				return printJSON(cmd, httpapi.SuggestionsResponse{Suggestions: suggestions})
			}
			for _, s := range suggestions {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %.2f  %s\n", s.Type, s.Popularity, s.Text)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "ar", "Interface language (ar or en)")
	cmd.Flags().IntVarP(&limit, "limit", "n", searcher.DefaultSuggestionLimit, "Maximum number of suggestions")
	cmd.Flags().BoolVar(&trending, "trending", false, "Show trending searches instead")
	return cmd
}

func newRecommendCmd(g *globals) *cobra.Command {
	var keywords []string
	cmd := &cobra.Command{
		Use:   "recommend <user-id>",
		Short: "Personalized recommendations for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			recs := a.Recommender.GetPersonalizedRecommendations(cmd.Context(), args[0], keywords)
			if g.jsonOutput {
				return printJSON(cmd, httpapi.RecommendationsResponse{Recommendations: recs})
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recommendations")
				return nil
			}
			for i, r := range recs {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. [%s] %s (%.1f, %s)\n", i+1, r.Type, r.Title, r.Score, r.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&keywords, "keywords", "k", nil, "Keywords of the current search session")
	return cmd
}

func newHistoryCmd(g *globals) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the search history",
	}
	cmd.PersistentFlags().StringVar(&userID, "user", "", "User whose history to use (default: anonymous)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent searches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			items, err := a.History.List(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if g.jsonOutput {
				return printJSON(cmd, items)
			}
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", item.Timestamp.Local().Format(time.DateTime), item.Query)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the search history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return a.History.Clear(cmd.Context(), userID)
		},
	})
	return cmd
}

func parseKinds(names []string) ([]types.ContentKind, error) {
	var kinds []types.ContentKind
	for _, name := range names {
		kind, err := types.ParseContentKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func printResults(cmd *cobra.Command, resp *types.SearchResponse) {
	out := cmd.OutOrStdout()
	if len(resp.SemanticResults) == 0 {
		fmt.Fprintln(out, "No results")
	}
	for i, r := range resp.SemanticResults {
		p := r.Data.Projection()
		fmt.Fprintf(out, "%2d. [%s] %s\n    score %.3f (%s)\n", i+1, r.Type, p.Title, r.Score, r.Relevance)
	}
	if len(resp.RelatedContent) > 0 {
		fmt.Fprintln(out, "\nRelated:")
		for _, rec := range resp.RelatedContent {
			fmt.Fprintf(out, "  - [%s] %s\n", rec.Type, rec.Title)
		}
	}
	cached := ""
	if resp.CacheHit {
		cached = ", cached"
	}
	fmt.Fprintf(out, "\n%d results in %dms%s\n", resp.TotalCount, resp.SearchTime, cached)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
