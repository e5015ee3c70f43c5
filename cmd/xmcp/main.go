package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/wilhg/xmcp/internal/config"
	"github.com/wilhg/xmcp/pkg/catalog"
	"github.com/wilhg/xmcp/pkg/httpserver"
	"github.com/wilhg/xmcp/pkg/mcpclient"
	"github.com/wilhg/xmcp/pkg/permissions"
	"github.com/wilhg/xmcp/pkg/ratelimit"
	"github.com/wilhg/xmcp/pkg/store"
	"github.com/wilhg/xmcp/pkg/store/entstore"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// errToolFailed marks a call whose envelope was already printed.
var errToolFailed = errors.New("tool call failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errToolFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type rootOptions struct {
	output string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "xmcp",
		Short:         "X (Twitter) MCP server with permission profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", getEnv("XMCP_OUTPUT", "yaml"), "output format: yaml or json")
	root.AddCommand(
		newServeCmd(),
		newStatusCmd(opts),
		newProfilesCmd(opts),
		newGroupsCmd(opts),
		newCallCmd(),
		newReceiptsCmd(opts),
		newVersionCmd(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func newServeCmd() *cobra.Command {
	var transport string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio or streamable HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("transport") {
				cfg.Transport = transport
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&transport, "transport", config.TransportStdio, "stdio or http")
	cmd.Flags().IntVar(&port, "port", 8081, "HTTP port")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	a, err := buildApp(ctx, cfg, logger, buildOptions{traceWriter: traceWriter(cfg)})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("shutdown", slog.Any("err", err))
		}
	}()

	st := a.perms.Status()
	logger.Info("starting xmcp",
		slog.String("version", version),
		slog.String("transport", cfg.Transport),
		slog.String("profile", string(st.Profile)),
		slog.Int("enabled_tools", st.EnabledToolsCount),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.runScheduler(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// the stdio session ending stops the scheduler too
		defer cancel()
		if cfg.IsHTTP() {
			return httpserver.Serve(gctx, cfg.Addr(), httpserver.NewRouter(a.httpParams()), logger)
		}
		err := a.mcp.RunStdio(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the resolved permission profile and rate limit windows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var limiterOpts []ratelimit.Option
			if cfg.RedisAddr != "" {
				rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
				defer rdb.Close()
				limiterOpts = append(limiterOpts, ratelimit.WithStore(ratelimit.NewRedisStore(rdb, "xmcp:ratelimit:")))
			}
			status := httpserver.StatusOf(version, cfg.Transport, permissions.NewManager(nil), ratelimit.New(limiterOpts...))
			return write(cmd.OutOrStdout(), opts.output, status(cmd.Context()))
		},
	}
}

func newProfilesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List permission profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return write(cmd.OutOrStdout(), opts.output, catalog.Profiles())
		},
	}
}

func newGroupsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List tool groups and their tools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return write(cmd.OutOrStdout(), opts.output, catalog.Groups())
		},
	}
}

func newCallCmd() *cobra.Command {
	var rawArgs, endpoint string
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke one tool through MCP and print the JSON result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var toolArgs map[string]any
			if rawArgs != "" {
				if err := json.Unmarshal([]byte(rawArgs), &toolArgs); err != nil {
					return fmt.Errorf("--args must be a JSON object: %w", err)
				}
			}
			ctx := cmd.Context()
			client, cleanup, err := callClient(ctx, endpoint)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := client.CallTool(ctx, args[0], toolArgs)
			if err != nil {
				return err
			}
			if err := write(cmd.OutOrStdout(), "json", res.Payload); err != nil {
				return err
			}
			if res.IsError {
				return errToolFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rawArgs, "args", "", "tool arguments as a JSON object")
	cmd.Flags().StringVar(&endpoint, "url", "", "streamable HTTP endpoint of a running server; empty runs the tool in-process")
	return cmd
}

// callClient connects to a remote server, or to an in-process one over
// in-memory transports.
func callClient(ctx context.Context, endpoint string) (*mcpclient.Client, func(), error) {
	if endpoint != "" {
		c, err := mcpclient.Dial(ctx, endpoint, mcpclient.WithVersion(version))
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := config.NewLogger(cfg)
	a, err := buildApp(ctx, cfg, logger, buildOptions{traceWriter: os.Stderr})
	if err != nil {
		return nil, nil, err
	}
	ct, st := mcp.NewInMemoryTransports()
	ss, err := a.mcp.MCP().Connect(ctx, st, nil)
	if err != nil {
		_ = a.Close(ctx)
		return nil, nil, err
	}
	c, err := mcpclient.Connect(ctx, ct, mcpclient.WithVersion(version))
	if err != nil {
		_ = ss.Close()
		_ = a.Close(ctx)
		return nil, nil, err
	}
	return c, func() {
		_ = c.Close()
		_ = ss.Close()
		_ = a.Close(context.WithoutCancel(ctx))
	}, nil
}

func newReceiptsCmd(opts *rootOptions) *cobra.Command {
	var f store.ReceiptFilter
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "List audit receipts from the configured database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("XMCP_DATABASE_URL is not set; receipts are only kept in memory")
			}
			st, err := entstore.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}
			receipts, err := st.ListReceipts(cmd.Context(), f)
			if err != nil {
				return err
			}
			if receipts == nil {
				receipts = []store.Receipt{}
			}
			return write(cmd.OutOrStdout(), opts.output, receipts)
		},
	}
	cmd.Flags().StringVar(&f.Tool, "tool", "", "only receipts of this tool")
	cmd.Flags().StringVar(&f.Outcome, "outcome", "", "only receipts with this outcome (ok or an error type)")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum number of receipts")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xmcp %s (commit=%s, date=%s)\n", version, commit, date)
		},
	}
}

func write(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func getEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
