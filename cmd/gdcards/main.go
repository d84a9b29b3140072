package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/games"
	"github.com/gamedev-cards/internal/profile"
	"github.com/gamedev-cards/internal/sui"
)

var (
	// Global flags
	configPath string
	rpcURL     string
	verbose    bool
	timeout    time.Duration

	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gdcards",
	Short: "Inspect GameDev Cards profiles, games and the explorer from the fullnode",
	Long: `gdcards reads developer profiles and games straight from a Sui fullnode.

It never signs anything: the "call" commands print the move call a wallet
would have to sign.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		} else {
			cfg = config.DefaultConfig()
		}
		if rpcURL != "" {
			cfg.Chain.RPCURL = rpcURL
		}
		return cfg.Validate()
	},
}

// chain holds the readers a command needs
type chain struct {
	client   *sui.RPCClient
	resolver *profile.Resolver
	accessor *games.Accessor
}

func dialChain(ctx context.Context) (*chain, error) {
	client, err := sui.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.RequestTimeout, logger)
	if err != nil {
		return nil, err
	}
	return &chain{
		client:   client,
		resolver: profile.NewResolver(client, nil, &cfg.Chain, logger),
		accessor: games.NewAccessor(client, nil, &cfg.Chain, logger),
	}, nil
}

func (c *chain) Close() {
	c.client.Close()
}

// commandContext bounds a command by the global timeout and by interrupts
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc", "", "Fullnode JSON-RPC url, overrides the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log fullnode calls")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall command timeout")

	rootCmd.AddCommand(profileCmd, gamesCmd, portfolioCmd, exploreCmd, slugCmd, callCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
