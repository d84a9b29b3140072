package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/games"
	"github.com/gamedev-cards/internal/service"
)

var showSkipped bool

// profileCmd prints the profile owned by an address
var profileCmd = &cobra.Command{
	Use:   "profile [address]",
	Short: "Show the profile owned by a wallet address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !domain.ValidAddress(args[0]) {
			return domain.ErrInvalidAddress
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := dialChain(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		p, err := c.resolver.LookupByAddress(ctx, args[0])
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%s: %w", args[0], domain.ErrProfileNotFound)
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

// gamesCmd prints the games owned by an address
var gamesCmd = &cobra.Command{
	Use:   "games [address]",
	Short: "List the games owned by a wallet address",
	Long: `Lists the game objects owned by an address in fullnode order.

With --skipped, records that could not be decoded are listed too, each with
the reason it was skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !domain.ValidAddress(args[0]) {
			return domain.ErrInvalidAddress
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := dialChain(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		decoded, err := c.accessor.FetchGames(ctx, args[0])
		if err != nil {
			return err
		}
		if showSkipped {
			return printJSON(cmd.OutOrStdout(), decoded)
		}
		return printJSON(cmd.OutOrStdout(), games.OKGames(decoded))
	},
}

// portfolioCmd resolves a public username
var portfolioCmd = &cobra.Command{
	Use:   "portfolio [username]",
	Short: "Resolve a public portfolio by username",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := dialChain(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		svc := service.NewPortfolioService(c.resolver, c.accessor, cfg.Server.PublicURL, logger)
		p, err := svc.PublicPortfolio(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

// slugCmd prints the username a display name maps to
var slugCmd = &cobra.Command{
	Use:   "slug [name]",
	Short: "Print the username generated for a display name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), domain.GenerateUsername(args[0]))
		return err
	},
}

func init() {
	gamesCmd.Flags().BoolVar(&showSkipped, "skipped", false, "Include records that failed to decode")
}
