package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/gamedev-cards/internal/explorer"
	"github.com/gamedev-cards/internal/service"
	"github.com/gamedev-cards/internal/worker"
)

var (
	exploreQuery string
	exploreLevel string
	exploreTags  string
	exploreSort  string
	exploreOrder string
	exploreSeed  uint64
)

// exploreCmd walks the registry and lays out the explorer galaxy
var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Walk the username registry and lay out the explorer galaxy",
	Long: `Reads every registered profile and its games from the fullnode, then
filters, sorts and positions them the way the Space Explorer does.

Example:
  gdcards explore --level 1-10 --sort name --order asc --seed 42`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := explorer.ParseLevelRange(exploreLevel)
		if err != nil {
			return err
		}
		key, dir, err := explorer.ParseSort(exploreSort, exploreOrder)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := dialChain(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		directory := newMemDirectory()
		w := worker.NewSyncWorker(c.resolver, c.accessor, directory, nil, &cfg.Sync, logger)
		stats, err := w.SyncDirectory(ctx)
		if err != nil {
			return err
		}
		logger.Info("registry walked",
			"registered", stats.Registered,
			"failed", stats.Failed,
			"duration", stats.Duration,
		)

		var tags []string
		for _, t := range strings.Split(exploreTags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}

		svc := service.NewExplorerService(nil, directory, &cfg.Explorer, logger)
		res, err := svc.Explore(ctx, service.ExploreRequest{
			Query: explorer.Query{Text: exploreQuery, Level: level, Tags: tags},
			Sort:  key,
			Order: dir,
			Seed:  exploreSeed,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	exploreCmd.Flags().StringVarP(&exploreQuery, "query", "q", "", "Case-insensitive name or bio search")
	exploreCmd.Flags().StringVar(&exploreLevel, "level", "all", "Level band: all, 1-10, 11-20, 21-30, 31+")
	exploreCmd.Flags().StringVar(&exploreTags, "tags", "", "Comma-separated tags, any match")
	exploreCmd.Flags().StringVar(&exploreSort, "sort", "level", "Sort key: name, level, games")
	exploreCmd.Flags().StringVar(&exploreOrder, "order", "desc", "Sort direction: asc, desc")
	exploreCmd.Flags().Uint64Var(&exploreSeed, "seed", 0, "Layout seed, 0 picks one")
}
