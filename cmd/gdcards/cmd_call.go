package main

import (
	"github.com/spf13/cobra"

	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/games"
)

var (
	callAddress string
	callGameID  string
	gameFields  domain.GameDraft
)

// callCmd prints wallet calls without submitting them
var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Print the move call for a profile or game change",
	Long: `Builds the move call a wallet would sign for a change, checked against
the current chain state. Nothing is signed or submitted.

Available subcommands:
  create-profile - create_game_dev_profile
  add-game       - add_game
  update-game    - update_game
  remove-game    - remove_game`,
}

var callCreateProfileCmd = &cobra.Command{
	Use:   "create-profile",
	Short: "Build a create_game_dev_profile call",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, func(l *games.Ledger) (*games.Staged, error) {
			return l.StageProfile(cmd.Context(), callAddress, gameFields.Name)
		})
	},
}

var callAddGameCmd = &cobra.Command{
	Use:   "add-game",
	Short: "Build an add_game call",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, func(l *games.Ledger) (*games.Staged, error) {
			return l.StageGame(cmd.Context(), callAddress, gameFields)
		})
	},
}

var callUpdateGameCmd = &cobra.Command{
	Use:   "update-game",
	Short: "Build an update_game call from the flags that were set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch domain.GamePatch
		flags := cmd.Flags()
		if flags.Changed("name") {
			patch.Name = &gameFields.Name
		}
		if flags.Changed("link") {
			patch.Link = &gameFields.Link
		}
		if flags.Changed("description") {
			patch.Description = &gameFields.Description
		}
		if flags.Changed("image") {
			patch.Image = &gameFields.Image
		}
		if flags.Changed("platform") {
			patch.Platform = &gameFields.Platform
		}
		if flags.Changed("tags") {
			patch.Tags = gameFields.Tags
		}
		return runCall(cmd, func(l *games.Ledger) (*games.Staged, error) {
			return l.StageGameUpdate(cmd.Context(), callAddress, callGameID, patch)
		})
	},
}

var callRemoveGameCmd = &cobra.Command{
	Use:   "remove-game",
	Short: "Build a remove_game call",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, func(l *games.Ledger) (*games.Staged, error) {
			return l.StageRemoval(cmd.Context(), callAddress, callGameID)
		})
	},
}

// runCall stages one operation in a throwaway ledger and prints it
func runCall(cmd *cobra.Command, stage func(*games.Ledger) (*games.Staged, error)) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	cmd.SetContext(ctx)

	c, err := dialChain(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	ledger := games.NewLedger(c.accessor, c.resolver, games.NewMemoryStore(), &cfg.Chain, logger)
	staged, err := stage(ledger)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), staged)
}

func addGameFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&gameFields.Name, "name", "", "Game name")
	cmd.Flags().StringVar(&gameFields.Link, "link", "", "Game link")
	cmd.Flags().StringVar(&gameFields.Description, "description", "", "Game description")
	cmd.Flags().StringVar(&gameFields.Image, "image", "", "Cover image url")
	cmd.Flags().StringVar(&gameFields.Platform, "platform", "", "Platform")
	cmd.Flags().StringSliceVar(&gameFields.Tags, "tags", nil, "Tags")
}

func init() {
	callCmd.PersistentFlags().StringVar(&callAddress, "address", "", "Wallet address that owns the profile")
	_ = callCmd.MarkPersistentFlagRequired("address")

	callCreateProfileCmd.Flags().StringVar(&gameFields.Name, "name", "", "Profile display name")
	_ = callCreateProfileCmd.MarkFlagRequired("name")

	addGameFlags(callAddGameCmd)
	addGameFlags(callUpdateGameCmd)
	callUpdateGameCmd.Flags().StringVar(&callGameID, "game", "", "Game object id")
	_ = callUpdateGameCmd.MarkFlagRequired("game")
	callRemoveGameCmd.Flags().StringVar(&callGameID, "game", "", "Game object id")
	_ = callRemoveGameCmd.MarkFlagRequired("game")

	callCmd.AddCommand(callCreateProfileCmd, callAddGameCmd, callUpdateGameCmd, callRemoveGameCmd)
}
