package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"clerk/internal/game"
	"clerk/internal/platform/config"
)

func newPlayCommand(e *env) *cobra.Command {
	var (
		manual    bool
		maxRounds int
		player    string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a game session against the game server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gcfg := e.cfg.Game
			if gcfg.APIURL == "" {
				return errors.New("GAME_API_URL is required")
			}
			if cmd.Flags().Changed("manual") {
				gcfg.Manual = manual
			}
			if cmd.Flags().Changed("max-rounds") {
				gcfg.MaxRounds = maxRounds
			}
			if player != "" {
				gcfg.PlayerName = player
			}

			e.cfg.Store.Backend = config.BackendMemory
			a, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			client, err := game.NewClient(gcfg.APIURL, gcfg.APIKey,
				game.WithDownloadDir(gcfg.DownloadDir),
				game.WithMaxRetries(gcfg.MaxRetries),
				game.WithClientLogger(e.logger),
			)
			if err != nil {
				return err
			}

			var decider game.Decider = game.NewEngineDecider(a.Service)
			if gcfg.Manual {
				decider = game.NewManualDecider(cmd.InOrStdin(), cmd.OutOrStdout())
			}

			p := game.NewPlayer(client, game.NewJSONExtractor(e.logger), decider, gcfg.PlayerName,
				game.WithPlayerLogger(e.logger),
				game.WithMaxRounds(gcfg.MaxRounds),
				game.WithPause(gcfg.Pause),
			)
			summary, err := p.Play(cmd.Context())
			if summary != nil {
				score := "n/a"
				if summary.Score != nil {
					score = fmt.Sprint(*summary.Score)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "session %s: %d rounds, status %s, score %s\n",
					summary.SessionID, summary.Rounds, summary.Status, score)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&manual, "manual", false, "decide each client at the prompt")
	cmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "stop after this many rounds, 0 plays until game over")
	cmd.Flags().StringVar(&player, "player", "", "player name, overrides GAME_PLAYER_NAME")
	return cmd
}
