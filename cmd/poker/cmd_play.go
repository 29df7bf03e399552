package main

import (
	"errors"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/kiliankoe/planningpoker/internal/backlog"
	"github.com/kiliankoe/planningpoker/internal/game"
)

var (
	flagLoad        string
	flagBacklog     string
	flagPlayers     string
	flagPlayerCount int
	flagRule        string
	flagSavePath    string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "run an estimation session in this terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		return play(s)
	},
}

func init() {
	playCmd.Flags().StringVar(&flagLoad, "load", "", "resume a saved session file")
	playCmd.Flags().StringVar(&flagBacklog, "backlog", "", "JSON or YAML file listing the features")
	playCmd.Flags().StringVar(&flagPlayers, "players", "", "comma separated player names")
	playCmd.Flags().IntVar(&flagPlayerCount, "count", 0, "number of players to expect (0 for any)")
	playCmd.Flags().StringVar(&flagRule, "rule", "", "consensus rule (StrictRule or AverageRule)")
	playCmd.Flags().StringVar(&flagSavePath, "save", "planning-poker.json", "where progress is saved")
	rootCmd.AddCommand(playCmd)
}

func openSession() (*game.Session, error) {
	if flagLoad != "" {
		s, err := game.LoadSession(flagLoad)
		if err != nil {
			return nil, err
		}
		flagSavePath = flagLoad
		pterm.Info.Printfln("Resumed %s: %s", flagLoad, progressLine(s))
		return s, nil
	}

	players, err := askPlayers()
	if err != nil {
		return nil, err
	}
	features, err := askFeatures()
	if err != nil {
		return nil, err
	}
	rule, err := askRule()
	if err != nil {
		return nil, err
	}
	s, err := game.NewSession(players, features, rule)
	if err != nil {
		return nil, err
	}
	logger.Debug("session configured", "players", len(players), "features", len(features), "rule", string(rule.Name()))
	return s, nil
}

func askPlayers() ([]string, error) {
	input := flagPlayers
	for {
		if input == "" {
			var err error
			input, err = pterm.DefaultInteractiveTextInput.WithDefaultText("Players (comma separated)").Show()
			if err != nil {
				return nil, err
			}
		}
		players, err := game.ParsePlayers(input, flagPlayerCount)
		if err == nil {
			return players, nil
		}
		if flagPlayers != "" {
			return nil, err
		}
		pterm.Warning.Println(err.Error())
		input = ""
	}
}

func askFeatures() ([]game.Feature, error) {
	if flagBacklog != "" {
		return backlog.Load(flagBacklog)
	}
	for {
		input, err := pterm.DefaultInteractiveTextInput.
			WithDefaultText(`Features as a JSON array, e.g. ["login", "search"]`).Show()
		if err != nil {
			return nil, err
		}
		features, err := game.ParseFeatures(input)
		if err == nil {
			return features, nil
		}
		pterm.Warning.Println(err.Error())
	}
}

func askRule() (game.Rule, error) {
	if flagRule != "" {
		return game.ParseRule(flagRule)
	}
	label, err := pterm.DefaultInteractiveSelect.
		WithDefaultText("Consensus rule").
		WithOptions(game.RuleLabels).
		Show()
	if err != nil {
		return nil, err
	}
	return game.ParseRule(label)
}

func play(s *game.Session) error {
	features := s.FeatureNames()
	pterm.DefaultSection.Println(progressLine(s))
	for {
		turn, ok := s.NextTurn()
		if !ok {
			break
		}
		choice, err := pterm.DefaultInteractiveSelect.
			WithDefaultText(turnPrompt(turn)).
			WithOptions(voteOptions()).
			WithMaxHeight(len(game.Deck) + 2).
			Show()
		if err != nil {
			return err
		}
		switch choice {
		case optionSave:
			if err := save(s); err != nil {
				return err
			}
			continue
		case optionQuit:
			if ok, _ := pterm.DefaultInteractiveConfirm.WithDefaultText("Save before quitting?").Show(); ok {
				return save(s)
			}
			return nil
		}

		status, err := s.SubmitVote(turn.Player, turn.Feature, choice)
		var pe *game.ParseError
		if errors.As(err, &pe) {
			pterm.Warning.Printfln("%s, pick a number card.", pe.Error())
			continue
		}
		if err != nil {
			return err
		}
		if status == game.StatusRejected || status == game.StatusAccepted {
			last, _ := s.LastResult()
			pterm.Println(roundPanel(last, features))
		}
		if status == game.StatusRejected {
			pterm.Warning.Println(status.Message())
			pterm.DefaultSection.Println(progressLine(s))
		}
	}

	est, err := s.FinalEstimations()
	if err != nil {
		return err
	}
	pterm.Success.Println(game.StatusAccepted.Message())
	if err := pterm.DefaultTable.WithHasHeader().WithData(estimationsTable(est, features)).Render(); err != nil {
		return err
	}
	if ok, _ := pterm.DefaultInteractiveConfirm.WithDefaultText("Export estimations?").Show(); ok {
		return export(s)
	}
	return nil
}

func save(s *game.Session) error {
	path, err := pterm.DefaultInteractiveTextInput.WithDefaultText("Save to").WithDefaultValue(flagSavePath).Show()
	if err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	if err := game.SaveSession(path, s); err != nil {
		logger.Error("could not save progress", "path", path, "err", err)
		return nil
	}
	flagSavePath = path
	pterm.Success.Printfln("Progress saved to %s", path)
	return nil
}

func export(s *game.Session) error {
	for {
		path, err := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Export to").
			WithDefaultValue(defaultExportPath(flagSavePath)).
			Show()
		if err != nil {
			return err
		}
		written, err := game.ExportEstimations(s, strings.TrimSpace(path))
		if errors.Is(err, game.ErrMalformedExportPath) {
			pterm.Warning.Println(err.Error())
			continue
		}
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Estimations written to %s", written)
		return nil
	}
}
