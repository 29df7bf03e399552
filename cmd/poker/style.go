package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/kiliankoe/planningpoker/internal/game"
)

const (
	optionSave = "Save progress"
	optionQuit = "Quit"
)

var ruleSummaries = map[game.RuleName]string{
	game.RuleStrict:  "every player picks the same card",
	game.RuleAverage: fmt.Sprintf("mean vote between %g and %g", game.AverageMin, game.AverageMax),
}

func rulesTable() pterm.TableData {
	data := pterm.TableData{{"Rule", "Label", "Accepts a feature when"}}
	for _, label := range game.RuleLabels {
		r, err := game.ParseRule(label)
		if err != nil {
			continue
		}
		data = append(data, []string{string(r.Name()), label, ruleSummaries[r.Name()]})
	}
	return data
}

// turnPrompt is the line shown above the card picker.
func turnPrompt(t game.Turn) string {
	return fmt.Sprintf("%s's Vote for %s", t.Player, t.Feature)
}

// voteOptions is the deck followed by the session actions.
func voteOptions() []string {
	opts := append([]string(nil), game.Deck...)
	return append(opts, optionSave, optionQuit)
}

func progressLine(s *game.Session) string {
	return fmt.Sprintf("Round %d: %d/%d votes (%s)", s.Round(), s.VoteCount(), s.ExpectedVotes(), s.Rule().Name())
}

// verdictLines lists every evaluated feature of r in feature order.
func verdictLines(r game.RoundResult, features []string) []string {
	var lines []string
	for _, f := range features {
		ok, evaluated := r.Verdict.Features[f]
		if !evaluated {
			continue
		}
		mark := pterm.LightGreen("approved")
		if !ok {
			mark = pterm.LightRed("not approved")
		}
		lines = append(lines, fmt.Sprintf("%s: %s", f, mark))
	}
	return lines
}

func roundPanel(r game.RoundResult, features []string) string {
	title := pterm.LightYellow(fmt.Sprintf("|ROUND %d|", r.Round))
	body := strings.Join(verdictLines(r, features), "\n")
	if r.Status == game.StatusRejected {
		body += "\n\n" + r.Status.Message()
	}
	return pterm.DefaultBox.WithLeftPadding(4).WithRightPadding(4).WithTitle(title).WithTitleTopCenter().Sprint(body)
}

func estimationsTable(est map[string]float64, features []string) pterm.TableData {
	data := pterm.TableData{{"Feature", "Estimation"}}
	seen := make(map[string]bool, len(features))
	for _, f := range features {
		if v, ok := est[f]; ok {
			data = append(data, []string{f, formatEstimate(v)})
			seen[f] = true
		}
	}
	var rest []string
	for f := range est {
		if !seen[f] {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	for _, f := range rest {
		data = append(data, []string{f, formatEstimate(est[f])})
	}
	return data
}

func formatEstimate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// defaultExportPath puts the estimations next to the session file they came
// from.
func defaultExportPath(sessionPath string) string {
	ext := filepath.Ext(sessionPath)
	return strings.TrimSuffix(sessionPath, ext) + "-estimations.json"
}
