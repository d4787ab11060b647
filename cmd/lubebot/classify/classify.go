// Package classifycmder provides the classify command for inspecting how a
// query would be routed.
package classifycmder

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/ecofes/lubebot/api/mcp"
	"github.com/ecofes/lubebot/cmd/lubebot/pipeline"
	"github.com/ecofes/lubebot/pkg/classifier"
	"github.com/ecofes/lubebot/pkg/cliui"
	"github.com/ecofes/lubebot/pkg/config"
)

var (
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	belowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type classifyCommander struct {
	rulesPath string
	jsonOut   bool
}

const classifyLongDesc string = `Classify a query with the local rules.

Prints the category, its confidence, the threshold it must reach before the
corpus is searched and the domain keywords found in the text. No server is
needed; --rules tries a different rules file.

Examples:
  lubebot classify "Привет!"
  lubebot classify "Подберите масло для трактора МТЗ"
  lubebot classify "Сколько стоит канистра 20 л?" --json`

const classifyShortDesc string = "Classify a query"

func NewClassifyCmd() *cobra.Command {
	cmder := &classifyCommander{}

	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: classifyShortDesc,
		Long:  classifyLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := pipeline.LoadConfig(cmd, []string{config.FlagRulesPath})
			if err != nil {
				return err
			}

			c, err := pipeline.NewClassifier(cfg)
			if err != nil {
				return err
			}

			return cmder.run(cmd.OutOrStdout(), c, args[0])
		},
	}

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagRulesPath, &cmder.rulesPath)
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the result as JSON")

	return cmd
}

func (c *classifyCommander) run(w io.Writer, cls *classifier.Classifier, text string) error {
	out := mcp.Classify(cls, text)

	if c.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	confidence := cliui.ValueStyle.Render(fmt.Sprintf("%.2f", out.Confidence))
	if out.Confidence < out.Threshold {
		confidence = belowStyle.Render(fmt.Sprintf("%.2f (below threshold, escalated)", out.Confidence))
	}

	keywords := cliui.DimStyle.Render("none")
	if len(out.Keywords) > 0 {
		keywords = cliui.ValueStyle.Render(strings.Join(out.Keywords, ", "))
	}

	lipgloss.Fprintf(w, "\n  %s %s\n", cliui.KeyStyle.Render("category  "), categoryStyle.Render(string(out.Category)))
	lipgloss.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("confidence"), confidence)
	lipgloss.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("threshold "), cliui.ValueStyle.Render(fmt.Sprintf("%.2f", out.Threshold)))
	lipgloss.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("keywords  "), keywords)

	if reply, ok := cls.CannedReply(out.Category); ok {
		lipgloss.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("reply     "), cliui.DimStyle.Render(reply))
	}
	fmt.Fprintln(w)

	return nil
}
