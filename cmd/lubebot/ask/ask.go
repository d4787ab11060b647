// Package askcmder provides the ask command that sends a question to a
// running lubebot API server and renders the answer.
package askcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/ecofes/lubebot/api"
	searchcmder "github.com/ecofes/lubebot/cmd/lubebot/search"
	"github.com/ecofes/lubebot/pkg/cliui"
	"github.com/ecofes/lubebot/pkg/config"
	"github.com/ecofes/lubebot/pkg/router"
)

const requestTimeout = 2 * time.Minute

type askCommander struct {
	question     string
	raw          bool
	showContexts bool

	apiTarget string
}

const askLongDesc string = `Ask the lubebot API a question.

The question is classified, answered from the indexed corpus or handed off
to a manager, exactly as the bot would reply. The answer is rendered as
markdown unless --raw is given.

Examples:
  lubebot ask "Какое масло залить в дизельный двигатель КАМАЗ?"
  lubebot ask "Сколько стоит антифриз?" --raw
  lubebot ask "Что такое HVLP 46?" --contexts`

const askShortDesc string = "Ask the lubebot API a question"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = args[0]
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer without markdown rendering")
	cmd.Flags().BoolVar(&cmder.showContexts, "contexts", false, "Also print the retrieved context chunks")

	return cmd
}

func (c *askCommander) run(ctx context.Context, w io.Writer) error {
	reply, err := AskAPI(ctx, c.apiTarget, c.question)
	if err != nil {
		return err
	}

	if c.raw {
		fmt.Fprintln(w, reply.Text)
	} else {
		rendered, err := cliui.RenderMarkdown(reply.Text)
		if err != nil {
			rendered = reply.Text + "\n"
		}
		fmt.Fprint(w, rendered)
	}

	lipgloss.Fprintf(w, "  %s %s  %s %s  %s %s\n",
		cliui.KeyStyle.Render("action"), cliui.ValueStyle.Render(string(reply.Action)),
		cliui.KeyStyle.Render("category"), cliui.ValueStyle.Render(string(reply.Category)),
		cliui.KeyStyle.Render("confidence"), cliui.ValueStyle.Render(fmt.Sprintf("%.2f", reply.Confidence)),
	)

	if c.showContexts {
		for i, ctxText := range reply.Contexts {
			lipgloss.Fprintf(w, "\n  %s %s\n",
				cliui.DimStyle.Render(fmt.Sprintf("[%d]", i+1)),
				cliui.DimStyle.Render(cliui.Truncate(ctxText, 200)),
			)
		}
	}

	return nil
}

// AskAPI posts question to the lubebot ask endpoint.
func AskAPI(ctx context.Context, apiTarget, question string) (*router.Reply, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	askURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	askURL.Path = "/v1/ask"

	payload, err := json.Marshal(api.AskRequest{Text: question})
	if err != nil {
		return nil, fmt.Errorf("encoding ask request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, askURL.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating ask request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to lubebot API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ask request failed (HTTP %d): %s", resp.StatusCode, searchcmder.ErrorMessage(body))
	}

	var reply router.Reply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("failed to parse ask response: %w", err)
	}

	return &reply, nil
}
