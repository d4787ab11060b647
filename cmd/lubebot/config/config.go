// Package configcmder provides the config command for managing persistent
// lubebot configuration stored in the .lubebot/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent lubebot configuration.

Configuration is stored as config.toml in the .lubebot/ directory and provides
default values for command flags. Environment variables (LUBEBOT_*) override
the file, and CLI flags always take precedence over both.

Keys use dotted notation matching the TOML section structure, for example:
  storage.provider, vector_store.provider, embedding.provider,
  embedding.auth.client_id, corpus.root, retrieval.top_k,
  generation.model, classifier.rules_path, events.brokers, contact.phone

Use subcommands to get, set, or list configuration values:
  lubebot config set <key> <value>    Set a configuration value
  lubebot config get <key>            Get a configuration value
  lubebot config list                 List all configuration values

Examples:
  lubebot config set embedding.provider gigachat
  lubebot config set corpus.chunk_size 60
  lubebot config get generation.model
  lubebot config list`

const configShortDesc string = "Manage persistent lubebot configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
