// Package lubebotcmder
package lubebotcmder

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	askcmder "github.com/ecofes/lubebot/cmd/lubebot/ask"
	classifycmder "github.com/ecofes/lubebot/cmd/lubebot/classify"
	configcmder "github.com/ecofes/lubebot/cmd/lubebot/config"
	indexcmder "github.com/ecofes/lubebot/cmd/lubebot/index"
	initcmder "github.com/ecofes/lubebot/cmd/lubebot/init"
	searchcmder "github.com/ecofes/lubebot/cmd/lubebot/search"
	servecmder "github.com/ecofes/lubebot/cmd/lubebot/serve"
	versioncmder "github.com/ecofes/lubebot/cmd/version"
)

const lubebotLongDesc string = `lubebot answers questions about ECOFES lubricants from a document corpus.

Build the index and run the service using:
  lubebot index        Index the document corpus
  lubebot serve        Run the API server
  lubebot ask          Ask the running server a question

Secrets such as LUBEBOT_GENERATION_API_KEY may be kept in a .env file
in the working directory.`

const lubebotShortDesc string = "lubebot - ECOFES lubricant assistant"

func NewLubebotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lubebot",
		Short:         lubebotShortDesc,
		Long:          lubebotLongDesc,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .lubebot configuration directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(classifycmder.NewClassifyCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// loadDotEnv reads ./.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
