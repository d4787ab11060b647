package main

import (
	"os"

	lubebotcmder "github.com/ecofes/lubebot/cmd/lubebot"
)

func main() {
	cmd := lubebotcmder.NewLubebotCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
