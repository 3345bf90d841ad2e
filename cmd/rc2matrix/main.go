package main

import (
	"fmt"
	"os"

	"github.com/mattermost/rocketchat-matrix-migrator/command"
)

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
