package main

import (
	"os"

	"github.com/danielhkuo/votertag/cli"
)

func main() {
	// cobra has already printed the error
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
