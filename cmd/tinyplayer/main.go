package main

import (
	"os"

	"github.com/jscyril/tinyplayer/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
