// Command focusctl checks, backs up and restores Focus-protocol keyboards.
package main

import (
	"github.com/alecthomas/kong"
)

var version = "dev"

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("focusctl"),
		kong.Description("Check, back up and restore Focus keyboards."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
