// assetpipe builds front-end assets (templates, stylesheets, scripts and
// images) and rebuilds them on change.
package main

import (
	"os"

	"github.com/hupe1980/assetpipe/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
