// Command casebrief generates project case studies from a user's
// connected services.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/casebrief/internal/adapters/driving/cli"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(wire)

	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
