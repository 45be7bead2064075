// Command shelfadm administers shelf deployments: schema migration and
// offline collection maintenance.
package main

import (
	"os"

	"github.com/xraph/shelf/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
