// Package cli implements the shelfadm administrative commands: schema
// migration and offline collection maintenance against a configured
// backend.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/xraph/shelf"
)

// Exit codes for scripted callers.
const (
	ExitUsage              = 2
	ExitReadOnly           = 31
	ExitParentNotFound     = 32
	ExitCollectionNotFound = 33
)

const usage = `usage: shelfadm [--config FILE] <command> [flags]

commands:
  migrate            initialize or upgrade the storage schema
  delete-collection  delete a collection, its records and ACEs
  rename-collection  move a collection and its records to a new name
`

// Run executes one shelfadm command and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return ExitUsage
	}
	command, rest := args[0], args[1:]

	flags := pflag.NewFlagSet(command, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "shelf.yaml", "configuration file")

	var (
		dryRun     = flags.Bool("dry-run", false, "verify only, change nothing")
		force      = flags.Bool("force", false, "overwrite an existing destination collection")
		bucket     = flags.String("bucket", "", "bucket id")
		collection = flags.String("collection", "", "collection id")
		newName    = flags.String("new-name", "", "new collection id")
	)

	if err := flags.Parse(rest); err != nil {
		return ExitUsage
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("configuration failed", "error", err)
		return 1
	}
	backend, err := openStore(cfg.Storage)
	if err != nil {
		logger.Error("store setup failed", "error", err)
		return 1
	}
	defer backend.Close()

	admin := NewAdmin(backend, cfg.Shelf, logger)
	ctx := context.Background()

	switch command {
	case "migrate":
		err = admin.Migrate(ctx, *dryRun)
	case "delete-collection":
		if *bucket == "" || *collection == "" {
			fmt.Fprintln(stderr, "delete-collection requires --bucket and --collection")
			return ExitUsage
		}
		err = admin.DeleteCollection(ctx, *bucket, *collection, *dryRun)
	case "rename-collection":
		if *bucket == "" || *collection == "" || *newName == "" {
			fmt.Fprintln(stderr, "rename-collection requires --bucket, --collection and --new-name")
			return ExitUsage
		}
		err = admin.RenameCollection(ctx, *bucket, *collection, *newName, *force, *dryRun)
	default:
		fmt.Fprint(stderr, usage)
		return ExitUsage
	}

	if err != nil {
		logger.Error(command+" failed", "error", err)
		return exitCode(err)
	}
	fmt.Fprintln(stdout, command+": ok")
	return 0
}

// exitCode maps domain errors to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, shelf.ErrReadOnly):
		return ExitReadOnly
	case errors.Is(err, ErrParentNotFound):
		return ExitParentNotFound
	case errors.Is(err, ErrCollectionNotFound):
		return ExitCollectionNotFound
	}
	return 1
}
