// Command greed-sync pushes, pulls or wipes the scorekeeper data
// against a Firestore project.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/israel-dryer/greed/internal/cloudsync"
	"github.com/israel-dryer/greed/internal/config"
	"github.com/israel-dryer/greed/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	dbPath := flag.String("db", "", "Path to the database file (empty to use config default)")
	projectID := flag.String("project", "", "Firestore project id (empty to use config default)")
	uid := flag.String("uid", "", "User id for the cloud namespace (empty to use the device id)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: greed-sync [flags] push|pull|wipe")
		os.Exit(2)
	}
	command := flag.Arg(0)

	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}
	cfg := config.Get()

	if *dbPath == "" {
		*dbPath = cfg.Storage.Path
	}
	if *projectID == "" {
		*projectID = cfg.Sync.ProjectID
	}
	if *uid == "" {
		*uid = cfg.Sync.UID
	}
	if *projectID == "" {
		log.Fatal().Msg("No Firestore project configured; set sync.project_id or pass -project")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx := context.Background()

	st, err := store.NewSQLite(ctx, *dbPath, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	if *uid == "" {
		// Fall back to the per-install device id so unauthenticated
		// devices still get a stable namespace.
		*uid, err = st.State().DeviceID(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve device id")
		}
	}

	timeout := time.Duration(cfg.Sync.TimeoutSeconds) * time.Second
	syncer, err := cloudsync.NewFirestore(ctx, st, *projectID, *uid, timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Firestore")
	}
	defer syncer.Close()

	switch command {
	case "push":
		err = syncer.Push(ctx)
	case "pull":
		err = syncer.Pull(ctx)
	case "wipe":
		err = syncer.Wipe(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}
}
