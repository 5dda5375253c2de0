// This program performs administrative tasks against a node's chain storage
// while the node is down. Loading the chain revalidates every block, so any
// command doubles as an integrity check of the store.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agrimkaushik/powledger/app/tooling/admin/commands"
	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/agrimkaushik/powledger/foundation/blockchain/database/storage/bolt"
	"github.com/agrimkaushik/powledger/foundation/blockchain/database/storage/disk"
	"github.com/agrimkaushik/powledger/foundation/blockchain/database/storage/pebble"
	"github.com/agrimkaushik/powledger/foundation/blockchain/genesis"
	"github.com/agrimkaushik/powledger/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Args        conf.Args
		DBType      string `conf:"default:disk"`
		DBPath      string `conf:"default:zblock/miner1/"`
		GenesisPath string `conf:"default:zblock/genesis.json"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "chain storage admin",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// Open Chain

	gen, err := genesis.Load(cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis file: %w", err)
	}

	storage, err := selectStorage(cfg.DBType, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("unable to construct %q storage: %w", cfg.DBType, err)
	}

	// A nil event handler keeps the load quiet.
	db, err := database.New(gen, storage, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	return processCommands(cfg.Args, db)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, db *database.Database) error {
	switch args.Num(0) {
	case "bals":
		if err := commands.Balances(args, db); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	case "trans":
		if err := commands.Transactions(args, db); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}

	default:
		return errors.New("expected command: bals [account] | trans [account]")
	}

	return nil
}

// selectStorage constructs the storage backend holding the chain.
func selectStorage(dbType string, dbPath string) (database.Storage, error) {
	switch dbType {
	case "disk":
		return disk.New(dbPath)

	case "bolt":
		return bolt.New(filepath.Join(dbPath, "blocks.db"))

	case "pebble":
		return pebble.New(filepath.Join(dbPath, "pebble"))
	}

	return nil, fmt.Errorf("unknown storage type %q", dbType)
}
