package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/user"
	logsvc "github.com/trezcool/presence/services/logger"
	"github.com/trezcool/presence/storage/database"
	sqlxrepos "github.com/trezcool/presence/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger, err := logsvc.NewRollbarLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger.Enable(false)
	defer logger.Close()

	if conf.Database.InMemory() {
		logger.Fatal("the admin commands need a postgres database")
	}

	// set up DB
	ctx := context.Background()
	if err = database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	if err = database.Ping(ctx, db.DB, 10); err != nil {
		_ = db.Close()
		logger.Fatal("pinging database", err)
	}

	// start CLI
	cli := commandLine{
		usrSvc: user.NewService(sqlxrepos.NewStore(db)),
		migrate: func(ctx context.Context, command string, args ...string) error {
			return database.RunMigrations(ctx, db.DB, command, args...)
		},
	}
	err = cli.run(os.Args)
	closeDB(logger, db)
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		logger.Close()
		os.Exit(1)
	}
}

func closeDB(logger core.Logger, db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", err)
	}
}
