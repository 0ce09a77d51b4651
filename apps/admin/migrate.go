package main

import (
	"database/sql"

	"github.com/pressly/goose/v3"

	"github.com/tmalela/elimisha/storage/database"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	if err := database.SetupGoose(); err != nil {
		return err
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.gooseDB(), "migrations", arguments...)
}

func (cli *commandLine) gooseDB() *sql.DB {
	return cli.db.DB
}
