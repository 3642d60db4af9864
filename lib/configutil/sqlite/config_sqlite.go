package configsqlite

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct describes the database block of a service config. Either a local
// sqlite file or a remote libsql url may be given.
type Struct struct {
	File string `json:"file"`
	Url  string `json:"url"`
}

func (config Struct) OpenDB(schema string) (*sql.DB, error) {
	var db *sql.DB
	switch {
	case config.Url != "":
		var err error
		db, err = sql.Open("libsql", config.Url)
		if err != nil {
			return nil, err
		}
	case config.File != "":
		_, statErr := os.Stat(config.File)
		if os.IsNotExist(statErr) {
			f, err := os.Create(config.File)
			if err != nil {
				return nil, err
			}
			f.Close()
		}

		var err error
		db, err = sql.Open("sqlite", config.File)
		if err != nil {
			return nil, err
		}
		// see this stackoverflow post for information on why the following
		// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
		db.SetMaxOpenConns(1)
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("neither a database file nor a url was specified")
	}

	_, err := db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return nil, err
	}
	return db, nil
}
