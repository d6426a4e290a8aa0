package storage

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var (
	dbOnce sync.Once
	dbConn *sql.DB
	dbErr  error
)

// OpenMySQL returns the process-wide MySQL handle, opening it on first use.
// Later calls return the same handle regardless of dsn; the handle lives
// until process shutdown closes it.
func OpenMySQL(dsn string) (*sql.DB, error) {
	dbOnce.Do(func() {
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			dbErr = err
			return
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		dbConn = db
	})
	return dbConn, dbErr
}
