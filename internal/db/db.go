package db

import (
	"log"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Connect opens the database behind the DSN. MySQL DSNs contain a "@tcp("
// marker; everything else is treated as a SQLite file path.
func Connect(dsn string) *gorm.DB {
	var dial gorm.Dialector
	if strings.Contains(dsn, "@tcp(") {
		dial = mysql.Open(dsn)
	} else {
		dial = gormsqlite.Open(dsn)
	}

	gdb, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	return gdb
}
