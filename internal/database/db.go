package database

import (
	"context"
	"database/sql"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/community-events/internal/config"
)

// DSN builds the driver connection string for cfg.  Times are parsed into
// time.Time in UTC and the session lock wait timeout is set so a blocked
// registration fails instead of waiting for the server default (50s).
func DSN(cfg config.DBConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Pass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	// report matched rather than changed rows so UPDATE ... WHERE id
	// distinguishes a missing row from an unchanged one
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	if cfg.LockWaitTimeout > 0 {
		mc.Params["innodb_lock_wait_timeout"] = strconv.Itoa(cfg.LockWaitTimeout)
	}
	return mc.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, err
	}

	// Pool settings
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
