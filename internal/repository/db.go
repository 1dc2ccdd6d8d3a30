package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// sqlx does not know the modernc driver name out of the box.
func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type Config struct {
	Driver          string // "sqlite" (default) or "postgres"
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	BusyTimeout     time.Duration
	DialTimeout     time.Duration
}

// DB is the handle every repository operates on. It carries the transaction
// options matching the backing engine so that each operation handler runs as
// one serializable unit of work.
type DB struct {
	*sqlx.DB
	txOpts sql.TxOptions
}

// Open connects to the configured engine, applies pool settings, pings, and
// bootstraps the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	var driverName, dsn string
	var txOpts sql.TxOptions

	switch cfg.Driver {
	case "", "sqlite":
		driverName = "sqlite"
		dsn = sqliteDSN(cfg.DSN, cfg.BusyTimeout)
		// SQLite transactions are serializable already; the driver rejects
		// explicit isolation levels.
	case "postgres":
		driverName = "pgx"
		dsn = cfg.DSN
		txOpts = sql.TxOptions{Isolation: sql.LevelSerializable}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	logger.Info("connecting to database", "driver", driverName)
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		logger.Error("failed to open database", "driver", driverName, "error", err)
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	pingTimeout := cfg.DialTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		logger.Error("failed to ping database", "driver", driverName, "error", err)
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := bootstrap(ctx, db); err != nil {
		db.Close()
		logger.Error("failed to bootstrap schema", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return &DB{DB: db, txOpts: txOpts}, nil
}

// Close closes the database connection gracefully
func Close(db *DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	logger.Info("closing database connection")
	if err := db.DB.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}

// HealthCheck pings the database to catch DSN issues early.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}

func sqliteDSN(path string, busy time.Duration) string {
	if strings.HasPrefix(path, "file:") || strings.HasPrefix(path, ":memory:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	ms := int(busy / time.Millisecond)
	if ms <= 0 {
		ms = 5000
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", abs, ms)
}
