// Package db provides PostgreSQL persistence for scan history. It stores one
// row per scan run plus one row per probed port, and is the data layer behind
// the API's scan history endpoints.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nvestad/portsleuth/internal/errors"
	"github.com/nvestad/portsleuth/internal/logging"
)

const (
	defaultPostgresPort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
)

// Config holds database connection settings.
type Config struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"password"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// DefaultConfig returns defaults for a local PostgreSQL. Database name,
// username, and password must be configured explicitly.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            defaultPostgresPort,
		SSLMode:         "disable",
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime,
	}
}

// Validate checks that required connection settings are present.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.ErrConfigMissing("database.host")
	}
	if c.Database == "" {
		return errors.ErrConfigMissing("database.database")
	}
	if c.Username == "" {
		return errors.ErrConfigMissing("database.username")
	}
	return nil
}

// DB wraps sqlx.DB.
type DB struct {
	*sqlx.DB
}

// Connect opens and verifies a PostgreSQL connection. Errors are sanitized
// so the DSN and credentials never reach logs or API responses.
func Connect(ctx context.Context, config *Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		config.Host, config.Port, config.Database,
		config.Username, config.Password, config.SSLMode,
	)

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.ErrDatabaseConnection(err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapDatabaseError(errors.CodeDatabaseConnection,
			"failed to verify database connection", err)
	}

	logging.Info("Connected to database",
		"host", config.Host, "port", config.Port, "database", config.Database)
	return &DB{DB: db}, nil
}

// sanitizeDBError converts raw database errors into errors safe to surface,
// keeping the original as Cause for internal logging.
func sanitizeDBError(operation string, err error) error {
	if err == nil {
		return nil
	}

	if err == sql.ErrNoRows {
		return errors.NewDatabaseError(errors.CodeNotFound, "resource not found")
	}

	var dbErr *errors.DatabaseError
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			dbErr = errors.NewDatabaseError(errors.CodeConflict, "resource already exists")
		case "23503": // foreign_key_violation
			dbErr = errors.NewDatabaseError(errors.CodeValidation, "referenced resource does not exist")
		case "57014": // query_canceled
			dbErr = errors.NewDatabaseError(errors.CodeCanceled, "database operation was canceled")
		case "08000", "08003", "08006":
			dbErr = errors.NewDatabaseError(errors.CodeDatabaseConnection, "database connection error")
		default:
			dbErr = errors.NewDatabaseError(errors.CodeDatabaseQuery,
				fmt.Sprintf("database operation failed: %s", operation))
		}
	} else {
		dbErr = errors.NewDatabaseError(errors.CodeDatabaseQuery,
			fmt.Sprintf("database operation failed: %s", operation))
	}

	dbErr.Operation = operation
	dbErr.Cause = err
	return dbErr
}
