package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL URLs
	_ "github.com/lib/pq"              // PostgreSQL key=value DSNs
	_ "github.com/mattn/go-sqlite3"    // SQLite
)

const (
	defaultConnectTimeout  = 30 * time.Second
	defaultConnMaxLifetime = 5 * time.Minute
)

// ConnectionConfig describes how to reach the advisor store. Either
// ConnectionString is set, or the discrete fields for DatabaseType are.
type ConnectionConfig struct {
	DatabaseType     DatabaseType
	ConnectionString string

	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// FilePath is the SQLite database file
	FilePath string

	// ReadOnly opens SQLite with mode=ro and Postgres with read-only
	// transactions. MySQL has no DSN switch for it.
	ReadOnly bool

	PoolSize        int
	MaxConnections  int
	ConnectTimeout  time.Duration
	ConnMaxLifetime time.Duration
}

// Database is an open handle on the store
type Database struct {
	db     *sql.DB
	driver string
}

// ConfigFromURL maps a DATABASE_URL style string onto a connection config.
// Anything that is not a recognised server URL or DSN is treated as a SQLite path.
func ConfigFromURL(url string) ConnectionConfig {
	url = strings.TrimSpace(url)
	config := ConnectionConfig{
		DatabaseType:    DetectDatabaseType(url),
		PoolSize:        1,
		MaxConnections:  1,
		ConnectTimeout:  defaultConnectTimeout,
		ConnMaxLifetime: defaultConnMaxLifetime,
	}

	if config.DatabaseType == DatabaseTypeSQLite {
		config.FilePath = strings.TrimPrefix(url, "sqlite://")
	} else {
		config.ConnectionString = url
	}
	return config
}

func isPostgresURL(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// DetectDatabaseType guesses the database type from a connection string
func DetectDatabaseType(connStr string) DatabaseType {
	switch {
	case isPostgresURL(connStr):
		return DatabaseTypePostgreSQL
	case strings.HasPrefix(connStr, "mysql://"):
		return DatabaseTypeMySQL
	case strings.Contains(connStr, "host=") && strings.Contains(connStr, "dbname="):
		return DatabaseTypePostgreSQL
	}
	return DatabaseTypeSQLite
}

// driverDSN resolves the database/sql driver name and DSN for a config
func driverDSN(config ConnectionConfig) (driver, dsn string, err error) {
	if s := config.ConnectionString; s != "" {
		switch {
		case isPostgresURL(s):
			return "pgx", s, nil
		case strings.HasPrefix(s, "mysql://"):
			return "mysql", strings.TrimPrefix(s, "mysql://"), nil
		case strings.Contains(s, "host="):
			return "postgres", s, nil
		}
		return "sqlite3", sqliteDSN(s, config.ReadOnly), nil
	}

	switch config.DatabaseType {
	case DatabaseTypePostgreSQL:
		return "postgres", postgresDSN(config), nil
	case DatabaseTypeMySQL:
		return "mysql", mysqlDSN(config), nil
	case DatabaseTypeSQLite:
		if config.FilePath == "" {
			return "", "", errors.New("sqlite database requires a file path")
		}
		return "sqlite3", sqliteDSN(config.FilePath, config.ReadOnly), nil
	}
	return "", "", fmt.Errorf("unsupported database type: %q", config.DatabaseType)
}

// Connect opens the store and pings it within ConnectTimeout
func Connect(ctx context.Context, config ConnectionConfig) (*Database, error) {
	driver, dsn, err := driverDSN(config)
	if err != nil {
		return nil, err
	}

	handle, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := handle.PingContext(pingCtx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("connect to %s database: %w", driver, err)
	}

	if config.MaxConnections > 0 {
		handle.SetMaxOpenConns(config.MaxConnections)
	}
	if config.PoolSize > 0 {
		handle.SetMaxIdleConns(config.PoolSize)
	}
	if config.ConnMaxLifetime > 0 {
		handle.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	return &Database{db: handle, driver: driver}, nil
}

func sqliteDSN(path string, readOnly bool) string {
	switch {
	case !readOnly:
		return path
	case !strings.HasPrefix(path, "file:"):
		return "file:" + path + "?mode=ro"
	case strings.Contains(path, "?"):
		return path + "&mode=ro"
	}
	return path + "?mode=ro"
}

func postgresDSN(config ConnectionConfig) string {
	port := config.Port
	if port == 0 {
		port = 5432
	}
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	parts := []string{
		"host=" + config.Host,
		fmt.Sprintf("port=%d", port),
		"user=" + config.Username,
	}
	if config.Password != "" {
		parts = append(parts, "password="+config.Password)
	}
	if config.Database != "" {
		parts = append(parts, "dbname="+config.Database)
	}
	parts = append(parts, "sslmode="+sslMode)
	if config.ReadOnly {
		parts = append(parts, "default_transaction_read_only=on")
	}
	return strings.Join(parts, " ")
}

func mysqlDSN(config ConnectionConfig) string {
	port := config.Port
	if port == 0 {
		port = 3306
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)", config.Username, config.Password, config.Host, port)
	if config.Database != "" {
		dsn += "/" + config.Database
	}
	return dsn + "?parseTime=true&loc=Local"
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.db.Close()
}

func (db *Database) postgres() bool {
	return db.driver == "pgx" || db.driver == "postgres"
}

// QuoteIdent quotes an identifier for the connected dialect
func (db *Database) QuoteIdent(name string) string {
	if db.postgres() {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// placeholder returns the n-th (1-based) bind parameter for the dialect
func (db *Database) placeholder(n int) string {
	if db.postgres() {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// BeginTx starts a transaction on the handle
func (db *Database) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Transaction, error) {
	tx, err := db.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Transaction{tx: tx, db: db}, nil
}
