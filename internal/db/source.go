package db

import (
	"context"
	"errors"
)

// Source hands out short-lived connections. Every Open returns an
// independent *Database with a single underlying connection, which the
// caller must Close.
type Source struct {
	config ConnectionConfig
}

// NewSource creates a source for the given configuration
func NewSource(config ConnectionConfig) *Source {
	// one statement per connection, nothing to pool
	config.MaxConnections = 1
	config.PoolSize = 1
	return &Source{config: config}
}

// Open connects to the database
func (s *Source) Open(ctx context.Context) (*Database, error) {
	return Connect(ctx, s.config)
}

// Config returns the source configuration
func (s *Source) Config() ConnectionConfig {
	return s.config
}

// ReadOnly returns a source for the same database opened read-only
func (s *Source) ReadOnly() *Source {
	config := s.config
	config.ReadOnly = true
	return &Source{config: config}
}

// TableColumns opens a connection, reads the table's columns and closes it
func (s *Source) TableColumns(ctx context.Context, table string) (columns []string, err error) {
	database, err := s.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, database.Close())
	}()

	return database.TableColumns(ctx, table)
}

// Ping checks that a connection can be established
func (s *Source) Ping(ctx context.Context) error {
	database, err := s.Open(ctx)
	if err != nil {
		return err
	}
	return database.Close()
}
