// Package sqlite opens a local database file through the pure-Go
// modernc.org/sqlite driver. It is the single-machine stand-in for the
// PostgreSQL client when prediction runs are stored locally.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/config"
	_ "modernc.org/sqlite"
)

type Client struct {
	DB   *sql.DB
	path string
}

// New opens (creating if needed) the database at cfg.Path. The special path
// ":memory:" gives a private in-memory database.
func New(cfg config.SQLiteConfig) (*Client, error) {
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", cfg.Path, err)
	}
	// A single connection keeps writers serialized and lets ":memory:"
	// databases survive across calls.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	return &Client{DB: db, path: cfg.Path}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}
