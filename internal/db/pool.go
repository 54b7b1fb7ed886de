package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the shared connection pool. It stays nil when no database is
// configured; callers must check before constructing repositories.
var Pool *pgxpool.Pool

// Init connects to PostgreSQL using DATABASE_URL, or the individual DB_*
// variables when it is unset. Returns an error when neither is configured.
func Init() error {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		host := os.Getenv("DB_HOST")
		if host == "" {
			return fmt.Errorf("no database configured: set DATABASE_URL or DB_HOST")
		}
		port := os.Getenv("DB_PORT")
		if port == "" {
			port = "5432"
		}
		connString = fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"),
			host, port, os.Getenv("DB_NAME"))
	}

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("parsing database config: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging database: %w", err)
	}

	Pool = pool
	return nil
}

// Close releases the pool.
func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
	}
}
