package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
	"github.com/zatekoja/coachpackets/pkg/config"
	"github.com/zatekoja/coachpackets/pkg/retry"
)

// Client owns the connection pool shared by every database adapter
type Client struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewClient opens the pool and waits for the database with exponential backoff
func NewClient(cfg *config.DatabaseConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	err = waitForDB(db, retry.DefaultConfig())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to PostgreSQL")
	return &Client{db: db}, nil
}

// waitForDB pings until the server answers. Authentication failures and a
// missing database end the wait at once.
func waitForDB(db *sql.DB, cfg retry.Config) error {
	return retry.DoWithLog(
		context.Background(),
		cfg,
		"PostgreSQL",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := db.PingContext(ctx)
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && (pqErr.Code.Class() == "28" || pqErr.Code == "3D000") {
				return retry.Permanent(err)
			}
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("PostgreSQL connection attempt failed")
		},
	)
}

// NewFromDB wraps an already opened connection pool
func NewFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// SetMetrics enables query duration metrics for Observe
func (c *Client) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// Observe records how long operation took since start. Call it deferred.
func (c *Client) Observe(ctx context.Context, operation string, start time.Time) {
	observability.RecordDBMetric(ctx, c.metrics, operation, time.Since(start))
}

// DB returns the underlying database connection
func (c *Client) DB() *sql.DB {
	return c.db
}

// SQLX returns an sqlx handle sharing the same pool
func (c *Client) SQLX() *sqlx.DB {
	return sqlx.NewDb(c.db, "postgres")
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
