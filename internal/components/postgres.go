package components

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hearth-labs/hearth/internal/database"
	"github.com/hearth-labs/hearth/internal/supervisor"
)

// ErrNotConnected is returned by a PostgresComponent with no open pool.
var ErrNotConnected = errors.New("database not connected")

// ConnectFunc opens a pool.
type ConnectFunc func(ctx context.Context, cfg database.Config) (*pgxpool.Pool, error)

// PostgresComponent supervises a PostgreSQL connection pool. Recovery
// replaces the pool with a fresh one.
type PostgresComponent struct {
	name    string
	cfg     database.Config
	connect ConnectFunc

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

var _ supervisor.Component = (*PostgresComponent)(nil)

// NewPostgresComponent creates a component for the database at cfg. A nil
// connect uses database.Connect.
func NewPostgresComponent(name string, cfg database.Config, connect ConnectFunc) *PostgresComponent {
	if connect == nil {
		connect = database.Connect
	}
	return &PostgresComponent{name: name, cfg: cfg, connect: connect}
}

// Pool returns the current pool, or nil before Init succeeds.
func (c *PostgresComponent) Pool() *pgxpool.Pool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pool
}

func (c *PostgresComponent) Init(ctx context.Context) error {
	return c.reconnect(ctx)
}

func (c *PostgresComponent) HealthCheck(ctx context.Context) error {
	pool := c.Pool()
	if pool == nil {
		return ErrNotConnected
	}
	return pool.Ping(ctx)
}

func (c *PostgresComponent) Recover(ctx context.Context) error {
	return c.reconnect(ctx)
}

func (c *PostgresComponent) Shutdown(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
	return nil
}

func (c *PostgresComponent) reconnect(ctx context.Context) error {
	pool, err := c.connect(ctx, c.cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.pool
	c.pool = pool
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}
