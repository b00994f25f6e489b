package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lky8/entries-shop/backend/config"
)

const (
	defaultMaxPoolSize       = 10
	defaultConnAttempts      = 10
	defaultConnTimeout       = 5
	defaultHealthCheckPeriod = 1
)

// Postgres bundles the pool with the ctx-scoped transactor every repository shares.
type Postgres struct {
	maxPoolSize       int32
	connAttempts      int
	connTimeout       int
	healthCheckPeriod int
	isolation         pgx.TxIsoLevel

	Builder sq.StatementBuilderType
	Pool    *pgxpool.Pool

	Transactor *tx.Transactor
	DBGetter   tx.DBGetter
}

// Option configures the Postgres connection.
type Option func(*Postgres)

func MaxPoolSize(size int32) Option {
	return func(p *Postgres) {
		if size > 0 {
			p.maxPoolSize = size
		}
	}
}

func ConnAttempts(attempts int) Option {
	return func(p *Postgres) {
		p.connAttempts = attempts
	}
}

// ConnTimeout is in seconds.
func ConnTimeout(timeout int) Option {
	return func(p *Postgres) {
		p.connTimeout = timeout
	}
}

// HealthCheckPeriod is in minutes.
func HealthCheckPeriod(period int) Option {
	return func(p *Postgres) {
		p.healthCheckPeriod = period
	}
}

func Isolation(level pgx.TxIsoLevel) Option {
	return func(p *Postgres) {
		p.isolation = level
	}
}

func New(cfg *config.Config, opts ...Option) (*Postgres, error) {
	pg := &Postgres{
		maxPoolSize:       defaultMaxPoolSize,
		connAttempts:      defaultConnAttempts,
		connTimeout:       defaultConnTimeout,
		healthCheckPeriod: defaultHealthCheckPeriod,
		isolation:         pgx.ReadCommitted,
		Builder:           sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}

	for _, opt := range opts {
		opt(pg)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DB.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres - New - pgxpool.ParseConfig: %w", err)
	}

	poolConfig.MaxConns = pg.maxPoolSize
	poolConfig.HealthCheckPeriod = time.Duration(pg.healthCheckPeriod) * time.Minute
	poolConfig.ConnConfig.ConnectTimeout = time.Duration(pg.connTimeout) * time.Second
	poolConfig.ConnConfig.RuntimeParams["default_transaction_isolation"] = string(pg.isolation)

	for pg.connAttempts > 0 {
		pg.Pool, err = pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err == nil {
			err = pg.Pool.Ping(context.Background())
			if err == nil {
				break
			}
			pg.Pool.Close()
		}

		slog.Warn("Postgres is trying to connect", "attempts_left", pg.connAttempts, "error", err)

		time.Sleep(time.Second)

		pg.connAttempts--
	}

	if err != nil {
		return nil, fmt.Errorf("postgres - New - connAttempts == 0: %w", err)
	}

	pg.bindTransactor()

	return pg, nil
}

// bindTransactor makes every repository run inside the transaction carried by
// the context, falling back to the pool outside of one.
func (p *Postgres) bindTransactor() {
	p.Transactor, p.DBGetter = tx.NewTransactorFromPool(p.Pool)
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}
