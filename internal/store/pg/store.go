// Package pg implementa repository.Store sobre PostgreSQL.
//
// El pool lo administra pgxpool; los repositorios hablan database/sql a través
// del adaptador stdlib de pgx para poder testearse con sqlmock.
package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

// PoolConfig ajusta el pool de conexiones. Los ceros usan los defaults de pgxpool.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

type Store struct {
	pool *pgxpool.Pool // nil cuando el Store se construye sobre un *sql.DB externo
	db   *sql.DB
}

var _ repository.Store = (*Store)(nil)

// New abre el pool y lo expone como *sql.DB.
// El ping inicial no es fatal: la app arranca aunque la DB esté caída y /readyz lo reporta.
func New(ctx context.Context, dsn string, cfg PoolConfig) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	log := logger.L().With(logger.Component("store.pg"))
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg pool startup ping failed", logger.Err(err))
	} else {
		log.Info("pg pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}

	return &Store{pool: pool, db: stdlib.OpenDBFromPool(pool)}, nil
}

// NewFromDB envuelve un *sql.DB ya abierto (tests con sqlmock, herramientas).
func NewFromDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Driver() string { return "postgres" }

// Pool expone el pool de pgx para métricas. nil con NewFromDB.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// DB expone el handle database/sql.
func (s *Store) DB() *sql.DB { return s.db }

// Acquire reserva una conexión dedicada para la duración de un request.
func (s *Store) Acquire(ctx context.Context) (repository.Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, repository.Unavailable("pg.acquire", err)
	}
	return &session{conn: conn}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return repository.Unavailable("pg.ping", err)
	}
	return nil
}

// Close cierra el handle y el pool subyacente (idempotente).
func (s *Store) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// Users opera sobre el pool sin reservar conexión (CLI, jobs).
func (s *Store) Users() repository.UserRepository { return &userRepo{db: s.db} }

// Referrals opera sobre el pool sin reservar conexión (CLI, jobs).
func (s *Store) Referrals() repository.ReferralRepository { return &referralRepo{db: s.db} }

type session struct {
	conn *sql.Conn
}

func (x *session) Users() repository.UserRepository         { return &userRepo{db: x.conn} }
func (x *session) Referrals() repository.ReferralRepository { return &referralRepo{db: x.conn} }

// Close devuelve la conexión al pool.
func (x *session) Close() error { return x.conn.Close() }

// dbtx lo satisfacen *sql.DB y *sql.Conn.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func ptr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
