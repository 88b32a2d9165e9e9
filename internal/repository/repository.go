package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/config"
)

// Queryer 同时兼容 pgx.Tx 与 pgxpool.Pool
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DB 是连接池需要提供的能力，pgxpool.Pool 和 pgxmock 都满足
type DB interface {
	Queryer
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository struct {
	cfg    *config.Config
	dbpool DB
}

func NewRepository(cfg *config.Config, dbpool DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

// queryer 在 context 中存在事务时返回事务，否则返回连接池
func (r *Repository) queryer(ctx context.Context) Queryer {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return r.dbpool
}

func (r *Repository) withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}
