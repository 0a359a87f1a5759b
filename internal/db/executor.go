// Package db runs single SQL statements against PostgreSQL. Every call opens
// its own connection and closes it before returning.
package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/usuarios/internal/observability"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/geocoder89/usuarios/internal/db"

type Config struct {
	URL            string
	ConnectTimeout time.Duration
}

// Params are bound by name: a key "email" fills the "@email" placeholder.
type Params map[string]any

func (p Params) args() []any {
	if len(p) == 0 {
		return nil
	}
	return []any{pgx.NamedArgs(p)}
}

type Kind int

const (
	KindRead Kind = iota
	KindWrite
)

func (k Kind) String() string {
	if k == KindRead {
		return "read"
	}
	return "write"
}

// Classify treats a statement as a read when its first keyword is SELECT.
func Classify(statement string) Kind {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(statement)), "SELECT") {
		return KindRead
	}
	return KindWrite
}

// Result is the normalized outcome of Execute. Reads fill Row (fetchOne) or
// Rows; writes fill RowsAffected.
type Result[T any] struct {
	Kind         Kind
	Row          *T
	Rows         []T
	RowsAffected int64
}

type Executor struct {
	cfg    Config
	log    *slog.Logger
	prom   *observability.Prom
	tracer trace.Tracer
}

// NewExecutor does not touch the database; bad credentials surface on the
// first call. prom may be nil.
func NewExecutor(cfg Config, log *slog.Logger, prom *observability.Prom) *Executor {
	if log == nil {
		log = slog.Default()
	}

	return &Executor{
		cfg:    cfg,
		log:    log,
		prom:   prom,
		tracer: otel.Tracer(tracerName),
	}
}

// Execute runs one statement. Reads are scanned into T by column name; with
// fetchOne a missing row yields a nil Result.Row and no error. Writes are
// committed before Execute returns.
func Execute[T any](ctx context.Context, e *Executor, statement string, params Params, fetchOne bool) (Result[T], error) {
	kind := Classify(statement)

	if kind == KindWrite {
		n, err := e.exec(ctx, statement, params)
		if err != nil {
			return Result[T]{Kind: kind}, err
		}
		return Result[T]{Kind: kind, RowsAffected: n}, nil
	}

	res := Result[T]{Kind: kind}

	op := "select"
	if fetchOne {
		op = "select_one"
	}

	err := e.run(ctx, op, statement, func(ctx context.Context, conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, statement, params.args()...)
		if err != nil {
			return err
		}

		if fetchOne {
			row, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[T])
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			if err != nil {
				return err
			}
			res.Row = row
			return nil
		}

		list, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
		if err != nil {
			return err
		}
		if list == nil {
			list = []T{}
		}
		res.Rows = list
		return nil
	})

	if err != nil {
		return Result[T]{Kind: kind}, err
	}

	return res, nil
}

// InsertReturningID runs an INSERT ... RETURNING id in its own transaction
// and hands back the generated key.
func (e *Executor) InsertReturningID(ctx context.Context, statement string, params Params) (int64, error) {
	var id int64

	err := e.run(ctx, "insert_returning", statement, func(ctx context.Context, conn *pgx.Conn) error {
		return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			return tx.QueryRow(ctx, statement, params.args()...).Scan(&id)
		})
	})

	return id, err
}

func (e *Executor) Ping(ctx context.Context) error {
	return e.run(ctx, "ping", "", func(ctx context.Context, conn *pgx.Conn) error {
		return conn.Ping(ctx)
	})
}

func (e *Executor) exec(ctx context.Context, statement string, params Params) (int64, error) {
	var affected int64

	err := e.run(ctx, "exec", statement, func(ctx context.Context, conn *pgx.Conn) error {
		return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, statement, params.args()...)
			if err != nil {
				return err
			}
			affected = tag.RowsAffected()
			return nil
		})
	})

	return affected, err
}

// run owns the connection for one call: connect, fn, close. Any failure
// comes back as a *StorageError.
func (e *Executor) run(ctx context.Context, op, statement string, fn func(context.Context, *pgx.Conn) error) error {
	ctx, span := e.tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.statement", statement),
		),
	)
	defer span.End()

	start := time.Now()

	err := e.observe(op, func() error {
		conn, err := e.connect(ctx)
		if err != nil {
			return err
		}

		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = conn.Close(closeCtx)
		}()

		return fn(ctx, conn)
	})

	lat := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.WarnContext(ctx, "db_call_failed", "op", op, "latency_ms", lat.Milliseconds(), "class", observability.ClassifyDBErr(err), "err", err)

		return &StorageError{Op: op, Err: err}
	}

	e.log.DebugContext(ctx, "db_call", "op", op, "latency_ms", lat.Milliseconds())
	return nil
}

func (e *Executor) connect(ctx context.Context) (*pgx.Conn, error) {
	cc, err := pgx.ParseConfig(e.cfg.URL)
	if err != nil {
		return nil, err
	}

	if e.cfg.ConnectTimeout > 0 {
		cc.ConnectTimeout = e.cfg.ConnectTimeout
	}

	return pgx.ConnectConfig(ctx, cc)
}

func (e *Executor) observe(op string, fn func() error) error {
	if e.prom != nil {
		return e.prom.ObserveDB(op, fn)
	}
	return fn()
}
