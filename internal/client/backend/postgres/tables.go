// Package postgres implements backend.Tables directly against a Postgres
// database with pgx. It serves self-hosted and development setups where the
// client may reach the database without the REST gateway; rows travel as
// JSON so the same models decode from either transport.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Tables struct {
	db Querier
}

var _ backend.Tables = (*Tables)(nil)

func New(db Querier) *Tables {
	return &Tables{db: db}
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, mapError(ctx, err)
	}
	return pool, nil
}

func (t *Tables) Select(ctx context.Context, table string, q backend.Query, dst any) error {
	if err := q.Validate(table); err != nil {
		return err
	}

	sql, args := buildSelect(table, q)
	var raw []byte
	if err := t.db.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		return mapError(ctx, err)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	return backend.DecodeRows(rows, q, dst)
}

func (t *Tables) Insert(ctx context.Context, table string, row any, dst any) error {
	if err := (backend.Query{}).Validate(table); err != nil {
		return err
	}
	cols, payload, err := columns(row)
	if err != nil {
		return err
	}

	sql := buildInsert(table, cols, dst != nil)
	var args []any
	if len(cols) > 0 {
		args = append(args, string(payload))
	}

	if dst == nil {
		if _, err := t.db.Exec(ctx, sql, args...); err != nil {
			return mapError(ctx, err)
		}
		return nil
	}

	var raw []byte
	if err := t.db.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		return mapError(ctx, err)
	}
	return backend.DecodeRows([]json.RawMessage{raw}, backend.Query{Single: true}, dst)
}

func (t *Tables) Update(ctx context.Context, table string, q backend.Query, patch any) error {
	if err := q.Validate(table); err != nil {
		return err
	}
	cols, payload, err := columns(patch)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}

	sql, args := buildUpdate(table, cols, q)
	if _, err := t.db.Exec(ctx, sql, append([]any{string(payload)}, args...)...); err != nil {
		return mapError(ctx, err)
	}
	return nil
}

func (t *Tables) Delete(ctx context.Context, table string, q backend.Query) error {
	if err := q.Validate(table); err != nil {
		return err
	}

	sql, args := buildDelete(table, q)
	if _, err := t.db.Exec(ctx, sql, args...); err != nil {
		return mapError(ctx, err)
	}
	return nil
}

// mapError translates driver errors into the backend error taxonomy.
func mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return backend.NoRows(0)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &backend.APIError{
			Status:  statusFor(pgErr.Code),
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Details: pgErr.Detail,
			Hint:    pgErr.Hint,
		}
	}
	return fmt.Errorf("%w: %w", backend.ErrUnavailable, err)
}

// statusFor mirrors the HTTP status the REST gateway reports for a SQLSTATE.
func statusFor(code string) int {
	switch {
	case code == "23505" || code == "23503":
		return http.StatusConflict
	case code == "42501":
		return http.StatusForbidden
	case code == "42P01" || code == "42883":
		return http.StatusNotFound
	case len(code) >= 2 && (code[:2] == "08" || code[:2] == "53" || code[:2] == "57"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
