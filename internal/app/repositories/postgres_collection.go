package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/campuskizuna/internal/db"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
	"github.com/yigit/campuskizuna/internal/pkg/dberrors"
	"github.com/yigit/campuskizuna/internal/pkg/logger"
)

// PostgresCollection stores documents as JSONB rows: (id TEXT PRIMARY KEY, body JSONB).
// Indexed fields are backed by expression indexes created in the migrations.
type PostgresCollection[T any] struct {
	db      *db.PostgresDB
	table   string
	idOf    func(*T) string
	indexed map[string]struct{}
	sb      squirrel.StatementBuilderType
}

// NewPostgresCollection creates a collection over table
func NewPostgresCollection[T any](database *db.PostgresDB, table string, idOf func(*T) string, indexes ...string) *PostgresCollection[T] {
	return &PostgresCollection[T]{
		db:      database,
		table:   table,
		idOf:    idOf,
		indexed: indexSet(indexes),
		sb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// FindByID loads one document
func (c *PostgresCollection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	query, args, err := c.sb.Select("body").From(c.table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s lookup: %w", c.table, err)
	}

	var body []byte
	if err := c.db.Pool.QueryRow(ctx, query, args...).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %q: %w", c.table, id, apperrors.ErrResourceNotFound)
		}
		logger.Error().Err(err).Str("table", c.table).Str("id", id).Msg("Error loading document")
		return nil, fmt.Errorf("load %s %q: %w", c.table, id, err)
	}
	return c.decode(body)
}

// Find returns matching documents ordered by id
func (c *PostgresCollection[T]) Find(ctx context.Context, where Where) ([]*T, error) {
	if err := checkIndexed(c.table, c.indexed, where); err != nil {
		return nil, err
	}

	qb := c.sb.Select("body").From(c.table).OrderBy("id")
	for field, want := range where {
		if member, ok := want.(Member); ok {
			qb = qb.Where(squirrel.Expr(fmt.Sprintf("body->'%s' @> jsonb_build_array(?::text)", field), string(member)))
			continue
		}
		qb = qb.Where(squirrel.Eq{fmt.Sprintf("body->>'%s'", field): fmt.Sprint(want)})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", c.table, err)
	}

	rows, err := c.db.Pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("table", c.table).Msg("Error querying documents")
		return nil, fmt.Errorf("query %s: %w", c.table, err)
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", c.table, err)
		}
		v, err := c.decode(body)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", c.table, err)
	}
	return out, nil
}

// Insert adds a new row
func (c *PostgresCollection[T]) Insert(ctx context.Context, v *T) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c.table, err)
	}
	id := c.idOf(v)

	query, args, err := c.sb.Insert(c.table).Columns("id", "body").Values(id, body).ToSql()
	if err != nil {
		return fmt.Errorf("build %s insert: %w", c.table, err)
	}

	if _, err := c.db.Pool.Exec(ctx, query, args...); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return fmt.Errorf("%s %q: %w", c.table, id, apperrors.ErrResourceAlreadyExists)
		}
		logger.Error().Err(err).Str("table", c.table).Str("id", id).Msg("Error inserting document")
		return fmt.Errorf("insert %s %q: %w", c.table, id, err)
	}
	return nil
}

// Replace overwrites an existing row
func (c *PostgresCollection[T]) Replace(ctx context.Context, v *T) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c.table, err)
	}
	id := c.idOf(v)

	query, args, err := c.sb.Update(c.table).
		Set("body", body).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s update: %w", c.table, err)
	}

	tag, err := c.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return fmt.Errorf("%s %q: %w", c.table, id, apperrors.ErrResourceAlreadyExists)
		}
		return fmt.Errorf("update %s %q: %w", c.table, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %q: %w", c.table, id, apperrors.ErrResourceNotFound)
	}
	return nil
}

// SaveAll upserts every document inside one transaction
func (c *PostgresCollection[T]) SaveAll(ctx context.Context, vs ...*T) error {
	if len(vs) == 0 {
		return nil
	}

	qb := c.sb.Insert(c.table).Columns("id", "body")
	for _, v := range vs {
		body, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s document: %w", c.table, err)
		}
		qb = qb.Values(c.idOf(v), body)
	}
	query, args, err := qb.Suffix("ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()").ToSql()
	if err != nil {
		return fmt.Errorf("build %s upsert: %w", c.table, err)
	}

	return c.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			if dberrors.IsUniqueViolation(err) {
				return fmt.Errorf("%s: %w", c.table, apperrors.ErrResourceAlreadyExists)
			}
			return fmt.Errorf("upsert %s: %w", c.table, err)
		}
		return nil
	})
}

// Delete removes a row
func (c *PostgresCollection[T]) Delete(ctx context.Context, id string) error {
	query, args, err := c.sb.Delete(c.table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build %s delete: %w", c.table, err)
	}

	tag, err := c.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", c.table, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %q: %w", c.table, id, apperrors.ErrResourceNotFound)
	}
	return nil
}

// DeleteAll removes every listed row in one statement
func (c *PostgresCollection[T]) DeleteAll(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := c.sb.Delete(c.table).Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return fmt.Errorf("build %s delete: %w", c.table, err)
	}
	if _, err := c.db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", c.table, err)
	}
	return nil
}

func (c *PostgresCollection[T]) decode(body []byte) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(body, v); err != nil {
		return nil, fmt.Errorf("decode %s document: %w", c.table, err)
	}
	return v, nil
}
