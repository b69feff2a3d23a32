package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ethan041028/audacieuses-content/internal/content"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store. The tables are created by
// database.DB.EnsureSchema.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed activity store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

const activityColumns = `id::text, module_id, title, kind, content, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, a Activity) (Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`INSERT INTO activities (id, module_id, title, kind, content)
		 VALUES ($1::uuid, $2, $3, $4, $5)
		 RETURNING `+activityColumns,
		a.ID,
		a.ModuleID,
		a.Title,
		string(a.Kind),
		a.Content,
	)
	out, err := scanActivity(row)
	if isUniqueViolation(err) {
		return Activity{}, ErrConflict
	}
	if err != nil {
		return Activity{}, fmt.Errorf("create activity: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = $1::uuid`,
		id,
	)
	out, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, ErrNotFound
	}
	if err != nil {
		return Activity{}, fmt.Errorf("get activity: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, a Activity) (Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`UPDATE activities
		 SET title = $2, kind = $3, content = $4, updated_at = now()
		 WHERE id = $1::uuid
		 RETURNING `+activityColumns,
		a.ID,
		a.Title,
		string(a.Kind),
		a.Content,
	)
	out, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, ErrNotFound
	}
	if err != nil {
		return Activity{}, fmt.Errorf("update activity: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListByModule(ctx context.Context, moduleID string) ([]Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+activityColumns+`
		 FROM activities
		 WHERE module_id = $1
		 ORDER BY created_at ASC, id ASC`,
		moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	out := []Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return out, nil
}

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	var kind string
	if err := row.Scan(
		&a.ID,
		&a.ModuleID,
		&a.Title,
		&kind,
		&a.Content,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return Activity{}, err
	}
	a.Kind = content.Kind(kind)
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
