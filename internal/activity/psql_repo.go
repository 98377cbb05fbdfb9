package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/clientportal/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const Schema = `
CREATE SCHEMA IF NOT EXISTS portal;
CREATE TABLE IF NOT EXISTS portal.activity
(
    id         SERIAL PRIMARY KEY,
    email      VARCHAR NOT NULL,
    action     VARCHAR NOT NULL,
    type       VARCHAR NOT NULL DEFAULT 'info',
    ip         VARCHAR NOT NULL DEFAULT '',
    city       VARCHAR NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_activity_email_created_at ON portal.activity USING btree (email, created_at DESC);
`

type PsqlRepo struct {
	db *pgxpool.Pool
}

func NewPsqlRepo(db *pgxpool.Pool) *PsqlRepo {
	return &PsqlRepo{
		db: db,
	}
}

// Migrate creates the activity table when it does not exist yet.
func (r *PsqlRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create activity schema: %w", err)
	}
	return nil
}

func (r *PsqlRepo) Add(ctx context.Context, entry *Entry) (*Entry, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "activityRepo.add")
	defer span.End()

	if err := entry.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid-entry")
		return nil, err
	}

	added := *entry
	added.Email = normalizeEmail(entry.Email)
	err := r.db.QueryRow(
		ctx,
		`INSERT INTO portal.activity (email, action, type, ip, city, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id;`,
		added.Email, added.Action, added.Type, added.IP, added.City, added.CreatedAt,
	).Scan(&added.ID)
	if err != nil {
		span.SetStatus(codes.Error, "insert")
		span.RecordError(err)
		return nil, fmt.Errorf("insert activity: %w", err)
	}

	span.SetAttributes(attribute.Int("activity.id", added.ID))
	return &added, nil
}

func (r *PsqlRepo) ListRecent(ctx context.Context, email string, limit int) ([]Entry, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "activityRepo.listRecent")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, action, type, ip, city, created_at
		FROM portal.activity
		WHERE email = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2;`,
		normalizeEmail(email), limit,
	)
	if err != nil {
		span.SetStatus(codes.Error, "query")
		span.RecordError(err)
		return nil, fmt.Errorf("query activity: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.ID, &e.Email, &e.Action, &e.Type, &e.IP, &e.City, &e.CreatedAt)
		return e, err
	})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Error, "scan")
		return nil, fmt.Errorf("collect activity rows: %w", err)
	}

	span.SetAttributes(attribute.Int("activity.count", len(entries)))
	return entries, nil
}
