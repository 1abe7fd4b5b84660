package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/content-threads-api/internal/database"
	"github.com/content-threads-api/internal/models"
)

const defaultStatLimit = 100

// statRepo is the relational implementation of StatRepository
type statRepo struct {
	db *database.DB
}

// NewStatRepo creates a new statistics repository
func NewStatRepo(db *database.DB) StatRepository {
	return &statRepo{db: db}
}

// Insert appends one monthly count; rows are never updated in place
func (r *statRepo) Insert(ctx context.Context, record *models.StatRecord) error {
	query := `
		INSERT INTO comments (month, year, count, reference)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		record.Month, record.Year, record.Count, nullStringPtr(record.Reference),
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert stat record: %w", err)
	}
	return nil
}

// List returns records matching filter, newest first
func (r *statRepo) List(ctx context.Context, filter models.StatFilter) ([]models.StatRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Year > 0 {
		where = append(where, "year = "+arg(filter.Year))
	}
	if filter.Month > 0 {
		where = append(where, "month = "+arg(filter.Month))
	}
	switch {
	case filter.Global:
		where = append(where, "reference IS NULL")
	case filter.Reference != nil:
		where = append(where, "reference = "+arg(*filter.Reference))
	}

	limit := filter.Limit
	if limit <= 0 || limit > models.MaxLimit {
		limit = defaultStatLimit
	}

	query := `SELECT id, month, year, count, reference, created_at FROM comments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT " + arg(limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stat records: %w", err)
	}
	defer rows.Close()

	records := make([]models.StatRecord, 0)
	for rows.Next() {
		var rec models.StatRecord
		var reference sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Month, &rec.Year, &rec.Count, &reference, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stat record: %w", err)
		}
		if reference.Valid {
			ref := reference.String
			rec.Reference = &ref
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// nullStringPtr maps a nil reference to NULL
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
