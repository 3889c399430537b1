package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/face-gate/internal/signature"
	"github.com/kozaktomas/face-gate/internal/store"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for a duplicate key.
const uniqueViolation = "23505"

// SignatureRepository stores signatures in the signatures table.
type SignatureRepository struct {
	pool *Pool
}

var _ store.Store = (*SignatureRepository)(nil)

// NewSignatureRepository creates a repository on top of a migrated pool.
func NewSignatureRepository(pool *Pool) *SignatureRepository {
	return &SignatureRepository{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Exists checks if a signature is stored under label
func (r *SignatureRepository) Exists(ctx context.Context, label string) (bool, error) {
	var exists bool
	err := r.pool.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM signatures WHERE label = $1)`, label).Scan(&exists)
	if err != nil {
		return false, store.Fail("exists", label, err)
	}
	return exists, nil
}

// Create inserts a new signature. A single INSERT is atomic, so there is no
// partially written row on failure.
func (r *SignatureRepository) Create(ctx context.Context, label string, sig signature.Signature) error {
	result, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO signatures (label, signature)
		VALUES ($1, $2)
		ON CONFLICT (label) DO NOTHING
	`, label, sig.Bytes())
	if err != nil {
		return store.Fail("insert", label, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return store.Fail("insert", label, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q", store.ErrAlreadyExists, label)
	}
	return nil
}

// Entries returns every stored signature ordered by label.
// COLLATE "C" gives byte order, matching sort.Strings.
func (r *SignatureRepository) Entries(ctx context.Context) ([]store.Entry, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT label, signature FROM signatures ORDER BY label COLLATE "C"`)
	if err != nil {
		return nil, store.Fail("list", "", err)
	}
	defer rows.Close()

	var entries []store.Entry
	for rows.Next() {
		var (
			label string
			data  []byte
		)
		if err := rows.Scan(&label, &data); err != nil {
			return nil, store.Fail("scan", "", err)
		}
		entries = append(entries, store.Entry{Label: label, Signature: signature.FromBytes(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, store.Fail("list", "", err)
	}
	return entries, nil
}

// Labels returns every label ordered ascending.
func (r *SignatureRepository) Labels(ctx context.Context) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT label FROM signatures ORDER BY label COLLATE "C"`)
	if err != nil {
		return nil, store.Fail("list", "", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, store.Fail("scan", "", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Fail("list", "", err)
	}
	return labels, nil
}

// Rename changes the label of a stored signature.
func (r *SignatureRepository) Rename(ctx context.Context, oldLabel, newLabel string) error {
	result, err := r.pool.db.ExecContext(ctx,
		`UPDATE signatures SET label = $2, updated_at = NOW() WHERE label = $1`, oldLabel, newLabel)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", store.ErrAlreadyExists, newLabel)
		}
		return store.Fail("rename", oldLabel, err)
	}
	return requireOneRow(result, "rename", oldLabel)
}

// Delete removes a stored signature.
func (r *SignatureRepository) Delete(ctx context.Context, label string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM signatures WHERE label = $1`, label)
	if err != nil {
		return store.Fail("delete", label, err)
	}
	return requireOneRow(result, "delete", label)
}

// Close closes the underlying pool.
func (r *SignatureRepository) Close() error {
	return r.pool.Close()
}

func requireOneRow(result sql.Result, op, label string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return store.Fail(op, label, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q", store.ErrNotFound, label)
	}
	return nil
}
