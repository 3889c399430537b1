package mariadb

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-gate/internal/signature"
	"github.com/kozaktomas/face-gate/internal/store"
)

// SignatureRepository stores signatures in a MariaDB signatures table.
type SignatureRepository struct {
	pool *Pool
}

var _ store.Store = (*SignatureRepository)(nil)

// Exists checks if a signature is stored under label.
func (r *SignatureRepository) Exists(ctx context.Context, label string) (bool, error) {
	var exists bool
	err := r.pool.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM signatures WHERE label = ?)`, label).Scan(&exists)
	if err != nil {
		return false, store.Fail("exists", label, err)
	}
	return exists, nil
}

// Create inserts a new signature; the duplicate key error maps to ErrAlreadyExists.
func (r *SignatureRepository) Create(ctx context.Context, label string, sig signature.Signature) error {
	_, err := r.pool.db.ExecContext(ctx,
		`INSERT INTO signatures (label, signature) VALUES (?, ?)`, label, sig.Bytes())
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("%w: %q", store.ErrAlreadyExists, label)
		}
		return store.Fail("insert", label, err)
	}
	return nil
}

// Entries returns every stored signature. The binary collation on label
// orders rows bytewise.
func (r *SignatureRepository) Entries(ctx context.Context) ([]store.Entry, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT label, signature FROM signatures ORDER BY label`)
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
	rows, err := r.pool.db.QueryContext(ctx, `SELECT label FROM signatures ORDER BY label`)
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
		`UPDATE signatures SET label = ? WHERE label = ?`, newLabel, oldLabel)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("%w: %q", store.ErrAlreadyExists, newLabel)
		}
		return store.Fail("rename", oldLabel, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return store.Fail("rename", oldLabel, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q", store.ErrNotFound, oldLabel)
	}
	return nil
}

// Delete removes a stored signature.
func (r *SignatureRepository) Delete(ctx context.Context, label string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM signatures WHERE label = ?`, label)
	if err != nil {
		return store.Fail("delete", label, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return store.Fail("delete", label, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q", store.ErrNotFound, label)
	}
	return nil
}

// Close closes the underlying pool.
func (r *SignatureRepository) Close() error {
	return r.pool.Close()
}
