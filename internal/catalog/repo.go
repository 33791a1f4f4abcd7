package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/models"
)

const selectColumns = `id, filename, file_path, title, description, size_bytes, date_added, last_modified`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (*models.CatalogEntry, error) {
	var e models.CatalogEntry
	if err := r.Scan(&e.ID, &e.Filename, &e.FilePath, &e.Title, &e.Description, &e.SizeBytes, &e.DateAdded, &e.LastModified); err != nil {
		return nil, err
	}
	e.DateAdded = e.DateAdded.UTC()
	e.LastModified = e.LastModified.UTC()
	return &e, nil
}

// GetAll returns every entry, newest first.
func (db *DB) GetAll(ctx context.Context) ([]models.CatalogEntry, error) {
	ctx, cancel := db.opContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+selectColumns+` FROM documents ORDER BY date_added DESC, id DESC`)
	if err != nil {
		return nil, classify("get all", err)
	}
	defer rows.Close()

	out := []models.CatalogEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, classify("get all: scan", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("get all", err)
	}
	return out, nil
}

// GetByFilename returns the entry for name or apperr.ErrNotFound.
func (db *DB) GetByFilename(ctx context.Context, name string) (*models.CatalogEntry, error) {
	ctx, cancel := db.opContext(ctx)
	defer cancel()

	e, err := scanEntry(db.conn.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM documents WHERE filename = ?`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("catalog: get %s: %w", name, apperr.ErrNotFound)
		}
		return nil, classify("get "+name, err)
	}
	return e, nil
}

// Insert adds a new entry.
func (db *DB) Insert(ctx context.Context, e models.CatalogEntry) (*models.CatalogEntry, error) {
	if e.SizeBytes < 0 {
		return nil, fmt.Errorf("catalog: insert %s: negative size: %w", e.Filename, apperr.ErrInvalidInput)
	}
	now := time.Now().UTC()
	if e.DateAdded.IsZero() {
		e.DateAdded = now
	}
	if e.LastModified.IsZero() || e.LastModified.Before(e.DateAdded) {
		e.LastModified = e.DateAdded
	}

	ctx, cancel := db.opContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO documents (filename, file_path, title, description, size_bytes, date_added, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Filename, e.FilePath, e.Title, e.Description, e.SizeBytes, e.DateAdded.UTC(), e.LastModified.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("catalog: insert %s: %w", e.Filename, apperr.ErrDuplicateKey)
		}
		return nil, classify("insert "+e.Filename, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, classify("insert "+e.Filename, err)
	}
	e.ID = id
	e.DateAdded = e.DateAdded.UTC()
	e.LastModified = e.LastModified.UTC()
	return &e, nil
}

// Update applies u to the entry for filename. last_modified is bumped even when u
// changes nothing else, and is never set earlier than date_added.
func (db *DB) Update(ctx context.Context, filename string, u models.EntryUpdate) (*models.CatalogEntry, error) {
	if u.SizeBytes != nil && *u.SizeBytes < 0 {
		return nil, fmt.Errorf("catalog: update %s: negative size: %w", filename, apperr.ErrInvalidInput)
	}
	modified := u.LastModified
	if modified.IsZero() {
		modified = time.Now()
	}

	sets := []string{"last_modified = MAX(?, date_added)"}
	args := []any{modified.UTC()}
	if u.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.SizeBytes != nil {
		sets = append(sets, "size_bytes = ?")
		args = append(args, *u.SizeBytes)
	}
	if u.FilePath != nil {
		sets = append(sets, "file_path = ?")
		args = append(args, *u.FilePath)
	}
	args = append(args, filename)

	ctx, cancel := db.opContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("update "+filename+": begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	res, err := tx.ExecContext(ctx, `UPDATE documents SET `+strings.Join(sets, ", ")+` WHERE filename = ?`, args...)
	if err != nil {
		return nil, classify("update "+filename, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, classify("update "+filename, err)
	} else if n == 0 {
		return nil, fmt.Errorf("catalog: update %s: %w", filename, apperr.ErrNotFound)
	}

	e, err := scanEntry(tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM documents WHERE filename = ?`, filename))
	if err != nil {
		return nil, classify("update "+filename+": reload", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, classify("update "+filename+": commit", err)
	}
	return e, nil
}

// Delete removes the entry for filename.
func (db *DB) Delete(ctx context.Context, filename string) error {
	ctx, cancel := db.opContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM documents WHERE filename = ?`, filename)
	if err != nil {
		return classify("delete "+filename, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete "+filename, err)
	}
	if n == 0 {
		return fmt.Errorf("catalog: delete %s: %w", filename, apperr.ErrNotFound)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.opContext(ctx)
	defer cancel()
	if err := db.conn.PingContext(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// classify wraps err with the taxonomy kind callers branch on.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("catalog: %s: %w: %w", op, apperr.ErrTimeout, err)
	case errors.Is(err, sql.ErrConnDone), strings.Contains(err.Error(), "database is closed"):
		return fmt.Errorf("catalog: %s: %w: %w", op, apperr.ErrStorageUnavailable, err)
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr, sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return fmt.Errorf("catalog: %s: %w: %w", op, apperr.ErrStorageUnavailable, err)
		}
	}
	return fmt.Errorf("catalog: %s: %w", op, err)
}
