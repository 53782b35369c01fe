package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var zeroTime time.Time

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewID returns a fresh store-assigned document id
func (db *DB) NewID() string {
	return uuid.NewString()
}

// Create inserts a new document and returns its generated id
func (db *DB) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	id := db.NewID()
	if err := db.insert(ctx, db.DB, collection, id, fields); err != nil {
		return "", wrapDBError("create "+collection, err)
	}
	db.logger.Debug("document created", "collection", collection, "id", id)
	db.hub.notify(collection)
	return id, nil
}

// CreateWithID inserts a document under a caller-chosen id. It fails with
// ErrAlreadyExists when the id is taken.
func (db *DB) CreateWithID(ctx context.Context, collection, id string, fields Fields) error {
	if err := db.insert(ctx, db.DB, collection, id, fields); err != nil {
		return wrapDBError(fmt.Sprintf("create %s/%s", collection, id), err)
	}
	db.logger.Debug("document created", "collection", collection, "id", id)
	db.hub.notify(collection)
	return nil
}

func (db *DB) insert(ctx context.Context, ex execer, collection, id string, fields Fields) error {
	data, err := encodeFields(fields, db.clock())
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
	`, collection, id, string(data))
	return err
}

// upsert writes the full body of a document, keeping its original seq
func (db *DB) upsert(ctx context.Context, ex execer, collection, id string, fields Fields) error {
	data, err := encodeFields(fields, db.clock())
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP
	`, collection, id, string(data))
	return err
}

// Get retrieves a document by id
func (db *DB) Get(ctx context.Context, collection, id string) (Document, error) {
	var d Document
	var data string
	err := db.QueryRowContext(ctx, `
		SELECT id, seq, data FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&d.ID, &d.Seq, &data)
	if err != nil {
		return Document{}, wrapDBError(fmt.Sprintf("get %s/%s", collection, id), err)
	}
	d.Data = []byte(data)
	return d, nil
}

// Update merges fields into an existing document. A nil value removes the
// field. Preconditions are extra filters the stored document must match; a
// document that fails them is treated as absent, so the call fails with
// ErrNotFound.
func (db *DB) Update(ctx context.Context, collection, id string, fields Fields, preconditions ...Filter) error {
	op := fmt.Sprintf("update %s/%s", collection, id)
	patch, err := encodeFields(fields, db.clock())
	if err != nil {
		return wrapDBError(op, err)
	}
	where, args, err := whereID(collection, id, preconditions, []any{string(patch)})
	if err != nil {
		return wrapDBError(op, err)
	}
	result, err := db.ExecContext(ctx, `
		UPDATE documents SET data = json_patch(data, ?), updated_at = CURRENT_TIMESTAMP
		WHERE `+where, args...)
	if err != nil {
		return wrapDBError(op, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return wrapDBError(op, err)
	} else if n == 0 {
		return wrapDBError(op, ErrNotFound)
	}
	db.logger.Debug("document updated", "collection", collection, "id", id)
	db.hub.notify(collection)
	return nil
}

// Delete removes a document. Like Update, a document failing the
// preconditions is treated as absent and the call fails with ErrNotFound.
func (db *DB) Delete(ctx context.Context, collection, id string, preconditions ...Filter) error {
	op := fmt.Sprintf("delete %s/%s", collection, id)
	where, args, err := whereID(collection, id, preconditions, nil)
	if err != nil {
		return wrapDBError(op, err)
	}
	result, err := db.ExecContext(ctx, "DELETE FROM documents WHERE "+where, args...)
	if err != nil {
		return wrapDBError(op, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return wrapDBError(op, err)
	} else if n == 0 {
		return wrapDBError(op, ErrNotFound)
	}
	db.logger.Debug("document deleted", "collection", collection, "id", id)
	db.hub.notify(collection)
	return nil
}

// whereID renders the WHERE clause selecting one document that also matches
// preconditions, appending its arguments to args
func whereID(collection, id string, preconditions []Filter, args []any) (string, []any, error) {
	var sb strings.Builder
	args = append(args, collection, id)
	sb.WriteString("collection = ? AND id = ?")
	for _, f := range preconditions {
		clause, next, err := filterClause(f, args)
		if err != nil {
			return "", nil, err
		}
		args = next
		sb.WriteString(" AND ")
		sb.WriteString(clause)
	}
	return sb.String(), args, nil
}

// Query runs a one-shot filtered, ordered read
func (db *DB) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	return db.query(ctx, db.DB, collection, q)
}

func (db *DB) query(ctx context.Context, ex execer, collection string, q Query) ([]Document, error) {
	op := "query " + collection
	stmt, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, wrapDBError(op, err)
	}

	rows, err := ex.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, wrapDBError(op, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var data string
		if err := rows.Scan(&d.ID, &d.Seq, &data); err != nil {
			return nil, wrapDBError(op, err)
		}
		d.Data = []byte(data)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(op, err)
	}
	return docs, nil
}
