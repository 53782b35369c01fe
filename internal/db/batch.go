package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tgienger/sprintdash/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// WriteBatch collects writes that commit atomically: either every operation
// applies or none does
type WriteBatch interface {
	// Set writes the full body of collection/id, creating it if absent
	Set(collection, id string, fields Fields)
	// Delete removes collection/id. The batch is rejected if the document
	// is missing or any precondition does not hold.
	Delete(collection, id string, preconditions ...Filter)
	// Len returns the number of queued operations
	Len() int
	// Commit applies all operations in one transaction
	Commit(ctx context.Context) error
}

type opKind int

const (
	opSet opKind = iota
	opDelete
)

func (k opKind) String() string {
	if k == opDelete {
		return "delete"
	}
	return "set"
}

type batchOp struct {
	kind          opKind
	collection    string
	id            string
	fields        Fields
	preconditions []Filter
}

// Batch is the SQLite WriteBatch
type Batch struct {
	db        *DB
	ops       []batchOp
	committed bool
}

// NewBatch starts an empty batch
func (db *DB) NewBatch() WriteBatch {
	return &Batch{db: db}
}

func (b *Batch) Set(collection, id string, fields Fields) {
	b.ops = append(b.ops, batchOp{kind: opSet, collection: collection, id: id, fields: fields})
}

func (b *Batch) Delete(collection, id string, preconditions ...Filter) {
	b.ops = append(b.ops, batchOp{kind: opDelete, collection: collection, id: id, preconditions: preconditions})
}

func (b *Batch) Len() int {
	return len(b.ops)
}

// Commit applies the batch. Any rejected operation rolls back the whole
// transaction and Commit returns an error wrapping ErrBatchFailed.
func (b *Batch) Commit(ctx context.Context) (err error) {
	if b.committed {
		return fmt.Errorf("%w: batch already committed", ErrBatchFailed)
	}
	if len(b.ops) == 0 {
		b.committed = true
		return nil
	}

	ctx, span := telemetry.Tracer("db").Start(ctx, "db.batch.commit")
	span.SetAttributes(attribute.Int("batch.ops", len(b.ops)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "batch rejected")
		}
		span.End()
	}()

	tx, err := b.db.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrBatchFailed, wrapDBError("begin", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	touched := make(map[string]struct{})
	for i, op := range b.ops {
		if err := b.apply(ctx, tx, op); err != nil {
			return fmt.Errorf("%w: op %d (%s %s/%s): %w", ErrBatchFailed, i, op.kind, op.collection, op.id, err)
		}
		touched[op.collection] = struct{}{}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrBatchFailed, wrapDBError("commit", err))
	}
	committed = true
	b.committed = true

	b.db.logger.Debug("batch committed", "ops", len(b.ops))
	for c := range touched {
		b.db.hub.notify(c)
	}
	return nil
}

func (b *Batch) apply(ctx context.Context, tx *sql.Tx, op batchOp) error {
	switch op.kind {
	case opSet:
		return wrapDBError("set", b.db.upsert(ctx, tx, op.collection, op.id, op.fields))
	case opDelete:
		return b.applyDelete(ctx, tx, op)
	}
	return fmt.Errorf("unknown batch operation %d", op.kind)
}

func (b *Batch) applyDelete(ctx context.Context, tx *sql.Tx, op batchOp) error {
	where, args, err := whereID(op.collection, op.id, op.preconditions, nil)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE "+where, args...)
	if err != nil {
		return wrapDBError("delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapDBError("delete", err)
	}
	if n > 0 {
		return nil
	}

	// Distinguish a vanished document from a failed precondition
	var exists int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE collection = ? AND id = ?", op.collection, op.id).Scan(&exists)
	if err != nil {
		return wrapDBError("delete", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrPreconditionFailed
}

// beginTx starts an IMMEDIATE transaction, retrying while another
// connection holds the write lock
func (db *DB) beginTx(ctx context.Context) (*sql.Tx, error) {
	var tx *sql.Tx
	operation := func() error {
		var err error
		tx, err = db.BeginTx(ctx, nil)
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 10 * time.Millisecond
	eb.MaxElapsedTime = 2 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, 5), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Err
		}
		return nil, err
	}
	return tx, nil
}
