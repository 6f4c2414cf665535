// Package postgres implements the relational repository ports over gorm.
// All queries are explicit; nothing relies on lazy relation loading.
package postgres

import (
	"context"

	"gorm.io/gorm"

	"traceroot/internal/core/domain/organization"
)

// ctxTxKey marks a transaction handle stored in a context by Transactor.
type ctxTxKey struct{}

// Transactor implements organization.Transactor. Repository calls made with
// the context passed to fn join the same database transaction, which is how
// owner-count checks stay atomic with the mutations they guard.
type Transactor struct {
	db *gorm.DB
}

// NewTransactor wraps a gorm handle.
func NewTransactor(db *gorm.DB) organization.Transactor {
	return &Transactor{db: db}
}

// WithinTransaction runs fn inside one transaction, committing when fn
// returns nil and rolling back otherwise.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, ctxTxKey{}, tx))
	})
}

// dbFrom returns the transaction bound to ctx when present, else the base
// handle bound to ctx.
func dbFrom(ctx context.Context, base *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(ctxTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return base.WithContext(ctx)
}
