package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context carries the request context into a repo call, plus the transaction
// the call must join when one is open.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func From(ctx context.Context) Context { return Context{Ctx: ctx} }

// WithTx returns a copy of c bound to tx.
func (c Context) WithTx(tx *gorm.DB) Context {
	c.Tx = tx
	return c
}

// DB picks the open transaction over base and scopes it to c.Ctx.
func (c Context) DB(base *gorm.DB) *gorm.DB {
	db := base
	if c.Tx != nil {
		db = c.Tx
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return db.WithContext(ctx)
}
