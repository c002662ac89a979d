package support

import (
	"context"
	"errors"

	"warehub/internal/app/uow"
)

// ErrUnitOfWorkRequired is returned when a handler has neither a unit in
// context nor a factory to start one.
var ErrUnitOfWorkRequired = errors.New("handlers: unit of work required")

// WithinUnit runs fn inside the unit from ctx, or inside a new write unit that
// is committed when fn succeeds and rolled back otherwise.
func WithinUnit[R any](ctx context.Context, factory uow.UoWFactory, fn func(ctx context.Context, unit uow.UnitOfWork) (R, error)) (R, error) {
	var zero R
	if unit, ok := uow.FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if factory == nil {
		return zero, ErrUnitOfWorkRequired
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return zero, err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()
	res, err := fn(execCtx, unit)
	if err != nil {
		return zero, err
	}
	if err := unit.Commit(execCtx); err != nil {
		return zero, err
	}
	committed = true
	return res, nil
}

// WithinReadUnit runs fn inside the unit from ctx, or inside a read-only unit
// that is always rolled back.
func WithinReadUnit[R any](ctx context.Context, factory uow.UoWFactory, fn func(ctx context.Context, unit uow.UnitOfWork) (R, error)) (R, error) {
	var zero R
	if unit, ok := uow.FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if factory == nil {
		return zero, ErrUnitOfWorkRequired
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return zero, err
	}
	execCtx := uow.Bind(ctx, unit)
	defer func() { _ = unit.Rollback(execCtx) }()
	return fn(execCtx, unit)
}
