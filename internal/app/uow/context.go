package uow

import "context"

type ctxKey struct{}

// ContextInjector is implemented by units that carry driver state, such as a
// database session, through the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

// Bind returns a context holding unit. Repositories and nested handlers
// called with it join the unit instead of starting their own.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	if ctx == nil {
		return nil, false
	}
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok
}
