package middleware

import (
	"context"
	"fmt"

	"warehub/internal/app/commands"
	"warehub/internal/app/queries"
)

type Validator interface {
	Validate(ctx context.Context, message any) error
}

// RejectedError tags a validation failure with the bus key of the message
// that failed, keeping the validator's error reachable through errors.As.
type RejectedError struct {
	MessageKey string
	Err        error
}

func (e *RejectedError) Error() string { return fmt.Sprintf("%s: %v", e.MessageKey, e.Err) }
func (e *RejectedError) Unwrap() error { return e.Err }

func validate(ctx context.Context, v Validator, key string, message any) error {
	if err := v.Validate(ctx, message); err != nil {
		return &RejectedError{MessageKey: key, Err: err}
	}
	return nil
}

// Validation checks commands before anything else touches storage.
func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := validate(ctx, v, cmd.Key(), cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := validate(ctx, v, q.Key(), q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
