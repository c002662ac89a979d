package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"warehub/internal/app/commands"
)

// IdempotentCommand opts a command into replay. An empty key disables replay
// for that dispatch, so a plain double submit still runs twice.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer to decode a replayed result into. It
	// must match the handler's result type.
	ResultPrototype() any
}

// IdempotencyRecord is a claimed key. Pending records belong to a dispatch
// still in flight; completed ones carry the encoded result. Failures are never
// stored.
type IdempotencyRecord struct {
	Key         string
	Fingerprint string
	Pending     bool
	Payload     []byte
	OccurredAt  time.Time
}

// PendingLease bounds how long a pending claim blocks other dispatches. A
// claim older than this is treated as abandoned and may be taken over.
const PendingLease = time.Minute

type IdempotencyStore interface {
	// Reserve stores rec unless the key is already held by a live record, in
	// which case it returns that record and false.
	Reserve(ctx context.Context, rec IdempotencyRecord) (IdempotencyRecord, bool, error)
	// Save completes a reservation with its result.
	Save(ctx context.Context, rec IdempotencyRecord) error
	// Release drops a pending reservation after a failed dispatch.
	Release(ctx context.Context, key string) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var (
	// ErrIdempotencyKeyReused is returned when a key comes back with a
	// different request body.
	ErrIdempotencyKeyReused = errors.New("middleware: idempotency key reused with a different request")

	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
)

const claimPollInterval = 25 * time.Millisecond

// Idempotency replays the stored result of an earlier successful dispatch with
// the same key. The key is claimed before the command runs; a concurrent
// dispatch with the same key waits for the claim to settle, then replays the
// result or, when the first run failed, runs itself.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			fingerprint, err := fingerprintOf(codec, cmd)
			if err != nil {
				return nil, err
			}
			claim := IdempotencyRecord{Key: idCmd.IdempotencyKey(), Fingerprint: fingerprint, Pending: true}

			for {
				claim.OccurredAt = time.Now().UTC()
				rec, reserved, err := store.Reserve(ctx, claim)
				if err != nil {
					return nil, err
				}
				if reserved {
					break
				}
				if rec.Fingerprint != "" && rec.Fingerprint != fingerprint {
					return nil, ErrIdempotencyKeyReused
				}
				if !rec.Pending {
					return replay(codec, idCmd, rec)
				}
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(claimPollInterval):
				}
			}

			result, err := nextFn(ctx, cmd)
			if err != nil {
				if relErr := store.Release(context.WithoutCancel(ctx), claim.Key); relErr != nil {
					return nil, errors.Join(err, relErr)
				}
				return nil, err
			}
			record := IdempotencyRecord{
				Key:         claim.Key,
				Fingerprint: fingerprint,
				OccurredAt:  time.Now().UTC(),
			}
			if result != nil {
				if record.Payload, err = codec.Encode(result); err != nil {
					return nil, errors.Join(err, store.Release(context.WithoutCancel(ctx), claim.Key))
				}
			}
			if err := store.Save(context.WithoutCancel(ctx), record); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

func replay(codec ResultCodec, cmd IdempotentCommand, rec IdempotencyRecord) (any, error) {
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return proto, nil
}

func fingerprintOf(codec ResultCodec, cmd commands.Command) (string, error) {
	raw, err := codec.Encode(cmd)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(cmd.Key()+"\n"), raw...))
	return hex.EncodeToString(sum[:]), nil
}
