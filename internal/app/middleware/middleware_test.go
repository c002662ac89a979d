package middleware_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehub/internal/app/commands"
	"warehub/internal/app/middleware"
	appoutbox "warehub/internal/app/outbox"
	"warehub/internal/app/uow"
	"warehub/internal/domain/auth"
	domainuser "warehub/internal/domain/user"
	"warehub/internal/infra/storage/memory"
)

type noteResult struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

type noteCommand struct {
	Actor auth.Actor
	Text  string
	Token string
}

func (noteCommand) Key() string                { return "test.note" }
func (c noteCommand) RequestActor() auth.Actor { return c.Actor }
func (c noteCommand) IdempotencyKey() string   { return c.Token }
func (noteCommand) ResultPrototype() any       { return &noteResult{} }

var alice = auth.Actor{UserID: "u-alice", Email: "alice@example.com", Role: domainuser.RoleCustomer}

func countingBus(calls *int, fail error) *commands.InMemoryBus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, commands.HandlerFunc[noteCommand, *noteResult](func(_ context.Context, cmd noteCommand) (*noteResult, error) {
		*calls++
		if fail != nil {
			return nil, fail
		}
		return &noteResult{ID: cmd.Text, Count: *calls}, nil
	}))
	return bus
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	ctx := context.Background()
	calls := 0
	bus := middleware.ChainCommands(countingBus(&calls, nil), middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil))

	cmd := noteCommand{Actor: alice, Text: "hello", Token: "k1"}
	first, err := commands.Dispatch[noteCommand, *noteResult](ctx, bus, cmd)
	require.NoError(t, err)
	second, err := commands.Dispatch[noteCommand, *noteResult](ctx, bus, cmd)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	_, err = commands.Dispatch[noteCommand, *noteResult](ctx, bus, noteCommand{Actor: alice, Text: "other", Token: "k1"})
	assert.ErrorIs(t, err, middleware.ErrIdempotencyKeyReused)

	_, err = commands.Dispatch[noteCommand, *noteResult](ctx, bus, noteCommand{Actor: alice, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "commands without a key always run")
}

func TestIdempotencyDoesNotRememberFailures(t *testing.T) {
	ctx := context.Background()
	calls := 0
	boom := errors.New("boom")
	bus := middleware.ChainCommands(countingBus(&calls, boom), middleware.Idempotency(memory.NewIdempotencyStore(0), nil))

	cmd := noteCommand{Actor: alice, Text: "x", Token: "k"}
	_, err := commands.Dispatch[noteCommand, *noteResult](ctx, bus, cmd)
	assert.ErrorIs(t, err, boom)
	_, err = commands.Dispatch[noteCommand, *noteResult](ctx, bus, cmd)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyConcurrentDispatchRunsOnce(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	release := make(chan struct{})
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, commands.HandlerFunc[noteCommand, *noteResult](func(_ context.Context, cmd noteCommand) (*noteResult, error) {
		n := calls.Add(1)
		<-release
		return &noteResult{ID: cmd.Text, Count: int(n)}, nil
	}))
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil))

	cmd := noteCommand{Actor: alice, Text: "double-click", Token: "k1"}
	results := make([]*noteResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = commands.Dispatch[noteCommand, *noteResult](ctx, bus, cmd)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	// Give the second dispatch time to reach the held claim.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, results[0], results[1])
}

func TestIdempotencyWaiterRunsAfterFailedClaim(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	release := make(chan struct{})
	boom := errors.New("boom")
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, commands.HandlerFunc[noteCommand, *noteResult](func(_ context.Context, cmd noteCommand) (*noteResult, error) {
		if calls.Add(1) == 1 {
			<-release
			return nil, boom
		}
		return &noteResult{ID: cmd.Text}, nil
	}))
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil))
	cmd := noteCommand{Actor: alice, Text: "retry", Token: "k2"}

	firstErr := make(chan error, 1)
	go func() {
		_, err := commands.Dispatch[noteCommand, *noteResult](ctx, bus, cmd)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan *noteResult, 1)
	go func() {
		res, err := commands.Dispatch[noteCommand, *noteResult](ctx, bus, cmd)
		assert.NoError(t, err)
		second <- res
	}()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "second dispatch waits on the claim")

	close(release)
	assert.ErrorIs(t, <-firstErr, boom)
	select {
	case res := <-second:
		require.NotNil(t, res)
		assert.Equal(t, "retry", res.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("waiting dispatch never ran")
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestAuthorizationRejectsAnonymousActor(t *testing.T) {
	calls := 0
	bus := middleware.ChainCommands(countingBus(&calls, nil), middleware.Authorization(middleware.ActorAuthorizer{}))

	_, err := commands.Dispatch[noteCommand, *noteResult](context.Background(), bus, noteCommand{Text: "x"})
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.Zero(t, calls)
}

type blankTextValidator struct{}

var errBlankText = errors.New("text required")

func (blankTextValidator) Validate(_ context.Context, message any) error {
	if cmd, ok := message.(noteCommand); ok && cmd.Text == "" {
		return errBlankText
	}
	return nil
}

func TestValidationTagsRejectionWithMessageKey(t *testing.T) {
	calls := 0
	bus := middleware.ChainCommands(countingBus(&calls, nil), middleware.Validation(blankTextValidator{}))

	_, err := commands.Dispatch[noteCommand, *noteResult](context.Background(), bus, noteCommand{Actor: alice})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBlankText)
	var rejected *middleware.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "test.note", rejected.MessageKey)
	assert.Equal(t, "test.note: text required", err.Error())
	assert.Zero(t, calls)

	_, err = commands.Dispatch[noteCommand, *noteResult](context.Background(), bus, noteCommand{Actor: alice, Text: "ok"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

type recordingOutbox struct {
	flushes int
	err     error
}

func (o *recordingOutbox) Add(context.Context, appoutbox.EventRecord) error { return nil }
func (o *recordingOutbox) Flush(context.Context) error {
	o.flushes++
	return o.err
}

func TestTransactionBindsUnitAndFlushRunsAfterCommit(t *testing.T) {
	store := memory.NewStore()
	box := &recordingOutbox{err: errors.New("hub closed")}

	var sawUnit bool
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, commands.HandlerFunc[noteCommand, *noteResult](func(ctx context.Context, cmd noteCommand) (*noteResult, error) {
		_, sawUnit = uow.FromContext(ctx)
		assert.Zero(t, box.flushes, "flush must wait for the transaction")
		return &noteResult{ID: cmd.Text}, nil
	}))
	bus := middleware.ChainCommands(base,
		middleware.OutboxFlush(box, nil),
		middleware.Transaction(store, nil),
	)

	res, err := commands.Dispatch[noteCommand, *noteResult](context.Background(), bus, noteCommand{Actor: alice, Text: "t"})
	require.NoError(t, err, "a failed flush does not fail a committed command")
	assert.Equal(t, "t", res.ID)
	assert.True(t, sawUnit)
	assert.Equal(t, 1, box.flushes)
}

func TestChainOrderIsOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) middleware.CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return dispatchFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	calls := 0
	bus := middleware.ChainCommands(countingBus(&calls, nil), tag("a"), tag("b"), tag("c"))
	_, err := bus.Dispatch(context.Background(), noteCommand{Actor: alice})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

type dispatchFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f dispatchFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}
