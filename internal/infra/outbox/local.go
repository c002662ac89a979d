package outbox

import (
	"context"

	appoutbox "warehub/internal/app/outbox"
)

// LocalProducer stands in for the broker when none is configured: it unwraps
// each envelope and hands the record straight to the in-process dispatcher.
type LocalProducer struct {
	Dispatcher appoutbox.Dispatcher
}

func (p LocalProducer) Publish(ctx context.Context, _ string, _ string, payload []byte, _ map[string]string) error {
	rec, err := Unwrap(payload)
	if err != nil {
		return err
	}
	return p.Dispatcher.Dispatch(ctx, rec)
}

var _ Producer = LocalProducer{}
