package memory

import (
	"context"

	appoutbox "warehub/internal/app/outbox"
	"warehub/internal/app/uow"
)

// Outbox stages records in the current unit. Records become pending when the
// unit commits and reach the dispatcher on Flush, in commit order.
type Outbox struct {
	store      *Store
	dispatcher appoutbox.Dispatcher
}

func NewOutbox(store *Store, dispatcher appoutbox.Dispatcher) *Outbox {
	return &Outbox{store: store, dispatcher: dispatcher}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok && mu.store == o.store {
			if err := mu.writable(); err != nil {
				return err
			}
			mu.staged = append(mu.staged, record)
			return nil
		}
	}
	o.store.pendingMu.Lock()
	o.store.pending = append(o.store.pending, record)
	o.store.pendingMu.Unlock()
	return nil
}

// Flush hands every committed record to the dispatcher. Records that fail to
// dispatch are logged and dropped: live delivery is best effort.
func (o *Outbox) Flush(ctx context.Context) error {
	o.store.pendingMu.Lock()
	records := o.store.pending
	o.store.pending = nil
	o.store.pendingMu.Unlock()

	if o.dispatcher == nil {
		return nil
	}
	for _, rec := range records {
		if err := o.dispatcher.Dispatch(ctx, rec); err != nil {
			o.store.logger.Warn("outbox dispatch failed", "event_id", rec.ID, "event", rec.Name, "err", err)
		}
	}
	return nil
}

// Pending returns the committed records not yet flushed.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.store.pendingMu.Lock()
	defer o.store.pendingMu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.store.pending...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
